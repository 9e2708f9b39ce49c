package user_services

import (
	"context"

	"github.com/iyunix/go-chatline/internal/domain"
	"github.com/iyunix/go-chatline/internal/ratelimit"
	"github.com/iyunix/go-chatline/internal/repository/user"
)

// UserService is the main service that composes other user-related services
type UserService struct {
	*AuthService
	*LockoutService
	userRepo user.UserRepository
}

func NewUserService(userRepo user.UserRepository, jwtSecret string, lockoutLimiter *ratelimit.MemoryRateLimiter, logger Logger) *UserService {
	lockout := NewLockoutService(lockoutLimiter, logger)
	return &UserService{
		AuthService:    NewAuthService(userRepo, jwtSecret, lockout, logger),
		LockoutService: lockout,
		userRepo:       userRepo,
	}
}

func (s *UserService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}
