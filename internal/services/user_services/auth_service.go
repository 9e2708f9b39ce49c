package user_services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iyunix/go-chatline/internal/auth"
	"github.com/iyunix/go-chatline/internal/domain"
	"github.com/iyunix/go-chatline/internal/repository/user"
)

type AuthService struct {
	userRepo     user.UserRepository
	jwtSecretKey []byte
	lockout      *LockoutService
	logger       Logger
}

func NewAuthService(userRepo user.UserRepository, jwtSecretKey string, lockout *LockoutService, logger Logger) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		jwtSecretKey: []byte(jwtSecretKey),
		lockout:      lockout,
		logger:       logger,
	}
}

// Register creates an account and returns it with a session token.
func (s *AuthService) Register(ctx context.Context, username, password string) (*domain.User, string, error) {
	username = strings.TrimSpace(username)

	u := &domain.User{Username: username}
	if err := u.HashPassword(password); err != nil {
		return nil, "", &ValidationError{Reason: err.Error()}
	}
	if err := u.IsValid(); err != nil {
		return nil, "", &ValidationError{Reason: err.Error()}
	}

	created, err := s.userRepo.Create(ctx, u)
	if err != nil {
		if errors.Is(err, user.ErrUsernameTaken) {
			s.logger.Warn("registration failed - username already exists", "username", mask(username))
			return nil, "", ErrUsernameTaken
		}
		s.logger.Error("user creation failed", "error", err, "username", mask(username))
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := auth.GenerateJWT(created.ID, s.jwtSecretKey)
	if err != nil {
		s.logger.Error("JWT token generation failed", "error", err, "user_id", created.ID)
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info("user registered successfully", "username", mask(username), "user_id", created.ID)
	return created, token, nil
}

// Login checks credentials and returns a session token. Unknown users and
// wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, username, password, sourceIP string) (*domain.User, string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		s.logger.Warn("login attempt with empty credentials",
			"has_username", username != "",
			"has_password", password != "")
		return nil, "", ErrInvalidCredentials
	}

	if locked, _ := s.lockout.IsLocked(username); locked {
		s.logger.Warn("login attempt on locked account", "username", mask(username), "source_ip", sourceIP)
		return nil, "", ErrAccountLocked
	}

	u, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, user.ErrUserNotFound) {
			s.logger.Error("user lookup failed", "error", err, "username", mask(username))
			return nil, "", fmt.Errorf("failed to look up user: %w", err)
		}
		s.lockout.RecordFailedAttempt(username, sourceIP)
		return nil, "", ErrInvalidCredentials
	}

	if err := u.ValidatePassword(password); err != nil {
		s.lockout.RecordFailedAttempt(username, sourceIP)
		return nil, "", ErrInvalidCredentials
	}
	s.lockout.RecordSuccess(username)

	token, err := auth.GenerateJWT(u.ID, s.jwtSecretKey)
	if err != nil {
		s.logger.Error("JWT token generation failed", "error", err, "user_id", u.ID)
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info("login successful", "username", mask(username), "user_id", u.ID)
	return u, token, nil
}
