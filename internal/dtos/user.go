// File: internal/dtos/user.go
package dtos

import (
	"time"

	"github.com/iyunix/go-chatline/internal/domain"
)

// UserResponseDTO defines what fields to expose in user API responses.
type UserResponseDTO struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	CreatedAt string `json:"createdAt"`
}

type UserCredentialsDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserAuthResponseDTO is returned by login and register.
type UserAuthResponseDTO struct {
	User  UserResponseDTO `json:"user"`
	Token string          `json:"token"`
}

func ToUserResponse(u *domain.User) UserResponseDTO {
	return UserResponseDTO{
		ID:        u.ID,
		Username:  u.Username,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}
