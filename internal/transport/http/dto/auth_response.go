package dto

import (
	"time"

	"github.com/baechuer/forgot-password/internal/domain"
)

type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type SessionResponse struct {
	User      UserResponse `json:"user"`
	ExpiresAt time.Time    `json:"expires_at"`
}

type ValidateTokenResponse struct {
	Valid bool `json:"valid"`
}

func NewUserResponse(u domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
	}
}

func NewSessionResponse(u domain.User, s domain.Session) SessionResponse {
	return SessionResponse{User: NewUserResponse(u), ExpiresAt: s.ExpiresAt}
}
