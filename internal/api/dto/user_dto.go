package dto

import "github.com/spec-kit/portal-service/internal/domain"

// RegisterRequest payload.
type RegisterRequest struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries the issued token.
type AuthResponse struct {
	UserID    string      `json:"user_id"`
	Role      domain.Role `json:"role"`
	Token     string      `json:"token"`
	ExpiresAt string      `json:"expires_at"`
}
