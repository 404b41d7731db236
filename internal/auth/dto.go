package auth

import (
	"github.com/supplyhub/marketplace-backend/internal/users"
	"github.com/supplyhub/marketplace-backend/pkg/enums"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse contains the access token and the authenticated user.
type LoginResponse struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresIn   int            `json:"expires_in"`
	User        *users.UserDTO `json:"user"`
}

// RegisterRequest is the sign-up payload. Type defaults to customer.
type RegisterRequest struct {
	FirstName  string         `json:"first_name" validate:"required"`
	MiddleName string         `json:"middle_name,omitempty"`
	LastName   string         `json:"last_name" validate:"required"`
	Email      string         `json:"email" validate:"required,email"`
	Password   string         `json:"password" validate:"required"`
	Company    string         `json:"company,omitempty"`
	Position   string         `json:"position,omitempty"`
	Type       enums.UserType `json:"type,omitempty"`
}
