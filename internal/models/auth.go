package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims carries the authenticated identity inside access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	TenantID string   `json:"tenant_id"`
	Role     UserRole `json:"role"`
	Name     string   `json:"name"`
	jwt.RegisteredClaims
}

// Identity is the explicit caller identity passed into service operations.
// Operations that need "who is calling" receive it as an argument instead of
// re-resolving the session themselves.
type Identity struct {
	UserID   string
	TenantID string
	Role     UserRole
}

// LoginRequest is the sign-in payload.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// RegisterRequest provisions a tenant together with its owning teacher account.
type RegisterRequest struct {
	Name       string     `json:"name" validate:"required"`
	Email      string     `json:"email" validate:"required,email"`
	Password   string     `json:"password" validate:"required,min=8"`
	TenantName string     `json:"tenant_name" validate:"required"`
	TenantType TenantType `json:"tenant_type" validate:"required,oneof=individual center school"`
}

// StudentLoginRequest signs a student in with the generated username
// credential instead of an email address.
type StudentLoginRequest struct {
	Username  string `json:"username" validate:"required"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// RefreshTokenRequest exchanges a refresh token for a new pair.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	IP           string `json:"-"`
	UserAgent    string `json:"-"`
}

// UserInfo is the caller-facing identity summary.
type UserInfo struct {
	ID       string   `json:"id"`
	Email    *string  `json:"email,omitempty"`
	Username *string  `json:"username,omitempty"`
	Name     string   `json:"name"`
	Role     UserRole `json:"role"`
	TenantID string   `json:"tenant_id"`
}

// LoginResponse returns issued tokens plus the user summary.
type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
	User         UserInfo  `json:"user"`
}

// RefreshTokenResponse returns a rotated token pair.
type RefreshTokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
}
