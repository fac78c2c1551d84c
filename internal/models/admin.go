package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest is the admin login payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued session token. Warning is set when the
// login succeeded only after falling back from an unreachable backend.
type LoginResponse struct {
	Email     string      `json:"email"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	Backend   BackendKind `json:"backend"`
	Warning   string      `json:"warning,omitempty"`
}

// SessionClaims are the JWT claims embedded in admin session tokens. The
// expiry doubles as the inactivity deadline; the session middleware re-issues
// tokens to keep the window sliding.
type SessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}
