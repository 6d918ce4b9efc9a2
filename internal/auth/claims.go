package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the only supported JWT claims shape for this service.
// Refresh tokens carry no role: the role is reloaded from the user record
// on refresh so demotions take effect without waiting for expiry.
type Claims struct {
	jwt.RegisteredClaims

	UserID    int64     `json:"user_id"`
	Role      string    `json:"role,omitempty"`
	TokenType TokenType `json:"token_type"`
}
