package auth

import (
	"time"

	"github.com/dgrijalva/jwt-go"
)

// BackendUser is the user object returned by the backend login call.
type BackendUser struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CompanyID int64  `json:"company_id"`
	StationID int64  `json:"station_id"`
}

// LoginResult is the backend response to a successful login.
type LoginResult struct {
	Token string      `json:"token"`
	User  BackendUser `json:"user"`
}

// TokenClaims are the claims the console reads from the backend token.
type TokenClaims struct {
	jwt.StandardClaims
	UserID    int64  `json:"user_id,omitempty"`
	Role      string `json:"role,omitempty"`
	CompanyID int64  `json:"company_id,omitempty"`
	StationID int64  `json:"station_id,omitempty"`
}

// Expiry returns the token expiry, zero when the token carries none.
func (c TokenClaims) Expiry() time.Time {
	if c.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(c.ExpiresAt, 0).UTC()
}
