package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/pumpline-erp/pumpline/internal/platform/backend"
	"github.com/pumpline-erp/pumpline/internal/shared"
)

// ErrUnsupportedRole is returned when the backend user has no console role.
var ErrUnsupportedRole = errors.New("auth: role has no console access")

// Service wraps authentication business rules.
type Service struct {
	gateway Gateway
	now     func() time.Time
}

// NewService constructs a new Service.
func NewService(gateway Gateway) *Service {
	return &Service{gateway: gateway, now: time.Now}
}

// Authenticate exchanges credentials for a backend token and builds the
// session principal from the returned user and the token claims.
func (s *Service) Authenticate(ctx context.Context, email, password string) (shared.Principal, error) {
	res, err := s.gateway.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) || errors.Is(err, backend.ErrValidation) || errors.Is(err, backend.ErrNotFound) {
			return shared.Principal{}, shared.ErrInvalidCredentials
		}
		return shared.Principal{}, err
	}
	if res.Token == "" {
		return shared.Principal{}, fmt.Errorf("auth: backend returned no token")
	}
	claims, err := ParseClaims(res.Token)
	if err != nil {
		return shared.Principal{}, err
	}

	p := shared.Principal{
		UserID:    res.User.ID,
		Name:      res.User.Name,
		Email:     res.User.Email,
		Role:      shared.ParseRole(res.User.Role),
		CompanyID: res.User.CompanyID,
		StationID: res.User.StationID,
		Token:     res.Token,
		ExpiresAt: claims.Expiry(),
	}
	if p.UserID == 0 {
		p.UserID = claims.UserID
	}
	if p.Role == "" {
		p.Role = shared.ParseRole(claims.Role)
	}
	if p.CompanyID == 0 {
		p.CompanyID = claims.CompanyID
	}
	if p.StationID == 0 {
		p.StationID = claims.StationID
	}
	if p.Email == "" {
		p.Email = strings.TrimSpace(email)
	}
	if p.Role == "" {
		return shared.Principal{}, ErrUnsupportedRole
	}
	if p.Expired(s.now()) {
		return shared.Principal{}, shared.ErrInvalidCredentials
	}
	return p, nil
}

// ParseClaims reads the token claims without verifying the signature. The
// backend verifies every request; the console only needs scope and expiry.
// Opaque (non-JWT) tokens yield empty claims.
func ParseClaims(token string) (TokenClaims, error) {
	var claims TokenClaims
	if strings.Count(token, ".") != 2 {
		return claims, nil
	}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, &claims); err != nil {
		return TokenClaims{}, fmt.Errorf("auth: parse token claims: %w", err)
	}
	return claims, nil
}
