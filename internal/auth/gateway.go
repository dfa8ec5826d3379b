package auth

import (
	"context"

	"github.com/pumpline-erp/pumpline/internal/platform/backend"
)

// Gateway performs the backend authentication call.
type Gateway interface {
	Login(ctx context.Context, email, password string) (LoginResult, error)
}

// BackendGateway implements Gateway against the REST backend.
type BackendGateway struct {
	client *backend.Client
}

// NewBackendGateway constructs the gateway.
func NewBackendGateway(client *backend.Client) *BackendGateway {
	return &BackendGateway{client: client}
}

// Login posts credentials to /auth/login.
func (g *BackendGateway) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var out LoginResult
	body := map[string]string{"email": email, "password": password}
	if err := g.client.Post(ctx, "/auth/login", body, &out); err != nil {
		return LoginResult{}, err
	}
	return out, nil
}
