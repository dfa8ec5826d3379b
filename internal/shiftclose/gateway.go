package shiftclose

import (
	"context"
	"fmt"

	"github.com/pumpline-erp/pumpline/internal/platform/backend"
	"github.com/pumpline-erp/pumpline/internal/shifts"
)

// Gateway is the backend surface of the closing workflow.
type Gateway interface {
	GetShift(ctx context.Context, shiftID int64) (shifts.Shift, error)
	ClosingContext(ctx context.Context, shiftID int64) (ClosingContext, error)
	PreClosingCheck(ctx context.Context, shiftID int64) (PreClosingCheck, error)
	CloseShift(ctx context.Context, shiftID int64, payload ClosePayload, idempotencyKey string) (CloseResult, error)
}

// BackendGateway implements Gateway against the REST backend.
type BackendGateway struct {
	client *backend.Client
}

// NewBackendGateway constructs the gateway.
func NewBackendGateway(client *backend.Client) *BackendGateway {
	return &BackendGateway{client: client}
}

// GetShift fetches /shift/{id}.
func (g *BackendGateway) GetShift(ctx context.Context, shiftID int64) (shifts.Shift, error) {
	var out shifts.Shift
	err := g.client.Get(ctx, fmt.Sprintf("/shift/%d", shiftID), nil, &out)
	return out, err
}

// ClosingContext fetches /shift/{id}/closing-context.
func (g *BackendGateway) ClosingContext(ctx context.Context, shiftID int64) (ClosingContext, error) {
	var out ClosingContext
	err := g.client.Get(ctx, fmt.Sprintf("/shift/%d/closing-context", shiftID), nil, &out)
	return out, err
}

// PreClosingCheck fetches /shift/{id}/pre-closing-check.
func (g *BackendGateway) PreClosingCheck(ctx context.Context, shiftID int64) (PreClosingCheck, error) {
	var out PreClosingCheck
	err := g.client.Get(ctx, fmt.Sprintf("/shift/%d/pre-closing-check", shiftID), nil, &out)
	return out, err
}

// CloseShift posts the closing payload with the wizard's idempotency key.
func (g *BackendGateway) CloseShift(ctx context.Context, shiftID int64, payload ClosePayload, idempotencyKey string) (CloseResult, error) {
	var out CloseResult
	err := g.client.Post(ctx, fmt.Sprintf("/shift/%d/close", shiftID), payload, &out, backend.IdempotencyKey(idempotencyKey))
	return out, err
}
