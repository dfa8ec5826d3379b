package offload

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/pumpline-erp/pumpline/internal/platform/backend"
)

// Gateway is the backend surface of the offload workflow.
type Gateway interface {
	ListOffloads(ctx context.Context, f Filter) ([]Offload, error)
	GetOffload(ctx context.Context, id int64) (Offload, error)
	StartOptions(ctx context.Context, stationID int64) (StartOptions, error)
	StartOffload(ctx context.Context, payload StartPayload, idempotencyKey string) (Offload, error)
	CompleteOffload(ctx context.Context, id int64, payload CompletePayload, idempotencyKey string) (Offload, error)
}

// BackendGateway implements Gateway against the REST backend.
type BackendGateway struct {
	client *backend.Client
}

// NewBackendGateway constructs the gateway.
func NewBackendGateway(client *backend.Client) *BackendGateway {
	return &BackendGateway{client: client}
}

// ListOffloads fetches /offload.
func (g *BackendGateway) ListOffloads(ctx context.Context, f Filter) ([]Offload, error) {
	q := url.Values{}
	if f.StationID > 0 {
		q.Set("station_id", strconv.FormatInt(f.StationID, 10))
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	var out []Offload
	if err := g.client.Get(ctx, "/offload", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetOffload fetches /offload/{id}.
func (g *BackendGateway) GetOffload(ctx context.Context, id int64) (Offload, error) {
	var out Offload
	if err := g.client.Get(ctx, fmt.Sprintf("/offload/%d", id), nil, &out); err != nil {
		return Offload{}, err
	}
	return out, nil
}

// StartOptions loads pending purchases and the station's tanks and pumps.
func (g *BackendGateway) StartOptions(ctx context.Context, stationID int64) (StartOptions, error) {
	var opts StartOptions
	q := url.Values{"station_id": {strconv.FormatInt(stationID, 10)}, "status": {"pending"}}
	if err := g.client.Get(ctx, "/purchase", q, &opts.Purchases); err != nil {
		return StartOptions{}, err
	}
	var station struct {
		Tanks []Tank `json:"tanks"`
		Pumps []Pump `json:"pumps"`
	}
	if err := g.client.Get(ctx, fmt.Sprintf("/station/%d", stationID), nil, &station); err != nil {
		return StartOptions{}, err
	}
	opts.Tanks = station.Tanks
	opts.Pumps = station.Pumps
	return opts, nil
}

// StartOffload posts /offload/start.
func (g *BackendGateway) StartOffload(ctx context.Context, payload StartPayload, idempotencyKey string) (Offload, error) {
	var out Offload
	err := g.client.Post(ctx, "/offload/start", payload, &out, backend.IdempotencyKey(idempotencyKey))
	return out, err
}

// CompleteOffload posts /offload/{id}/complete.
func (g *BackendGateway) CompleteOffload(ctx context.Context, id int64, payload CompletePayload, idempotencyKey string) (Offload, error) {
	var out Offload
	err := g.client.Post(ctx, fmt.Sprintf("/offload/%d/complete", id), payload, &out, backend.IdempotencyKey(idempotencyKey))
	return out, err
}
