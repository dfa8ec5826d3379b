package shifts

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pumpline-erp/pumpline/internal/platform/backend"
)

// Gateway is the backend surface used by the shifts service.
type Gateway interface {
	ListShifts(ctx context.Context, stationID int64, status Status) ([]Shift, error)
	GetShift(ctx context.Context, id int64) (Shift, error)
	OpenShift(ctx context.Context, in OpenShiftInput) (Shift, error)
	OpenFormOptions(ctx context.Context, stationID int64) (OpenFormOptions, error)
}

// BackendGateway implements Gateway against the REST backend.
type BackendGateway struct {
	client *backend.Client
}

// NewBackendGateway constructs the gateway.
func NewBackendGateway(client *backend.Client) *BackendGateway {
	return &BackendGateway{client: client}
}

// ListShifts fetches /shift, optionally narrowed by station and status.
func (g *BackendGateway) ListShifts(ctx context.Context, stationID int64, status Status) ([]Shift, error) {
	q := url.Values{}
	if stationID > 0 {
		q.Set("station_id", strconv.FormatInt(stationID, 10))
	}
	if status != "" {
		q.Set("status", string(status))
	}
	var out []Shift
	if err := g.client.Get(ctx, "/shift", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetShift fetches one shift.
func (g *BackendGateway) GetShift(ctx context.Context, id int64) (Shift, error) {
	var out Shift
	if err := g.client.Get(ctx, fmt.Sprintf("/shift/%d", id), nil, &out); err != nil {
		return Shift{}, err
	}
	return out, nil
}

// OpenShift posts /shift/open.
func (g *BackendGateway) OpenShift(ctx context.Context, in OpenShiftInput) (Shift, error) {
	var out Shift
	if err := g.client.Post(ctx, "/shift/open", in, &out); err != nil {
		return Shift{}, err
	}
	return out, nil
}

// OpenFormOptions loads the station islands and staff for the open form.
func (g *BackendGateway) OpenFormOptions(ctx context.Context, stationID int64) (OpenFormOptions, error) {
	var station struct {
		Islands []Island `json:"islands"`
	}
	if err := g.client.Get(ctx, fmt.Sprintf("/station/%d", stationID), nil, &station); err != nil {
		return OpenFormOptions{}, err
	}
	var users []Staff
	q := url.Values{"station_id": {strconv.FormatInt(stationID, 10)}}
	if err := g.client.Get(ctx, "/user", q, &users); err != nil {
		return OpenFormOptions{}, err
	}
	opts := OpenFormOptions{Islands: station.Islands}
	for _, u := range users {
		switch strings.ToLower(u.Role) {
		case "supervisor", "station_manager":
			opts.Supervisors = append(opts.Supervisors, u)
		default:
			opts.Attendants = append(opts.Attendants, u)
		}
	}
	return opts, nil
}
