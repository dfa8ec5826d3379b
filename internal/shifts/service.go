package shifts

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/pumpline-erp/pumpline/internal/shared"
)

// ErrShiftInProgress is returned when the station already has an open shift.
var ErrShiftInProgress = errors.New("shifts: station already has a shift in progress")

// Service implements shift listing and opening.
type Service struct {
	gateway  Gateway
	validate *validator.Validate
}

// NewService constructs the service.
func NewService(gateway Gateway) *Service {
	return &Service{gateway: gateway, validate: validator.New()}
}

// List returns shifts newest first, scoped to the principal's station when
// the role is station bound.
func (s *Service) List(ctx context.Context, p shared.Principal, f Filter) ([]Shift, error) {
	stationID := f.StationID
	if p.StationID > 0 && (p.Role == shared.RoleStationManager || p.Role == shared.RoleSupervisor) {
		stationID = p.StationID
	}
	items, err := s.gateway.ListShifts(ctx, stationID, f.Status)
	if err != nil {
		return nil, fmt.Errorf("list shifts: %w", err)
	}
	out := items[:0:0]
	for _, sh := range items {
		if f.Status != "" && ParseStatus(string(sh.Status)) != f.Status {
			continue
		}
		out = append(out, sh)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}

// Get fetches a shift.
func (s *Service) Get(ctx context.Context, id int64) (Shift, error) {
	sh, err := s.gateway.GetShift(ctx, id)
	if err != nil {
		return Shift{}, fmt.Errorf("get shift %d: %w", id, err)
	}
	return sh, nil
}

// ActiveShift returns the open or active shift of a station, if any.
func (s *Service) ActiveShift(ctx context.Context, stationID int64) (*Shift, error) {
	items, err := s.gateway.ListShifts(ctx, stationID, "")
	if err != nil {
		return nil, fmt.Errorf("list shifts: %w", err)
	}
	for i := range items {
		if items[i].Status.Closable() {
			return &items[i], nil
		}
	}
	return nil, nil
}

// FormOptions loads islands and staff for the open-shift form.
func (s *Service) FormOptions(ctx context.Context, stationID int64) (OpenFormOptions, error) {
	opts, err := s.gateway.OpenFormOptions(ctx, stationID)
	if err != nil {
		return OpenFormOptions{}, fmt.Errorf("open form options: %w", err)
	}
	return opts, nil
}

// Open validates and opens a shift. Only one shift per station may be in
// progress; the backend enforces the same rule.
func (s *Service) Open(ctx context.Context, in OpenShiftInput) (Shift, error) {
	if err := s.validate.Struct(in); err != nil {
		return Shift{}, err
	}
	seen := make(map[int64]struct{}, len(in.Islands))
	for _, a := range in.Islands {
		if _, dup := seen[a.IslandID]; dup {
			return Shift{}, fmt.Errorf("island %d assigned twice", a.IslandID)
		}
		seen[a.IslandID] = struct{}{}
	}
	active, err := s.ActiveShift(ctx, in.StationID)
	if err != nil {
		return Shift{}, err
	}
	if active != nil {
		return Shift{}, ErrShiftInProgress
	}
	sh, err := s.gateway.OpenShift(ctx, in)
	if err != nil {
		return Shift{}, fmt.Errorf("open shift: %w", err)
	}
	return sh, nil
}
