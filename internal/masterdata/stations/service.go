package stations

import (
	"cmp"
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/pumpline-erp/pumpline/internal/masterdata/shared"
	internalShared "github.com/pumpline-erp/pumpline/internal/shared"
)

var sorters = map[string]shared.Sorter[Station]{
	"name":    shared.ByString(func(s Station) string { return s.Name }),
	"code":    shared.ByString(func(s Station) string { return s.Code }),
	"company": shared.ByString(func(s Station) string { return s.CompanyName }),
	"status":  shared.ByString(func(s Station) string { return s.Status }),
	"pumps":   func(a, b Station) int { return cmp.Compare(a.PumpCount, b.PumpCount) },
}

type Service struct {
	repo      Repository
	validator *validator.Validate
	region    string
}

func NewService(repo Repository, phoneRegion string) *Service {
	return &Service{repo: repo, validator: shared.NewValidator(phoneRegion), region: phoneRegion}
}

func (s *Service) List(ctx context.Context, scope shared.Scope, filters shared.ListFilters) ([]Station, internalShared.Pagination, error) {
	items, err := s.visible(ctx, scope.Apply(filters))
	if err != nil {
		return nil, internalShared.Pagination{}, err
	}
	page, p := internalShared.Paginate(items, filters.Page, filters.Limit)
	return page, p, nil
}

// Options returns the visible stations sorted by name, for pickers.
func (s *Service) Options(ctx context.Context, scope shared.Scope) ([]Station, error) {
	return s.visible(ctx, scope.Apply(shared.ListFilters{Status: shared.StatusActive}))
}

func (s *Service) visible(ctx context.Context, filters shared.ListFilters) ([]Station, error) {
	all, err := s.repo.List(ctx, filters.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}
	items := make([]Station, 0, len(all))
	for _, st := range all {
		if filters.CompanyID != 0 && st.CompanyID != filters.CompanyID {
			continue
		}
		if filters.StationID != 0 && st.ID != filters.StationID {
			continue
		}
		if filters.Status != "" && st.Status != filters.Status {
			continue
		}
		if !shared.Matches(filters.Search, st.Name, st.Code, st.Location, st.ManagerName) {
			continue
		}
		items = append(items, st)
	}
	shared.Sort(items, filters, sorters, "name")
	return items, nil
}

func (s *Service) Get(ctx context.Context, scope shared.Scope, id int64) (Station, error) {
	if id <= 0 {
		return Station{}, shared.ErrInvalidID
	}
	st, err := s.repo.Get(ctx, id)
	if err != nil {
		return Station{}, err
	}
	if !scope.AllowsStation(st.CompanyID, st.ID) {
		return Station{}, shared.ErrOutOfScope
	}
	return st, nil
}

func (s *Service) Create(ctx context.Context, scope shared.Scope, form StationForm) (Station, error) {
	if scope.CompanyID != 0 {
		form.CompanyID = scope.CompanyID
	}
	if err := s.validate(&form); err != nil {
		return Station{}, err
	}
	return s.repo.Create(ctx, form)
}

func (s *Service) Update(ctx context.Context, scope shared.Scope, id int64, form StationForm) (Station, error) {
	if _, err := s.Get(ctx, scope, id); err != nil {
		return Station{}, err
	}
	if scope.CompanyID != 0 {
		form.CompanyID = scope.CompanyID
	}
	if err := s.validate(&form); err != nil {
		return Station{}, err
	}
	return s.repo.Update(ctx, id, form)
}

func (s *Service) Delete(ctx context.Context, scope shared.Scope, id int64, confirmed bool) error {
	if _, err := s.Get(ctx, scope, id); err != nil {
		return err
	}
	if !confirmed {
		return shared.ErrConfirmRequired
	}
	return s.repo.Delete(ctx, id)
}
