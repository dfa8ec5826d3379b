package companies

import (
	"cmp"
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/pumpline-erp/pumpline/internal/masterdata/shared"
	internalShared "github.com/pumpline-erp/pumpline/internal/shared"
)

var sorters = map[string]shared.Sorter[Company]{
	"name":     shared.ByString(func(c Company) string { return c.Name }),
	"status":   shared.ByString(func(c Company) string { return c.Status }),
	"stations": func(a, b Company) int { return cmp.Compare(a.StationCount, b.StationCount) },
	"created":  func(a, b Company) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

type Service struct {
	repo      Repository
	validator *validator.Validate
	region    string
}

func NewService(repo Repository, phoneRegion string) *Service {
	return &Service{repo: repo, validator: shared.NewValidator(phoneRegion), region: phoneRegion}
}

// List filters, sorts and pages the backend list.
func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Company, internalShared.Pagination, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, internalShared.Pagination{}, fmt.Errorf("list companies: %w", err)
	}
	items := make([]Company, 0, len(all))
	for _, c := range all {
		if filters.Status != "" && c.Status != filters.Status {
			continue
		}
		if !shared.Matches(filters.Search, c.Name, c.RegistrationNumber, c.TaxPIN, c.Email) {
			continue
		}
		items = append(items, c)
	}
	shared.Sort(items, filters, sorters, "name")
	page, p := internalShared.Paginate(items, filters.Page, filters.Limit)
	return page, p, nil
}

// Options returns every company, for the pickers of other forms.
func (s *Service) Options(ctx context.Context) ([]Company, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	shared.Sort(all, shared.ListFilters{}, sorters, "name")
	return all, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Company, error) {
	if id <= 0 {
		return Company{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, form CompanyForm) (Company, error) {
	if err := s.validate(&form); err != nil {
		return Company{}, err
	}
	return s.repo.Create(ctx, form)
}

func (s *Service) Update(ctx context.Context, id int64, form CompanyForm) (Company, error) {
	if id <= 0 {
		return Company{}, shared.ErrInvalidID
	}
	if err := s.validate(&form); err != nil {
		return Company{}, err
	}
	return s.repo.Update(ctx, id, form)
}

// Delete removes a company. confirmed must come from the confirmation page.
func (s *Service) Delete(ctx context.Context, id int64, confirmed bool) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	if !confirmed {
		return shared.ErrConfirmRequired
	}
	return s.repo.Delete(ctx, id)
}
