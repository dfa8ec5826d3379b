package suppliers

import (
	"cmp"
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/pumpline-erp/pumpline/internal/export"
	"github.com/pumpline-erp/pumpline/internal/masterdata/shared"
	internalShared "github.com/pumpline-erp/pumpline/internal/shared"
)

var sorters = map[string]shared.Sorter[Supplier]{
	"name":    shared.ByString(func(s Supplier) string { return s.Name }),
	"company": shared.ByString(func(s Supplier) string { return s.CompanyName }),
	"status":  shared.ByString(func(s Supplier) string { return s.Status }),
	"terms":   func(a, b Supplier) int { return cmp.Compare(a.PaymentTermsDays, b.PaymentTermsDays) },
	"limit":   func(a, b Supplier) int { return a.CreditLimit.Cmp(b.CreditLimit) },
}

var accountSorters = map[string]shared.Sorter[Account]{
	"name":        shared.ByString(func(a Account) string { return a.SupplierName }),
	"balance":     func(a, b Account) int { return a.Balance.Cmp(b.Balance) },
	"overdue":     func(a, b Account) int { return a.Overdue().Cmp(b.Overdue()) },
	"utilisation": func(a, b Account) int { return a.CreditUtilisation().Cmp(b.CreditUtilisation()) },
}

type Service struct {
	repo      Repository
	validator *validator.Validate
	region    string
}

func NewService(repo Repository, phoneRegion string) *Service {
	return &Service{repo: repo, validator: shared.NewValidator(phoneRegion), region: phoneRegion}
}

// companyScope drops the station part: suppliers belong to a company.
func companyScope(scope shared.Scope) shared.Scope {
	return shared.Scope{CompanyID: scope.CompanyID}
}

func (s *Service) List(ctx context.Context, scope shared.Scope, filters shared.ListFilters) ([]Supplier, internalShared.Pagination, error) {
	filters = companyScope(scope).Apply(filters)
	all, err := s.repo.List(ctx, filters.CompanyID)
	if err != nil {
		return nil, internalShared.Pagination{}, fmt.Errorf("list suppliers: %w", err)
	}
	items := make([]Supplier, 0, len(all))
	for _, sp := range all {
		if filters.CompanyID != 0 && sp.CompanyID != filters.CompanyID {
			continue
		}
		if filters.Status != "" && sp.Status != filters.Status {
			continue
		}
		if !shared.Matches(filters.Search, sp.Name, sp.ContactPerson, sp.Email, sp.Phone) {
			continue
		}
		items = append(items, sp)
	}
	shared.Sort(items, filters, sorters, "name")
	page, p := internalShared.Paginate(items, filters.Page, filters.Limit)
	return page, p, nil
}

func (s *Service) Get(ctx context.Context, scope shared.Scope, id int64) (Supplier, error) {
	if id <= 0 {
		return Supplier{}, shared.ErrInvalidID
	}
	sp, err := s.repo.Get(ctx, id)
	if err != nil {
		return Supplier{}, err
	}
	if !scope.AllowsCompany(sp.CompanyID) {
		return Supplier{}, shared.ErrOutOfScope
	}
	return sp, nil
}

func (s *Service) Create(ctx context.Context, scope shared.Scope, form SupplierForm) (Supplier, error) {
	if scope.CompanyID != 0 {
		form.CompanyID = scope.CompanyID
	}
	if err := s.validate(&form); err != nil {
		return Supplier{}, err
	}
	return s.repo.Create(ctx, form)
}

func (s *Service) Update(ctx context.Context, scope shared.Scope, id int64, form SupplierForm) (Supplier, error) {
	if _, err := s.Get(ctx, scope, id); err != nil {
		return Supplier{}, err
	}
	if scope.CompanyID != 0 {
		form.CompanyID = scope.CompanyID
	}
	if err := s.validate(&form); err != nil {
		return Supplier{}, err
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

// Accounts returns the aging of every visible supplier account with the
// column totals. Totals cover the filtered set, not just one page.
func (s *Service) Accounts(ctx context.Context, scope shared.Scope, filters shared.ListFilters) ([]Account, AccountTotals, error) {
	filters = companyScope(scope).Apply(filters)
	all, err := s.repo.Accounts(ctx, filters.CompanyID)
	if err != nil {
		return nil, AccountTotals{}, fmt.Errorf("list supplier accounts: %w", err)
	}
	items := make([]Account, 0, len(all))
	for _, a := range all {
		if filters.CompanyID != 0 && a.CompanyID != filters.CompanyID {
			continue
		}
		if !shared.Matches(filters.Search, a.SupplierName) {
			continue
		}
		items = append(items, a)
	}
	if filters.SortBy == "" {
		filters.SortBy, filters.SortDir = "balance", shared.SortDesc
	}
	shared.Sort(items, filters, accountSorters, "name")
	return items, totalsOf(items), nil
}

// AgingTable lays accounts out for spreadsheet export, ending with a
// totals row.
func AgingTable(accounts []Account, totals AccountTotals) export.Table {
	t := export.Table{
		Sheet: "Supplier aging",
		Headers: []string{
			"Supplier", "Balance", "Credit limit", "Utilisation %",
			"Current", "1-30 days", "31-60 days", "61-90 days", "Over 90 days", "Last payment",
		},
	}
	for _, a := range accounts {
		t.AddRow(a.SupplierName, a.Balance, a.CreditLimit, a.CreditUtilisation(),
			a.Current, a.Days1To30, a.Days31To60, a.Days61To90, a.Over90, a.LastPaymentAt)
	}
	t.AddRow("Total", totals.Balance, totals.CreditLimit, totals.CreditUtilisation(),
		totals.Current, totals.Days1To30, totals.Days31To60, totals.Days61To90, totals.Over90, nil)
	return t
}
