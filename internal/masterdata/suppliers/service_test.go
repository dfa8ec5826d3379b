package suppliers

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pumpline-erp/pumpline/internal/masterdata/shared"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type stubRepo struct {
	suppliers []Supplier
	accounts  []Account
	created   []SupplierForm
	deleted   []int64
}

func (r *stubRepo) List(ctx context.Context, companyID int64) ([]Supplier, error) {
	return append([]Supplier(nil), r.suppliers...), nil
}

func (r *stubRepo) Get(ctx context.Context, id int64) (Supplier, error) {
	for _, s := range r.suppliers {
		if s.ID == id {
			return s, nil
		}
	}
	return Supplier{}, errors.New("not found")
}

func (r *stubRepo) Create(ctx context.Context, form SupplierForm) (Supplier, error) {
	r.created = append(r.created, form)
	return Supplier{ID: 70, CompanyID: form.CompanyID, Name: form.Name}, nil
}

func (r *stubRepo) Update(ctx context.Context, id int64, form SupplierForm) (Supplier, error) {
	return Supplier{ID: id}, nil
}

func (r *stubRepo) Delete(ctx context.Context, id int64) error {
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *stubRepo) Accounts(ctx context.Context, companyID int64) ([]Account, error) {
	return append([]Account(nil), r.accounts...), nil
}

func sampleRepo() *stubRepo {
	return &stubRepo{
		suppliers: []Supplier{
			{ID: 1, CompanyID: 1, Name: "Rift Valley Oil", ContactPerson: "Wanjiru", PaymentTermsDays: 30, CreditLimit: dec("5000000"), Status: "active"},
			{ID: 2, CompanyID: 1, Name: "Coast Lubricants", PaymentTermsDays: 14, Status: "inactive"},
			{ID: 3, CompanyID: 2, Name: "Lake Basin Energy", PaymentTermsDays: 45, Status: "active"},
		},
		accounts: []Account{
			{SupplierID: 1, SupplierName: "Rift Valley Oil", CompanyID: 1, Balance: dec("4000000"), CreditLimit: dec("5000000"),
				Current: dec("2500000"), Days1To30: dec("1000000"), Days31To60: dec("500000")},
			{SupplierID: 2, SupplierName: "Coast Lubricants", CompanyID: 1, Balance: dec("120000"),
				Over90: dec("120000")},
			{SupplierID: 3, SupplierName: "Lake Basin Energy", CompanyID: 2, Balance: dec("900000"), CreditLimit: dec("600000"),
				Days61To90: dec("900000")},
		},
	}
}

func TestCreditUtilisation(t *testing.T) {
	a := Account{Balance: dec("4000000"), CreditLimit: dec("5000000")}
	assert.True(t, dec("80").Equal(a.CreditUtilisation()))
	assert.False(t, a.OverLimit())

	assert.True(t, Account{Balance: dec("10")}.CreditUtilisation().IsZero())

	over := Account{Balance: dec("900000"), CreditLimit: dec("600000")}
	assert.True(t, dec("150").Equal(over.CreditUtilisation()))
	assert.True(t, over.OverLimit())
}

func TestAccountsTotalsAndScope(t *testing.T) {
	svc := NewService(sampleRepo(), "KE")

	accounts, totals, err := svc.Accounts(context.Background(), shared.Scope{CompanyID: 1, StationID: 4}, shared.ListFilters{})
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, int64(1), accounts[0].SupplierID, "largest balance first")
	assert.True(t, dec("4120000").Equal(totals.Balance))
	assert.True(t, dec("120000").Equal(totals.Over90))
	assert.True(t, dec("82.4").Equal(totals.CreditUtilisation()))

	accounts, totals, err = svc.Accounts(context.Background(), shared.Scope{}, shared.ListFilters{SortBy: "overdue", SortDir: shared.SortDesc})
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	assert.Equal(t, int64(3), accounts[0].SupplierID)
	assert.True(t, dec("5020000").Equal(totals.Balance))
}

func TestAgingTableEndsWithTotals(t *testing.T) {
	accounts := sampleRepo().accounts[:2]
	table := AgingTable(accounts, totalsOf(accounts))

	require.Len(t, table.Rows, 3)
	assert.Equal(t, "Supplier", table.Headers[0])
	assert.Equal(t, "Total", table.Rows[2][0])
	assert.True(t, dec("4120000").Equal(table.Rows[2][1].(decimal.Decimal)))
}

func TestCreateParsesCreditLimit(t *testing.T) {
	repo := sampleRepo()
	svc := NewService(repo, "KE")

	_, err := svc.Create(context.Background(), shared.Scope{}, SupplierForm{
		CompanyID: 2, Name: "Nyanza Gas", CreditLimitInput: "abc", PaymentTermsDays: 400, Status: "active",
	})
	var fields shared.FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Equal(t, "Enter an amount", fields["credit_limit"])
	assert.Equal(t, "Must be at most 365", fields["payment_terms_days"])

	_, err = svc.Create(context.Background(), shared.Scope{}, SupplierForm{
		CompanyID: 2, Name: "Nyanza Gas", CreditLimitInput: "-1", Status: "active",
	})
	require.ErrorAs(t, err, &fields)
	assert.Equal(t, "Must not be negative", fields["credit_limit"])

	_, err = svc.Create(context.Background(), shared.Scope{CompanyID: 1}, SupplierForm{
		CompanyID: 2, Name: "Nyanza Gas", CreditLimitInput: "1,250,000.50", Phone: "0733111222", Status: "active",
	})
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.Equal(t, int64(1), repo.created[0].CompanyID)
	assert.True(t, dec("1250000.50").Equal(repo.created[0].CreditLimit))
	assert.Equal(t, "+254733111222", repo.created[0].Phone)
}

func TestSupplierScope(t *testing.T) {
	repo := sampleRepo()
	svc := NewService(repo, "KE")
	ctx := context.Background()

	items, _, err := svc.List(ctx, shared.Scope{CompanyID: 1, StationID: 9}, shared.ListFilters{Page: 1, Limit: 20, Search: "wanjiru"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Rift Valley Oil", items[0].Name)

	_, err = svc.Get(ctx, shared.Scope{CompanyID: 1}, 3)
	assert.ErrorIs(t, err, shared.ErrOutOfScope)
	assert.ErrorIs(t, svc.Delete(ctx, shared.Scope{CompanyID: 1}, 3, true), shared.ErrOutOfScope)
	assert.Empty(t, repo.deleted)
}
