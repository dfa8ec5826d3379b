package companies

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pumpline-erp/pumpline/internal/masterdata/shared"
)

type stubRepo struct {
	companies []Company
	created   []CompanyForm
	updated   map[int64]CompanyForm
	deleted   []int64
}

func (r *stubRepo) List(ctx context.Context) ([]Company, error) {
	return append([]Company(nil), r.companies...), nil
}

func (r *stubRepo) Get(ctx context.Context, id int64) (Company, error) {
	for _, c := range r.companies {
		if c.ID == id {
			return c, nil
		}
	}
	return Company{}, errors.New("not found")
}

func (r *stubRepo) Create(ctx context.Context, form CompanyForm) (Company, error) {
	r.created = append(r.created, form)
	return Company{ID: 99, Name: form.Name}, nil
}

func (r *stubRepo) Update(ctx context.Context, id int64, form CompanyForm) (Company, error) {
	if r.updated == nil {
		r.updated = map[int64]CompanyForm{}
	}
	r.updated[id] = form
	return Company{ID: id, Name: form.Name}, nil
}

func (r *stubRepo) Delete(ctx context.Context, id int64) error {
	r.deleted = append(r.deleted, id)
	return nil
}

func sampleRepo() *stubRepo {
	return &stubRepo{companies: []Company{
		{ID: 1, Name: "Savannah Fuels", Status: "active", StationCount: 4, CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: 2, Name: "Lakeside Petroleum", Status: "inactive", StationCount: 1, CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
		{ID: 3, Name: "Coastline Energy", Status: "active", StationCount: 9, TaxPIN: "P051234567X", CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}}
}

func TestListFiltersSortsAndPages(t *testing.T) {
	svc := NewService(sampleRepo(), "KE")
	ctx := context.Background()

	items, p, err := svc.List(ctx, shared.ListFilters{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 3, p.Total)
	assert.Equal(t, "Coastline Energy", items[0].Name)

	items, _, err = svc.List(ctx, shared.ListFilters{Page: 1, Limit: 20, Status: "active", SortBy: "stations", SortDir: shared.SortDesc})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(3), items[0].ID)

	items, _, err = svc.List(ctx, shared.ListFilters{Page: 1, Limit: 20, Search: "p0512"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(3), items[0].ID)

	items, p, err = svc.List(ctx, shared.ListFilters{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 2, p.TotalPages)
}

func TestCreateValidatesAndNormalizesPhone(t *testing.T) {
	repo := sampleRepo()
	svc := NewService(repo, "KE")

	_, err := svc.Create(context.Background(), CompanyForm{Email: "bad", Phone: "99", Status: "archived"})
	var fields shared.FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Equal(t, "Required", fields["name"])
	assert.Equal(t, "Enter a valid email address", fields["email"])
	assert.Equal(t, "Enter a valid phone number", fields["phone"])
	assert.Contains(t, fields["status"], "active, inactive")
	assert.Empty(t, repo.created)

	_, err = svc.Create(context.Background(), CompanyForm{Name: "Highland Oil", Phone: "0722 000111", Status: "active"})
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.Equal(t, "+254722000111", repo.created[0].Phone)
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	repo := sampleRepo()
	svc := NewService(repo, "KE")

	assert.ErrorIs(t, svc.Delete(context.Background(), 2, false), shared.ErrConfirmRequired)
	assert.Empty(t, repo.deleted)
	assert.ErrorIs(t, svc.Delete(context.Background(), 0, true), shared.ErrInvalidID)

	require.NoError(t, svc.Delete(context.Background(), 2, true))
	assert.Equal(t, []int64{2}, repo.deleted)
}
