package stations

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pumpline-erp/pumpline/internal/masterdata/shared"
)

type stubRepo struct {
	stations  []Station
	listedFor []int64
	created   []StationForm
	updated   map[int64]StationForm
	deleted   []int64
}

func (r *stubRepo) List(ctx context.Context, companyID int64) ([]Station, error) {
	r.listedFor = append(r.listedFor, companyID)
	return append([]Station(nil), r.stations...), nil
}

func (r *stubRepo) Get(ctx context.Context, id int64) (Station, error) {
	for _, s := range r.stations {
		if s.ID == id {
			return s, nil
		}
	}
	return Station{}, errors.New("not found")
}

func (r *stubRepo) Create(ctx context.Context, form StationForm) (Station, error) {
	r.created = append(r.created, form)
	return Station{ID: 50, CompanyID: form.CompanyID, Name: form.Name}, nil
}

func (r *stubRepo) Update(ctx context.Context, id int64, form StationForm) (Station, error) {
	if r.updated == nil {
		r.updated = map[int64]StationForm{}
	}
	r.updated[id] = form
	return Station{ID: id}, nil
}

func (r *stubRepo) Delete(ctx context.Context, id int64) error {
	r.deleted = append(r.deleted, id)
	return nil
}

func sampleRepo() *stubRepo {
	return &stubRepo{stations: []Station{
		{ID: 1, CompanyID: 1, CompanyName: "Savannah Fuels", Name: "Thika Road", Code: "TRD", Status: "active", PumpCount: 8},
		{ID: 2, CompanyID: 1, CompanyName: "Savannah Fuels", Name: "Athi River", Code: "ATR", Status: "active", PumpCount: 4},
		{ID: 3, CompanyID: 2, CompanyName: "Lakeside Petroleum", Name: "Kisumu Port", Code: "KSM", Status: "inactive", PumpCount: 6},
	}}
}

var validForm = StationForm{CompanyID: 2, Code: "NKR", Name: "Nakuru Bypass", Status: "active"}

func TestListRespectsScope(t *testing.T) {
	repo := sampleRepo()
	svc := NewService(repo, "KE")
	ctx := context.Background()

	items, p, err := svc.List(ctx, shared.Scope{}, shared.ListFilters{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 3, p.Total)
	assert.Equal(t, "Athi River", items[0].Name)

	items, _, err = svc.List(ctx, shared.Scope{CompanyID: 1}, shared.ListFilters{Page: 1, Limit: 20, CompanyID: 2})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(1), repo.listedFor[len(repo.listedFor)-1])

	items, _, err = svc.List(ctx, shared.Scope{CompanyID: 1, StationID: 1}, shared.ListFilters{Page: 1, Limit: 20})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Thika Road", items[0].Name)

	items, _, err = svc.List(ctx, shared.Scope{}, shared.ListFilters{Page: 1, Limit: 20, SortBy: "pumps", SortDir: shared.SortDesc})
	require.NoError(t, err)
	assert.Equal(t, int64(1), items[0].ID)
}

func TestOptionsListsActiveStations(t *testing.T) {
	svc := NewService(sampleRepo(), "KE")

	items, err := svc.Options(context.Background(), shared.Scope{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Athi River", items[0].Name)
}

func TestGetOutOfScope(t *testing.T) {
	svc := NewService(sampleRepo(), "KE")

	_, err := svc.Get(context.Background(), shared.Scope{CompanyID: 1}, 3)
	assert.ErrorIs(t, err, shared.ErrOutOfScope)

	_, err = svc.Get(context.Background(), shared.Scope{CompanyID: 1, StationID: 2}, 1)
	assert.ErrorIs(t, err, shared.ErrOutOfScope)

	st, err := svc.Get(context.Background(), shared.Scope{CompanyID: 1}, 2)
	require.NoError(t, err)
	assert.Equal(t, "ATR", st.Code)
}

func TestCreateForcesCompanyScope(t *testing.T) {
	repo := sampleRepo()
	svc := NewService(repo, "KE")

	_, err := svc.Create(context.Background(), shared.Scope{CompanyID: 1}, validForm)
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.Equal(t, int64(1), repo.created[0].CompanyID)
}

func TestCreateValidation(t *testing.T) {
	repo := sampleRepo()
	svc := NewService(repo, "KE")

	_, err := svc.Create(context.Background(), shared.Scope{}, StationForm{Phone: "abc", Status: "active"})
	var fields shared.FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Equal(t, "Required", fields["company_id"])
	assert.Equal(t, "Required", fields["code"])
	assert.Equal(t, "Enter a valid phone number", fields["phone"])
	assert.Empty(t, repo.created)
}

func TestUpdateAndDeleteCheckScope(t *testing.T) {
	repo := sampleRepo()
	svc := NewService(repo, "KE")
	ctx := context.Background()

	_, err := svc.Update(ctx, shared.Scope{CompanyID: 1}, 3, validForm)
	assert.ErrorIs(t, err, shared.ErrOutOfScope)
	assert.Empty(t, repo.updated)

	assert.ErrorIs(t, svc.Delete(ctx, shared.Scope{CompanyID: 1}, 3, true), shared.ErrOutOfScope)
	assert.ErrorIs(t, svc.Delete(ctx, shared.Scope{CompanyID: 2}, 3, false), shared.ErrConfirmRequired)
	require.NoError(t, svc.Delete(ctx, shared.Scope{CompanyID: 2}, 3, true))
	assert.Equal(t, []int64{3}, repo.deleted)
}
