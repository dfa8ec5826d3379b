package stations

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/pumpline-erp/pumpline/internal/platform/backend"
)

// Repository is the backend surface of stations.
type Repository interface {
	List(ctx context.Context, companyID int64) ([]Station, error)
	Get(ctx context.Context, id int64) (Station, error)
	Create(ctx context.Context, form StationForm) (Station, error)
	Update(ctx context.Context, id int64, form StationForm) (Station, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	client *backend.Client
}

// NewRepository returns the backend-backed repository.
func NewRepository(client *backend.Client) Repository {
	return &repository{client: client}
}

// List asks the backend for one company's stations when companyID is set.
func (r *repository) List(ctx context.Context, companyID int64) ([]Station, error) {
	var q url.Values
	if companyID > 0 {
		q = url.Values{"company_id": {strconv.FormatInt(companyID, 10)}}
	}
	var out []Station
	if err := r.client.Get(ctx, "/station", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Station, error) {
	var out Station
	err := r.client.Get(ctx, fmt.Sprintf("/station/%d", id), nil, &out)
	return out, err
}

func (r *repository) Create(ctx context.Context, form StationForm) (Station, error) {
	var out Station
	err := r.client.Post(ctx, "/station", form, &out)
	return out, err
}

func (r *repository) Update(ctx context.Context, id int64, form StationForm) (Station, error) {
	var out Station
	err := r.client.Put(ctx, fmt.Sprintf("/station/%d", id), form, &out)
	return out, err
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	return r.client.Delete(ctx, fmt.Sprintf("/station/%d", id))
}
