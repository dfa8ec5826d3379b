package companies

import (
	"context"
	"fmt"

	"github.com/pumpline-erp/pumpline/internal/platform/backend"
)

// Repository is the backend surface of companies.
type Repository interface {
	List(ctx context.Context) ([]Company, error)
	Get(ctx context.Context, id int64) (Company, error)
	Create(ctx context.Context, form CompanyForm) (Company, error)
	Update(ctx context.Context, id int64, form CompanyForm) (Company, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	client *backend.Client
}

// NewRepository returns the backend-backed repository.
func NewRepository(client *backend.Client) Repository {
	return &repository{client: client}
}

func (r *repository) List(ctx context.Context) ([]Company, error) {
	var out []Company
	if err := r.client.Get(ctx, "/company", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Company, error) {
	var out Company
	err := r.client.Get(ctx, fmt.Sprintf("/company/%d", id), nil, &out)
	return out, err
}

func (r *repository) Create(ctx context.Context, form CompanyForm) (Company, error) {
	var out Company
	err := r.client.Post(ctx, "/company", form, &out)
	return out, err
}

func (r *repository) Update(ctx context.Context, id int64, form CompanyForm) (Company, error) {
	var out Company
	err := r.client.Put(ctx, fmt.Sprintf("/company/%d", id), form, &out)
	return out, err
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	return r.client.Delete(ctx, fmt.Sprintf("/company/%d", id))
}
