package suppliers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/pumpline-erp/pumpline/internal/platform/backend"
)

// Repository is the backend surface of suppliers and supplier debt.
type Repository interface {
	List(ctx context.Context, companyID int64) ([]Supplier, error)
	Get(ctx context.Context, id int64) (Supplier, error)
	Create(ctx context.Context, form SupplierForm) (Supplier, error)
	Update(ctx context.Context, id int64, form SupplierForm) (Supplier, error)
	Delete(ctx context.Context, id int64) error
	Accounts(ctx context.Context, companyID int64) ([]Account, error)
}

type repository struct {
	client *backend.Client
}

// NewRepository returns the backend-backed repository.
func NewRepository(client *backend.Client) Repository {
	return &repository{client: client}
}

func companyQuery(companyID int64) url.Values {
	if companyID <= 0 {
		return nil
	}
	return url.Values{"company_id": {strconv.FormatInt(companyID, 10)}}
}

func (r *repository) List(ctx context.Context, companyID int64) ([]Supplier, error) {
	var out []Supplier
	if err := r.client.Get(ctx, "/supplier", companyQuery(companyID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Supplier, error) {
	var out Supplier
	err := r.client.Get(ctx, fmt.Sprintf("/supplier/%d", id), nil, &out)
	return out, err
}

func (r *repository) Create(ctx context.Context, form SupplierForm) (Supplier, error) {
	var out Supplier
	err := r.client.Post(ctx, "/supplier", form, &out)
	return out, err
}

func (r *repository) Update(ctx context.Context, id int64, form SupplierForm) (Supplier, error) {
	var out Supplier
	err := r.client.Put(ctx, fmt.Sprintf("/supplier/%d", id), form, &out)
	return out, err
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	return r.client.Delete(ctx, fmt.Sprintf("/supplier/%d", id))
}

func (r *repository) Accounts(ctx context.Context, companyID int64) ([]Account, error) {
	var out []Account
	if err := r.client.Get(ctx, "/supplier-debt/accounts", companyQuery(companyID), &out); err != nil {
		return nil, err
	}
	return out, nil
}
