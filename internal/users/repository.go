package users

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/pumpline-erp/pumpline/internal/platform/backend"
)

// Repository provides backend-API persistence of user accounts.
type Repository struct {
	client *backend.Client
}

// NewRepository constructs a repository.
func NewRepository(client *backend.Client) *Repository {
	return &Repository{client: client}
}

// ListUsers returns the users of one company, or all when companyID is 0.
func (r *Repository) ListUsers(ctx context.Context, companyID int64) ([]User, error) {
	var q url.Values
	if companyID > 0 {
		q = url.Values{"company_id": {strconv.FormatInt(companyID, 10)}}
	}
	var out []User
	if err := r.client.Get(ctx, "/user", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) GetUser(ctx context.Context, id int64) (User, error) {
	var out User
	err := r.client.Get(ctx, fmt.Sprintf("/user/%d", id), nil, &out)
	return out, err
}

func (r *Repository) CreateUser(ctx context.Context, form UserForm) (User, error) {
	var out User
	err := r.client.Post(ctx, "/user", form, &out)
	return out, err
}

func (r *Repository) UpdateUser(ctx context.Context, id int64, form UserForm) (User, error) {
	var out User
	err := r.client.Put(ctx, fmt.Sprintf("/user/%d", id), form, &out)
	return out, err
}

func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	return r.client.Delete(ctx, fmt.Sprintf("/user/%d", id))
}
