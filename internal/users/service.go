package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	mdshared "github.com/pumpline-erp/pumpline/internal/masterdata/shared"
	"github.com/pumpline-erp/pumpline/internal/masterdata/stations"
	"github.com/pumpline-erp/pumpline/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, companyID int64) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	CreateUser(ctx context.Context, form UserForm) (User, error)
	UpdateUser(ctx context.Context, id int64, form UserForm) (User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// StationLookup resolves the station picked for station roles.
type StationLookup interface {
	Get(ctx context.Context, scope mdshared.Scope, id int64) (stations.Station, error)
}

var sorters = map[string]mdshared.Sorter[User]{
	"name":    mdshared.ByString(func(u User) string { return u.Name }),
	"email":   mdshared.ByString(func(u User) string { return u.Email }),
	"role":    mdshared.ByString(func(u User) string { return string(u.Role) }),
	"company": mdshared.ByString(func(u User) string { return u.CompanyName }),
	"station": mdshared.ByString(func(u User) string { return u.StationName }),
	"last_login": func(a, b User) int {
		switch {
		case a.LastLoginAt == nil && b.LastLoginAt == nil:
			return 0
		case a.LastLoginAt == nil:
			return -1
		case b.LastLoginAt == nil:
			return 1
		}
		return a.LastLoginAt.Compare(*b.LastLoginAt)
	},
}

// Service handles user business logic.
type Service struct {
	repo      RepositoryPort
	stations  StationLookup
	validator *validator.Validate
	region    string
}

// NewService builds Service instance. stations may be nil, in which case
// the station/company pairing is left to the backend.
func NewService(repo RepositoryPort, stations StationLookup, phoneRegion string) *Service {
	return &Service{repo: repo, stations: stations, validator: mdshared.NewValidator(phoneRegion), region: phoneRegion}
}

// ListUsers returns the users actor may see, filtered, sorted and paged.
func (s *Service) ListUsers(ctx context.Context, actor shared.Principal, filters mdshared.ListFilters) ([]User, shared.Pagination, error) {
	filters = mdshared.ScopeFor(actor).Apply(filters)
	all, err := s.repo.ListUsers(ctx, filters.CompanyID)
	if err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("list users: %w", err)
	}
	items := make([]User, 0, len(all))
	for _, u := range all {
		if !visible(actor, u) {
			continue
		}
		if filters.CompanyID != 0 && u.CompanyID != filters.CompanyID {
			continue
		}
		if filters.StationID != 0 && u.StationID != filters.StationID {
			continue
		}
		if filters.Role != "" && string(u.Role) != filters.Role {
			continue
		}
		if filters.Status != "" && u.Status() != filters.Status {
			continue
		}
		if !mdshared.Matches(filters.Search, u.Name, u.Email, u.Phone) {
			continue
		}
		items = append(items, u)
	}
	mdshared.Sort(items, filters, sorters, "name")
	page, p := shared.Paginate(items, filters.Page, filters.Limit)
	return page, p, nil
}

// visible hides accounts outside actor's scope, and super admins from
// anyone who is not one.
func visible(actor shared.Principal, u User) bool {
	if u.Role == shared.RoleSuperAdmin && actor.Role != shared.RoleSuperAdmin {
		return false
	}
	return mdshared.ScopeFor(actor).AllowsStation(u.CompanyID, u.StationID)
}

func (s *Service) GetUser(ctx context.Context, actor shared.Principal, id int64) (User, error) {
	if id <= 0 {
		return User{}, mdshared.ErrInvalidID
	}
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !visible(actor, u) {
		return User{}, mdshared.ErrOutOfScope
	}
	return u, nil
}

func (s *Service) CreateUser(ctx context.Context, actor shared.Principal, form UserForm) (User, error) {
	if err := s.validate(ctx, actor, &form, true); err != nil {
		return User{}, err
	}
	return s.repo.CreateUser(ctx, form)
}

func (s *Service) UpdateUser(ctx context.Context, actor shared.Principal, id int64, form UserForm) (User, error) {
	if _, err := s.GetUser(ctx, actor, id); err != nil {
		return User{}, err
	}
	if err := s.validate(ctx, actor, &form, false); err != nil {
		return User{}, err
	}
	return s.repo.UpdateUser(ctx, id, form)
}

// DeleteUser removes an account. Deleting yourself is refused.
func (s *Service) DeleteUser(ctx context.Context, actor shared.Principal, id int64, confirmed bool) error {
	if id == actor.UserID {
		return ErrSelfDelete
	}
	if _, err := s.GetUser(ctx, actor, id); err != nil {
		return err
	}
	if !confirmed {
		return mdshared.ErrConfirmRequired
	}
	return s.repo.DeleteUser(ctx, id)
}

func (s *Service) validate(ctx context.Context, actor shared.Principal, form *UserForm, creating bool) error {
	errs := mdshared.FieldErrors{}
	if err := mdshared.ValidationErrors(s.validator.Struct(form)); err != nil {
		if !errors.As(err, &errs) {
			return err
		}
	}
	if creating && form.Password == "" {
		errs["password"] = "Required"
	}
	if errs["role"] == "" && !canAssign(actor.Role, form.Role) {
		errs["role"] = "You cannot assign this role"
	}

	if scope := mdshared.ScopeFor(actor); scope.CompanyID != 0 {
		form.CompanyID = scope.CompanyID
	}
	switch {
	case form.Role == shared.RoleSuperAdmin:
		form.CompanyID, form.StationID = 0, 0
	case form.CompanyID == 0:
		errs["company_id"] = "Required"
	}
	if form.Role == shared.RoleCompanyAdmin {
		form.StationID = 0
	}
	if NeedsStation(form.Role) && form.StationID == 0 {
		errs["station_id"] = "Required"
	}

	if s.stations != nil && form.StationID != 0 && form.CompanyID != 0 {
		_, err := s.stations.Get(ctx, mdshared.Scope{CompanyID: form.CompanyID}, form.StationID)
		switch {
		case errors.Is(err, mdshared.ErrOutOfScope):
			errs["station_id"] = "Station belongs to another company"
		case err != nil:
			return fmt.Errorf("check station: %w", err)
		}
	}

	if form.Phone != "" && errs["phone"] == "" {
		e164, err := shared.NormalizePhone(form.Phone, s.region)
		if err != nil {
			errs["phone"] = "Enter a valid phone number"
		} else {
			form.Phone = e164
		}
	}
	return errs.Err()
}
