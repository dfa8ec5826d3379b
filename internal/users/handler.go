package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pumpline-erp/pumpline/internal/masterdata/companies"
	mdshared "github.com/pumpline-erp/pumpline/internal/masterdata/shared"
	"github.com/pumpline-erp/pumpline/internal/masterdata/stations"
	"github.com/pumpline-erp/pumpline/internal/rbac"
	"github.com/pumpline-erp/pumpline/internal/shared"
	"github.com/pumpline-erp/pumpline/internal/view"
)

type userService interface {
	ListUsers(ctx context.Context, actor shared.Principal, filters mdshared.ListFilters) ([]User, shared.Pagination, error)
	GetUser(ctx context.Context, actor shared.Principal, id int64) (User, error)
	CreateUser(ctx context.Context, actor shared.Principal, form UserForm) (User, error)
	UpdateUser(ctx context.Context, actor shared.Principal, id int64, form UserForm) (User, error)
	DeleteUser(ctx context.Context, actor shared.Principal, id int64, confirmed bool) error
}

// Pickers feed the company and station dropdowns of the user form.
type Pickers struct {
	Companies interface {
		Options(ctx context.Context) ([]companies.Company, error)
	}
	Stations interface {
		Options(ctx context.Context, scope mdshared.Scope) ([]stations.Station, error)
	}
}

// Handler manages user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   userService
	pickers   Pickers
	responder *view.Responder
	rbac      rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service userService, pickers Pickers, responder *view.Responder, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, pickers: pickers, responder: responder, rbac: rbac}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermUsersView))
		r.Get("/", h.listUsers)
		r.Get("/{id:[0-9]+}", h.showUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermUsersManage))
		r.Get("/new", h.showCreateUserForm)
		r.Post("/", h.createUser)
		r.Get("/{id:[0-9]+}/edit", h.showEditUserForm)
		r.Post("/{id:[0-9]+}/edit", h.updateUser)
		r.Get("/{id:[0-9]+}/delete", h.confirmDeleteUser)
		r.Post("/{id:[0-9]+}/delete", h.deleteUser)
	})
}

type listPageData struct {
	Users       []User
	Filters     mdshared.ListFilters
	Roles       []shared.Role
	Statuses    []string
	Stations    []stations.Station
	ShowCompany bool
	Pager       view.Pager
}

type formPageData struct {
	ID        int64
	Form      UserForm
	Errors    mdshared.FieldErrors
	General   string
	Roles     []shared.Role
	Companies []companies.Company
	Stations  []stations.Station
}

// Action is the form post target.
func (d formPageData) Action() string {
	if d.ID == 0 {
		return "/users"
	}
	return fmt.Sprintf("/users/%d/edit", d.ID)
}

// PickCompany is true for actors not bound to a company.
func (d formPageData) PickCompany() bool {
	return len(d.Companies) > 0
}

func actorOf(r *http.Request) shared.Principal {
	p, _ := shared.PrincipalFromContext(r.Context())
	return p
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	actor := actorOf(r)
	filters := mdshared.ParseListFilters(r.URL.Query())
	users, pagination, err := h.service.ListUsers(r.Context(), actor, filters)
	if err != nil {
		if h.responder.HandleUnauthorized(w, r, err) {
			return
		}
		h.logger.Error("list users failed", slog.Any("error", err))
		h.responder.RenderStatus(w, r, http.StatusBadGateway, "pages/error.html", "Users", "Failed to load users")
		return
	}
	scope := mdshared.ScopeFor(actor)
	data := listPageData{
		Users:       users,
		Filters:     scope.Apply(filters),
		Roles:       AssignableRoles(shared.RoleSuperAdmin),
		Statuses:    mdshared.Statuses,
		ShowCompany: scope.CompanyID == 0,
		Pager:       view.NewPager(pagination, r.URL.Query()),
	}
	if actor.Role != shared.RoleSuperAdmin {
		data.Roles = AssignableRoles(shared.RoleCompanyAdmin)
	}
	if scope.StationID == 0 {
		data.Stations = h.stationOptions(r, scope)
	}
	h.responder.Render(w, r, "pages/users_list.html", "Users", data)
}

func (h *Handler) showUser(w http.ResponseWriter, r *http.Request) {
	user, ok := h.load(w, r)
	if !ok {
		return
	}
	h.responder.Render(w, r, "pages/user_detail.html", user.Name, user)
}

func (h *Handler) showCreateUserForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, formPageData{Form: UserForm{Role: shared.RoleSupervisor, IsActive: true}})
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	form := formFromRequest(r)
	created, err := h.service.CreateUser(r.Context(), actorOf(r), form)
	if err != nil {
		h.formFailed(w, r, 0, form, err)
		return
	}
	h.logger.Info("user created", slog.Int64("user_id", created.ID), slog.String("role", string(created.Role)))
	h.responder.Redirect(w, r, "/users/"+strconv.FormatInt(created.ID, 10), "success", "User created")
}

func (h *Handler) showEditUserForm(w http.ResponseWriter, r *http.Request) {
	user, ok := h.load(w, r)
	if !ok {
		return
	}
	h.renderForm(w, r, http.StatusOK, formPageData{ID: user.ID, Form: formFromUser(user)})
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	form := formFromRequest(r)
	if _, err := h.service.UpdateUser(r.Context(), actorOf(r), id, form); err != nil {
		h.formFailed(w, r, id, form, err)
		return
	}
	h.responder.Redirect(w, r, "/users/"+strconv.FormatInt(id, 10), "success", "User updated")
}

func (h *Handler) confirmDeleteUser(w http.ResponseWriter, r *http.Request) {
	user, ok := h.load(w, r)
	if !ok {
		return
	}
	h.responder.Render(w, r, "pages/confirm_delete.html", "Delete user", mdshared.ConfirmDelete{
		Kind:    "user",
		Name:    fmt.Sprintf("%s (%s)", user.Name, user.Email),
		Action:  fmt.Sprintf("/users/%d/delete", user.ID),
		Cancel:  fmt.Sprintf("/users/%d", user.ID),
		Details: []string{"The account will no longer be able to sign in."},
	})
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}
	err = h.service.DeleteUser(r.Context(), actorOf(r), id, mdshared.Confirmed(r.PostFormValue(mdshared.ConfirmField)))
	switch {
	case errors.Is(err, mdshared.ErrConfirmRequired):
		http.Redirect(w, r, fmt.Sprintf("/users/%d/delete", id), http.StatusSeeOther)
	case errors.Is(err, ErrSelfDelete):
		h.responder.Redirect(w, r, fmt.Sprintf("/users/%d", id), "danger", "You cannot delete your own account")
	case errors.Is(err, mdshared.ErrOutOfScope):
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
	case err != nil:
		h.logger.Error("delete user failed", slog.Any("error", err), slog.Int64("id", id))
		h.responder.Fail(w, r, err, fmt.Sprintf("/users/%d", id))
	default:
		h.logger.Info("user deleted", slog.Int64("user_id", id))
		h.responder.Redirect(w, r, "/users", "success", "User deleted")
	}
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (User, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return User{}, false
	}
	user, err := h.service.GetUser(r.Context(), actorOf(r), id)
	if errors.Is(err, mdshared.ErrOutOfScope) {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return User{}, false
	}
	if err != nil {
		h.logger.Error("get user failed", slog.Any("error", err), slog.Int64("id", id))
		h.responder.Fail(w, r, err, "/users")
		return User{}, false
	}
	return user, true
}

func (h *Handler) formFailed(w http.ResponseWriter, r *http.Request, id int64, form UserForm, err error) {
	if h.responder.HandleUnauthorized(w, r, err) {
		return
	}
	if errors.Is(err, mdshared.ErrOutOfScope) {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}
	fields, general := mdshared.FormErrors(err)
	h.logger.Warn("save user failed", slog.Any("error", err), slog.Int64("id", id))
	form.Password = ""
	h.renderForm(w, r, http.StatusUnprocessableEntity, formPageData{ID: id, Form: form, Errors: fields, General: general})
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, data formPageData) {
	actor := actorOf(r)
	scope := mdshared.ScopeFor(actor)
	if data.Errors == nil {
		data.Errors = mdshared.FieldErrors{}
	}
	data.Roles = AssignableRoles(actor.Role)
	if scope.CompanyID == 0 && h.pickers.Companies != nil {
		list, err := h.pickers.Companies.Options(r.Context())
		if err != nil {
			h.logger.Warn("list companies failed", slog.Any("error", err))
		}
		data.Companies = list
	}
	data.Stations = h.stationOptions(r, scope)
	title := "New user"
	if data.ID > 0 {
		title = "Edit user"
	}
	h.responder.RenderStatus(w, r, status, "pages/user_form.html", title, data)
}

func (h *Handler) stationOptions(r *http.Request, scope mdshared.Scope) []stations.Station {
	if h.pickers.Stations == nil {
		return nil
	}
	list, err := h.pickers.Stations.Options(r.Context(), scope)
	if err != nil {
		h.logger.Warn("list stations failed", slog.Any("error", err))
		return nil
	}
	return list
}
