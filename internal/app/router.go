package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	activityloghttp "github.com/pumpline-erp/pumpline/internal/activitylog/http"
	"github.com/pumpline-erp/pumpline/internal/auth"
	"github.com/pumpline-erp/pumpline/internal/dashboard"
	"github.com/pumpline-erp/pumpline/internal/masterdata/companies"
	"github.com/pumpline-erp/pumpline/internal/masterdata/stations"
	"github.com/pumpline-erp/pumpline/internal/masterdata/suppliers"
	"github.com/pumpline-erp/pumpline/internal/observability"
	"github.com/pumpline-erp/pumpline/internal/offload"
	"github.com/pumpline-erp/pumpline/internal/rbac"
	"github.com/pumpline-erp/pumpline/internal/shared"
	shiftclosehttp "github.com/pumpline-erp/pumpline/internal/shiftclose/http"
	"github.com/pumpline-erp/pumpline/internal/shifts"
	"github.com/pumpline-erp/pumpline/internal/users"
	"github.com/pumpline-erp/pumpline/jobs"
	"github.com/pumpline-erp/pumpline/report"
	"github.com/pumpline-erp/pumpline/web"
)

// RouterParams groups dependencies for building the HTTP router. Nil
// handlers are not mounted.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	RBACMiddleware rbac.Middleware

	AuthHandler        *auth.Handler
	DashboardHandler   *dashboard.Handler
	CompaniesHandler   *companies.Handler
	StationsHandler    *stations.Handler
	UsersHandler       *users.Handler
	SuppliersHandler   *suppliers.Handler
	ShiftsHandler      *shifts.Handler
	ShiftCloseHandler  *shiftclosehttp.Handler
	OffloadHandler     *offload.Handler
	ActivityHandler    *activityloghttp.Handler
	PermissionsHandler *rbac.PermissionsHandler

	ReportHandler *report.Handler
	JobHandler    *jobs.Handler
	Metrics       *observability.Metrics
}

// NewRouter constructs the chi.Router with the console defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
	}
	if params.ReportHandler != nil {
		r.Route("/report", params.ReportHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	// Everything else needs a signed-in user; permissions are checked per route.
	r.Group(func(r chi.Router) {
		r.Use(params.RBACMiddleware.RequireLogin)

		if params.DashboardHandler != nil {
			params.DashboardHandler.MountRoutes(r)
		}
		if params.CompaniesHandler != nil {
			r.Route("/companies", params.CompaniesHandler.MountRoutes)
		}
		if params.StationsHandler != nil {
			r.Route("/stations", params.StationsHandler.MountRoutes)
		}
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.SuppliersHandler != nil {
			r.Route("/suppliers", params.SuppliersHandler.MountRoutes)
		}
		if params.ShiftsHandler != nil {
			r.Route("/shifts", func(r chi.Router) {
				params.ShiftsHandler.MountRoutes(r)
				if params.ShiftCloseHandler != nil {
					r.Route("/{id:[0-9]+}/close", params.ShiftCloseHandler.MountRoutes)
				}
			})
		}
		if params.OffloadHandler != nil {
			r.Route("/offloads", params.OffloadHandler.MountRoutes)
		}
		if params.ActivityHandler != nil {
			r.Route("/activity-log", params.ActivityHandler.MountRoutes)
		}
		if params.PermissionsHandler != nil {
			r.Route("/access", params.PermissionsHandler.MountRoutes)
		}
	})

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler caches static assets in the browser for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
