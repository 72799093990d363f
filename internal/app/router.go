package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	audithttp "github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/audit/http"
	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/auth"
	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/authz"
	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/departments"
	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/observability"
	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/roles"
	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/shared"
	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/users"
	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	AuthHandler        *auth.Handler
	AuthzHandler       *authz.Handler
	AuditHandler       *audithttp.Handler
	RolesHandler       *roles.Handler
	UsersHandler       *users.Handler
	DepartmentsHandler *departments.Handler
	JobHandler         *jobs.Handler

	Authz   authz.Middleware
	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
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

	r.Route("/auth", params.AuthHandler.MountRoutes)

	// Administrative surface: grants, role bundles, audit trail.
	r.Group(func(r chi.Router) {
		r.Use(params.Authz.RequireCheck("roles.manage", ""))
		r.Route("/authz", params.AuthzHandler.MountRoutes)
		if params.RolesHandler != nil {
			r.Route("/roles", params.RolesHandler.MountRoutes)
		}
		if params.AuditHandler != nil {
			params.AuditHandler.MountRoutes(r)
		}
	})

	if params.UsersHandler != nil {
		r.Group(func(r chi.Router) {
			r.Use(params.Authz.RequireCheck("users.manage", ""))
			r.Route("/users", params.UsersHandler.MountRoutes)
		})
	}
	if params.DepartmentsHandler != nil {
		r.Group(func(r chi.Router) {
			r.Use(params.Authz.RequireCheck("departments.manage", ""))
			r.Route("/departments", params.DepartmentsHandler.MountRoutes)
		})
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	// Dashboard pages go through the page access policy.
	r.Group(func(r chi.Router) {
		r.Use(params.Authz.PageGate())
		r.Get("/dashboard/*", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
