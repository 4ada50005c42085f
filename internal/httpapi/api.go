// Package httpapi is the HTTP surface: routing, authentication middleware,
// request decoding, and the error envelope. All domain decisions live in the
// auth and project services; handlers only translate.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"tasklane.org/internal/auth"
	"tasklane.org/internal/config"
	"tasklane.org/internal/obs"
	"tasklane.org/internal/project"
)

// Pinger is anything that can answer a liveness check against its backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyProbe aggregates backend checks for /readyz.
type ReadyProbe struct {
	DB    Pinger
	Cache Pinger
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB != nil {
		if err := rp.DB.Ping(ctx); err != nil {
			return err
		}
	}
	if rp.Cache != nil {
		if err := rp.Cache.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

// API — HTTP слой.
type API struct {
	router        *mux.Router
	auth          *auth.Service
	projects      *project.Service
	readyProbe    ReadyProbe
	version       string
	secureCookies bool
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// Option configures API.
type Option func(*API)

// WithReadyProbe wires backend checks into /readyz.
func WithReadyProbe(rp ReadyProbe) Option {
	return func(a *API) { a.readyProbe = rp }
}

// WithVersion sets the version reported by /healthz and /v1/info.
func WithVersion(v string) Option {
	return func(a *API) { a.version = v }
}

// WithInsecureCookies drops the Secure flag on session cookies for local
// development over plain HTTP.
func WithInsecureCookies() Option {
	return func(a *API) { a.secureCookies = false }
}

// WithCookieTTLs aligns cookie lifetimes with the token lifetimes.
func WithCookieTTLs(access, refresh time.Duration) Option {
	return func(a *API) {
		if access > 0 {
			a.accessTTL = access
		}
		if refresh > 0 {
			a.refreshTTL = refresh
		}
	}
}

// New wires the router. authSvc and projectSvc must be non-nil.
func New(authSvc *auth.Service, projectSvc *project.Service, opts ...Option) *API {
	a := &API{
		router:        mux.NewRouter(),
		auth:          authSvc,
		projects:      projectSvc,
		version:       "dev",
		secureCookies: true,
		accessTTL:     config.DefaultAccessTTL,
		refreshTTL:    config.DefaultRefreshTTL,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.routes()
	return a
}

func (a *API) routes() {
	r := a.router

	// health/ready/info
	r.HandleFunc("/healthz", a.Healthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.Ready).Methods(http.MethodGet)
	r.HandleFunc("/v1/info", a.Info).Methods(http.MethodGet)

	// Prometheus metrics
	r.Handle("/metrics", obs.Handler()).Methods(http.MethodGet)

	// session lifecycle
	r.HandleFunc("/v1/auth/register", a.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/v1/auth/login", a.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/v1/auth/refresh", a.handleRefresh).Methods(http.MethodPost)
	r.HandleFunc("/v1/auth/logout", a.handleLogout).Methods(http.MethodPost)

	// caller-scoped surfaces
	r.HandleFunc("/v1/me", a.handleMe).Methods(http.MethodGet)
	r.HandleFunc("/v1/users", a.handleSearchUsers).Methods(http.MethodGet)

	// organizations; fixed segments register before the {id} catch-all
	r.HandleFunc("/v1/orgs", a.handleCreateOrg).Methods(http.MethodPost)
	r.HandleFunc("/v1/orgs", a.handleListOrgs).Methods(http.MethodGet)
	r.HandleFunc("/v1/orgs/search", a.handleSearchOrgs).Methods(http.MethodGet)
	r.HandleFunc("/v1/orgs/slug/{slug}", a.handleGetOrgBySlug).Methods(http.MethodGet)
	r.HandleFunc("/v1/orgs/{id}", a.handleGetOrg).Methods(http.MethodGet)
	r.HandleFunc("/v1/orgs/{id}", a.handleUpdateOrg).Methods(http.MethodPut)
	r.HandleFunc("/v1/orgs/{id}", a.handleDeleteOrg).Methods(http.MethodDelete)
	r.HandleFunc("/v1/orgs/{id}/members", a.handleInviteToOrg).Methods(http.MethodPost)
	r.HandleFunc("/v1/orgs/{id}/members/{userID}", a.handleUpdateOrgRole).Methods(http.MethodPut)
	r.HandleFunc("/v1/orgs/{id}/members/{userID}", a.handleRemoveFromOrg).Methods(http.MethodDelete)
	r.HandleFunc("/v1/orgs/{id}/workspaces", a.handleCreateWorkspace).Methods(http.MethodPost)
	r.HandleFunc("/v1/orgs/{id}/workspaces", a.handleListWorkspaces).Methods(http.MethodGet)

	// workspaces
	r.HandleFunc("/v1/workspaces/slug/{slug}", a.handleGetWorkspaceBySlug).Methods(http.MethodGet)
	r.HandleFunc("/v1/workspaces/{id}", a.handleGetWorkspace).Methods(http.MethodGet)
	r.HandleFunc("/v1/workspaces/{id}", a.handleUpdateWorkspace).Methods(http.MethodPut)
	r.HandleFunc("/v1/workspaces/{id}", a.handleDeleteWorkspace).Methods(http.MethodDelete)
	r.HandleFunc("/v1/workspaces/{id}/members", a.handleInviteToWorkspace).Methods(http.MethodPost)
	r.HandleFunc("/v1/workspaces/{id}/members/{userID}", a.handleUpdateWorkspaceRole).Methods(http.MethodPut)
	r.HandleFunc("/v1/workspaces/{id}/members/{userID}", a.handleRemoveFromWorkspace).Methods(http.MethodDelete)
	r.HandleFunc("/v1/workspaces/{id}/boards", a.handleCreateBoard).Methods(http.MethodPost)
	r.HandleFunc("/v1/workspaces/{id}/boards", a.handleListBoards).Methods(http.MethodGet)

	// boards
	r.HandleFunc("/v1/boards/{id}", a.handleGetBoard).Methods(http.MethodGet)
	r.HandleFunc("/v1/boards/{id}", a.handleUpdateBoard).Methods(http.MethodPut)
	r.HandleFunc("/v1/boards/{id}", a.handleDeleteBoard).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no such route")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed for this route")
	})
}

// Handler returns the fully wrapped handler: metrics on the outside, then
// request tagging, logging, hardening, CORS, rate limiting, and
// authentication.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.router
	h = a.withAuth(h)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, 100, 50)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = Logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "tasklane-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "tasklane-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
