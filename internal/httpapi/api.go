// Package httpapi exposes the service over HTTP: public registration and
// confirmation endpoints, token-protected admin endpoints, and the usual
// health, readiness and metrics surface.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/theodoreromeos/account-management/internal/confirmation"
	"github.com/theodoreromeos/account-management/internal/obs"
	"github.com/theodoreromeos/account-management/internal/registration"
)

// ReadyProbe checks the service's backing dependencies.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	mux           *http.ServeMux
	registrations *registration.Service
	confirmations *confirmation.Service
	verifier      *Verifier
	validate      *validator.Validate
	readyProbe    ReadyProbe
	log           *logrus.Logger
	version       string
}

// New wires the routes.
func New(
	reg *registration.Service,
	conf *confirmation.Service,
	verifier *Verifier,
	rp ReadyProbe,
	log *logrus.Logger,
	version string,
) *API {
	a := &API{
		mux:           http.NewServeMux(),
		registrations: reg,
		confirmations: conf,
		verifier:      verifier,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		readyProbe:    rp,
		log:           log,
		version:       version,
	}

	// health/ready/info
	a.mux.HandleFunc("GET /healthz", a.Healthz)
	a.mux.HandleFunc("GET /readyz", a.Ready)
	a.mux.HandleFunc("GET /v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("GET /metrics", obs.Handler())

	// public registration
	a.mux.HandleFunc("POST /register/user/simple", a.RegisterSimpleUser)
	a.mux.HandleFunc("POST /register/user/organization", a.RegisterOrganizationUser)
	a.mux.HandleFunc("POST /register/organization", a.RegisterOrganization)

	// confirmation links from emails
	a.mux.HandleFunc("GET /confirmation/simple-user", a.ConfirmSimpleUser)
	a.mux.HandleFunc("GET /confirmation/org-user", a.ConfirmOrgUserByUser)
	a.mux.HandleFunc("GET /confirmation/org-user/admin", a.ConfirmOrgUserByOrganization)
	a.mux.HandleFunc("POST /confirmation/org-admin", a.ConfirmOrgAdmin)

	// operator endpoints
	admin := func(h http.HandlerFunc) http.Handler {
		return a.verifier.RequireRole(RoleSysAdmin, h)
	}
	a.mux.Handle("POST /admin/manage", admin(a.ManageProfile))
	a.mux.Handle("GET /admin/org-registration/search", admin(a.SearchProcesses))
	a.mux.Handle("POST /admin/org-registration/decision", admin(a.DecideProcess))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the instrumented root handler.
func (a *API) Handler() http.Handler {
	return obs.Instrument(a.mux)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "account-management",
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
		"name":    "account-management",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
