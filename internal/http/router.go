// Package httpapi assembles the HTTP surface: middleware chain, public
// routes, and the admin subrouter. Handlers stay thin; business logic lives
// in the service packages.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"warden/pkg/platform/httputil"
	"warden/pkg/platform/middleware/adminauth"
	"warden/pkg/platform/middleware/metadata"
	"warden/pkg/platform/middleware/requestid"
	"warden/pkg/platform/middleware/requesttime"
)

// Registrar mounts routes on a chi router.
type Registrar interface {
	Register(r chi.Router)
}

// AdminRegistrar mounts routes that require admin auth.
type AdminRegistrar interface {
	RegisterAdmin(r chi.Router)
}

// Deps carries the wired handlers and cross-cutting pieces the router needs.
type Deps struct {
	Public         []Registrar
	Admin          []AdminRegistrar
	AdminValidator *adminauth.Validator
	Logger         *slog.Logger
}

// NewRouter builds the full route tree. Every request gets a correlation ID,
// a request-scoped clock, and client metadata before reaching a handler.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		for _, reg := range deps.Public {
			reg.Register(r)
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(adminauth.RequireAdmin(deps.AdminValidator, logger))
		for _, reg := range deps.Admin {
			reg.RegisterAdmin(r)
		}
	})

	return r
}
