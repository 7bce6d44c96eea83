package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vcanchor/internal/platform/health"
	"vcanchor/pkg/platform/middleware/auth"
	"vcanchor/pkg/platform/middleware/device"
	"vcanchor/pkg/platform/middleware/request"
	"vcanchor/pkg/platform/middleware/requesttime"
)

// OperatorRoutes are mounted behind bearer auth and a per-module scope.
type OperatorRoutes interface {
	Register(r chi.Router)
}

// PublicRoutes are reachable without a token.
type PublicRoutes interface {
	RegisterPublic(r chi.Router)
}

type Mounter interface {
	OperatorRoutes
	PublicRoutes
}

// Routes lists the module handlers the router mounts.
type Routes struct {
	Health       *health.Handler
	Credentials  OperatorRoutes
	Anchor       Mounter
	Claims       Mounter
	Verification PublicRoutes
}

// Scopes names the token scope each operator module requires.
type Scopes struct {
	Credentials string
	Anchor      string
	Claims      string
}

type Config struct {
	RequestTimeout time.Duration
	Scopes         Scopes
}

// NewRouter wires every endpoint with the shared middleware stack. Health
// and metrics stay outside the request timeout so health checks never queue
// behind slow requests.
func NewRouter(routes Routes, validator auth.TokenValidator, cfg Config, metrics *request.Metrics, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(request.ClientIP)
	r.Use(device.Device)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(logger))
	r.Use(request.LatencyMiddleware(metrics))

	if routes.Health != nil {
		routes.Health.Register(r)
	}
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if cfg.RequestTimeout > 0 {
			r.Use(request.Timeout(cfg.RequestTimeout))
		}
		r.Use(request.ContentTypeJSON)

		routes.Anchor.RegisterPublic(r)
		routes.Claims.RegisterPublic(r)
		routes.Verification.RegisterPublic(r)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(validator, logger))
			mountScoped(r, cfg.Scopes.Credentials, routes.Credentials, logger)
			mountScoped(r, cfg.Scopes.Anchor, routes.Anchor, logger)
			mountScoped(r, cfg.Scopes.Claims, routes.Claims, logger)
		})
	})

	return r
}

func mountScoped(r chi.Router, scope string, routes OperatorRoutes, logger *slog.Logger) {
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireScope(scope, logger))
		routes.Register(r)
	})
}
