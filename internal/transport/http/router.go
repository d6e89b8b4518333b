// Package httptransport exposes the registry over HTTP. Handlers stay thin:
// they decode, call one service operation and translate its error.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"namespaces/pkg/platform/httputil"
	"namespaces/pkg/platform/middleware/request"
	"namespaces/pkg/platform/middleware/requesttime"
)

const healthTimeout = 2 * time.Second

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Registrar mounts a feature's routes.
type Registrar interface {
	Register(r chi.Router)
}

type Router struct {
	logger  *slog.Logger
	metrics http.Handler
	health  map[string]HealthCheck
}

type RouterOption func(*Router)

// WithMetricsHandler serves handler at /metrics.
func WithMetricsHandler(handler http.Handler) RouterOption {
	return func(r *Router) {
		r.metrics = handler
	}
}

// WithHealthCheck adds a named dependency to /healthz.
func WithHealthCheck(name string, check HealthCheck) RouterOption {
	return func(r *Router) {
		r.health[name] = check
	}
}

// NewRouter builds the root handler with the shared middleware chain and
// mounts every feature.
func NewRouter(logger *slog.Logger, features []Registrar, opts ...RouterOption) http.Handler {
	rt := &Router{logger: logger, health: map[string]HealthCheck{}}
	for _, opt := range opts {
		opt(rt)
	}

	r := chi.NewRouter()
	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(request.Logger(logger))
	r.Use(requesttime.Middleware)

	r.Get("/healthz", rt.handleHealth)
	if rt.metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.metrics)
	}
	for _, f := range features {
		f.Register(r)
	}
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok"}
	status := http.StatusOK
	if len(rt.health) > 0 {
		resp.Checks = make(map[string]string, len(rt.health))
	}
	for name, check := range rt.health {
		if err := check(ctx); err != nil {
			rt.logger.WarnContext(ctx, "health check failed", "dependency", name, "error", err)
			resp.Checks[name] = "unavailable"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	httputil.WriteJSON(w, status, resp)
}
