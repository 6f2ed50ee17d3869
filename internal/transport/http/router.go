// Package httptransport assembles the HTTP surface: routing, middleware,
// health, and metrics exposition. Business logic lives in the feature
// handlers it mounts.
package httptransport

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vigil/internal/screening/handler"
	"vigil/pkg/platform/httputil"
)

// Deps carries everything the router mounts.
type Deps struct {
	Screening *handler.Handler
	// Health reports readiness of backing resources; nil checks pass.
	Health []HealthChecker
	// Observe wraps every request with request-ID propagation, logging,
	// and HTTP metrics.
	Observe func(http.Handler) http.Handler
}

// NewRouter wires all endpoints.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	if deps.Observe != nil {
		r.Use(deps.Observe)
	}

	r.Get("/healthz", handleHealth(deps.Health))
	r.Handle("/metrics", promhttp.Handler())

	deps.Screening.Register(r)
	return r
}

// HealthChecker reports one resource's availability.
type HealthChecker interface {
	Health(ctx context.Context) error
}

func handleHealth(checks []HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Health(r.Context()); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"reason": err.Error(),
				})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
