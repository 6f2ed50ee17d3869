package httptransport

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"vigil/internal/platform/metrics"
	"vigil/pkg/requestcontext"
)

const requestIDHeader = "X-Request-ID"

// Observability returns the standard middleware chain: request-ID
// propagation, structured access logging, and HTTP metrics.
func Observability(logger *slog.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(requestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			ctx := requestcontext.WithRequestID(r.Context(), requestID)
			ctx = requestcontext.WithTime(ctx, time.Now())
			w.Header().Set(requestIDHeader, requestID)

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r.WithContext(ctx))
			elapsed := time.Since(start)

			route := chi.RouteContext(ctx).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			if m != nil {
				m.HTTPRequests.WithLabelValues(route, statusClass(ww.Status())).Inc()
				m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
			}
			if logger != nil {
				logger.InfoContext(ctx, "http request",
					"request_id", requestID,
					"method", r.Method,
					"route", route,
					"status", ww.Status(),
					"duration_ms", elapsed.Milliseconds(),
				)
			}
		})
	}
}

func statusClass(status int) string {
	if status == 0 {
		status = http.StatusOK
	}
	return strconv.Itoa(status/100) + "xx"
}
