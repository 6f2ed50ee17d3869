package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil/internal/screening/handler"
	"vigil/internal/screening/models"
	id "vigil/pkg/domain"
	dErrors "vigil/pkg/domain-errors"
)

type noopService struct{}

func (noopService) ScreenOne(context.Context, models.ScreeningQuery) ([]models.MatchResult, models.ScreenStatus, error) {
	return nil, models.ScreenOK, nil
}
func (noopService) SubmitBatch(context.Context, []models.ScreeningQuery) (models.BatchJob, error) {
	return models.BatchJob{}, nil
}
func (noopService) BatchStatus(context.Context, id.BatchID) (models.BatchJob, error) {
	return models.BatchJob{}, nil
}
func (noopService) BatchResults(context.Context, id.BatchID) (models.BatchJob, []models.ItemOutcome, error) {
	return models.BatchJob{}, nil, nil
}
func (noopService) CancelBatch(context.Context, id.BatchID) error { return nil }

type failingCheck struct{}

func (failingCheck) Health(context.Context) error {
	return dErrors.New(dErrors.CodeUnavailable, "redis unreachable")
}

func newTestRouter(checks ...HealthChecker) http.Handler {
	return NewRouter(Deps{
		Screening: handler.New(noopService{}, slog.Default()),
		Health:    checks,
		Observe:   Observability(slog.Default(), nil),
	})
}

func TestHealthz(t *testing.T) {
	router := newTestRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthzUnhealthy(t *testing.T) {
	router := newTestRouter(failingCheck{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	router := newTestRouter()

	t.Run("generated when absent", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
	})

	t.Run("echoed when present", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set(requestIDHeader, "req-123")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, "req-123", rec.Header().Get(requestIDHeader))
	})
}

func TestScreeningRoutesMounted(t *testing.T) {
	router := newTestRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/screen/batch/"+id.NewBatchID().String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
