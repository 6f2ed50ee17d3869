package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vigil/internal/screening/models"
	id "vigil/pkg/domain"
	dErrors "vigil/pkg/domain-errors"
	"vigil/pkg/platform/httputil"
	"vigil/pkg/requestcontext"
)

// Service defines the interface for screening operations.
type Service interface {
	ScreenOne(ctx context.Context, query models.ScreeningQuery) ([]models.MatchResult, models.ScreenStatus, error)
	SubmitBatch(ctx context.Context, queries []models.ScreeningQuery) (models.BatchJob, error)
	BatchStatus(ctx context.Context, batchID id.BatchID) (models.BatchJob, error)
	BatchResults(ctx context.Context, batchID id.BatchID) (models.BatchJob, []models.ItemOutcome, error)
	CancelBatch(ctx context.Context, batchID id.BatchID) error
}

// Handler wires screening endpoints to the screening service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a screening handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts screening endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/screen", h.HandleScreen)
	r.Post("/screen/batch", h.HandleSubmitBatch)
	r.Get("/screen/batch/{batchID}", h.HandleBatchStatus)
	r.Get("/screen/batch/{batchID}/results", h.HandleBatchResults)
	r.Post("/screen/batch/{batchID}/cancel", h.HandleCancelBatch)
}

// HandleScreen handles POST /screen requests.
func (h *Handler) HandleScreen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ScreenRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	query := req.ToQuery()
	// Assign the ID here so the response names the query even when the
	// screen yields no matches.
	query.ID = id.NewQueryID()
	results, status, err := h.service.ScreenOne(ctx, query)
	if err != nil {
		h.logger.ErrorContext(ctx, "screen failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromResults(query.ID.String(), status, results))
}

// HandleSubmitBatch handles POST /screen/batch requests.
func (h *Handler) HandleSubmitBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[BatchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	job, err := h.service.SubmitBatch(ctx, req.ToQueries())
	if err != nil {
		h.logger.ErrorContext(ctx, "batch submission failed",
			"request_id", requestID,
			"items", len(req.Queries),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, FromJob(job))
}

// HandleBatchStatus handles GET /screen/batch/{batchID} requests.
func (h *Handler) HandleBatchStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	batchID, ok := h.batchID(w, r)
	if !ok {
		return
	}

	job, err := h.service.BatchStatus(ctx, batchID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromJob(job))
}

// HandleBatchResults handles GET /screen/batch/{batchID}/results requests.
func (h *Handler) HandleBatchResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	batchID, ok := h.batchID(w, r)
	if !ok {
		return
	}

	job, outcomes, err := h.service.BatchResults(ctx, batchID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromOutcomes(job, outcomes))
}

// HandleCancelBatch handles POST /screen/batch/{batchID}/cancel requests.
func (h *Handler) HandleCancelBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	batchID, ok := h.batchID(w, r)
	if !ok {
		return
	}

	if err := h.service.CancelBatch(ctx, batchID); err != nil {
		h.logger.WarnContext(ctx, "batch cancel failed",
			"request_id", requestID,
			"batch_id", batchID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) batchID(w http.ResponseWriter, r *http.Request) (id.BatchID, bool) {
	raw := chi.URLParam(r, "batchID")
	batchID, err := id.ParseBatchID(raw)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "batch id is not a valid UUID"))
		return id.BatchID{}, false
	}
	return batchID, true
}
