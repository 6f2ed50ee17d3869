// Package service is the screening facade: it validates queries, runs the
// normalize/remote/merge pipeline for single screens, and owns the batch
// coordinator for bulk ones.
package service

import (
	"context"
	"log/slog"
	"time"

	"vigil/internal/screening/batch"
	"vigil/internal/screening/dataset"
	"vigil/internal/screening/merge"
	"vigil/internal/screening/metrics"
	"vigil/internal/screening/models"
	"vigil/internal/screening/normalize"
	"vigil/internal/screening/orchestrator"
	id "vigil/pkg/domain"
	dErrors "vigil/pkg/domain-errors"
	"vigil/pkg/platform/audit"
	"vigil/pkg/platform/audit/publisher"
	"vigil/pkg/requestcontext"
)

// Config tunes request validation and batch execution.
type Config struct {
	// FuzzyThreshold is the default minimum confidence; queries may
	// override it per request within [1,100].
	FuzzyThreshold int
	// DefaultLimit is applied when a query asks for no page size.
	DefaultLimit int
	// MaxLimit caps the page size a query may request.
	MaxLimit int
	// Batch is passed through to the coordinator.
	Batch batch.Config
}

func (c Config) withDefaults() Config {
	if c.FuzzyThreshold <= 0 {
		c.FuzzyThreshold = 40
	}
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = 25
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = 100
	}
	return c
}

// Service runs screening operations. Safe for concurrent use.
type Service struct {
	normalizer *normalize.Normalizer
	orch       *orchestrator.Orchestrator
	merger     *merge.Merger
	dataset    dataset.Store
	batch      *batch.Coordinator
	cfg        Config

	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   *publisher.Publisher
}

// Option configures optional collaborators.
type Option func(*Service)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics attaches pipeline metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAudit attaches the audit publisher.
func WithAudit(pub *publisher.Publisher) Option {
	return func(s *Service) { s.audit = pub }
}

// WithDataset attaches a local supplementary dataset.
func WithDataset(store dataset.Store) Option {
	return func(s *Service) { s.dataset = store }
}

// New wires the screening pipeline. The orchestrator and merger are
// required; the dataset, audit trail, and metrics are optional.
func New(
	normalizer *normalize.Normalizer,
	orch *orchestrator.Orchestrator,
	merger *merge.Merger,
	jobs batch.JobStore,
	cfg Config,
	opts ...Option,
) (*Service, error) {
	if normalizer == nil || orch == nil || merger == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "service: pipeline stages are required")
	}

	s := &Service{
		normalizer: normalizer,
		orch:       orch,
		merger:     merger,
		cfg:        cfg.withDefaults(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	coordinator, err := batch.New(s, jobs, s.cfg.Batch,
		batch.WithLogger(s.logger),
		batch.WithMetrics(s.metrics),
		batch.WithOnFinish(s.recordBatchFinished),
	)
	if err != nil {
		return nil, err
	}
	s.batch = coordinator
	return s, nil
}

// ScreenOne runs the full pipeline for a single query. A degraded remote
// leg is reported through the status, not through the error.
func (s *Service) ScreenOne(ctx context.Context, query models.ScreeningQuery) ([]models.MatchResult, models.ScreenStatus, error) {
	query, err := s.prepare(query)
	if err != nil {
		return nil, "", err
	}

	name, err := s.normalizer.Normalize(query.Name)
	if err != nil {
		return nil, "", err
	}

	remote := s.orch.Screen(ctx, query, name)

	var local []models.CandidateEntity
	if s.dataset != nil {
		local, err = s.dataset.Lookup(ctx, name)
		if err != nil {
			// The local dataset is supplementary; its failure must not
			// take down a screen that has remote results.
			s.logger.WarnContext(ctx, "local dataset lookup failed",
				"query_id", query.ID, "error", err)
			local = nil
		}
	}

	results := s.merger.Merge(query, name, remote.Candidates, remote.Provenance, local)

	s.metrics.IncScreen(string(remote.Status))
	s.recordScreen(ctx, query, remote.Status, len(results))
	return results, remote.Status, nil
}

// SubmitBatch validates nothing beyond batch shape; per-item validation
// happens inside each worker so one malformed name cannot sink the job.
func (s *Service) SubmitBatch(ctx context.Context, queries []models.ScreeningQuery) (models.BatchJob, error) {
	job, err := s.batch.Submit(ctx, queries)
	if err != nil {
		return models.BatchJob{}, err
	}
	s.emitAudit(ctx, audit.Event{
		Action:     string(audit.EventBatchSubmitted),
		BatchID:    job.ID,
		MatchCount: job.Total,
	})
	return job, nil
}

// BatchStatus returns a progress snapshot.
func (s *Service) BatchStatus(ctx context.Context, batchID id.BatchID) (models.BatchJob, error) {
	return s.batch.Job(ctx, batchID)
}

// BatchResults returns the job snapshot with the outcomes recorded so far,
// ordered by submission index.
func (s *Service) BatchResults(ctx context.Context, batchID id.BatchID) (models.BatchJob, []models.ItemOutcome, error) {
	job, err := s.batch.Job(ctx, batchID)
	if err != nil {
		return models.BatchJob{}, nil, err
	}
	outcomes, err := s.batch.Outcomes(ctx, batchID)
	if err != nil {
		return models.BatchJob{}, nil, err
	}
	return job, outcomes, nil
}

// CancelBatch requests cooperative cancellation of a running job.
func (s *Service) CancelBatch(ctx context.Context, batchID id.BatchID) error {
	if err := s.batch.Cancel(ctx, batchID); err != nil {
		return err
	}
	s.emitAudit(ctx, audit.Event{
		Action:  string(audit.EventBatchCanceled),
		BatchID: batchID,
	})
	return nil
}

// prepare validates a query and fills defaults. The returned copy is the
// one the pipeline runs with.
func (s *Service) prepare(query models.ScreeningQuery) (models.ScreeningQuery, error) {
	if query.Name == "" {
		return query, dErrors.New(dErrors.CodeValidation, "query name is required")
	}
	if query.Threshold < 0 || query.Threshold > 100 {
		return query, dErrors.New(dErrors.CodeValidation, "threshold must be within [0,100]")
	}
	if query.Limit < 0 || query.Offset < 0 {
		return query, dErrors.New(dErrors.CodeValidation, "limit and offset must not be negative")
	}
	if _, err := models.ParseEntitySchema(string(query.Schema)); err != nil {
		return query, err
	}
	if query.BirthDate != "" {
		if _, err := time.Parse("2006-01-02", query.BirthDate); err != nil {
			return query, dErrors.New(dErrors.CodeValidation, "birth date must be YYYY-MM-DD")
		}
	}

	if query.ID.IsNil() {
		query.ID = id.NewQueryID()
	}
	if query.Threshold == 0 {
		query.Threshold = s.cfg.FuzzyThreshold
	}
	if query.Limit == 0 {
		query.Limit = s.cfg.DefaultLimit
	}
	if query.Limit > s.cfg.MaxLimit {
		query.Limit = s.cfg.MaxLimit
	}
	return query, nil
}

func (s *Service) recordScreen(ctx context.Context, query models.ScreeningQuery, status models.ScreenStatus, matches int) {
	action := audit.EventScreenPerformed
	if status == models.ScreenDegraded {
		action = audit.EventScreenDegraded
	}
	s.emitAudit(ctx, audit.Event{
		Action:      string(action),
		QueryID:     query.ID,
		SubjectHash: audit.HashSubject(query.Name),
		Status:      string(status),
		MatchCount:  matches,
	})
}

func (s *Service) recordBatchFinished(ctx context.Context, job models.BatchJob) {
	s.emitAudit(ctx, audit.Event{
		Action:     string(audit.EventBatchFinished),
		BatchID:    job.ID,
		Status:     string(job.Status),
		MatchCount: job.Completed,
	})
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
