// Package batch runs many screening queries through a bounded worker pool
// and tracks each job's lifecycle.
//
// Invariants the coordinator maintains:
//   - every submitted item produces exactly one outcome, success or failure
//   - Completed == successes + failures at all times, and == Total once the
//     job is terminal
//   - one item's failure never aborts its siblings
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"vigil/internal/screening/metrics"
	"vigil/internal/screening/models"
	id "vigil/pkg/domain"
	dErrors "vigil/pkg/domain-errors"
)

// Screener screens a single query. The service facade satisfies this.
type Screener interface {
	ScreenOne(ctx context.Context, query models.ScreeningQuery) ([]models.MatchResult, models.ScreenStatus, error)
}

// Config tunes the coordinator.
type Config struct {
	// WorkerWidth bounds concurrent in-flight items per job.
	WorkerWidth int
	// MaxItems caps a single submission. Zero means the default.
	MaxItems int
}

func (c Config) withDefaults() Config {
	if c.WorkerWidth <= 0 {
		c.WorkerWidth = 5
	}
	if c.MaxItems <= 0 {
		c.MaxItems = 1000
	}
	return c
}

// Coordinator owns batch job execution. Safe for concurrent use.
type Coordinator struct {
	screener Screener
	store    JobStore
	cfg      Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	onFinish func(ctx context.Context, job models.BatchJob)

	mu      sync.Mutex
	cancels map[id.BatchID]context.CancelFunc
}

// Option configures optional collaborators.
type Option func(*Coordinator)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// WithMetrics attaches pipeline metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithOnFinish registers a callback invoked once a job reaches a terminal
// state. It runs on the job's goroutine, after the final store update.
func WithOnFinish(fn func(ctx context.Context, job models.BatchJob)) Option {
	return func(c *Coordinator) { c.onFinish = fn }
}

// New builds a Coordinator.
func New(screener Screener, store JobStore, cfg Config, opts ...Option) (*Coordinator, error) {
	if screener == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "batch: screener is required")
	}
	if store == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "batch: job store is required")
	}
	c := &Coordinator{
		screener: screener,
		store:    store,
		cfg:      cfg.withDefaults(),
		logger:   slog.Default(),
		cancels:  make(map[id.BatchID]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Submit registers a job and starts it in the background. The returned
// snapshot is PENDING; execution outlives the submitting request.
func (c *Coordinator) Submit(ctx context.Context, queries []models.ScreeningQuery) (models.BatchJob, error) {
	if len(queries) == 0 {
		return models.BatchJob{}, dErrors.New(dErrors.CodeValidation, "batch requires at least one query")
	}
	if len(queries) > c.cfg.MaxItems {
		return models.BatchJob{}, dErrors.Newf(dErrors.CodeValidation, "batch exceeds %d items", c.cfg.MaxItems)
	}

	items := make([]models.ScreeningQuery, len(queries))
	copy(items, queries)
	for i := range items {
		if items[i].ID.IsNil() {
			items[i].ID = id.NewQueryID()
		}
	}

	job := models.BatchJob{
		ID:          id.NewBatchID(),
		Status:      models.BatchPending,
		Total:       len(items),
		SubmittedAt: time.Now().UTC(),
	}
	if err := c.store.Create(ctx, job); err != nil {
		return models.BatchJob{}, err
	}

	// Detach from the submitting request: its cancellation must not kill
	// the job, but its values (request ID) stay for logging.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.mu.Lock()
	c.cancels[job.ID] = cancel
	c.mu.Unlock()

	go c.run(runCtx, job.ID, items)
	return job, nil
}

// Job returns the current snapshot of a job.
func (c *Coordinator) Job(ctx context.Context, jobID id.BatchID) (models.BatchJob, error) {
	return c.store.Job(ctx, jobID)
}

// Outcomes returns the outcomes recorded so far, ordered by submission
// index. On a running job this is a partial view.
func (c *Coordinator) Outcomes(ctx context.Context, jobID id.BatchID) ([]models.ItemOutcome, error) {
	return c.store.Outcomes(ctx, jobID)
}

// Cancel requests cooperative cancellation. In-flight items finish; items
// not yet dispatched are recorded as canceled.
func (c *Coordinator) Cancel(ctx context.Context, jobID id.BatchID) error {
	job, err := c.store.Job(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return dErrors.Newf(dErrors.CodeConflict, "batch job %s already finished", jobID)
	}

	c.mu.Lock()
	cancel, ok := c.cancels[jobID]
	c.mu.Unlock()
	if ok {
		cancel()
	}
	return nil
}

func (c *Coordinator) run(ctx context.Context, jobID id.BatchID, items []models.ScreeningQuery) {
	defer func() {
		c.mu.Lock()
		if cancel, ok := c.cancels[jobID]; ok {
			cancel()
			delete(c.cancels, jobID)
		}
		c.mu.Unlock()
	}()

	c.metrics.BatchStarted()
	defer c.metrics.BatchFinished()

	if _, err := c.store.Update(ctx, jobID, func(job *models.BatchJob) {
		job.Status = models.BatchRunning
		job.StartedAt = time.Now().UTC()
	}); err != nil {
		c.logger.Error("batch: failed to start job", "job_id", jobID, "error", err)
		return
	}

	g := new(errgroup.Group)
	g.SetLimit(c.cfg.WorkerWidth)
	for i := range items {
		index, query := i, items[i]
		g.Go(func() error {
			outcome := c.screenItem(ctx, index, query)
			c.record(jobID, outcome)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	job, err := c.store.Update(context.WithoutCancel(ctx), jobID, func(job *models.BatchJob) {
		if job.Failures == 0 {
			job.Status = models.BatchComplete
		} else {
			job.Status = models.BatchPartial
		}
		job.FinishedAt = time.Now().UTC()
	})
	if err != nil {
		c.logger.Error("batch: failed to finish job", "job_id", jobID, "error", err)
		return
	}
	c.logger.Info("batch finished",
		"job_id", jobID,
		"status", job.Status,
		"total", job.Total,
		"failures", job.Failures,
	)
	if c.onFinish != nil {
		c.onFinish(context.WithoutCancel(ctx), job)
	}
}

// screenItem runs one item and converts every failure mode, including a
// panic, into an outcome so siblings keep running.
func (c *Coordinator) screenItem(ctx context.Context, index int, query models.ScreeningQuery) (outcome models.ItemOutcome) {
	outcome = models.ItemOutcome{Index: index, QueryID: query.ID, Name: query.Name}

	defer func() {
		if r := recover(); r != nil {
			outcome.Results = nil
			outcome.Error = fmt.Sprintf("screening panicked: %v", r)
		}
	}()

	if err := ctx.Err(); err != nil {
		outcome.Error = "screening canceled"
		return outcome
	}

	// Cancellation only gates dispatch. An item past the gate keeps its
	// remote calls alive and records its real results.
	results, status, err := c.screener.ScreenOne(context.WithoutCancel(ctx), query)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Status = status
	outcome.Results = results
	return outcome
}

func (c *Coordinator) record(jobID id.BatchID, outcome models.ItemOutcome) {
	ctx := context.Background()
	if err := c.store.AppendOutcome(ctx, jobID, outcome); err != nil {
		c.logger.Error("batch: failed to record outcome", "job_id", jobID, "index", outcome.Index, "error", err)
		return
	}
	if _, err := c.store.Update(ctx, jobID, func(job *models.BatchJob) {
		job.Completed++
		if outcome.Failed() {
			job.Failures++
		}
	}); err != nil {
		c.logger.Error("batch: failed to update progress", "job_id", jobID, "error", err)
	}

	result := "ok"
	if outcome.Failed() {
		result = "error"
	}
	c.metrics.IncBatchItem(result)
}
