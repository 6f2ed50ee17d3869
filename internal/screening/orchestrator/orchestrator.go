// Package orchestrator drives the remote leg of a screen: a structured match
// call against the backend with an unconditional free-text search fallback.
//
// The protocol is fixed, not adaptive: match first; if the call errors, times
// out, or returns zero candidates, fall back to search. The two result sets
// are never merged — whichever call succeeds first is authoritative, and the
// backend's candidate order is preserved verbatim. Transport-class failures
// never surface to the caller: if both calls fail the orchestrator returns an
// empty DEGRADED result so batch siblings are unaffected.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"vigil/internal/screening/backend"
	"vigil/internal/screening/cache"
	"vigil/internal/screening/metrics"
	"vigil/internal/screening/models"
	"vigil/internal/screening/normalize"
	"vigil/pkg/platform/circuit"
)

// Config tunes the remote call protocol. The service injects configured
// values; zero fields fall back to conservative defaults.
type Config struct {
	CallTimeout  time.Duration // per remote call
	RetryCount   int           // retries per call on transient failure
	RetryBackoff time.Duration
	DefaultLimit int // backend result limit when the query has none
}

func (c Config) withDefaults() Config {
	if c.CallTimeout <= 0 {
		c.CallTimeout = 5 * time.Second
	}
	if c.RetryCount < 0 {
		c.RetryCount = 0
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 250 * time.Millisecond
	}
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = 25
	}
	return c
}

// Result is the outcome of the remote leg.
type Result struct {
	Candidates []models.CandidateEntity
	// Provenance is REMOTE_MATCH or REMOTE_SEARCH depending on which call
	// produced the candidates.
	Provenance models.Provenance
	Status     models.ScreenStatus
}

// Orchestrator coordinates backend calls. Safe for concurrent use.
type Orchestrator struct {
	backend backend.Client
	cfg     Config
	cache   cache.Store
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	sleep   func(context.Context, time.Duration) // test seam for backoff
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithCache enables the read-through candidate cache.
func WithCache(store cache.Store) Option {
	return func(o *Orchestrator) { o.cache = store }
}

// WithLogger sets a logger for degraded-path reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New builds an Orchestrator.
func New(client backend.Client, cfg Config, opts ...Option) (*Orchestrator, error) {
	if client == nil {
		return nil, fmt.Errorf("backend client is required")
	}
	o := &Orchestrator{
		backend: client,
		cfg:     cfg.withDefaults(),
		breaker: circuit.New("backend"),
		tracer:  otel.Tracer("vigil/screening/orchestrator"),
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Screen runs the match-then-search protocol for one query. It never returns
// an error: transport failures degrade, and malformed input is rejected
// before this layer.
func (o *Orchestrator) Screen(ctx context.Context, query models.ScreeningQuery, name normalize.Name) Result {
	ctx, span := o.tracer.Start(ctx, "orchestrator.Screen")
	defer span.End()

	limit := query.Limit
	if limit <= 0 {
		limit = o.cfg.DefaultLimit
	}
	threshold := query.Threshold

	// Structured match first.
	criteria := backend.MatchCriteria{
		Name:      name.Full(),
		Schema:    query.Schema,
		Countries: query.Countries,
		BirthDate: query.BirthDate,
	}
	matchKey := cache.Key("match", name.Full(), string(query.Schema),
		strings.Join(query.Countries, ","), query.BirthDate,
		fmt.Sprintf("%d:%d", limit, threshold))

	candidates, matchErr := o.callWithRetry(ctx, "match", matchKey, func(callCtx context.Context) ([]models.CandidateEntity, error) {
		return o.backend.Match(callCtx, criteria, limit, threshold)
	})
	if matchErr == nil && len(candidates) > 0 {
		span.SetAttributes(attribute.Int("candidates", len(candidates)))
		return Result{Candidates: candidates, Provenance: models.ProvenanceRemoteMatch, Status: models.ScreenOK}
	}

	// Fallback: one free-text search with the same limit. Unconditional on
	// empty match results so the protocol stays decided once, not per
	// request.
	searchKey := cache.Key("search", name.Full(), fmt.Sprintf("%d", limit))
	candidates, searchErr := o.callWithRetry(ctx, "search", searchKey, func(callCtx context.Context) ([]models.CandidateEntity, error) {
		return o.backend.Search(callCtx, name.Full(), limit)
	})
	if searchErr == nil {
		span.SetAttributes(attribute.Int("candidates", len(candidates)))
		return Result{Candidates: candidates, Provenance: models.ProvenanceRemoteSearch, Status: models.ScreenOK}
	}

	// Both legs failed: degrade to empty rather than raising.
	if o.logger != nil {
		o.logger.WarnContext(ctx, "screen degraded, both backend calls failed",
			"query_id", query.ID,
			"match_error", matchErr,
			"search_error", searchErr,
		)
	}
	o.metrics.IncDegraded()
	span.SetAttributes(attribute.Bool("degraded", true))
	return Result{Candidates: nil, Provenance: models.ProvenanceRemoteSearch, Status: models.ScreenDegraded}
}

// callWithRetry runs one backend call with a per-attempt timeout, one cache
// check, and bounded retry with backoff on transient failure. An open
// breaker never blocks the call, it just disables retries: a dead backend
// then degrades after one timeout per leg instead of several, and every
// probe still feeds the breaker so recovery closes it again.
func (o *Orchestrator) callWithRetry(ctx context.Context, op, cacheKey string, call func(context.Context) ([]models.CandidateEntity, error)) ([]models.CandidateEntity, error) {
	if o.cache != nil {
		if cached, ok := o.cache.Get(ctx, cacheKey); ok {
			o.metrics.ObserveBackendCall(op, "cache_hit", 0)
			return cached, nil
		}
	}

	attempts := 1 + o.cfg.RetryCount
	if o.breaker.IsOpen() {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			o.sleep(ctx, o.cfg.RetryBackoff)
		}

		callCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
		start := time.Now()
		candidates, err := call(callCtx)
		cancel()

		if err == nil {
			if _, change := o.breaker.RecordSuccess(); change.Closed && o.logger != nil {
				o.logger.InfoContext(ctx, "backend circuit closed")
			}
			o.metrics.ObserveBackendCall(op, "ok", time.Since(start))
			if o.cache != nil {
				o.cache.Set(ctx, cacheKey, candidates)
			}
			return candidates, nil
		}

		if _, change := o.breaker.RecordFailure(); change.Opened && o.logger != nil {
			o.logger.WarnContext(ctx, "backend circuit opened", "operation", op, "error", err)
		}
		o.metrics.ObserveBackendCall(op, string(backend.CategoryOf(err)), time.Since(start))
		lastErr = err
		if !backend.IsRetryable(err) {
			break
		}
	}
	return nil, lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
