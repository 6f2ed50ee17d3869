package orchestrator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil/internal/screening/backend"
	"vigil/internal/screening/cache"
	"vigil/internal/screening/models"
	"vigil/internal/screening/normalize"
)

// stubBackend scripts backend behavior per operation.
type stubBackend struct {
	matchCandidates  []models.CandidateEntity
	matchErr         error
	searchCandidates []models.CandidateEntity
	searchErr        error
	delay            time.Duration

	matchCalls  atomic.Int32
	searchCalls atomic.Int32
}

func (s *stubBackend) Match(ctx context.Context, _ backend.MatchCriteria, _, _ int) ([]models.CandidateEntity, error) {
	s.matchCalls.Add(1)
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, backend.NewCallError(backend.ErrorTimeout, "match", "deadline", ctx.Err())
		case <-time.After(s.delay):
		}
	}
	return s.matchCandidates, s.matchErr
}

func (s *stubBackend) Search(ctx context.Context, _ string, _ int) ([]models.CandidateEntity, error) {
	s.searchCalls.Add(1)
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, backend.NewCallError(backend.ErrorTimeout, "search", "deadline", ctx.Err())
		case <-time.After(s.delay):
		}
	}
	return s.searchCandidates, s.searchErr
}

func testName(t *testing.T, raw string) normalize.Name {
	t.Helper()
	name, err := normalize.New(normalize.Config{}).Normalize(raw)
	require.NoError(t, err)
	return name
}

func fastConfig() Config {
	return Config{
		CallTimeout:  50 * time.Millisecond,
		RetryCount:   1,
		RetryBackoff: 5 * time.Millisecond,
		DefaultLimit: 10,
	}
}

var (
	candA = models.CandidateEntity{ID: "A", Name: "Alpha"}
	candB = models.CandidateEntity{ID: "B", Name: "Beta"}
	candX = models.CandidateEntity{ID: "X", Name: "Xavier"}
)

func TestScreenMatchAuthoritative(t *testing.T) {
	stub := &stubBackend{matchCandidates: []models.CandidateEntity{candA, candB}}
	o, err := New(stub, fastConfig())
	require.NoError(t, err)

	res := o.Screen(context.Background(), models.ScreeningQuery{}, testName(t, "alpha"))

	assert.Equal(t, models.ScreenOK, res.Status)
	assert.Equal(t, models.ProvenanceRemoteMatch, res.Provenance)
	assert.Equal(t, []models.CandidateEntity{candA, candB}, res.Candidates, "backend order preserved")
	assert.EqualValues(t, 0, stub.searchCalls.Load(), "search must not run when match succeeds")
}

func TestScreenFallbackToSearch(t *testing.T) {
	t.Run("on empty match result", func(t *testing.T) {
		stub := &stubBackend{searchCandidates: []models.CandidateEntity{candX}}
		o, err := New(stub, fastConfig())
		require.NoError(t, err)

		res := o.Screen(context.Background(), models.ScreeningQuery{}, testName(t, "xavier"))

		assert.Equal(t, models.ScreenOK, res.Status)
		assert.Equal(t, models.ProvenanceRemoteSearch, res.Provenance)
		assert.Equal(t, []models.CandidateEntity{candX}, res.Candidates)
	})

	t.Run("on match error", func(t *testing.T) {
		stub := &stubBackend{
			matchErr:         backend.NewCallError(backend.ErrorTransport, "match", "boom", nil),
			searchCandidates: []models.CandidateEntity{candX},
		}
		o, err := New(stub, fastConfig())
		require.NoError(t, err)

		res := o.Screen(context.Background(), models.ScreeningQuery{}, testName(t, "xavier"))

		assert.Equal(t, models.ProvenanceRemoteSearch, res.Provenance)
		assert.EqualValues(t, 2, stub.matchCalls.Load(), "transient match failure retried once")
	})

	t.Run("empty search success is OK, not degraded", func(t *testing.T) {
		stub := &stubBackend{}
		o, err := New(stub, fastConfig())
		require.NoError(t, err)

		res := o.Screen(context.Background(), models.ScreeningQuery{}, testName(t, "nobody"))

		assert.Equal(t, models.ScreenOK, res.Status)
		assert.Empty(t, res.Candidates)
	})
}

func TestScreenRetryPolicy(t *testing.T) {
	t.Run("bad data is not retried", func(t *testing.T) {
		stub := &stubBackend{
			matchErr:  backend.NewCallError(backend.ErrorBadData, "match", "decode", nil),
			searchErr: backend.NewCallError(backend.ErrorBadData, "search", "decode", nil),
		}
		o, err := New(stub, fastConfig())
		require.NoError(t, err)

		res := o.Screen(context.Background(), models.ScreeningQuery{}, testName(t, "alpha"))

		assert.Equal(t, models.ScreenDegraded, res.Status)
		assert.EqualValues(t, 1, stub.matchCalls.Load())
		assert.EqualValues(t, 1, stub.searchCalls.Load())
	})
}

func TestScreenDegraded(t *testing.T) {
	stub := &stubBackend{
		matchErr:  backend.NewCallError(backend.ErrorTransport, "match", "down", nil),
		searchErr: backend.NewCallError(backend.ErrorTransport, "search", "down", nil),
	}
	o, err := New(stub, fastConfig())
	require.NoError(t, err)

	res := o.Screen(context.Background(), models.ScreeningQuery{}, testName(t, "alpha"))

	assert.Equal(t, models.ScreenDegraded, res.Status)
	assert.Empty(t, res.Candidates)
	assert.EqualValues(t, 2, stub.matchCalls.Load())
	assert.EqualValues(t, 2, stub.searchCalls.Load())
}

// A backend that hangs past the per-call timeout must still produce a
// DEGRADED result within the timeout+retry bound, never hang indefinitely.
func TestScreenTimeoutBound(t *testing.T) {
	stub := &stubBackend{delay: time.Second}
	cfg := fastConfig() // 50ms per call, 1 retry, 5ms backoff
	o, err := New(stub, cfg)
	require.NoError(t, err)

	start := time.Now()
	res := o.Screen(context.Background(), models.ScreeningQuery{}, testName(t, "alpha"))
	elapsed := time.Since(start)

	assert.Equal(t, models.ScreenDegraded, res.Status)
	// Four attempts (match x2, search x2) of 50ms plus two backoffs,
	// with generous scheduling headroom.
	assert.Less(t, elapsed, 600*time.Millisecond)
}

// Sustained backend failures open the circuit, which stops retrying: every
// leg probes once until successes close it again.
func TestScreenCircuitSkipsRetriesWhenOpen(t *testing.T) {
	stub := &stubBackend{
		matchErr:  backend.NewCallError(backend.ErrorTransport, "match", "down", nil),
		searchErr: backend.NewCallError(backend.ErrorTransport, "search", "down", nil),
	}
	o, err := New(stub, fastConfig())
	require.NoError(t, err)

	name := testName(t, "alpha")
	for range 3 {
		res := o.Screen(context.Background(), models.ScreeningQuery{}, name)
		assert.Equal(t, models.ScreenDegraded, res.Status)
	}

	// Screen 1 retries both legs (4 calls). The fifth failure opens the
	// circuit during screen 2's match leg, so its search leg and all of
	// screen 3 probe once. 4 + 3 + 2 instead of 12.
	assert.EqualValues(t, 9, stub.matchCalls.Load()+stub.searchCalls.Load())

	// Recovery: successes close the circuit again.
	stub.matchErr = nil
	stub.matchCandidates = []models.CandidateEntity{candA}
	for range 4 {
		res := o.Screen(context.Background(), models.ScreeningQuery{}, name)
		assert.Equal(t, models.ScreenOK, res.Status)
	}
	assert.False(t, o.breaker.IsOpen())
}

func TestScreenCache(t *testing.T) {
	stub := &stubBackend{matchCandidates: []models.CandidateEntity{candA, candB}}
	o, err := New(stub, fastConfig(), WithCache(cache.NewMemory(time.Minute)))
	require.NoError(t, err)

	name := testName(t, "alpha")
	first := o.Screen(context.Background(), models.ScreeningQuery{}, name)
	second := o.Screen(context.Background(), models.ScreeningQuery{}, name)

	assert.Equal(t, first.Candidates, second.Candidates)
	assert.EqualValues(t, 1, stub.matchCalls.Load(), "second screen served from cache")
}
