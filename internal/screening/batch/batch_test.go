package batch

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"vigil/internal/screening/models"
	id "vigil/pkg/domain"
	dErrors "vigil/pkg/domain-errors"
)

type stubScreener struct {
	delay     time.Duration
	jitter    time.Duration // adds a random [0,jitter) delay per item
	failName  string
	panicName string

	inFlight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
}

func (s *stubScreener) ScreenOne(ctx context.Context, query models.ScreeningQuery) ([]models.MatchResult, models.ScreenStatus, error) {
	s.calls.Add(1)
	cur := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		prev := s.peak.Load()
		if cur <= prev || s.peak.CompareAndSwap(prev, cur) {
			break
		}
	}
	delay := s.delay
	if s.jitter > 0 {
		delay += rand.N(s.jitter)
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, "", ctx.Err()
		}
	}
	if s.panicName != "" && query.Name == s.panicName {
		panic("boom")
	}
	if s.failName != "" && query.Name == s.failName {
		return nil, "", dErrors.New(dErrors.CodeUnavailable, "screening backend down")
	}
	return []models.MatchResult{{QueryID: query.ID, Confidence: 90}}, models.ScreenOK, nil
}

func queriesNamed(names ...string) []models.ScreeningQuery {
	out := make([]models.ScreeningQuery, len(names))
	for i, n := range names {
		out[i] = models.ScreeningQuery{Name: n}
	}
	return out
}

func waitTerminal(t *testing.T, c *Coordinator, jobID id.BatchID) models.BatchJob {
	t.Helper()
	var job models.BatchJob
	require.Eventually(t, func() bool {
		var err error
		job, err = c.Job(context.Background(), jobID)
		return err == nil && job.Status.IsTerminal()
	}, 5*time.Second, 5*time.Millisecond)
	return job
}

func TestBatchCompletesAllItemsWithinWidth(t *testing.T) {
	screener := &stubScreener{delay: 2 * time.Millisecond}
	c, err := New(screener, NewMemoryStore(), Config{WorkerWidth: 5})
	require.NoError(t, err)

	queries := make([]models.ScreeningQuery, 50)
	for i := range queries {
		queries[i] = models.ScreeningQuery{Name: "John Smith"}
	}

	job, err := c.Submit(context.Background(), queries)
	require.NoError(t, err)
	require.Equal(t, models.BatchPending, job.Status)
	require.Equal(t, 50, job.Total)

	done := waitTerminal(t, c, job.ID)
	require.Equal(t, models.BatchComplete, done.Status)
	require.Equal(t, 50, done.Completed)
	require.Zero(t, done.Failures)
	require.False(t, done.StartedAt.IsZero())
	require.False(t, done.FinishedAt.IsZero())

	require.LessOrEqual(t, screener.peak.Load(), int32(5))
	require.Equal(t, int32(50), screener.calls.Load())

	outcomes, err := c.Outcomes(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, outcomes, 50)
	for i, o := range outcomes {
		require.Equal(t, i, o.Index)
		require.False(t, o.QueryID.IsNil())
		require.False(t, o.Failed())
	}
}

func TestBatchRepeatedRunsNeverDropOrDuplicate(t *testing.T) {
	for run := 0; run < 100; run++ {
		screener := &stubScreener{jitter: 2 * time.Millisecond}
		c, err := New(screener, NewMemoryStore(), Config{WorkerWidth: 5})
		require.NoError(t, err)

		queries := make([]models.ScreeningQuery, 50)
		for i := range queries {
			queries[i] = models.ScreeningQuery{Name: "John Smith"}
		}
		job, err := c.Submit(context.Background(), queries)
		require.NoError(t, err)

		done := waitTerminal(t, c, job.ID)
		require.Equal(t, models.BatchComplete, done.Status, "run %d", run)
		require.Equal(t, 50, done.Completed, "run %d", run)
		require.LessOrEqual(t, screener.peak.Load(), int32(5), "run %d", run)
		require.Equal(t, int32(50), screener.calls.Load(), "run %d", run)

		outcomes, err := c.Outcomes(context.Background(), job.ID)
		require.NoError(t, err)
		require.Len(t, outcomes, 50, "run %d", run)
		seen := make(map[int]bool, len(outcomes))
		for _, o := range outcomes {
			require.False(t, seen[o.Index], "run %d recorded index %d twice", run, o.Index)
			seen[o.Index] = true
			require.False(t, o.Failed())
		}
	}
}

func TestBatchIsolatesItemFailures(t *testing.T) {
	screener := &stubScreener{failName: "Bad Actor"}
	c, err := New(screener, NewMemoryStore(), Config{WorkerWidth: 3})
	require.NoError(t, err)

	job, err := c.Submit(context.Background(), queriesNamed("John Smith", "Bad Actor", "Jane Doe"))
	require.NoError(t, err)

	done := waitTerminal(t, c, job.ID)
	require.Equal(t, models.BatchPartial, done.Status)
	require.Equal(t, 3, done.Completed)
	require.Equal(t, 1, done.Failures)

	outcomes, err := c.Outcomes(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	require.False(t, outcomes[0].Failed())
	require.True(t, outcomes[1].Failed())
	require.Contains(t, outcomes[1].Error, "backend down")
	require.Empty(t, outcomes[1].Results)
	require.False(t, outcomes[2].Failed())
}

func TestBatchIsolatesItemPanics(t *testing.T) {
	screener := &stubScreener{panicName: "Kaboom"}
	c, err := New(screener, NewMemoryStore(), Config{WorkerWidth: 2})
	require.NoError(t, err)

	job, err := c.Submit(context.Background(), queriesNamed("John Smith", "Kaboom"))
	require.NoError(t, err)

	done := waitTerminal(t, c, job.ID)
	require.Equal(t, models.BatchPartial, done.Status)
	require.Equal(t, 1, done.Failures)

	outcomes, err := c.Outcomes(context.Background(), job.ID)
	require.NoError(t, err)
	require.True(t, outcomes[1].Failed())
	require.Contains(t, outcomes[1].Error, "panicked")
}

func TestBatchRejectsInvalidSubmissions(t *testing.T) {
	c, err := New(&stubScreener{}, NewMemoryStore(), Config{WorkerWidth: 2, MaxItems: 3})
	require.NoError(t, err)

	_, err = c.Submit(context.Background(), nil)
	require.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = c.Submit(context.Background(), queriesNamed("a", "b", "c", "d"))
	require.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestBatchSurvivesSubmitterCancellation(t *testing.T) {
	screener := &stubScreener{delay: 5 * time.Millisecond}
	c, err := New(screener, NewMemoryStore(), Config{WorkerWidth: 2})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	job, err := c.Submit(ctx, queriesNamed("John Smith", "Jane Doe"))
	require.NoError(t, err)
	cancel() // the request ending must not kill the job

	done := waitTerminal(t, c, job.ID)
	require.Equal(t, models.BatchComplete, done.Status)
	require.Equal(t, 2, done.Completed)
}

func TestBatchCancelRecordsRemainingItems(t *testing.T) {
	screener := &stubScreener{delay: 50 * time.Millisecond}
	c, err := New(screener, NewMemoryStore(), Config{WorkerWidth: 1})
	require.NoError(t, err)

	queries := make([]models.ScreeningQuery, 10)
	for i := range queries {
		queries[i] = models.ScreeningQuery{Name: "John Smith"}
	}
	job, err := c.Submit(context.Background(), queries)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snapshot, err := c.Job(context.Background(), job.ID)
		return err == nil && snapshot.Completed >= 1
	}, 5*time.Second, 5*time.Millisecond)
	require.NoError(t, c.Cancel(context.Background(), job.ID))

	done := waitTerminal(t, c, job.ID)
	require.Equal(t, models.BatchPartial, done.Status)
	require.Equal(t, 10, done.Completed)
	require.Positive(t, done.Failures)
	require.Less(t, done.Failures, 10)

	outcomes, err := c.Outcomes(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, outcomes, 10)
	var canceled int
	for _, o := range outcomes {
		if strings.Contains(o.Error, "cancel") {
			canceled++
		}
	}
	require.Positive(t, canceled)

	// A second cancel races the finishing job; either answer is fine as
	// long as it does not error with anything but conflict.
	if err := c.Cancel(context.Background(), job.ID); err != nil {
		require.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	}
}

// blockingScreener holds its first item in flight until released, then
// reports whether that item's context was still live.
type blockingScreener struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once

	sawCancel atomic.Bool
}

func (b *blockingScreener) ScreenOne(ctx context.Context, query models.ScreeningQuery) ([]models.MatchResult, models.ScreenStatus, error) {
	b.once.Do(func() { close(b.started) })
	<-b.release
	if ctx.Err() != nil {
		b.sawCancel.Store(true)
	}
	return []models.MatchResult{{QueryID: query.ID, Confidence: 90}}, models.ScreenOK, nil
}

func TestBatchCancelLeavesInFlightItemsRunning(t *testing.T) {
	screener := &blockingScreener{started: make(chan struct{}), release: make(chan struct{})}
	c, err := New(screener, NewMemoryStore(), Config{WorkerWidth: 1})
	require.NoError(t, err)

	job, err := c.Submit(context.Background(), queriesNamed("John Smith", "Jane Doe"))
	require.NoError(t, err)

	<-screener.started // first item is mid-screen
	require.NoError(t, c.Cancel(context.Background(), job.ID))
	close(screener.release)

	done := waitTerminal(t, c, job.ID)
	require.Equal(t, models.BatchPartial, done.Status)

	// Cancel stops dispatch only; the item already running keeps its
	// context and records its real results.
	require.False(t, screener.sawCancel.Load(), "in-flight item lost its context to Cancel")

	outcomes, err := c.Outcomes(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	require.False(t, outcomes[0].Failed())
	require.Len(t, outcomes[0].Results, 1)
	require.True(t, outcomes[1].Failed())
	require.Contains(t, outcomes[1].Error, "cancel")
}

func TestBatchJobNotFound(t *testing.T) {
	c, err := New(&stubScreener{}, NewMemoryStore(), Config{})
	require.NoError(t, err)

	_, err = c.Job(context.Background(), id.NewBatchID())
	require.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = c.Outcomes(context.Background(), id.NewBatchID())
	require.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	err = c.Cancel(context.Background(), id.NewBatchID())
	require.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}
