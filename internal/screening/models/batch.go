package models

import (
	"time"

	id "vigil/pkg/domain"
)

// BatchStatus is the lifecycle state of a batch screening job.
type BatchStatus string

const (
	BatchPending  BatchStatus = "PENDING"
	BatchRunning  BatchStatus = "RUNNING"
	BatchComplete BatchStatus = "COMPLETE" // all items finished, zero errors
	BatchPartial  BatchStatus = "PARTIAL"  // all items finished, at least one error
	BatchFailed   BatchStatus = "FAILED"   // setup invalid, nothing dispatched
)

// IsTerminal reports whether the job can no longer change.
func (s BatchStatus) IsTerminal() bool {
	switch s {
	case BatchComplete, BatchPartial, BatchFailed:
		return true
	}
	return false
}

// ItemOutcome is the result of screening one batch item. Exactly one of
// Results/Error is meaningful; Error is the string form so outcomes stay
// serializable for transport.
type ItemOutcome struct {
	Index   int // originating position in the submitted slice
	QueryID id.QueryID
	Name    string
	Status  ScreenStatus
	Results []MatchResult
	Error   string
}

// Failed reports whether the item ended in error.
func (o ItemOutcome) Failed() bool { return o.Error != "" }

// BatchJob is a snapshot of a batch screening job. Only the coordinator
// mutates the underlying job; snapshots handed out are copies.
type BatchJob struct {
	ID          id.BatchID
	Status      BatchStatus
	Total       int
	Completed   int // successes + failures
	Failures    int
	SubmittedAt time.Time
	StartedAt   time.Time
	FinishedAt  time.Time
}
