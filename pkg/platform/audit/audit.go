// Package audit captures the screening trail: who was screened, when, with
// what outcome. Subject names are never stored raw; events carry a SHA-256
// hash so the trail stays useful for traceability without holding PII.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	id "vigil/pkg/domain"
)

// EventCategory classifies audit events by retention needs.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance.
	// Screening decisions fall here; retention is measured in years.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine activity useful for debugging.
	CategoryOperations EventCategory = "operations"
)

// AuditEvent names the actions the screening pipeline records.
type AuditEvent string

const (
	EventScreenPerformed AuditEvent = "screen_performed"
	EventScreenDegraded  AuditEvent = "screen_degraded"
	EventBatchSubmitted  AuditEvent = "batch_submitted"
	EventBatchCanceled   AuditEvent = "batch_canceled"
	EventBatchFinished   AuditEvent = "batch_finished"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventScreenPerformed: CategoryCompliance,
	EventScreenDegraded:  CategoryCompliance,
	EventBatchSubmitted:  CategoryOperations,
	EventBatchCanceled:   CategoryOperations,
	EventBatchFinished:   CategoryOperations,
}

// Category returns the EventCategory for this audit event. Unknown events
// default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is one entry in the screening trail. Keep it transport-agnostic so
// stores and sinks can fan out.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	Action    string        `json:"action"`
	QueryID   id.QueryID    `json:"query_id,omitempty"`
	BatchID   id.BatchID    `json:"batch_id,omitempty"`
	// SubjectHash is the SHA-256 of the normalized subject name.
	SubjectHash string `json:"subject_hash,omitempty"`
	Status      string `json:"status,omitempty"`
	MatchCount  int    `json:"match_count"`
	RequestID   string `json:"request_id,omitempty"`
}

// HashSubject derives the PII-safe subject fingerprint from a name. Case and
// surrounding whitespace do not change the hash.
func HashSubject(name string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(name))))
	return hex.EncodeToString(sum[:])
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
