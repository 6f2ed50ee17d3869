// Package domain provides typed identifiers shared across the gateway.
//
// IDs are distinct named types over uuid.UUID so the compiler rejects
// cross-type assignment (a BatchID can never be passed where a QueryID is
// expected). Parse functions enforce validity at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "vigil/pkg/domain-errors"
)

// QueryID identifies a single screening query.
type QueryID uuid.UUID

// BatchID identifies a batch screening job.
type BatchID uuid.UUID

// NewQueryID returns a fresh random QueryID.
func NewQueryID() QueryID {
	return QueryID(uuid.New())
}

// NewBatchID returns a fresh random BatchID.
func NewBatchID() BatchID {
	return BatchID(uuid.New())
}

// ParseQueryID validates and returns a QueryID.
func ParseQueryID(s string) (QueryID, error) {
	u, err := parseUUID(s, "query_id")
	return QueryID(u), err
}

// ParseBatchID validates and returns a BatchID.
func ParseBatchID(s string) (BatchID, error) {
	u, err := parseUUID(s, "batch_id")
	return BatchID(u), err
}

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, field+" is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must not be the nil UUID")
	}
	return u, nil
}

func (id QueryID) String() string { return uuid.UUID(id).String() }
func (id BatchID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the ID is the zero value.
func (id QueryID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// IsNil reports whether the ID is the zero value.
func (id BatchID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
