// Package backend defines the external screening backend port and its HTTP
// adapter. The backend is a black-box ranking authority: candidate order in
// its responses is significant and must be preserved by every caller.
package backend

import (
	"context"

	"vigil/internal/screening/models"
)

// MatchCriteria is the structured input of a match call.
type MatchCriteria struct {
	Name      string
	Schema    models.EntitySchema
	Countries []string
	BirthDate string
}

// Client is the port to the external screening backend.
type Client interface {
	// Match runs a structured multi-field match. Candidates come back in
	// the backend's ranking order.
	Match(ctx context.Context, criteria MatchCriteria, limit int, threshold int) ([]models.CandidateEntity, error)

	// Search runs a free-text search with the same ordering guarantee.
	Search(ctx context.Context, term string, limit int) ([]models.CandidateEntity, error)
}
