// Package dataset exposes the local curated watchlist dataset to the
// pipeline. The dataset is a given capability: ingestion and freshness are
// handled elsewhere, this package only answers normalized-name lookups.
package dataset

import (
	"context"

	"vigil/internal/screening/models"
	"vigil/internal/screening/normalize"
)

// Store answers exact lookups on the normalized full name. Implementations
// must be safe for concurrent use.
type Store interface {
	// Lookup returns every entity indexed under the normalized name, in
	// stable insertion order. A missing name returns an empty slice, not
	// an error.
	Lookup(ctx context.Context, name normalize.Name) ([]models.CandidateEntity, error)
}
