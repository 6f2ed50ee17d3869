// Package cache provides an optional read-through cache for backend call
// results. Caching is a latency optimization only: entries preserve candidate
// order byte-for-byte, and a cache failure silently degrades to a live call.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"vigil/internal/screening/models"
)

// Store caches ranked candidate lists keyed by call signature.
// Implementations must be safe for concurrent use and must never let a cache
// failure surface to callers: Get misses on error, Set drops on error.
type Store interface {
	Get(ctx context.Context, key string) ([]models.CandidateEntity, bool)
	Set(ctx context.Context, key string, candidates []models.CandidateEntity)
}

// Key derives a stable cache key from the call signature. The raw name is
// hashed so query subjects never appear as plaintext cache keys.
func Key(operation string, parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return "screen:" + operation + ":" + hex.EncodeToString(h[:16])
}
