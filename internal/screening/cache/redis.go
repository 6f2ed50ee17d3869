package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"vigil/internal/screening/models"
)

// Redis caches candidate lists in Redis with a TTL, so repeated screens of
// the same name across process restarts skip the backend. Entries are JSON
// encoded; order is preserved by the slice encoding.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedis builds a Redis-backed cache.
func NewRedis(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Redis {
	return &Redis{client: client, ttl: ttl, logger: logger}
}

// Get implements Store. Any Redis or decode failure is a miss.
func (r *Redis) Get(ctx context.Context, key string) ([]models.CandidateEntity, bool) {
	payload, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil && r.logger != nil {
			r.logger.WarnContext(ctx, "cache get failed", "error", err)
		}
		return nil, false
	}
	var candidates []models.CandidateEntity
	if err := json.Unmarshal(payload, &candidates); err != nil {
		if r.logger != nil {
			r.logger.WarnContext(ctx, "cache entry undecodable, dropping", "error", err)
		}
		r.client.Del(ctx, key)
		return nil, false
	}
	return candidates, true
}

// Set implements Store. Failures are logged and dropped.
func (r *Redis) Set(ctx context.Context, key string, candidates []models.CandidateEntity) {
	payload, err := json.Marshal(candidates)
	if err != nil {
		if r.logger != nil {
			r.logger.WarnContext(ctx, "cache encode failed", "error", err)
		}
		return
	}
	if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil && r.logger != nil {
		r.logger.WarnContext(ctx, "cache set failed", "error", err)
	}
}
