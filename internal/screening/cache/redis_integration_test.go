//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"vigil/internal/screening/cache"
	"vigil/internal/screening/models"
	"vigil/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *cache.Redis
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = cache.NewRedis(s.redis.Client, time.Minute, nil)
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisCacheSuite) TestRoundTripPreservesOrder() {
	ctx := context.Background()
	candidates := []models.CandidateEntity{
		{ID: "E2", Name: "John Smith", Topics: []string{"sanction"}},
		{ID: "E1", Name: "Jon Smyth", Aliases: []string{"J. Smyth"}},
	}

	s.store.Set(ctx, "match:john smith", candidates)

	got, ok := s.store.Get(ctx, "match:john smith")
	s.Require().True(ok)
	s.Require().Len(got, 2)
	s.Equal("E2", got[0].ID)
	s.Equal("E1", got[1].ID)
	s.Equal([]string{"J. Smyth"}, got[1].Aliases)
}

func (s *RedisCacheSuite) TestMissOnUnknownKey() {
	got, ok := s.store.Get(context.Background(), "match:nobody")
	s.False(ok)
	s.Nil(got)
}

func (s *RedisCacheSuite) TestUndecodableEntryIsDroppedAsMiss() {
	ctx := context.Background()
	s.Require().NoError(s.redis.Client.Set(ctx, "match:bad", "not json", time.Minute).Err())

	_, ok := s.store.Get(ctx, "match:bad")
	s.False(ok)

	// The poisoned key is deleted so the next write is clean.
	s.Require().Eventually(func() bool {
		n, err := s.redis.Client.Exists(ctx, "match:bad").Result()
		return err == nil && n == 0
	}, time.Second, 10*time.Millisecond)
}

func (s *RedisCacheSuite) TestEntriesExpire() {
	ctx := context.Background()
	short := cache.NewRedis(s.redis.Client, 50*time.Millisecond, nil)
	short.Set(ctx, "match:ephemeral", []models.CandidateEntity{{ID: "E1", Name: "Jane Doe"}})

	_, ok := short.Get(ctx, "match:ephemeral")
	s.Require().True(ok)

	s.Require().Eventually(func() bool {
		_, ok := short.Get(ctx, "match:ephemeral")
		return !ok
	}, 2*time.Second, 25*time.Millisecond)
}
