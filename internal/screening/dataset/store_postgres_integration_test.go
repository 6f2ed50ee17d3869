//go:build integration

package dataset_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"vigil/internal/screening/dataset"
	"vigil/internal/screening/normalize"
	"vigil/pkg/testutil/containers"
)

const datasetSchema = `
CREATE TABLE IF NOT EXISTS dataset_entities (
	entity_id TEXT PRIMARY KEY,
	name      TEXT NOT NULL,
	aliases   TEXT[] NOT NULL DEFAULT '{}',
	schema    TEXT NOT NULL,
	countries TEXT[] NOT NULL DEFAULT '{}',
	topics    TEXT[] NOT NULL DEFAULT '{}',
	dataset   TEXT NOT NULL,
	payload   JSONB NOT NULL DEFAULT '{}'
);
CREATE TABLE IF NOT EXISTS dataset_names (
	entity_id  TEXT NOT NULL REFERENCES dataset_entities(entity_id),
	normalized TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS dataset_names_normalized_idx ON dataset_names (normalized);`

type PostgresStoreSuite struct {
	suite.Suite
	postgres   *containers.PostgresContainer
	store      *dataset.PostgresStore
	normalizer *normalize.Normalizer
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.normalizer = normalize.New(normalize.Config{})
	s.store = dataset.NewPostgresStore(s.postgres.Pool)

	ctx := context.Background()
	s.Require().NoError(s.postgres.Exec(ctx, datasetSchema))
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.Exec(ctx, "TRUNCATE dataset_names, dataset_entities"))
}

func (s *PostgresStoreSuite) seed(id, name string, aliases []string, topics []string) {
	ctx := context.Background()
	s.Require().NoError(s.postgres.Exec(ctx,
		`INSERT INTO dataset_entities (entity_id, name, aliases, schema, topics, dataset, payload)
		 VALUES ($1, $2, $3, 'Person', $4, 'curated', '{}')`,
		id, name, aliases, topics))

	for _, raw := range append([]string{name}, aliases...) {
		normalized, err := s.normalizer.Normalize(raw)
		s.Require().NoError(err)
		s.Require().NoError(s.postgres.Exec(ctx,
			`INSERT INTO dataset_names (entity_id, normalized) VALUES ($1, $2)`,
			id, normalized.Full()))
	}
}

func (s *PostgresStoreSuite) TestLookup() {
	ctx := context.Background()
	s.seed("LOCAL-1", "Viktor Orlov", []string{"V. Orlov"}, []string{"role.pep"})
	s.seed("LOCAL-2", "Orlov Holdings", nil, []string{"sanction"})

	s.Run("finds by canonical name", func() {
		name, err := s.normalizer.Normalize("Viktor Orlov")
		s.Require().NoError(err)
		got, err := s.store.Lookup(ctx, name)
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal("LOCAL-1", got[0].ID)
		s.Equal([]string{"role.pep"}, got[0].Topics)
	})

	s.Run("finds by alias", func() {
		name, err := s.normalizer.Normalize("v orlov")
		s.Require().NoError(err)
		got, err := s.store.Lookup(ctx, name)
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal("LOCAL-1", got[0].ID)
	})

	s.Run("misses return empty", func() {
		name, err := s.normalizer.Normalize("nobody here")
		s.Require().NoError(err)
		got, err := s.store.Lookup(ctx, name)
		s.Require().NoError(err)
		s.Empty(got)
	})
}
