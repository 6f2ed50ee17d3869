package dataset

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"vigil/internal/screening/models"
	"vigil/internal/screening/normalize"
)

// PostgresStore reads the pre-loaded curated dataset from PostgreSQL. The
// dataset_entities table is populated by the ingestion pipeline (out of
// scope here); dataset_names holds one row per normalized name so lookups
// are a single indexed equality scan.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgreSQL-backed dataset store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const lookupQuery = `
SELECT e.entity_id, e.name, e.aliases, e.schema, e.countries, e.topics, e.dataset, e.payload
FROM dataset_names n
JOIN dataset_entities e ON e.entity_id = n.entity_id
WHERE n.normalized = $1
ORDER BY e.entity_id`

// Lookup implements Store.
func (s *PostgresStore) Lookup(ctx context.Context, name normalize.Name) ([]models.CandidateEntity, error) {
	rows, err := s.pool.Query(ctx, lookupQuery, name.Full())
	if err != nil {
		return nil, fmt.Errorf("lookup dataset entities: %w", err)
	}
	defer rows.Close()

	var entities []models.CandidateEntity
	for rows.Next() {
		var e models.CandidateEntity
		var schema string
		if err := rows.Scan(&e.ID, &e.Name, &e.Aliases, &schema, &e.Countries, &e.Topics, &e.Dataset, &e.Raw); err != nil {
			return nil, fmt.Errorf("scan dataset entity: %w", err)
		}
		e.Schema = models.EntitySchema(schema)
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dataset entities: %w", err)
	}
	return entities, nil
}
