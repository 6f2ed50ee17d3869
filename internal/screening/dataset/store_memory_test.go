package dataset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil/internal/screening/models"
	"vigil/internal/screening/normalize"
)

func TestMemoryStoreLookup(t *testing.T) {
	ctx := context.Background()
	n := normalize.New(normalize.Config{})
	store := NewMemoryStore(n)

	entity := models.CandidateEntity{
		ID:      "LOCAL-1",
		Name:    "Viktor Orlov",
		Aliases: []string{"Víktor Orlóv", "V. Orlov"},
		Schema:  models.SchemaPerson,
		Topics:  []string{"role.pep"},
		Dataset: "curated",
	}
	store.Add(entity)

	lookupName := func(raw string) []models.CandidateEntity {
		name, err := n.Normalize(raw)
		require.NoError(t, err)
		got, err := store.Lookup(ctx, name)
		require.NoError(t, err)
		return got
	}

	t.Run("finds by canonical name", func(t *testing.T) {
		got := lookupName("viktor orlov")
		require.Len(t, got, 1)
		assert.Equal(t, "LOCAL-1", got[0].ID)
	})

	t.Run("finds by accented alias", func(t *testing.T) {
		// "Víktor Orlóv" normalizes to the same key as the canonical
		// name, so it does not duplicate the index entry list lookup.
		got := lookupName("Víktor Orlóv")
		require.Len(t, got, 1)
	})

	t.Run("finds by secondary alias", func(t *testing.T) {
		got := lookupName("v orlov")
		require.Len(t, got, 1)
	})

	t.Run("misses return empty without error", func(t *testing.T) {
		assert.Empty(t, lookupName("someone else"))
	})
}
