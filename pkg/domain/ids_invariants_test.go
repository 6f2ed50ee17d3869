package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "vigil/pkg/domain-errors"
)

// Parsing invariant: IDs must be valid, non-empty, non-nil UUIDs.
func TestParseIDs(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseBatchID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseBatchID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseQueryID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		id, err := ParseBatchID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, BatchID(valid), id)
		assert.False(t, id.IsNil())
	})

	t.Run("round trips through String", func(t *testing.T) {
		id := NewQueryID()
		parsed, err := ParseQueryID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	})
}
