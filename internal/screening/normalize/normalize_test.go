package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "vigil/pkg/domain-errors"
)

func TestNormalize(t *testing.T) {
	n := New(Config{})

	t.Run("strips diacritics and case folds", func(t *testing.T) {
		name, err := n.Normalize("Élodie DUPONT")
		require.NoError(t, err)
		assert.Equal(t, []string{"elodie", "dupont"}, name.Tokens)
		assert.Equal(t, "elodie dupont", name.Full())
	})

	t.Run("collapses whitespace and punctuation", func(t *testing.T) {
		name, err := n.Normalize("  O'Neill-Smith,   John ")
		require.NoError(t, err)
		assert.Equal(t, []string{"o", "neill", "smith", "john"}, name.Tokens)
	})

	t.Run("removes honorific prefixes and suffixes", func(t *testing.T) {
		name, err := n.Normalize("Dr. Maria Delgado Jr")
		require.NoError(t, err)
		assert.Equal(t, []string{"maria", "delgado"}, name.Tokens)
	})

	t.Run("keeps interior particles", func(t *testing.T) {
		name, err := n.Normalize("Mohamed El Amine")
		require.NoError(t, err)
		assert.Equal(t, []string{"mohamed", "el", "amine"}, name.Tokens)
	})

	t.Run("preserves non-latin scripts minus combining marks", func(t *testing.T) {
		name, err := n.Normalize("محمد الأمين")
		require.NoError(t, err)
		assert.Len(t, name.Tokens, 2)
	})

	t.Run("empty after stripping is a validation error", func(t *testing.T) {
		for _, raw := range []string{"", "   ", "---", "Mr."} {
			_, err := n.Normalize(raw)
			require.Error(t, err, "raw=%q", raw)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		}
	})

	t.Run("custom honorifics replace defaults", func(t *testing.T) {
		custom := New(Config{Honorifics: []string{"shaykh"}})
		name, err := custom.Normalize("Shaykh Omar")
		require.NoError(t, err)
		assert.Equal(t, []string{"omar"}, name.Tokens)

		// Default honorifics are no longer trimmed.
		name, err = custom.Normalize("Dr Omar")
		require.NoError(t, err)
		assert.Equal(t, []string{"dr", "omar"}, name.Tokens)
	})
}

// Idempotence: normalizing an already-normalized name is a no-op.
func TestNormalizeIdempotent(t *testing.T) {
	n := New(Config{})

	inputs := []string{
		"Jean-Claude Van Damme",
		"Dr. Åse Lindqvist",
		"ACME Holdings S.A.",
		"محمد الأمين",
		"  multiple   spaces  ",
	}
	for _, raw := range inputs {
		first, err := n.Normalize(raw)
		require.NoError(t, err, "raw=%q", raw)
		second, err := n.Normalize(first.Full())
		require.NoError(t, err, "raw=%q", raw)
		assert.True(t, first.Equal(second), "raw=%q: %v != %v", raw, first, second)
	}
}
