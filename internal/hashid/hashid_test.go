package hashid

import (
	"fmt"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash(t *testing.T) {
	h, err := New([]byte("test-key"))
	require.NoError(t, err)

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, h.Hash("ACME", "E001"), h.Hash("ACME", "E001"))
	})

	t.Run("company scoped", func(t *testing.T) {
		assert.NotEqual(t, h.Hash("ACME", "E001"), h.Hash("INITECH", "E001"))
	})

	t.Run("field boundaries are unambiguous", func(t *testing.T) {
		assert.NotEqual(t, h.Hash("ab", "c"), h.Hash("a", "bc"))
	})

	t.Run("no normalization", func(t *testing.T) {
		assert.NotEqual(t, h.Hash("ACME", "e001"), h.Hash("ACME", "E001"))
		assert.NotEqual(t, h.Hash("ACME", " E001"), h.Hash("ACME", "E001"))
	})

	t.Run("does not leak the employee number", func(t *testing.T) {
		key := h.Hash("ACME", "E001")
		assert.NotContains(t, key, "E001")
		assert.Len(t, key, 64)
	})

	t.Run("key material matters", func(t *testing.T) {
		other, err := New([]byte("other-key"))
		require.NoError(t, err)
		assert.NotEqual(t, h.Hash("ACME", "E001"), other.Hash("ACME", "E001"))
	})
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	require.ErrorIs(t, err, ErrEmptyKey)

	long := make([]byte, 200)
	h, err := New(long)
	require.NoError(t, err)
	assert.Len(t, h.Hash("c", "e"), 64)
}

func TestHash_NoCollisionsAcrossSyntheticCorpus(t *testing.T) {
	h, err := New([]byte("corpus-key"))
	require.NoError(t, err)

	faker := gofakeit.New(42)
	seen := make(map[string]string, 50000)

	for c := 0; c < 100; c++ {
		company := faker.Company() + fmt.Sprintf("-%d", c)
		for e := 0; e < 500; e++ {
			employee := fmt.Sprintf("%s%05d", faker.LetterN(2), e)
			input := company + "\x00" + employee
			key := h.Hash(company, employee)
			if prev, ok := seen[key]; ok && prev != input {
				t.Fatalf("collision between %q and %q", prev, input)
			}
			seen[key] = input
		}
	}
}
