package naming

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"idli", "idli", 0},
		{"idli", "", 4},
		{"", "idli", 4},
		{"idli", "idly", 1},
		{"chiken", "chicken", 1},
		{"tomato", "potato", 2},
		{"rice", "nice", 1},
		{"kitten", "sitting", 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Levenshtein(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestLevenshtein_Symmetric(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 500; i++ {
		a := randomWord(rng)
		b := randomWord(rng)
		assert.Equal(t, Levenshtein(a, b), Levenshtein(b, a), "%q vs %q", a, b)
	}
}

func TestClosestMatch(t *testing.T) {
	candidates := []string{"idli", "dosa", "chapati", "coconut chutney"}

	t.Run("exact match", func(t *testing.T) {
		m, ok := ClosestMatch("dosa", candidates, 2)
		require.True(t, ok)
		assert.Equal(t, "dosa", m.Name)
		assert.Equal(t, 0, m.Distance)
	})

	t.Run("near match", func(t *testing.T) {
		m, ok := ClosestMatch("chapathi", candidates, 2)
		require.True(t, ok)
		assert.Equal(t, "chapati", m.Name)
		assert.Equal(t, 1, m.Distance)
	})

	t.Run("nothing within bound", func(t *testing.T) {
		_, ok := ClosestMatch("lasagna", candidates, 2)
		assert.False(t, ok)
	})

	t.Run("empty candidate set", func(t *testing.T) {
		_, ok := ClosestMatch("idli", nil, 2)
		assert.False(t, ok)
	})
}

// Every match ClosestMatch returns is within the requested bound, and its
// distance is the true Levenshtein distance.
func TestClosestMatch_DistanceBound(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	for i := 0; i < 500; i++ {
		candidates := make([]string, 1+rng.Intn(10))
		for j := range candidates {
			candidates[j] = randomWord(rng)
		}
		query := randomWord(rng)
		maxDist := 1 + rng.Intn(3)

		m, ok := ClosestMatch(query, candidates, maxDist)
		if !ok {
			for _, cand := range candidates {
				assert.Greater(t, Levenshtein(query, cand), maxDist,
					"query %q candidate %q should have matched", query, cand)
			}
			continue
		}
		assert.LessOrEqual(t, m.Distance, maxDist)
		assert.Equal(t, Levenshtein(query, m.Name), m.Distance)
	}
}

func randomWord(rng *rand.Rand) string {
	letters := []byte("abcdefghij")
	b := make([]byte, 1+rng.Intn(8))
	for i := range b {
		b[i] = letters[rng.Intn(len(letters))]
	}
	return string(b)
}
