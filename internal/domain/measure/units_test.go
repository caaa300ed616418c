package measure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConverter_Canonical(t *testing.T) {
	c := NewConverter(nil)

	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"g", "g", true},
		{"grams", "g", true},
		{"Grams", "g", true},
		{" tbsp ", "tbsp", true},
		{"tablespoons", "tbsp", true},
		{"pcs", "piece", true},
		{"portion", "serving", true},
		{"lbs", "lb", true},
		{"fortnight", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := c.Canonical(tt.input)
		assert.Equal(t, tt.ok, ok, "unit %q", tt.input)
		assert.Equal(t, tt.want, got, "unit %q", tt.input)
	}
}

func TestConverter_ToGrams(t *testing.T) {
	c := NewConverter(nil)

	tests := []struct {
		quantity float64
		unit     string
		want     float64
	}{
		{150, "g", 150},
		{1.5, "kg", 1500},
		{2, "oz", 56.7},
		{1, "cup", 240},
		{3, "tsp", 15},
		{2, "piece", 100},
		{1, "serving", 100},
	}
	for _, tt := range tests {
		got, err := c.ToGrams(tt.quantity, tt.unit)
		require.NoError(t, err, "unit %q", tt.unit)
		assert.InDelta(t, tt.want, got, 1e-9)
	}
}

func TestConverter_ToGrams_UnknownUnit(t *testing.T) {
	c := NewConverter(nil)
	_, err := c.ToGrams(1, "handful")
	assert.ErrorIs(t, err, ErrUnknownUnit)
}

func TestConverter_Per100gFactor(t *testing.T) {
	c := NewConverter(nil)

	t.Run("rebases a 30g portion", func(t *testing.T) {
		factor, err := c.Per100gFactor(30, "g")
		require.NoError(t, err)
		assert.InDelta(t, 100.0/30.0, factor, 1e-9)
	})

	t.Run("rebases a 2 piece portion", func(t *testing.T) {
		factor, err := c.Per100gFactor(2, "piece")
		require.NoError(t, err)
		assert.InDelta(t, 1.0, factor, 1e-9)
	})

	t.Run("zero mass rejected", func(t *testing.T) {
		_, err := c.Per100gFactor(0, "g")
		assert.Error(t, err)
	})

	t.Run("unknown unit rejected", func(t *testing.T) {
		_, err := c.Per100gFactor(1, "dollop")
		assert.ErrorIs(t, err, ErrUnknownUnit)
	})
}

func TestConverter_PortionFactor(t *testing.T) {
	c := NewConverter(nil)

	factor, err := c.PortionFactor(250, "g")
	require.NoError(t, err)
	assert.InDelta(t, 2.5, factor, 1e-9)
}

func TestConverter_CustomTableOverlay(t *testing.T) {
	grams := DefaultGramTable()
	grams["katori"] = 150
	c := NewConverter(grams)

	got, err := c.ToGrams(2, "katori")
	require.NoError(t, err)
	assert.InDelta(t, 300, got, 1e-9)
}
