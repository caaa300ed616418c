// Package measure resolves household and metric units to gram mass so every
// nutrition observation can be rebased to a per-100g reference.
package measure

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownUnit is returned when a unit has no gram conversion. Observations
// carrying an unknown unit are dropped rather than guessed at.
var ErrUnknownUnit = errors.New("unknown unit")

// ReferenceGrams is the mass every library entry's nutrition is stored
// against.
const ReferenceGrams = 100.0

// GramTable maps a canonical unit name to its mass in grams. Volume units
// assume water density; that is the convention nutrition labels use for the
// foods this system tracks.
type GramTable map[string]float64

// DefaultGramTable returns the built-in unit table, used when configuration
// does not supply one.
func DefaultGramTable() GramTable {
	return GramTable{
		"g":       1,
		"kg":      1000,
		"oz":      28.35,
		"lb":      453.6,
		"ml":      1,
		"l":       1000,
		"cup":     240,
		"tbsp":    15,
		"tsp":     5,
		"piece":   50,
		"serving": 100,
	}
}

// unitAliases maps surface spellings onto the canonical unit names.
var unitAliases = map[string]string{
	"gram":        "g",
	"grams":       "g",
	"kilogram":    "kg",
	"kilograms":   "kg",
	"ounce":       "oz",
	"ounces":      "oz",
	"pound":       "lb",
	"pounds":      "lb",
	"lbs":         "lb",
	"milliliter":  "ml",
	"milliliters": "ml",
	"litre":       "l",
	"liter":       "l",
	"litres":      "l",
	"liters":      "l",
	"cups":        "cup",
	"tablespoon":  "tbsp",
	"tablespoons": "tbsp",
	"teaspoon":    "tsp",
	"teaspoons":   "tsp",
	"pieces":      "piece",
	"pc":          "piece",
	"pcs":         "piece",
	"servings":    "serving",
	"portion":     "serving",
	"portions":    "serving",
}

// Converter resolves quantities to grams against a unit table.
// It is immutable and safe for concurrent use.
type Converter struct {
	grams GramTable
}

// NewConverter creates a converter over the given table. A nil table falls
// back to the built-in defaults.
func NewConverter(grams GramTable) *Converter {
	if grams == nil {
		grams = DefaultGramTable()
	}
	return &Converter{grams: grams}
}

// Canonical returns the canonical spelling of a unit, or ok=false when the
// unit is unknown.
func (c *Converter) Canonical(unit string) (string, bool) {
	u := strings.ToLower(strings.TrimSpace(unit))
	if alias, ok := unitAliases[u]; ok {
		u = alias
	}
	if _, ok := c.grams[u]; !ok {
		return "", false
	}
	return u, true
}

// ToGrams converts a quantity in the given unit to gram mass.
func (c *Converter) ToGrams(quantity float64, unit string) (float64, error) {
	u, ok := c.Canonical(unit)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, unit)
	}
	return quantity * c.grams[u], nil
}

// Per100gFactor returns the factor that rebases a reading for the given
// portion onto the 100g reference. A zero-mass portion cannot be rebased.
func (c *Converter) Per100gFactor(quantity float64, unit string) (float64, error) {
	grams, err := c.ToGrams(quantity, unit)
	if err != nil {
		return 0, err
	}
	if grams <= 0 {
		return 0, fmt.Errorf("portion mass must be positive, got %.2fg", grams)
	}
	return ReferenceGrams / grams, nil
}

// PortionFactor returns the factor that scales a per-100g reading up to the
// given portion.
func (c *Converter) PortionFactor(quantity float64, unit string) (float64, error) {
	grams, err := c.ToGrams(quantity, unit)
	if err != nil {
		return 0, err
	}
	return grams / ReferenceGrams, nil
}
