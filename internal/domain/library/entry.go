// Package library holds the per-user ingredient library: the learned
// long-run per-100g statistics for each canonical ingredient name.
package library

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/platewise/v1/internal/domain/nutrition"
)

var (
	ErrEmptyName       = errors.New("library entry requires a name")
	ErrInvalidOwner    = errors.New("library entry requires an owner")
	ErrNonPositiveMass = errors.New("observation mass must be positive")
)

// ConfidenceParams tune the confidence score. SampleDecayK is the e-folding
// sample count; EWMAWeight is the weight given to a new typical-quantity
// observation.
type ConfidenceParams struct {
	SampleDecayK float64
	EWMAWeight   float64
}

// DefaultConfidenceParams returns the stock tuning.
func DefaultConfidenceParams() ConfidenceParams {
	return ConfidenceParams{SampleDecayK: 5, EWMAWeight: 0.3}
}

// Observation is one user-corrected ingredient reading, already rebased to
// the per-100g reference by the caller.
type Observation struct {
	Per100g    nutrition.Facts
	Quantity   float64
	Unit       string
	Category   string
	ObservedAt time.Time
}

// Entry is the aggregate for one (owner, canonical name) pair. All mutation
// goes through Observe; callers must serialize Observe per entry.
type Entry struct {
	id             uuid.UUID
	ownerID        uuid.UUID
	displayName    string
	normalizedName string
	category       string

	sampleSize     int64
	avgCalories    float64
	m2Calories     float64
	stddevCalories float64
	avgProteinG    float64
	avgFatG        float64
	avgCarbsG      float64

	confidence      float64
	typicalQuantity float64
	typicalUnit     string

	lastUsed  time.Time
	createdAt time.Time
	updatedAt time.Time
}

// NewEntry creates an entry from its first observation. The first reading
// seeds the means directly: n = 1, σ = 0.
func NewEntry(ownerID uuid.UUID, displayName, normalizedName string, obs Observation, params ConfidenceParams) (*Entry, error) {
	if ownerID == uuid.Nil {
		return nil, ErrInvalidOwner
	}
	if normalizedName == "" {
		return nil, ErrEmptyName
	}

	now := obs.ObservedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	e := &Entry{
		id:              uuid.New(),
		ownerID:         ownerID,
		displayName:     displayName,
		normalizedName:  normalizedName,
		category:        obs.Category,
		sampleSize:      1,
		avgCalories:     obs.Per100g.Calories.Value(),
		avgProteinG:     obs.Per100g.ProteinG.Value(),
		avgFatG:         obs.Per100g.FatG.Value(),
		avgCarbsG:       obs.Per100g.CarbsG.Value(),
		typicalQuantity: obs.Quantity,
		typicalUnit:     obs.Unit,
		lastUsed:        now,
		createdAt:       now,
		updatedAt:       now,
	}
	e.confidence = e.computeConfidence(params)
	return e, nil
}

// Observe folds one more reading into the running statistics.
//
// Calories use the Welford recurrence so variance stays numerically stable;
// the other macros keep a plain incremental mean. Typical quantity is an
// EWMA, except that a unit switch adopts the new unit and quantity outright.
func (e *Entry) Observe(obs Observation, params ConfidenceParams) {
	n := float64(e.sampleSize)
	nNext := n + 1

	x := obs.Per100g.Calories.Value()
	delta := x - e.avgCalories
	e.avgCalories += delta / nNext
	delta2 := x - e.avgCalories
	e.m2Calories += delta * delta2
	e.stddevCalories = math.Sqrt(e.m2Calories / math.Max(nNext-1, 1))

	e.avgProteinG += (obs.Per100g.ProteinG.Value() - e.avgProteinG) / nNext
	e.avgFatG += (obs.Per100g.FatG.Value() - e.avgFatG) / nNext
	e.avgCarbsG += (obs.Per100g.CarbsG.Value() - e.avgCarbsG) / nNext

	e.sampleSize++
	e.confidence = e.computeConfidence(params)

	if obs.Unit != "" && obs.Unit != e.typicalUnit {
		e.typicalUnit = obs.Unit
		e.typicalQuantity = obs.Quantity
	} else {
		w := params.EWMAWeight
		if w <= 0 || w >= 1 {
			w = DefaultConfidenceParams().EWMAWeight
		}
		e.typicalQuantity = (1-w)*e.typicalQuantity + w*obs.Quantity
	}

	if obs.Category != "" {
		e.category = obs.Category
	}

	now := obs.ObservedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	e.lastUsed = now
	e.updatedAt = now
}

// computeConfidence combines a sample-count saturation term with a
// calorie-consistency term.
func (e *Entry) computeConfidence(params ConfidenceParams) float64 {
	k := params.SampleDecayK
	if k <= 0 {
		k = DefaultConfidenceParams().SampleDecayK
	}
	sampleFactor := 1 - math.Exp(-float64(e.sampleSize)/k)
	conf := sampleFactor * consistency(e.stddevCalories)
	return math.Max(0, math.Min(1, conf))
}

// consistency grades how tightly the calorie observations cluster.
func consistency(stddev float64) float64 {
	switch {
	case stddev < 5:
		return 1.0
	case stddev < 10:
		return 0.9
	case stddev < 20:
		return 0.7
	case stddev < 30:
		return 0.5
	default:
		return 0.3
	}
}

// SetDisplayName records the latest surface spelling the user typed.
func (e *Entry) SetDisplayName(name string) {
	if name != "" {
		e.displayName = name
	}
}

// Touch marks the entry used without learning from it.
func (e *Entry) Touch(at time.Time) {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	e.lastUsed = at
}

// AvgPer100g returns the learned per-100g nutrition means.
func (e *Entry) AvgPer100g() nutrition.Facts {
	return nutrition.Facts{
		Calories: nutrition.AmountOf(e.avgCalories),
		ProteinG: nutrition.AmountOf(e.avgProteinG),
		FatG:     nutrition.AmountOf(e.avgFatG),
		CarbsG:   nutrition.AmountOf(e.avgCarbsG),
	}
}

func (e *Entry) ID() uuid.UUID           { return e.id }
func (e *Entry) OwnerID() uuid.UUID      { return e.ownerID }
func (e *Entry) DisplayName() string     { return e.displayName }
func (e *Entry) NormalizedName() string  { return e.normalizedName }
func (e *Entry) Category() string        { return e.category }
func (e *Entry) SampleSize() int64       { return e.sampleSize }
func (e *Entry) AvgCalories() float64    { return e.avgCalories }
func (e *Entry) M2Calories() float64     { return e.m2Calories }
func (e *Entry) StddevCalories() float64 { return e.stddevCalories }
func (e *Entry) AvgProteinG() float64    { return e.avgProteinG }
func (e *Entry) AvgFatG() float64        { return e.avgFatG }
func (e *Entry) AvgCarbsG() float64      { return e.avgCarbsG }
func (e *Entry) Confidence() float64     { return e.confidence }
func (e *Entry) TypicalQuantity() float64 { return e.typicalQuantity }
func (e *Entry) TypicalUnit() string     { return e.typicalUnit }
func (e *Entry) LastUsed() time.Time     { return e.lastUsed }
func (e *Entry) CreatedAt() time.Time    { return e.createdAt }
func (e *Entry) UpdatedAt() time.Time    { return e.updatedAt }

// ReconstructEntry rebuilds an entry from persisted state. Used only by the
// persistence layer.
func ReconstructEntry(
	id, ownerID uuid.UUID,
	displayName, normalizedName, category string,
	sampleSize int64,
	avgCalories, m2Calories, stddevCalories float64,
	avgProteinG, avgFatG, avgCarbsG float64,
	confidence, typicalQuantity float64,
	typicalUnit string,
	lastUsed, createdAt, updatedAt time.Time,
) *Entry {
	return &Entry{
		id:              id,
		ownerID:         ownerID,
		displayName:     displayName,
		normalizedName:  normalizedName,
		category:        category,
		sampleSize:      sampleSize,
		avgCalories:     avgCalories,
		m2Calories:      m2Calories,
		stddevCalories:  stddevCalories,
		avgProteinG:     avgProteinG,
		avgFatG:         avgFatG,
		avgCarbsG:       avgCarbsG,
		confidence:      confidence,
		typicalQuantity: typicalQuantity,
		typicalUnit:     typicalUnit,
		lastUsed:        lastUsed,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}
