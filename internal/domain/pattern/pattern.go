// Package pattern learns which ingredients a user habitually combines around
// a primary ingredient, so half-entered meals can be completed by suggestion.
package pattern

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyRecipeName = errors.New("pattern requires a recipe name")
	ErrInvalidOwner    = errors.New("pattern requires an owner")
)

// Companion is one ingredient observed alongside the primary, with how often
// it appeared and the most recent typical portion.
type Companion struct {
	Name            string
	TypicalQuantity float64
	Unit            string
	Observations    int64
}

// Observation is one companion sighting from a saved meal.
type Observation struct {
	Name     string
	Quantity float64
	Unit     string
}

// Pattern is the aggregate for one (owner, canonical primary name) pair.
type Pattern struct {
	id         uuid.UUID
	ownerID    uuid.UUID
	recipeName string
	keywords   []string
	companions []Companion
	timesMade  int64
	lastMade   time.Time
	createdAt  time.Time
	updatedAt  time.Time
}

// NewPattern creates a pattern from the first completed meal that names
// recipeName as its primary ingredient.
func NewPattern(ownerID uuid.UUID, recipeName string, keywords []string) (*Pattern, error) {
	if ownerID == uuid.Nil {
		return nil, ErrInvalidOwner
	}
	if recipeName == "" {
		return nil, ErrEmptyRecipeName
	}
	now := time.Now().UTC()
	return &Pattern{
		id:         uuid.New(),
		ownerID:    ownerID,
		recipeName: recipeName,
		keywords:   keywords,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// RecordMeal folds one completed meal into the pattern: times_made goes up by
// one and every companion's co-occurrence counter is merged in. Companion
// names must already be normalized; the primary itself should not be passed.
func (p *Pattern) RecordMeal(companions []Observation, at time.Time) {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	p.timesMade++
	p.lastMade = at
	p.updatedAt = at

	for _, obs := range companions {
		if obs.Name == "" || obs.Name == p.recipeName {
			continue
		}
		merged := false
		for i := range p.companions {
			if p.companions[i].Name == obs.Name {
				p.companions[i].Observations++
				if obs.Quantity > 0 {
					p.companions[i].TypicalQuantity = obs.Quantity
					p.companions[i].Unit = obs.Unit
				}
				merged = true
				break
			}
		}
		if !merged {
			p.companions = append(p.companions, Companion{
				Name:            obs.Name,
				TypicalQuantity: obs.Quantity,
				Unit:            obs.Unit,
				Observations:    1,
			})
		}
	}
}

// MergeCompanions folds companion sightings in without counting another meal.
// Used when an already-recorded meal's ingredient set changes.
func (p *Pattern) MergeCompanions(companions []Observation, at time.Time) {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	p.updatedAt = at
	for _, obs := range companions {
		if obs.Name == "" || obs.Name == p.recipeName {
			continue
		}
		found := false
		for i := range p.companions {
			if p.companions[i].Name == obs.Name {
				found = true
				break
			}
		}
		if !found {
			p.companions = append(p.companions, Companion{
				Name:            obs.Name,
				TypicalQuantity: obs.Quantity,
				Unit:            obs.Unit,
				Observations:    1,
			})
		}
	}
}

// Prune drops companions seen in fewer than minFraction of the meals this
// pattern has recorded. A non-positive fraction keeps everything, which is
// the default behavior.
func (p *Pattern) Prune(minFraction float64) {
	if minFraction <= 0 || p.timesMade == 0 {
		return
	}
	kept := p.companions[:0]
	for _, c := range p.companions {
		if float64(c.Observations)/float64(p.timesMade) >= minFraction {
			kept = append(kept, c)
		}
	}
	p.companions = kept
}

// Suggest returns the companions not already present in the current meal,
// ordered by co-occurrence count descending. exclude holds normalized names.
func (p *Pattern) Suggest(exclude map[string]bool) []Companion {
	var out []Companion
	for _, c := range p.companions {
		if !exclude[c.Name] {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Observations > out[j].Observations
	})
	return out
}

func (p *Pattern) ID() uuid.UUID           { return p.id }
func (p *Pattern) OwnerID() uuid.UUID      { return p.ownerID }
func (p *Pattern) RecipeName() string      { return p.recipeName }
func (p *Pattern) Keywords() []string      { return p.keywords }
func (p *Pattern) Companions() []Companion { return p.companions }
func (p *Pattern) TimesMade() int64        { return p.timesMade }
func (p *Pattern) LastMade() time.Time     { return p.lastMade }
func (p *Pattern) CreatedAt() time.Time    { return p.createdAt }
func (p *Pattern) UpdatedAt() time.Time    { return p.updatedAt }

// ReconstructPattern rebuilds a pattern from persisted state. Used only by
// the persistence layer.
func ReconstructPattern(
	id, ownerID uuid.UUID,
	recipeName string,
	keywords []string,
	companions []Companion,
	timesMade int64,
	lastMade, createdAt, updatedAt time.Time,
) *Pattern {
	return &Pattern{
		id:         id,
		ownerID:    ownerID,
		recipeName: recipeName,
		keywords:   keywords,
		companions: companions,
		timesMade:  timesMade,
		lastMade:   lastMade,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}
}
