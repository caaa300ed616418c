package suggest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/platewise/v1/internal/domain/correction"
	"github.com/platewise/v1/internal/domain/library"
	mealdomain "github.com/platewise/v1/internal/domain/meal"
	"github.com/platewise/v1/internal/domain/measure"
	"github.com/platewise/v1/internal/domain/naming"
	"github.com/platewise/v1/internal/domain/nutrition"
	"github.com/platewise/v1/internal/domain/pattern"
	"github.com/platewise/v1/internal/ports/inbound"
	"github.com/platewise/v1/internal/ports/outbound"
	apperrors "github.com/platewise/v1/pkg/errors"
)

// ---- fakes -----------------------------------------------------------------

type stubLibrary struct {
	entries map[string]*library.Entry // key: owner|normalized
}

func (r *stubLibrary) key(ownerID uuid.UUID, name string) string {
	return ownerID.String() + "|" + name
}

func (r *stubLibrary) FindByNormalizedName(_ context.Context, ownerID uuid.UUID, normalizedName string) (*library.Entry, error) {
	if e, ok := r.entries[r.key(ownerID, normalizedName)]; ok {
		return e, nil
	}
	return nil, outbound.ErrNotFound
}

func (r *stubLibrary) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*library.Entry, error) {
	var out []*library.Entry
	for _, e := range r.entries {
		if e.OwnerID() == ownerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *stubLibrary) SearchByName(_ context.Context, ownerID uuid.UUID, query string, limit int) ([]*library.Entry, error) {
	var out []*library.Entry
	for _, e := range r.entries {
		if e.OwnerID() == ownerID && strings.Contains(strings.ToLower(e.DisplayName()), strings.ToLower(query)) {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *stubLibrary) Save(_ context.Context, entry *library.Entry) error {
	r.entries[r.key(entry.OwnerID(), entry.NormalizedName())] = entry
	return nil
}

func (r *stubLibrary) Stats(_ context.Context, ownerID uuid.UUID) (outbound.LibraryStats, error) {
	stats := outbound.LibraryStats{}
	for _, e := range r.entries {
		if e.OwnerID() != ownerID {
			continue
		}
		stats.TotalEntries++
		stats.AvgConfidence += e.Confidence()
		if e.Confidence() >= 0.7 {
			stats.HighConfidenceCount++
		}
	}
	if stats.TotalEntries > 0 {
		stats.AvgConfidence /= float64(stats.TotalEntries)
	}
	return stats, nil
}

type stubMeals struct {
	meals map[uuid.UUID]*mealdomain.Meal
}

func (r *stubMeals) Create(_ context.Context, m *mealdomain.Meal) error {
	r.meals[m.ID()] = m
	return nil
}

func (r *stubMeals) Update(_ context.Context, m *mealdomain.Meal) error {
	r.meals[m.ID()] = m
	return nil
}

func (r *stubMeals) FindByID(_ context.Context, id uuid.UUID) (*mealdomain.Meal, error) {
	if m, ok := r.meals[id]; ok {
		return m, nil
	}
	return nil, outbound.ErrNotFound
}

func (r *stubMeals) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.meals, id)
	return nil
}

type stubPatterns struct {
	patterns map[string]*pattern.Pattern
}

func (r *stubPatterns) FindByRecipeName(_ context.Context, ownerID uuid.UUID, recipeName string) (*pattern.Pattern, error) {
	if p, ok := r.patterns[ownerID.String()+"|"+recipeName]; ok {
		return p, nil
	}
	return nil, outbound.ErrNotFound
}

func (r *stubPatterns) Save(_ context.Context, p *pattern.Pattern) error {
	r.patterns[p.OwnerID().String()+"|"+p.RecipeName()] = p
	return nil
}

type stubCorrections struct {
	rows []correction.Row
}

func (r *stubCorrections) AppendAll(_ context.Context, rows []correction.Row) error {
	r.rows = append(r.rows, rows...)
	return nil
}

func (r *stubCorrections) HasEditDigest(_ context.Context, digest string) (bool, error) {
	return false, nil
}

func (r *stubCorrections) List(_ context.Context, ownerID uuid.UUID, filter outbound.CorrectionFilter) ([]correction.Row, error) {
	var out []correction.Row
	for _, row := range r.rows {
		if row.OwnerID != ownerID {
			continue
		}
		if filter.FieldName != "" && row.FieldName != filter.FieldName {
			continue
		}
		if len(out) == filter.Limit {
			break
		}
		out = append(out, row)
	}
	return out, nil
}

// ---- fixture ---------------------------------------------------------------

type fixture struct {
	entries     *stubLibrary
	meals       *stubMeals
	patterns    *stubPatterns
	corrections *stubCorrections
	svc         *Service
}

func newFixture() *fixture {
	f := &fixture{
		entries:     &stubLibrary{entries: make(map[string]*library.Entry)},
		meals:       &stubMeals{meals: make(map[uuid.UUID]*mealdomain.Meal)},
		patterns:    &stubPatterns{patterns: make(map[string]*pattern.Pattern)},
		corrections: &stubCorrections{},
	}
	f.svc = NewService(
		f.entries, f.meals, f.patterns, f.corrections,
		naming.NewNormalizer(nil), measure.NewConverter(nil),
		Config{}, zap.NewNop(),
	)
	return f
}

func seedEntry(t *testing.T, f *fixture, owner uuid.UUID, display string, observations []float64) *library.Entry {
	t.Helper()
	params := library.DefaultConfidenceParams()
	normalized := naming.NewNormalizer(nil).Normalize(display)

	obs := func(cal float64) library.Observation {
		return library.Observation{
			Per100g:  nutrition.Facts{Calories: nutrition.AmountOf(cal)},
			Quantity: 50,
			Unit:     "g",
		}
	}
	e, err := library.NewEntry(owner, display, normalized, obs(observations[0]), params)
	require.NoError(t, err)
	for _, cal := range observations[1:] {
		e.Observe(obs(cal), params)
	}
	require.NoError(t, f.entries.Save(context.Background(), e))
	return e
}

// ---- tests -----------------------------------------------------------------

func TestService_GetPrediction_ExactMatch(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	seedEntry(t, f, owner, "coconut chutney", []float64{136, 140})

	p, err := f.svc.GetPrediction(context.Background(), owner, "Coconut Chutney")
	require.NoError(t, err)

	assert.Equal(t, "coconut chutney", p.NormalizedName)
	assert.Equal(t, 0, p.MatchDistance)
	assert.Equal(t, int64(2), p.SampleSize)

	// The prediction is scaled to the typical 50g portion.
	assert.InDelta(t, 50, p.Quantity, 1e-9)
	require.NotNil(t, p.Nutrition.Calories)
	assert.InDelta(t, 138.0/2.0, *p.Nutrition.Calories, 1e-9)
	require.NotNil(t, p.NutritionPer100.Calories)
	assert.InDelta(t, 138, *p.NutritionPer100.Calories, 1e-9)
}

func TestService_GetPrediction_AliasHitsSameEntry(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	seedEntry(t, f, owner, "idli", []float64{130})

	p, err := f.svc.GetPrediction(context.Background(), owner, "Idly")
	require.NoError(t, err)
	assert.Equal(t, "idli", p.NormalizedName)
	assert.Equal(t, 0, p.MatchDistance)
}

func TestService_GetPrediction_FuzzyFallback(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	seedEntry(t, f, owner, "paneer tikka", []float64{210})

	p, err := f.svc.GetPrediction(context.Background(), owner, "panner tikka")
	require.NoError(t, err)
	assert.Equal(t, "paneer tikka", p.NormalizedName)
	assert.Equal(t, 1, p.MatchDistance)
}

func TestService_GetPrediction_NoMatch(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	seedEntry(t, f, owner, "idli", []float64{130})

	_, err := f.svc.GetPrediction(context.Background(), owner, "chocolate cake")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestService_GetPrediction_OwnersIsolated(t *testing.T) {
	f := newFixture()
	alice := uuid.New()
	bob := uuid.New()
	seedEntry(t, f, alice, "idli", []float64{130})

	_, err := f.svc.GetPrediction(context.Background(), bob, "idli")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestService_SearchPredictions(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	seedEntry(t, f, owner, "coconut chutney", []float64{136})
	seedEntry(t, f, owner, "mint chutney", []float64{45})
	seedEntry(t, f, owner, "idli", []float64{130})

	got, err := f.svc.SearchPredictions(context.Background(), owner, "chutney", 10)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = f.svc.SearchPredictions(context.Background(), owner, "   ", 10)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeBadRequest))
}

func TestService_GetMissingSuggestions(t *testing.T) {
	f := newFixture()
	owner := uuid.New()

	m, err := mealdomain.NewMeal(owner, "", "idli breakfast", time.Now().UTC(), "", mealdomain.LocationContext{})
	require.NoError(t, err)
	require.NoError(t, m.SetIngredients([]mealdomain.IngredientInput{{
		Name: "idli", Quantity: 2, Unit: "piece",
		Facts: nutrition.Facts{Calories: nutrition.AmountOf(260)},
	}}))
	require.NoError(t, f.meals.Create(context.Background(), m))

	p, err := pattern.NewPattern(owner, "idli", nil)
	require.NoError(t, err)
	p.RecordMeal([]pattern.Observation{
		{Name: "coconut chutney", Quantity: 50, Unit: "g"},
		{Name: "sambar", Quantity: 100, Unit: "ml"},
	}, time.Now().UTC())
	p.RecordMeal([]pattern.Observation{
		{Name: "sambar", Quantity: 100, Unit: "ml"},
	}, time.Now().UTC())
	require.NoError(t, f.patterns.Save(context.Background(), p))

	got, err := f.svc.GetMissingSuggestions(context.Background(), owner, m.ID())
	require.NoError(t, err)

	require.Len(t, got, 2)
	// Ordered by co-occurrence: sambar appeared in both meals.
	assert.Equal(t, "sambar", got[0].Name)
	assert.Equal(t, int64(2), got[0].Observations)
	assert.Equal(t, "coconut chutney", got[1].Name)

	t.Run("present companions drop out", func(t *testing.T) {
		_, err := m.AddIngredient(owner, mealdomain.IngredientInput{
			Name: "Sambar", Quantity: 100, Unit: "ml",
			Facts: nutrition.Facts{Calories: nutrition.AmountOf(90)},
		})
		require.NoError(t, err)

		got, err := f.svc.GetMissingSuggestions(context.Background(), owner, m.ID())
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "coconut chutney", got[0].Name)
	})

	t.Run("owner mismatch", func(t *testing.T) {
		_, err := f.svc.GetMissingSuggestions(context.Background(), uuid.New(), m.ID())
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.CodeNotMealOwner))
	})

	t.Run("no pattern means no suggestions", func(t *testing.T) {
		other, err := mealdomain.NewMeal(owner, "", "dosa", time.Now().UTC(), "", mealdomain.LocationContext{})
		require.NoError(t, err)
		require.NoError(t, other.SetIngredients([]mealdomain.IngredientInput{{
			Name: "dosa", Quantity: 1, Unit: "piece",
			Facts: nutrition.Facts{Calories: nutrition.AmountOf(180)},
		}}))
		require.NoError(t, f.meals.Create(context.Background(), other))

		got, err := f.svc.GetMissingSuggestions(context.Background(), owner, other.ID())
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestService_GetLibraryStats(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	seedEntry(t, f, owner, "idli", []float64{130, 130, 130, 130, 130, 130, 130, 130})
	seedEntry(t, f, owner, "new thing", []float64{90})

	stats, err := f.svc.GetLibraryStats(context.Background(), owner)
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.TotalEntries)
	assert.Equal(t, int64(1), stats.HighConfidenceCount)
	assert.Greater(t, stats.AvgConfidence, 0.0)
}

func TestService_ListCorrections(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	other := uuid.New()

	now := time.Now().UTC()
	f.corrections.rows = []correction.Row{
		{ID: uuid.New(), OwnerID: owner, FieldName: nutrition.FieldCalories, AiValue: 41, UserValue: 68, PercentError: 39.7, CorrectedAt: now},
		{ID: uuid.New(), OwnerID: owner, FieldName: nutrition.FieldProtein, AiValue: 2, UserValue: 4, PercentError: 50, CorrectedAt: now},
		{ID: uuid.New(), OwnerID: other, FieldName: nutrition.FieldCalories, AiValue: 100, UserValue: 150, PercentError: 33.3, CorrectedAt: now},
	}

	t.Run("scoped to the owner", func(t *testing.T) {
		got, err := f.svc.ListCorrections(context.Background(), owner, inbound.ListCorrectionsQuery{})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("field filter", func(t *testing.T) {
		got, err := f.svc.ListCorrections(context.Background(), owner, inbound.ListCorrectionsQuery{
			FieldName: nutrition.FieldProtein,
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, nutrition.FieldProtein, got[0].FieldName)
		assert.InDelta(t, 50, got[0].PercentError, 1e-9)
	})
}
