package meal

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platewise/v1/internal/domain/nutrition"
)

func newTestMeal(t *testing.T, owner uuid.UUID) *Meal {
	t.Helper()
	m, err := NewMeal(owner, "", "idli with chutney", time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC), "", LocationContext{})
	require.NoError(t, err)
	return m
}

func ingredientInput(name string, calories float64) IngredientInput {
	return IngredientInput{
		Name:     name,
		Quantity: 100,
		Unit:     "g",
		Facts:    nutrition.Facts{Calories: nutrition.AmountOf(calories)},
	}
}

func TestNewMeal(t *testing.T) {
	owner := uuid.New()

	t.Run("requires an owner", func(t *testing.T) {
		_, err := NewMeal(uuid.Nil, "img", "", time.Time{}, "", LocationContext{})
		assert.ErrorIs(t, err, ErrNoOwner)
	})

	t.Run("requires image or description", func(t *testing.T) {
		_, err := NewMeal(owner, "", "", time.Time{}, "", LocationContext{})
		assert.ErrorIs(t, err, ErrNoInput)
	})

	t.Run("rejects an unknown declared type", func(t *testing.T) {
		_, err := NewMeal(owner, "img", "", time.Time{}, "BRUNCH", LocationContext{})
		assert.ErrorIs(t, err, ErrInvalidMealType)
	})

	t.Run("infers type from the clock", func(t *testing.T) {
		m, err := NewMeal(owner, "img", "", time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC), "", LocationContext{})
		require.NoError(t, err)
		assert.Equal(t, MealTypeBreakfast, m.Type())
		assert.Equal(t, StatusPending, m.Status())
	})

	t.Run("declared type wins over the clock", func(t *testing.T) {
		m, err := NewMeal(owner, "img", "", time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC), MealTypeSnack, LocationContext{})
		require.NoError(t, err)
		assert.Equal(t, MealTypeSnack, m.Type())
	})

	t.Run("emits the logged event", func(t *testing.T) {
		m := newTestMeal(t, owner)
		events := m.Events()
		require.Len(t, events, 1)
		assert.IsType(t, MealLoggedEvent{}, events[0])
		assert.Empty(t, m.Events())
	})
}

func TestMealTypeForHour(t *testing.T) {
	tests := []struct {
		hour int
		want MealType
	}{
		{7, MealTypeBreakfast},
		{12, MealTypeLunch},
		{19, MealTypeDinner},
		{23, MealTypeSnack},
		{3, MealTypeSnack},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MealTypeForHour(tt.hour), "hour %d", tt.hour)
	}
}

func TestMeal_CompleteAnalysis(t *testing.T) {
	owner := uuid.New()
	m := newTestMeal(t, owner)
	now := time.Now().UTC()

	t.Run("requires calories", func(t *testing.T) {
		err := m.CompleteAnalysis(nutrition.Facts{}, 0.9, now)
		assert.ErrorIs(t, err, ErrNoCalories)
	})

	t.Run("moves to completed", func(t *testing.T) {
		err := m.CompleteAnalysis(nutrition.Facts{Calories: nutrition.AmountOf(200)}, 0.9, now)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, m.Status())
		assert.InDelta(t, 0.9, m.Confidence(), 1e-9)
		require.NotNil(t, m.AIAnalyzedAt())
	})

	t.Run("terminal state is final", func(t *testing.T) {
		err := m.CompleteAnalysis(nutrition.Facts{Calories: nutrition.AmountOf(300)}, 0.9, now)
		assert.ErrorIs(t, err, ErrAlreadyAnalyzed)
		err = m.FailAnalysis(nutrition.Facts{}, 0.2, now)
		assert.ErrorIs(t, err, ErrAlreadyAnalyzed)
	})
}

func TestMeal_FlagForReview(t *testing.T) {
	m := newTestMeal(t, uuid.New())

	err := m.FlagForReview(nutrition.Facts{Calories: nutrition.AmountOf(5000)}, 0.4, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, StatusNeedsReview, m.Status())
	// The suspect values are kept for the user to correct against.
	assert.InDelta(t, 5000, m.Summary().Calories.Value(), 1e-9)
}

func TestMeal_ConfidenceClamped(t *testing.T) {
	m := newTestMeal(t, uuid.New())
	require.NoError(t, m.CompleteAnalysis(nutrition.Facts{Calories: nutrition.AmountOf(100)}, 1.7, time.Now().UTC()))
	assert.InDelta(t, 1.0, m.Confidence(), 1e-9)
}

func TestMeal_SetIngredients(t *testing.T) {
	m := newTestMeal(t, uuid.New())

	err := m.SetIngredients([]IngredientInput{
		ingredientInput("idli", 130),
		ingredientInput("coconut chutney", 68),
	})
	require.NoError(t, err)

	ings := m.Ingredients()
	require.Len(t, ings, 2)
	assert.Equal(t, 0, ings[0].DisplayOrder)
	assert.Equal(t, 1, ings[1].DisplayOrder)
	assert.Equal(t, m.ID(), ings[0].MealID)

	t.Run("rejects invalid input", func(t *testing.T) {
		err := m.SetIngredients([]IngredientInput{{Name: "", Quantity: 1, Unit: "g"}})
		assert.ErrorIs(t, err, ErrEmptyIngredientName)
	})
}

func TestMeal_AddIngredient(t *testing.T) {
	owner := uuid.New()
	m := newTestMeal(t, owner)
	require.NoError(t, m.SetIngredients([]IngredientInput{ingredientInput("idli", 130)}))

	t.Run("owner check", func(t *testing.T) {
		_, err := m.AddIngredient(uuid.New(), ingredientInput("sambar", 90))
		assert.ErrorIs(t, err, ErrNotMealOwner)
	})

	t.Run("appends and recomputes the summary", func(t *testing.T) {
		ing, err := m.AddIngredient(owner, ingredientInput("sambar", 90))
		require.NoError(t, err)
		assert.Equal(t, 1, ing.DisplayOrder)
		assert.True(t, m.UserEdited())
		assert.InDelta(t, 220, m.Summary().Calories.Value(), 1e-9)
	})
}

func TestMeal_RemoveIngredient(t *testing.T) {
	owner := uuid.New()
	m := newTestMeal(t, owner)
	require.NoError(t, m.SetIngredients([]IngredientInput{
		ingredientInput("idli", 130),
		ingredientInput("chutney", 68),
		ingredientInput("sambar", 90),
	}))
	target := m.Ingredients()[1].ID

	require.NoError(t, m.RemoveIngredient(owner, target))

	ings := m.Ingredients()
	require.Len(t, ings, 2)
	// Display order reflows after removal.
	assert.Equal(t, 0, ings[0].DisplayOrder)
	assert.Equal(t, 1, ings[1].DisplayOrder)
	assert.Equal(t, "sambar", ings[1].Name)
	assert.InDelta(t, 220, m.Summary().Calories.Value(), 1e-9)

	assert.ErrorIs(t, m.RemoveIngredient(owner, target), ErrIngredientNotFound)
	assert.ErrorIs(t, m.RemoveIngredient(uuid.New(), ings[0].ID), ErrNotMealOwner)
}

func TestMeal_CorrectIngredient(t *testing.T) {
	owner := uuid.New()
	m := newTestMeal(t, owner)
	require.NoError(t, m.SetIngredients([]IngredientInput{ingredientInput("chutney", 41)}))
	require.NoError(t, m.CompleteAnalysis(nutrition.Facts{Calories: nutrition.AmountOf(41)}, 0.8, time.Now().UTC()))
	target := m.Ingredients()[0].ID

	after := IngredientInput{
		Name:     "coconut chutney",
		Quantity: 50,
		Unit:     "g",
		Facts:    nutrition.Facts{Calories: nutrition.AmountOf(68)},
	}

	before, first, err := m.CorrectIngredient(owner, target, after)
	require.NoError(t, err)
	assert.True(t, first)
	assert.InDelta(t, 41, before.Calories.Value(), 1e-9)

	ing, ok := m.Ingredient(target)
	require.True(t, ok)
	assert.True(t, ing.IsUserCorrected)
	assert.Equal(t, "coconut chutney", ing.Name)
	assert.InDelta(t, 68, ing.Facts.Calories.Value(), 1e-9)
	// Editing refreshes the summary but never the analysis status.
	assert.Equal(t, StatusCompleted, m.Status())
	assert.InDelta(t, 68, m.Summary().Calories.Value(), 1e-9)

	t.Run("second correction is not first", func(t *testing.T) {
		after.Facts = nutrition.Facts{Calories: nutrition.AmountOf(72)}
		_, first, err := m.CorrectIngredient(owner, target, after)
		require.NoError(t, err)
		assert.False(t, first)
	})

	t.Run("owner check", func(t *testing.T) {
		_, _, err := m.CorrectIngredient(uuid.New(), target, after)
		assert.ErrorIs(t, err, ErrNotMealOwner)
	})

	t.Run("unknown ingredient", func(t *testing.T) {
		_, _, err := m.CorrectIngredient(owner, uuid.New(), after)
		assert.ErrorIs(t, err, ErrIngredientNotFound)
	})
}

func TestMeal_PrimaryIngredient(t *testing.T) {
	owner := uuid.New()
	m := newTestMeal(t, owner)

	_, ok := m.PrimaryIngredient()
	assert.False(t, ok)

	require.NoError(t, m.SetIngredients([]IngredientInput{
		ingredientInput("chutney", 68),
		ingredientInput("idli", 130),
		ingredientInput("sambar", 90),
	}))

	primary, ok := m.PrimaryIngredient()
	require.True(t, ok)
	assert.Equal(t, "idli", primary.Name)
}

func TestMeal_SummarySkipsAbsentFields(t *testing.T) {
	owner := uuid.New()
	m := newTestMeal(t, owner)
	require.NoError(t, m.SetIngredients([]IngredientInput{
		{
			Name: "idli", Quantity: 2, Unit: "piece",
			Facts: nutrition.Facts{
				Calories: nutrition.AmountOf(130),
				ProteinG: nutrition.AmountOf(4),
			},
		},
		{
			Name: "chutney", Quantity: 50, Unit: "g",
			Facts: nutrition.Facts{Calories: nutrition.AmountOf(68)},
		},
	}))
	_, err := m.AddIngredient(owner, IngredientInput{
		Name: "sambar", Quantity: 100, Unit: "g",
		Facts: nutrition.Facts{Calories: nutrition.AmountOf(90)},
	})
	require.NoError(t, err)

	sum := m.Summary()
	assert.InDelta(t, 288, sum.Calories.Value(), 1e-9)
	assert.InDelta(t, 4, sum.ProteinG.Value(), 1e-9)
	// No ingredient carries fat, so the summary has none either.
	assert.False(t, sum.FatG.Valid())
}
