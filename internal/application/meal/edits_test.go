package meal

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platewise/v1/internal/domain/nutrition"
	"github.com/platewise/v1/internal/ports/inbound"
	"github.com/platewise/v1/internal/ports/outbound"
	apperrors "github.com/platewise/v1/pkg/errors"
)

// createTestMeal runs one ingestion through the fixture and returns the
// stored meal's id plus its ingredient views.
func createTestMeal(t *testing.T, f *fixture, owner uuid.UUID) *inbound.CreateMealResult {
	t.Helper()
	result, err := f.svc.CreateMeal(context.Background(), createCommand(owner))
	require.NoError(t, err)
	require.Equal(t, "valid", result.Verdict)
	return result
}

func chutneyEdit(owner uuid.UUID, mealID, ingredientID uuid.UUID) inbound.UpdateIngredientCommand {
	return inbound.UpdateIngredientCommand{
		OwnerID:      owner,
		MealID:       mealID,
		IngredientID: ingredientID,
		Name:         "coconut chutney",
		Quantity:     50,
		Unit:         "g",
		Nutrition:    inbound.NutritionPatch{Calories: ptr(68)},
	}
}

func TestService_UpdateIngredient_CorrectionAndLearning(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	created := createTestMeal(t, f, owner)
	chutney := created.Ingredients[1]
	require.Equal(t, "coconut chutney", chutney.Name)

	result, err := f.svc.UpdateIngredient(context.Background(), chutneyEdit(owner, created.MealID, chutney.ID))
	require.NoError(t, err)

	assert.Equal(t, 1, result.CorrectionRowsWritten)
	assert.True(t, result.LearnerTrained)
	assert.True(t, result.Ingredient.IsUserCorrected)

	// One row for the one changed field, signed toward the user's raise.
	rows := f.corrections.all()
	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, nutrition.FieldCalories, row.FieldName)
	assert.InDelta(t, 41, row.AiValue, 1e-9)
	assert.InDelta(t, 68, row.UserValue, 1e-9)
	assert.InDelta(t, (68.0-41.0)/68.0*100, row.PercentError, 1e-6)
	assert.Equal(t, owner, row.OwnerID)
	require.NotNil(t, row.ConfidenceAtAnalysis)
	assert.InDelta(t, 0.85, *row.ConfidenceAtAnalysis, 1e-9)

	// The 68 kcal / 50 g observation lands in the library rebased to 100g.
	entry, err := f.libraryRepo.FindByNormalizedName(context.Background(), owner, "coconut chutney")
	require.NoError(t, err)
	assert.Equal(t, int64(1), entry.SampleSize())
	assert.InDelta(t, 136, entry.AvgCalories(), 1e-9)

	// The stored meal reflects the edit.
	stored, err := f.meals.FindByID(context.Background(), created.MealID)
	require.NoError(t, err)
	ing, ok := stored.Ingredient(chutney.ID)
	require.True(t, ok)
	assert.True(t, ing.IsUserCorrected)
	assert.InDelta(t, 68, ing.Facts.Calories.Value(), 1e-9)
	assert.True(t, stored.UserEdited())
}

// A redelivered edit with the identical after-image is absorbed: no new rows,
// no second training pass.
func TestService_UpdateIngredient_DuplicateEditIsIdempotent(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	created := createTestMeal(t, f, owner)
	chutney := created.Ingredients[1]

	first, err := f.svc.UpdateIngredient(context.Background(), chutneyEdit(owner, created.MealID, chutney.ID))
	require.NoError(t, err)
	require.Equal(t, 1, first.CorrectionRowsWritten)

	second, err := f.svc.UpdateIngredient(context.Background(), chutneyEdit(owner, created.MealID, chutney.ID))
	require.NoError(t, err)
	assert.Zero(t, second.CorrectionRowsWritten)
	assert.False(t, second.LearnerTrained)

	assert.Len(t, f.corrections.all(), 1)
	entry, err := f.libraryRepo.FindByNormalizedName(context.Background(), owner, "coconut chutney")
	require.NoError(t, err)
	assert.Equal(t, int64(1), entry.SampleSize())
}

// Only the first correction of an ingredient trains the learner; later edits
// still write telemetry.
func TestService_UpdateIngredient_OnlyFirstCorrectionTrains(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	created := createTestMeal(t, f, owner)
	chutney := created.Ingredients[1]

	_, err := f.svc.UpdateIngredient(context.Background(), chutneyEdit(owner, created.MealID, chutney.ID))
	require.NoError(t, err)

	cmd := chutneyEdit(owner, created.MealID, chutney.ID)
	cmd.Nutrition = inbound.NutritionPatch{Calories: ptr(75)}
	result, err := f.svc.UpdateIngredient(context.Background(), cmd)
	require.NoError(t, err)

	assert.Equal(t, 1, result.CorrectionRowsWritten)
	assert.False(t, result.LearnerTrained)

	entry, err := f.libraryRepo.FindByNormalizedName(context.Background(), owner, "coconut chutney")
	require.NoError(t, err)
	assert.Equal(t, int64(1), entry.SampleSize())
}

// Zeroing out a field writes no telemetry for it, and a zero-calorie
// after-image never trains the learner.
func TestService_UpdateIngredient_ZeroValues(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	created := createTestMeal(t, f, owner)
	chutney := created.Ingredients[1]

	cmd := chutneyEdit(owner, created.MealID, chutney.ID)
	cmd.Nutrition = inbound.NutritionPatch{Calories: ptr(0)}

	result, err := f.svc.UpdateIngredient(context.Background(), cmd)
	require.NoError(t, err)

	assert.Zero(t, result.CorrectionRowsWritten)
	assert.False(t, result.LearnerTrained)
	assert.Empty(t, f.corrections.all())
	_, err = f.libraryRepo.FindByNormalizedName(context.Background(), owner, "coconut chutney")
	assert.ErrorIs(t, err, outbound.ErrNotFound)
}

func TestService_UpdateIngredient_Rejections(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	created := createTestMeal(t, f, owner)
	chutney := created.Ingredients[1]

	t.Run("unknown unit", func(t *testing.T) {
		cmd := chutneyEdit(owner, created.MealID, chutney.ID)
		cmd.Unit = "katori"
		_, err := f.svc.UpdateIngredient(context.Background(), cmd)
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.CodeUnknownUnit))
		assert.Empty(t, f.corrections.all())
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		cmd := chutneyEdit(owner, created.MealID, chutney.ID)
		cmd.Quantity = 0
		_, err := f.svc.UpdateIngredient(context.Background(), cmd)
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.CodeBadRequest))
	})

	t.Run("owner mismatch", func(t *testing.T) {
		cmd := chutneyEdit(uuid.New(), created.MealID, chutney.ID)
		_, err := f.svc.UpdateIngredient(context.Background(), cmd)
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.CodeNotMealOwner))
	})

	t.Run("unknown ingredient", func(t *testing.T) {
		cmd := chutneyEdit(owner, created.MealID, uuid.New())
		_, err := f.svc.UpdateIngredient(context.Background(), cmd)
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.CodeIngredientNotFound))
	})
}

// Concurrent edits of different ingredients on the same meal both land: every
// correction row is written exactly once and both ingredients end corrected.
func TestService_UpdateIngredient_ConcurrentEdits(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	created := createTestMeal(t, f, owner)
	idli := created.Ingredients[0]
	chutney := created.Ingredients[1]

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		cmd := inbound.UpdateIngredientCommand{
			OwnerID:      owner,
			MealID:       created.MealID,
			IngredientID: idli.ID,
			Name:         "idli",
			Quantity:     3,
			Unit:         "piece",
			Nutrition:    inbound.NutritionPatch{Calories: ptr(390)},
		}
		_, err := f.svc.UpdateIngredient(context.Background(), cmd)
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		_, err := f.svc.UpdateIngredient(context.Background(), chutneyEdit(owner, created.MealID, chutney.ID))
		assert.NoError(t, err)
	}()
	wg.Wait()

	rows := f.corrections.all()
	assert.Len(t, rows, 2)

	stored, err := f.meals.FindByID(context.Background(), created.MealID)
	require.NoError(t, err)
	for _, id := range []uuid.UUID{idli.ID, chutney.ID} {
		ing, ok := stored.Ingredient(id)
		require.True(t, ok)
		assert.True(t, ing.IsUserCorrected, "ingredient %s lost its edit", ing.Name)
	}
}

func TestService_AddIngredient(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	created := createTestMeal(t, f, owner)

	view, err := f.svc.AddIngredient(context.Background(), inbound.AddIngredientCommand{
		OwnerID:   owner,
		MealID:    created.MealID,
		Name:      "sambar",
		Quantity:  150,
		Unit:      "ml",
		Nutrition: inbound.NutritionPatch{Calories: ptr(90)},
	})
	require.NoError(t, err)

	assert.Equal(t, "sambar", view.Name)
	assert.Equal(t, 2, view.DisplayOrder)
	assert.False(t, view.IsAIExtracted)

	stored, err := f.meals.FindByID(context.Background(), created.MealID)
	require.NoError(t, err)
	assert.Len(t, stored.Ingredients(), 3)

	// The pattern absorbs the new companion without counting another meal.
	p, err := f.patterns.FindByRecipeName(context.Background(), owner, "idli")
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.TimesMade())
	assert.Len(t, p.Companions(), 2)
}

func TestService_DeleteIngredient(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	created := createTestMeal(t, f, owner)
	chutney := created.Ingredients[1]

	require.NoError(t, f.svc.DeleteIngredient(context.Background(), owner, created.MealID, chutney.ID))

	stored, err := f.meals.FindByID(context.Background(), created.MealID)
	require.NoError(t, err)
	assert.Len(t, stored.Ingredients(), 1)

	err = f.svc.DeleteIngredient(context.Background(), owner, created.MealID, chutney.ID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeIngredientNotFound))
}
