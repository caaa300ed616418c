// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the use-case contracts the transport layer calls into.
package inbound

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/platewise/v1/internal/domain/meal"
	"github.com/platewise/v1/internal/domain/nutrition"
)

// NutritionPatch carries the nullable nutrition fields of a request body.
// A nil pointer means the field is absent, not zero.
type NutritionPatch struct {
	Calories   *float64 `json:"calories"`
	ProteinG   *float64 `json:"protein_g"`
	FatG       *float64 `json:"fat_g"`
	SaturatedG *float64 `json:"saturated_fat_g"`
	CarbsG     *float64 `json:"carbs_g"`
	FiberG     *float64 `json:"fiber_g"`
	SugarG     *float64 `json:"sugar_g"`
	SodiumMg   *float64 `json:"sodium_mg"`
}

// Facts converts the patch to the domain representation.
func (p NutritionPatch) Facts() nutrition.Facts {
	return nutrition.Facts{
		Calories:   nutrition.AmountFromPtr(p.Calories),
		ProteinG:   nutrition.AmountFromPtr(p.ProteinG),
		FatG:       nutrition.AmountFromPtr(p.FatG),
		SaturatedG: nutrition.AmountFromPtr(p.SaturatedG),
		CarbsG:     nutrition.AmountFromPtr(p.CarbsG),
		FiberG:     nutrition.AmountFromPtr(p.FiberG),
		SugarG:     nutrition.AmountFromPtr(p.SugarG),
		SodiumMg:   nutrition.AmountFromPtr(p.SodiumMg),
	}
}

// PatchFromFacts converts domain facts back to the wire representation.
func PatchFromFacts(f nutrition.Facts) NutritionPatch {
	return NutritionPatch{
		Calories:   f.Calories.Ptr(),
		ProteinG:   f.ProteinG.Ptr(),
		FatG:       f.FatG.Ptr(),
		SaturatedG: f.SaturatedG.Ptr(),
		CarbsG:     f.CarbsG.Ptr(),
		FiberG:     f.FiberG.Ptr(),
		SugarG:     f.SugarG.Ptr(),
		SodiumMg:   f.SodiumMg.Ptr(),
	}
}

// CreateMealCommand is one meal-creation request. At least one of ImageHandle
// and Description must be present.
type CreateMealCommand struct {
	OwnerID      uuid.UUID
	ImageHandle  string
	Description  string
	MealTime     *time.Time
	DeclaredType string
	Latitude     *float64
	Longitude    *float64
}

// IngredientView is the transport-facing shape of one meal ingredient.
type IngredientView struct {
	ID              uuid.UUID      `json:"id"`
	Name            string         `json:"name"`
	Category        string         `json:"category,omitempty"`
	Quantity        float64        `json:"quantity"`
	Unit            string         `json:"unit"`
	Nutrition       NutritionPatch `json:"nutrition"`
	IsAIExtracted   bool           `json:"is_ai_extracted"`
	IsUserCorrected bool           `json:"is_user_corrected"`
	AIConfidence    *float64       `json:"ai_confidence,omitempty"`
	DisplayOrder    int            `json:"display_order"`
}

// ValidationIssueView is one validation issue as surfaced to the caller.
type ValidationIssueView struct {
	Field        string   `json:"field"`
	Severity     string   `json:"severity"`
	Message      string   `json:"message"`
	SuggestedFix *float64 `json:"suggested_fix,omitempty"`
}

// CreateMealResult is the orchestrator's reply to a creation request.
type CreateMealResult struct {
	MealID      uuid.UUID             `json:"meal_id"`
	Status      meal.AnalysisStatus   `json:"status"`
	Confidence  float64               `json:"confidence"`
	Nutrition   NutritionPatch        `json:"nutrition"`
	Ingredients []IngredientView      `json:"ingredients"`
	Verdict     string                `json:"validation_verdict"`
	Issues      []ValidationIssueView `json:"validation_issues,omitempty"`
}

// UpdateIngredientCommand is one ingredient edit: the full after-image.
type UpdateIngredientCommand struct {
	OwnerID      uuid.UUID
	MealID       uuid.UUID
	IngredientID uuid.UUID
	Name         string
	Category     string
	Quantity     float64
	Unit         string
	Nutrition    NutritionPatch
}

// UpdateIngredientResult reports what one edit produced.
type UpdateIngredientResult struct {
	CorrectionRowsWritten int            `json:"correction_rows_written"`
	LearnerTrained        bool           `json:"learner_trained"`
	Ingredient            IngredientView `json:"ingredient"`
}

// AddIngredientCommand adds a manual ingredient to an existing meal.
type AddIngredientCommand struct {
	OwnerID   uuid.UUID
	MealID    uuid.UUID
	Name      string
	Category  string
	Quantity  float64
	Unit      string
	Nutrition NutritionPatch
}

// MealService is the inbound port for meal ingestion and editing.
type MealService interface {
	CreateMeal(ctx context.Context, cmd CreateMealCommand) (*CreateMealResult, error)
	GetMeal(ctx context.Context, ownerID, mealID uuid.UUID) (*CreateMealResult, error)
	UpdateIngredient(ctx context.Context, cmd UpdateIngredientCommand) (*UpdateIngredientResult, error)
	AddIngredient(ctx context.Context, cmd AddIngredientCommand) (*IngredientView, error)
	DeleteIngredient(ctx context.Context, ownerID, mealID, ingredientID uuid.UUID) error
}
