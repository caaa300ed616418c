package meal

import (
	mealdomain "github.com/platewise/v1/internal/domain/meal"
	"github.com/platewise/v1/internal/domain/nutrition"
	"github.com/platewise/v1/internal/ports/inbound"
	"github.com/platewise/v1/internal/ports/outbound"
)

// factsFromResult maps the analyzer's nullable summary onto the domain facts.
func factsFromResult(r *outbound.AnalysisResult) nutrition.Facts {
	return nutrition.Facts{
		Calories:   nutrition.AmountFromPtr(r.Calories),
		ProteinG:   nutrition.AmountFromPtr(r.ProteinG),
		FatG:       nutrition.AmountFromPtr(r.FatG),
		SaturatedG: nutrition.AmountFromPtr(r.SaturatedG),
		CarbsG:     nutrition.AmountFromPtr(r.CarbsG),
		FiberG:     nutrition.AmountFromPtr(r.FiberG),
		SugarG:     nutrition.AmountFromPtr(r.SugarG),
		SodiumMg:   nutrition.AmountFromPtr(r.SodiumMg),
	}
}

// ingredientInputs maps the analyzer's decomposition onto domain inputs.
// Estimates with no name or a non-positive quantity are dropped rather than
// rejected: the model volunteers them and the meal summary stands alone.
func ingredientInputs(r *outbound.AnalysisResult) []mealdomain.IngredientInput {
	inputs := make([]mealdomain.IngredientInput, 0, len(r.Ingredients))
	for _, est := range r.Ingredients {
		if est.Name == "" || est.Quantity <= 0 {
			continue
		}
		unit := est.Unit
		if unit == "" {
			unit = "serving"
		}
		conf := r.Confidence
		inputs = append(inputs, mealdomain.IngredientInput{
			Name:        est.Name,
			Category:    est.Category,
			Quantity:    est.Quantity,
			Unit:        unit,
			AIExtracted: true,
			AIConfidence: &conf,
			Facts: nutrition.Facts{
				Calories:   nutrition.AmountFromPtr(est.Calories),
				ProteinG:   nutrition.AmountFromPtr(est.ProteinG),
				FatG:       nutrition.AmountFromPtr(est.FatG),
				SaturatedG: nutrition.AmountFromPtr(est.SaturatedG),
				CarbsG:     nutrition.AmountFromPtr(est.CarbsG),
				FiberG:     nutrition.AmountFromPtr(est.FiberG),
				SugarG:     nutrition.AmountFromPtr(est.SugarG),
				SodiumMg:   nutrition.AmountFromPtr(est.SodiumMg),
			},
		})
	}
	return inputs
}

func ingredientView(ing *mealdomain.Ingredient) inbound.IngredientView {
	return inbound.IngredientView{
		ID:              ing.ID,
		Name:            ing.Name,
		Category:        ing.Category,
		Quantity:        ing.Quantity,
		Unit:            ing.Unit,
		Nutrition:       inbound.PatchFromFacts(ing.Facts),
		IsAIExtracted:   ing.IsAIExtracted,
		IsUserCorrected: ing.IsUserCorrected,
		AIConfidence:    ing.AIConfidence,
		DisplayOrder:    ing.DisplayOrder,
	}
}

func mealResult(m *mealdomain.Meal, report nutrition.Report) *inbound.CreateMealResult {
	views := make([]inbound.IngredientView, 0, len(m.Ingredients()))
	for _, ing := range m.Ingredients() {
		views = append(views, ingredientView(ing))
	}

	issues := make([]inbound.ValidationIssueView, 0, len(report.Issues))
	for _, is := range report.Issues {
		issues = append(issues, inbound.ValidationIssueView{
			Field:        is.Field,
			Severity:     is.Severity.String(),
			Message:      is.Message,
			SuggestedFix: is.SuggestedFix.Ptr(),
		})
	}

	return &inbound.CreateMealResult{
		MealID:      m.ID(),
		Status:      m.Status(),
		Confidence:  m.Confidence(),
		Nutrition:   inbound.PatchFromFacts(m.Summary()),
		Ingredients: views,
		Verdict:     report.Verdict.String(),
		Issues:      issues,
	}
}
