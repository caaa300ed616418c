package gorm

import (
	"github.com/platewise/v1/internal/domain/correction"
	"github.com/platewise/v1/internal/domain/library"
	mealdomain "github.com/platewise/v1/internal/domain/meal"
	"github.com/platewise/v1/internal/domain/nutrition"
	"github.com/platewise/v1/internal/domain/pattern"
)

// MealToModel converts the meal aggregate to its persistence shape.
func MealToModel(m *mealdomain.Meal) *MealModel {
	summary := m.Summary()
	model := &MealModel{
		ID:                   m.ID(),
		OwnerID:              m.OwnerID(),
		MealTime:             m.MealTime(),
		MealType:             string(m.Type()),
		Description:          m.Description(),
		ImageHandle:          m.ImageHandle(),
		Calories:             summary.Calories.Ptr(),
		ProteinG:             summary.ProteinG.Ptr(),
		FatG:                 summary.FatG.Ptr(),
		SaturatedG:           summary.SaturatedG.Ptr(),
		CarbsG:               summary.CarbsG.Ptr(),
		FiberG:               summary.FiberG.Ptr(),
		SugarG:               summary.SugarG.Ptr(),
		SodiumMg:             summary.SodiumMg.Ptr(),
		Confidence:           m.Confidence(),
		AnalysisStatus:       string(m.Status()),
		UserEdited:           m.UserEdited(),
		LocationIsRestaurant: m.Location().IsRestaurant,
		LocationIsHome:       m.Location().IsHome,
		PlaceType:            m.Location().PlaceType,
		AIAnalyzedAt:         m.AIAnalyzedAt(),
		CreatedAt:            m.CreatedAt(),
		UpdatedAt:            m.UpdatedAt(),
	}
	for _, ing := range m.Ingredients() {
		model.Ingredients = append(model.Ingredients, *IngredientToModel(ing))
	}
	return model
}

// IngredientToModel converts one ingredient to its persistence shape.
func IngredientToModel(ing *mealdomain.Ingredient) *MealIngredientModel {
	return &MealIngredientModel{
		ID:              ing.ID,
		MealID:          ing.MealID,
		Name:            ing.Name,
		Category:        ing.Category,
		Quantity:        ing.Quantity,
		Unit:            ing.Unit,
		Calories:        ing.Facts.Calories.Ptr(),
		ProteinG:        ing.Facts.ProteinG.Ptr(),
		FatG:            ing.Facts.FatG.Ptr(),
		SaturatedG:      ing.Facts.SaturatedG.Ptr(),
		CarbsG:          ing.Facts.CarbsG.Ptr(),
		FiberG:          ing.Facts.FiberG.Ptr(),
		SugarG:          ing.Facts.SugarG.Ptr(),
		SodiumMg:        ing.Facts.SodiumMg.Ptr(),
		IsAIExtracted:   ing.IsAIExtracted,
		IsUserCorrected: ing.IsUserCorrected,
		AIConfidence:    ing.AIConfidence,
		DisplayOrder:    ing.DisplayOrder,
	}
}

// ModelToMeal reconstructs the meal aggregate from its persistence shape.
func ModelToMeal(model *MealModel) *mealdomain.Meal {
	ingredients := make([]*mealdomain.Ingredient, 0, len(model.Ingredients))
	for i := range model.Ingredients {
		ingredients = append(ingredients, ModelToIngredient(&model.Ingredients[i]))
	}

	return mealdomain.ReconstructMeal(
		model.ID,
		model.OwnerID,
		model.MealTime,
		mealdomain.MealType(model.MealType),
		model.Description,
		model.ImageHandle,
		factsFromColumns(model.Calories, model.ProteinG, model.FatG, model.SaturatedG,
			model.CarbsG, model.FiberG, model.SugarG, model.SodiumMg),
		model.Confidence,
		mealdomain.AnalysisStatus(model.AnalysisStatus),
		model.UserEdited,
		mealdomain.LocationContext{
			IsRestaurant: model.LocationIsRestaurant,
			IsHome:       model.LocationIsHome,
			PlaceType:    model.PlaceType,
		},
		ingredients,
		model.AIAnalyzedAt,
		model.CreatedAt,
		model.UpdatedAt,
	)
}

// ModelToIngredient reconstructs one ingredient from its persistence shape.
func ModelToIngredient(model *MealIngredientModel) *mealdomain.Ingredient {
	return &mealdomain.Ingredient{
		ID:       model.ID,
		MealID:   model.MealID,
		Name:     model.Name,
		Category: model.Category,
		Quantity: model.Quantity,
		Unit:     model.Unit,
		Facts: factsFromColumns(model.Calories, model.ProteinG, model.FatG, model.SaturatedG,
			model.CarbsG, model.FiberG, model.SugarG, model.SodiumMg),
		IsAIExtracted:   model.IsAIExtracted,
		IsUserCorrected: model.IsUserCorrected,
		AIConfidence:    model.AIConfidence,
		DisplayOrder:    model.DisplayOrder,
	}
}

func factsFromColumns(calories, protein, fat, saturated, carbs, fiber, sugar, sodium *float64) nutrition.Facts {
	return nutrition.Facts{
		Calories:   nutrition.AmountFromPtr(calories),
		ProteinG:   nutrition.AmountFromPtr(protein),
		FatG:       nutrition.AmountFromPtr(fat),
		SaturatedG: nutrition.AmountFromPtr(saturated),
		CarbsG:     nutrition.AmountFromPtr(carbs),
		FiberG:     nutrition.AmountFromPtr(fiber),
		SugarG:     nutrition.AmountFromPtr(sugar),
		SodiumMg:   nutrition.AmountFromPtr(sodium),
	}
}

// EntryToModel converts a library entry to its persistence shape.
func EntryToModel(e *library.Entry) *LibraryEntryModel {
	return &LibraryEntryModel{
		ID:              e.ID(),
		OwnerID:         e.OwnerID(),
		NormalizedName:  e.NormalizedName(),
		DisplayName:     e.DisplayName(),
		Category:        e.Category(),
		SampleSize:      e.SampleSize(),
		AvgCalories:     e.AvgCalories(),
		M2Calories:      e.M2Calories(),
		StddevCalories:  e.StddevCalories(),
		AvgProteinG:     e.AvgProteinG(),
		AvgFatG:         e.AvgFatG(),
		AvgCarbsG:       e.AvgCarbsG(),
		Confidence:      e.Confidence(),
		TypicalQuantity: e.TypicalQuantity(),
		TypicalUnit:     e.TypicalUnit(),
		LastUsed:        e.LastUsed(),
		CreatedAt:       e.CreatedAt(),
		UpdatedAt:       e.UpdatedAt(),
	}
}

// ModelToEntry reconstructs a library entry from its persistence shape.
func ModelToEntry(model *LibraryEntryModel) *library.Entry {
	return library.ReconstructEntry(
		model.ID,
		model.OwnerID,
		model.DisplayName,
		model.NormalizedName,
		model.Category,
		model.SampleSize,
		model.AvgCalories,
		model.M2Calories,
		model.StddevCalories,
		model.AvgProteinG,
		model.AvgFatG,
		model.AvgCarbsG,
		model.Confidence,
		model.TypicalQuantity,
		model.TypicalUnit,
		model.LastUsed,
		model.CreatedAt,
		model.UpdatedAt,
	)
}

// RowToModel converts a correction row to its persistence shape.
func RowToModel(r correction.Row) *CorrectionLogModel {
	return &CorrectionLogModel{
		ID:                      r.ID,
		MealID:                  r.MealID,
		OwnerID:                 r.OwnerID,
		FieldName:               r.FieldName,
		AiValue:                 r.AiValue,
		UserValue:               r.UserValue,
		AbsoluteError:           r.AbsoluteError,
		PercentError:            r.PercentError,
		ConfidenceAtAnalysis:    r.ConfidenceAtAnalysis,
		LocationType:            r.LocationType,
		MealDescriptionSnapshot: r.MealDescriptionSnapshot,
		EditDigest:              r.EditDigest,
		FieldKey:                r.FieldName,
		AiAnalyzedAt:            r.AiAnalyzedAt,
		CorrectedAt:             r.CorrectedAt,
	}
}

// ModelToRow reconstructs a correction row from its persistence shape.
func ModelToRow(model *CorrectionLogModel) correction.Row {
	return correction.Row{
		ID:                      model.ID,
		MealID:                  model.MealID,
		OwnerID:                 model.OwnerID,
		FieldName:               model.FieldName,
		AiValue:                 model.AiValue,
		UserValue:               model.UserValue,
		AbsoluteError:           model.AbsoluteError,
		PercentError:            model.PercentError,
		ConfidenceAtAnalysis:    model.ConfidenceAtAnalysis,
		LocationType:            model.LocationType,
		MealDescriptionSnapshot: model.MealDescriptionSnapshot,
		EditDigest:              model.EditDigest,
		AiAnalyzedAt:            model.AiAnalyzedAt,
		CorrectedAt:             model.CorrectedAt,
	}
}

// PatternToModel converts a recipe pattern to its persistence shape.
func PatternToModel(p *pattern.Pattern) *RecipePatternModel {
	companions := make(CompanionSlice, 0, len(p.Companions()))
	for _, c := range p.Companions() {
		companions = append(companions, CompanionJSON{
			Name:            c.Name,
			TypicalQuantity: c.TypicalQuantity,
			Unit:            c.Unit,
			Observations:    c.Observations,
		})
	}
	return &RecipePatternModel{
		ID:         p.ID(),
		OwnerID:    p.OwnerID(),
		RecipeName: p.RecipeName(),
		Keywords:   StringSlice(p.Keywords()),
		Companions: companions,
		TimesMade:  p.TimesMade(),
		LastMade:   p.LastMade(),
		CreatedAt:  p.CreatedAt(),
		UpdatedAt:  p.UpdatedAt(),
	}
}

// ModelToPattern reconstructs a recipe pattern from its persistence shape.
func ModelToPattern(model *RecipePatternModel) *pattern.Pattern {
	companions := make([]pattern.Companion, 0, len(model.Companions))
	for _, c := range model.Companions {
		companions = append(companions, pattern.Companion{
			Name:            c.Name,
			TypicalQuantity: c.TypicalQuantity,
			Unit:            c.Unit,
			Observations:    c.Observations,
		})
	}
	return pattern.ReconstructPattern(
		model.ID,
		model.OwnerID,
		model.RecipeName,
		model.Keywords,
		companions,
		model.TimesMade,
		model.LastMade,
		model.CreatedAt,
		model.UpdatedAt,
	)
}
