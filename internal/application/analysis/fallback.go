package analysis

import (
	"strings"

	"github.com/platewise/v1/internal/ports/outbound"
)

// Fallback conservative estimate: a modest mixed meal. The values only need
// to be editable starting points, never training data.
const (
	fallbackCalories   = 350.0
	fallbackProteinG   = 15.0
	fallbackFatG       = 12.0
	fallbackCarbsG     = 45.0
	fallbackConfidence = 0.25
)

// Fallback returns the synthetic low-confidence estimate served when the
// analyzer is unavailable. The result is tagged Fallback so the learner and
// telemetry ignore it.
func Fallback(description string) *outbound.AnalysisResult {
	calories := fallbackCalories
	protein := fallbackProteinG
	fat := fallbackFatG
	carbs := fallbackCarbsG

	// A description that reads like a light meal gets the low end of the
	// conservative band.
	lower := strings.ToLower(description)
	for _, hint := range []string{"snack", "salad", "fruit", "tea", "coffee"} {
		if strings.Contains(lower, hint) {
			calories = 200
			protein = 6
			fat = 8
			carbs = 25
			break
		}
	}

	confidence := fallbackConfidence
	return &outbound.AnalysisResult{
		Calories:   &calories,
		ProteinG:   &protein,
		FatG:       &fat,
		CarbsG:     &carbs,
		Confidence: confidence,
		Fallback:   true,
	}
}
