package vision

import (
	"fmt"
	"strings"
)

// promptContext is the deterministic context block fed to the model. The
// same meal with the same context always produces the same prompt text.
type promptContext struct {
	Description string
	LocationTag string
	TimeBucket  string
	HasImage    bool
}

// buildPrompt renders the analysis prompt. It demands strict JSON so the
// parser can hold the model to a schema instead of scraping prose.
func buildPrompt(pc promptContext) string {
	var b strings.Builder

	b.WriteString("You are a nutrition analyst. Estimate the nutrition of one meal.\n")
	if pc.HasImage {
		b.WriteString("A photo of the meal is attached.\n")
	}
	if pc.Description != "" {
		fmt.Fprintf(&b, "The eater describes it as: %q.\n", pc.Description)
	}
	if pc.LocationTag != "" && pc.LocationTag != "unknown" {
		fmt.Fprintf(&b, "It was eaten at a location of type: %s.\n", pc.LocationTag)
	}
	if pc.TimeBucket != "" {
		fmt.Fprintf(&b, "It was eaten in the %s.\n", pc.TimeBucket)
	}

	b.WriteString(`
Respond with exactly one JSON object and nothing else, using this schema:
{
  "calories": <integer >= 0>,
  "protein_g": <number >= 0>,
  "fat_g": <number >= 0>,
  "saturated_fat_g": <number >= 0>,
  "carbs_g": <number >= 0>,
  "fiber_g": <number >= 0>,
  "sugar_g": <number >= 0>,
  "sodium_mg": <number >= 0>,
  "confidence": <number between 0 and 1>,
  "ingredients": [
    {"name": <string>, "quantity": <number > 0>, "unit": <string>,
     "calories": <number>, "protein_g": <number>, "fat_g": <number>,
     "carbs_g": <number>}
  ],
  "processing_level": <optional string>,
  "glycemic_index": <optional number>,
  "plants": <optional array of plant ingredient names>
}
Estimate portions from what you can see or read. Omit a field rather than
guessing wildly. Do not wrap the JSON in markdown fences.`)

	return b.String()
}
