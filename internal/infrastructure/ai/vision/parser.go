package vision

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/platewise/v1/internal/ports/outbound"
)

// nutritionReply is the strict schema the model must produce. Every numeric
// field is a pointer so absence is distinguishable from zero.
type nutritionReply struct {
	Calories   *float64 `json:"calories"`
	ProteinG   *float64 `json:"protein_g"`
	FatG       *float64 `json:"fat_g"`
	SaturatedG *float64 `json:"saturated_fat_g"`
	CarbsG     *float64 `json:"carbs_g"`
	FiberG     *float64 `json:"fiber_g"`
	SugarG     *float64 `json:"sugar_g"`
	SodiumMg   *float64 `json:"sodium_mg"`
	Confidence *float64 `json:"confidence"`

	Ingredients []ingredientReply `json:"ingredients"`

	ProcessingLevel string   `json:"processing_level"`
	GlycemicIndex   *float64 `json:"glycemic_index"`
	Plants          []string `json:"plants"`
}

type ingredientReply struct {
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Quantity *float64 `json:"quantity"`
	Unit     string   `json:"unit"`

	Calories   *float64 `json:"calories"`
	ProteinG   *float64 `json:"protein_g"`
	FatG       *float64 `json:"fat_g"`
	SaturatedG *float64 `json:"saturated_fat_g"`
	CarbsG     *float64 `json:"carbs_g"`
	FiberG     *float64 `json:"fiber_g"`
	SugarG     *float64 `json:"sugar_g"`
	SodiumMg   *float64 `json:"sodium_mg"`
}

// parseReply extracts and validates the model's JSON. Models wrap replies in
// prose or markdown fences despite instructions, so the first balanced
// {...} block is taken. Anything out of schema is a parse error, never a
// validation failure.
func parseReply(raw string) (*outbound.AnalysisResult, error) {
	blob, err := extractJSONObject(raw)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(strings.NewReader(blob))
	dec.DisallowUnknownFields()
	var reply nutritionReply
	if err := dec.Decode(&reply); err != nil {
		// Retry tolerantly: unknown fields are extra enrichment, not
		// schema violations.
		if err := json.Unmarshal([]byte(blob), &reply); err != nil {
			return nil, fmt.Errorf("decoding reply: %w", err)
		}
	}

	if reply.Calories == nil {
		return nil, fmt.Errorf("reply missing required field calories")
	}
	if *reply.Calories < 0 {
		return nil, fmt.Errorf("reply calories negative: %f", *reply.Calories)
	}
	confidence := 0.5
	if reply.Confidence != nil {
		confidence = *reply.Confidence
		if confidence < 0 || confidence > 1 {
			return nil, fmt.Errorf("reply confidence out of range: %f", confidence)
		}
	}

	result := &outbound.AnalysisResult{
		Calories:        reply.Calories,
		ProteinG:        reply.ProteinG,
		FatG:            reply.FatG,
		SaturatedG:      reply.SaturatedG,
		CarbsG:          reply.CarbsG,
		FiberG:          reply.FiberG,
		SugarG:          reply.SugarG,
		SodiumMg:        reply.SodiumMg,
		Confidence:      confidence,
		ProcessingLevel: reply.ProcessingLevel,
		GlycemicIndex:   reply.GlycemicIndex,
		Plants:          reply.Plants,
		RawPayload:      raw,
	}

	for _, ing := range reply.Ingredients {
		if ing.Name == "" || ing.Quantity == nil || *ing.Quantity <= 0 {
			return nil, fmt.Errorf("reply ingredient %q missing name or positive quantity", ing.Name)
		}
		unit := ing.Unit
		if unit == "" {
			unit = "serving"
		}
		result.Ingredients = append(result.Ingredients, outbound.EstimatedIngredient{
			Name:       ing.Name,
			Category:   ing.Category,
			Quantity:   *ing.Quantity,
			Unit:       unit,
			Calories:   ing.Calories,
			ProteinG:   ing.ProteinG,
			FatG:       ing.FatG,
			SaturatedG: ing.SaturatedG,
			CarbsG:     ing.CarbsG,
			FiberG:     ing.FiberG,
			SugarG:     ing.SugarG,
			SodiumMg:   ing.SodiumMg,
		})
	}

	return result, nil
}

// extractJSONObject returns the first balanced top-level {...} block.
func extractJSONObject(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", fmt.Errorf("no JSON object in reply")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced JSON object in reply")
}
