package outbound

import (
	"context"
	"errors"
	"fmt"
)

// AnalysisErrorKind classifies analyzer failures so the caller can decide
// what to retry.
type AnalysisErrorKind string

const (
	AnalysisTransportError AnalysisErrorKind = "transport_error"
	AnalysisRateLimited    AnalysisErrorKind = "rate_limited"
	AnalysisParseError     AnalysisErrorKind = "parse_error"
	AnalysisTimeout        AnalysisErrorKind = "timeout"
)

// AnalysisError is a typed analyzer failure. RawPayload carries whatever the
// model returned when the failure was a parse error, so it can be retained.
type AnalysisError struct {
	Kind       AnalysisErrorKind
	RawPayload string
	Cause      error
}

func (e *AnalysisError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("analysis %s: %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("analysis %s", e.Kind)
}

func (e *AnalysisError) Unwrap() error { return e.Cause }

// Retryable reports whether the failure is transient. Parse errors are not:
// the same payload would fail again.
func (e *AnalysisError) Retryable() bool {
	return e.Kind != AnalysisParseError
}

// AsAnalysisError extracts a typed analysis error from an error chain.
func AsAnalysisError(err error) (*AnalysisError, bool) {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// AnalysisRequest is what the analyzer needs to estimate one meal. At least
// one of ImageHandle and Description is present.
type AnalysisRequest struct {
	ImageHandle string
	Description string
	LocationTag string
	TimeBucket  string
}

// EstimatedIngredient is one ingredient the analyzer decomposed out of the
// meal, with an absolute per-portion nutrition block.
type EstimatedIngredient struct {
	Name     string
	Category string
	Quantity float64
	Unit     string

	Calories     *float64
	ProteinG     *float64
	FatG         *float64
	SaturatedG   *float64
	CarbsG       *float64
	FiberG       *float64
	SugarG       *float64
	SodiumMg     *float64
}

// AnalysisResult is the analyzer's structured reply. Fallback marks synthetic
// low-confidence estimates produced without the model; downstream components
// must not train on those.
type AnalysisResult struct {
	Calories   *float64
	ProteinG   *float64
	FatG       *float64
	SaturatedG *float64
	CarbsG     *float64
	FiberG     *float64
	SugarG     *float64
	SodiumMg   *float64

	Ingredients []EstimatedIngredient
	Confidence  float64

	// Enrichment tags the model may volunteer; all optional.
	ProcessingLevel string
	GlycemicIndex   *float64
	Plants          []string

	RawPayload string
	Fallback   bool
}

// NutritionAnalyzer is the outbound port to the vision/text nutrition model.
// Implementations return either a structured result or an *AnalysisError.
type NutritionAnalyzer interface {
	Analyze(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error)
}
