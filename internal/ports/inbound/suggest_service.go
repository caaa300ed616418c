package inbound

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Prediction is an auto-fill candidate drawn from the user's library. The
// nutrition block is scaled to the typical quantity; the caller decides from
// confidence and sample size whether to auto-apply or merely suggest.
type Prediction struct {
	Name            string         `json:"name"`
	NormalizedName  string         `json:"normalized_name"`
	Category        string         `json:"category,omitempty"`
	Quantity        float64        `json:"quantity"`
	Unit            string         `json:"unit"`
	Nutrition       NutritionPatch `json:"nutrition"`
	NutritionPer100 NutritionPatch `json:"nutrition_per_100g"`
	Confidence      float64        `json:"confidence"`
	SampleSize      int64          `json:"sample_size"`
	MatchDistance   int            `json:"match_distance"`
}

// CompanionSuggestion is one ingredient the user habitually combines with the
// meal's primary but has not entered yet.
type CompanionSuggestion struct {
	Name            string  `json:"name"`
	TypicalQuantity float64 `json:"typical_quantity"`
	Unit            string  `json:"unit"`
	Observations    int64   `json:"observations"`
}

// LibraryStatsView summarizes one user's library.
type LibraryStatsView struct {
	TotalEntries        int64   `json:"total"`
	AvgConfidence       float64 `json:"avg_confidence"`
	HighConfidenceCount int64   `json:"high_confidence_count"`
}

// CorrectionView is one correction-log row as exposed to analytics readers.
type CorrectionView struct {
	ID                   uuid.UUID  `json:"id"`
	MealID               uuid.UUID  `json:"meal_id"`
	FieldName            string     `json:"field_name"`
	AiValue              float64    `json:"ai_value"`
	UserValue            float64    `json:"user_value"`
	AbsoluteError        float64    `json:"absolute_error"`
	PercentError         float64    `json:"percent_error"`
	ConfidenceAtAnalysis *float64   `json:"confidence_at_analysis,omitempty"`
	LocationType         string     `json:"location_type,omitempty"`
	Description          string     `json:"meal_description,omitempty"`
	AiAnalyzedAt         *time.Time `json:"ai_analyzed_at,omitempty"`
	CorrectedAt          time.Time  `json:"corrected_at"`
}

// ListCorrectionsQuery narrows a correction listing.
type ListCorrectionsQuery struct {
	FieldName string
	Since     *time.Time
	Until     *time.Time
	Offset    int
	Limit     int
}

// SuggestionService is the inbound port for predictions, auto-complete,
// companion suggestions, and library analytics.
type SuggestionService interface {
	GetPrediction(ctx context.Context, ownerID uuid.UUID, name string) (*Prediction, error)
	SearchPredictions(ctx context.Context, ownerID uuid.UUID, prefix string, limit int) ([]Prediction, error)
	GetMissingSuggestions(ctx context.Context, ownerID, mealID uuid.UUID) ([]CompanionSuggestion, error)
	GetLibraryStats(ctx context.Context, ownerID uuid.UUID) (*LibraryStatsView, error)
	ListCorrections(ctx context.Context, ownerID uuid.UUID, query ListCorrectionsQuery) ([]CorrectionView, error)
}
