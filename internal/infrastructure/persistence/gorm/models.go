// Package gorm provides GORM model definitions for the application
package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MealModel represents the GORM model for meals
type MealModel struct {
	ID          uuid.UUID `gorm:"type:char(36);primaryKey"`
	OwnerID     uuid.UUID `gorm:"type:char(36);not null;index:idx_meals_owner_time"`
	MealTime    time.Time `gorm:"not null;index:idx_meals_owner_time"`
	MealType    string    `gorm:"type:varchar(20);not null"`
	Description string    `gorm:"type:text"`
	ImageHandle string    `gorm:"type:text"`

	// Nutrition summary; every field nullable so absence survives the round trip
	Calories   *float64
	ProteinG   *float64
	FatG       *float64
	SaturatedG *float64 `gorm:"column:saturated_fat_g"`
	CarbsG     *float64
	FiberG     *float64
	SugarG     *float64
	SodiumMg   *float64

	Confidence     float64 `gorm:"default:0"`
	AnalysisStatus string  `gorm:"type:varchar(20);not null;index"`
	UserEdited     bool    `gorm:"default:false"`

	// Location context tags
	LocationIsRestaurant bool   `gorm:"default:false"`
	LocationIsHome       bool   `gorm:"default:false"`
	PlaceType            string `gorm:"type:varchar(100)"`

	AIAnalyzedAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Relationships
	Ingredients []MealIngredientModel `gorm:"foreignKey:MealID;constraint:OnDelete:CASCADE"`
}

func (MealModel) TableName() string { return "meals" }

// MealIngredientModel represents the GORM model for meal ingredients
type MealIngredientModel struct {
	ID       uuid.UUID `gorm:"type:char(36);primaryKey"`
	MealID   uuid.UUID `gorm:"type:char(36);not null;index"`
	Name     string    `gorm:"type:varchar(255);not null"`
	Category string    `gorm:"type:varchar(100)"`
	Quantity float64   `gorm:"not null"`
	Unit     string    `gorm:"type:varchar(50);not null"`

	Calories   *float64
	ProteinG   *float64
	FatG       *float64
	SaturatedG *float64 `gorm:"column:saturated_fat_g"`
	CarbsG     *float64
	FiberG     *float64
	SugarG     *float64
	SodiumMg   *float64

	IsAIExtracted   bool     `gorm:"default:false"`
	IsUserCorrected bool     `gorm:"default:false"`
	AIConfidence    *float64 `gorm:"column:ai_confidence"`
	DisplayOrder    int      `gorm:"default:0"`
}

func (MealIngredientModel) TableName() string { return "meal_ingredients" }

// LibraryEntryModel represents the GORM model for user ingredient library entries
type LibraryEntryModel struct {
	ID             uuid.UUID `gorm:"type:char(36);primaryKey"`
	OwnerID        uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_library_owner_name"`
	NormalizedName string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_library_owner_name"`
	DisplayName    string    `gorm:"type:varchar(255);not null"`
	Category       string    `gorm:"type:varchar(100)"`

	SampleSize     int64   `gorm:"not null;default:0"`
	AvgCalories    float64 `gorm:"column:avg_calories_per_100g"`
	M2Calories     float64 `gorm:"column:m2_calories"`
	StddevCalories float64 `gorm:"column:stddev_calories"`
	AvgProteinG    float64 `gorm:"column:avg_protein_per_100g"`
	AvgFatG        float64 `gorm:"column:avg_fat_per_100g"`
	AvgCarbsG      float64 `gorm:"column:avg_carbs_per_100g"`

	Confidence      float64 `gorm:"default:0;index"`
	TypicalQuantity float64
	TypicalUnit     string `gorm:"type:varchar(50)"`

	LastUsed  time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (LibraryEntryModel) TableName() string { return "user_ingredient_library" }

// CorrectionLogModel represents the GORM model for the append-only AI
// correction log. Rows are inserted, never updated or deleted.
type CorrectionLogModel struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey"`
	MealID    uuid.UUID `gorm:"type:char(36);not null;index"`
	OwnerID   uuid.UUID `gorm:"type:char(36);not null;index:idx_corrections_owner_time"`
	FieldName string    `gorm:"type:varchar(50);not null;index:idx_corrections_field_time"`

	AiValue       float64 `gorm:"not null"`
	UserValue     float64 `gorm:"not null"`
	AbsoluteError float64 `gorm:"not null"`
	PercentError  float64 `gorm:"not null"`

	ConfidenceAtAnalysis    *float64
	LocationType            string `gorm:"type:varchar(100)"`
	MealDescriptionSnapshot string `gorm:"type:varchar(255)"`

	// One digest per edit; the composite unique key dedups redelivered
	// edits without blocking multiple fields of the same edit.
	EditDigest string `gorm:"type:char(64);not null;uniqueIndex:idx_corrections_digest_field"`
	FieldKey   string `gorm:"type:varchar(50);not null;uniqueIndex:idx_corrections_digest_field"`

	AiAnalyzedAt *time.Time
	CorrectedAt  time.Time `gorm:"not null;index:idx_corrections_owner_time,sort:desc;index:idx_corrections_field_time"`
}

func (CorrectionLogModel) TableName() string { return "ai_correction_log" }

// RecipePatternModel represents the GORM model for user recipe patterns
type RecipePatternModel struct {
	ID         uuid.UUID      `gorm:"type:char(36);primaryKey"`
	OwnerID    uuid.UUID      `gorm:"type:char(36);not null;uniqueIndex:idx_patterns_owner_name"`
	RecipeName string         `gorm:"type:varchar(255);not null;uniqueIndex:idx_patterns_owner_name"`
	Keywords   StringSlice    `gorm:"type:json"`
	Companions CompanionSlice `gorm:"type:json"`
	TimesMade  int64          `gorm:"not null;default:0"`
	LastMade   time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (RecipePatternModel) TableName() string { return "user_recipe_patterns" }

// AnalysisPayloadModel retains the verbatim analyzer response for failed or
// review-flagged meals.
type AnalysisPayloadModel struct {
	MealID     uuid.UUID `gorm:"type:char(36);primaryKey"`
	Payload    string    `gorm:"type:text;not null"`
	ReceivedAt time.Time `gorm:"not null"`
}

func (AnalysisPayloadModel) TableName() string { return "meal_analysis_payloads" }

// StringSlice custom type for handling string slices in JSON
type StringSlice []string

// Scan implements the sql.Scanner interface
func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = StringSlice{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("cannot scan %T into StringSlice", value)
	}
}

// Value implements the driver.Valuer interface
func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	return string(b), err
}

// CompanionJSON is the stored shape of one pattern companion.
type CompanionJSON struct {
	Name            string  `json:"name"`
	TypicalQuantity float64 `json:"typical_quantity"`
	Unit            string  `json:"unit"`
	Observations    int64   `json:"observations"`
}

// CompanionSlice custom type for handling companion lists in JSON
type CompanionSlice []CompanionJSON

// Scan implements the sql.Scanner interface
func (c *CompanionSlice) Scan(value interface{}) error {
	if value == nil {
		*c = CompanionSlice{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("cannot scan %T into CompanionSlice", value)
	}
}

// Value implements the driver.Valuer interface
func (c CompanionSlice) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	b, err := json.Marshal(c)
	return string(b), err
}
