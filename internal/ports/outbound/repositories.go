// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces that the application uses to interact with external systems
package outbound

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/platewise/v1/internal/domain/correction"
	"github.com/platewise/v1/internal/domain/library"
	"github.com/platewise/v1/internal/domain/meal"
	"github.com/platewise/v1/internal/domain/pattern"
)

// Transactor runs a function inside one database transaction. Repository
// calls made with the context it passes participate in that transaction;
// the transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	Transact(ctx context.Context, fn func(ctx context.Context) error) error
}

// MealRepository persists the meal aggregate, ingredients included.
// Writes are atomic across the meal row and its ingredient rows.
type MealRepository interface {
	Create(ctx context.Context, m *meal.Meal) error
	Update(ctx context.Context, m *meal.Meal) error
	FindByID(ctx context.Context, id uuid.UUID) (*meal.Meal, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// LibraryStats summarizes one user's ingredient library.
type LibraryStats struct {
	TotalEntries        int64
	AvgConfidence       float64
	HighConfidenceCount int64
}

// LibraryRepository persists per-user ingredient library entries, keyed by
// (owner_id, normalized_name).
type LibraryRepository interface {
	FindByNormalizedName(ctx context.Context, ownerID uuid.UUID, normalizedName string) (*library.Entry, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*library.Entry, error)
	// SearchByName matches display names case-insensitively by substring,
	// ordered by confidence descending.
	SearchByName(ctx context.Context, ownerID uuid.UUID, query string, limit int) ([]*library.Entry, error)
	Save(ctx context.Context, entry *library.Entry) error
	Stats(ctx context.Context, ownerID uuid.UUID) (LibraryStats, error)
}

// CorrectionFilter narrows a correction-log listing.
type CorrectionFilter struct {
	FieldName string
	Since     *time.Time
	Until     *time.Time
	Offset    int
	Limit     int
}

// CorrectionLogRepository appends and reads the correction telemetry log.
// The log is append-only: there is no update or delete path.
type CorrectionLogRepository interface {
	// AppendAll writes every row of one edit atomically.
	AppendAll(ctx context.Context, rows []correction.Row) error
	HasEditDigest(ctx context.Context, digest string) (bool, error)
	List(ctx context.Context, ownerID uuid.UUID, filter CorrectionFilter) ([]correction.Row, error)
}

// PatternRepository persists per-user recipe patterns, keyed by
// (owner_id, recipe_name).
type PatternRepository interface {
	FindByRecipeName(ctx context.Context, ownerID uuid.UUID, recipeName string) (*pattern.Pattern, error)
	Save(ctx context.Context, p *pattern.Pattern) error
}

// AnalysisPayloadRepository retains the verbatim analyzer response for meals
// that failed analysis or validation, so the user can see what the model
// actually said.
type AnalysisPayloadRepository interface {
	Save(ctx context.Context, mealID uuid.UUID, payload string, receivedAt time.Time) error
	FindByMealID(ctx context.Context, mealID uuid.UUID) (string, error)
}
