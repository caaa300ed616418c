package gorm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/platewise/v1/internal/ports/outbound"
)

// AnalysisPayloadRepository retains raw analyzer responses using GORM
type AnalysisPayloadRepository struct {
	db *gorm.DB
}

// NewAnalysisPayloadRepository creates a new analysis payload repository
func NewAnalysisPayloadRepository(db *gorm.DB) outbound.AnalysisPayloadRepository {
	return &AnalysisPayloadRepository{db: db}
}

// Save stores the verbatim response for one meal, replacing any earlier one.
func (r *AnalysisPayloadRepository) Save(ctx context.Context, mealID uuid.UUID, payload string, receivedAt time.Time) error {
	model := &AnalysisPayloadModel{
		MealID:     mealID,
		Payload:    payload,
		ReceivedAt: receivedAt,
	}

	err := dbFrom(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "meal_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "received_at"}),
		}).
		Create(model).Error
	if err != nil {
		return fmt.Errorf("saving analysis payload: %w", mapWriteError(err))
	}
	return nil
}

// FindByMealID returns the retained response for one meal.
func (r *AnalysisPayloadRepository) FindByMealID(ctx context.Context, mealID uuid.UUID) (string, error) {
	var model AnalysisPayloadModel

	result := dbFrom(ctx, r.db).First(&model, "meal_id = ?", mealID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", outbound.ErrNotFound
		}
		return "", fmt.Errorf("finding analysis payload: %w", result.Error)
	}
	return model.Payload, nil
}
