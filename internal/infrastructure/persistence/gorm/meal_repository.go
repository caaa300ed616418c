package gorm

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	mealdomain "github.com/platewise/v1/internal/domain/meal"
	"github.com/platewise/v1/internal/ports/outbound"
)

// MealRepository implements the meal repository interface using GORM
type MealRepository struct {
	db *gorm.DB
}

// NewMealRepository creates a new meal repository
func NewMealRepository(db *gorm.DB) outbound.MealRepository {
	return &MealRepository{db: db}
}

// Create inserts a new meal together with its ingredient rows.
func (r *MealRepository) Create(ctx context.Context, m *mealdomain.Meal) error {
	model := MealToModel(m)

	if err := dbFrom(ctx, r.db).Create(model).Error; err != nil {
		return fmt.Errorf("creating meal: %w", mapWriteError(err))
	}
	return nil
}

// Update saves the meal row and replaces its ingredient set. Replacement
// keeps the stored rows identical to the aggregate after adds, removes, and
// reorders, without diffing.
func (r *MealRepository) Update(ctx context.Context, m *mealdomain.Meal) error {
	model := MealToModel(m)
	db := dbFrom(ctx, r.db)

	run := func(tx *gorm.DB) error {
		result := tx.Omit("Ingredients").Save(&MealModel{
			ID:                   model.ID,
			OwnerID:              model.OwnerID,
			MealTime:             model.MealTime,
			MealType:             model.MealType,
			Description:          model.Description,
			ImageHandle:          model.ImageHandle,
			Calories:             model.Calories,
			ProteinG:             model.ProteinG,
			FatG:                 model.FatG,
			SaturatedG:           model.SaturatedG,
			CarbsG:               model.CarbsG,
			FiberG:               model.FiberG,
			SugarG:               model.SugarG,
			SodiumMg:             model.SodiumMg,
			Confidence:           model.Confidence,
			AnalysisStatus:       model.AnalysisStatus,
			UserEdited:           model.UserEdited,
			LocationIsRestaurant: model.LocationIsRestaurant,
			LocationIsHome:       model.LocationIsHome,
			PlaceType:            model.PlaceType,
			AIAnalyzedAt:         model.AIAnalyzedAt,
			CreatedAt:            model.CreatedAt,
			UpdatedAt:            model.UpdatedAt,
		})
		if result.Error != nil {
			return result.Error
		}

		if err := tx.Where("meal_id = ?", model.ID).Delete(&MealIngredientModel{}).Error; err != nil {
			return err
		}
		if len(model.Ingredients) > 0 {
			if err := tx.Create(&model.Ingredients).Error; err != nil {
				return err
			}
		}
		return nil
	}

	var err error
	if _, inTx := ctx.Value(txKey{}).(*gorm.DB); inTx {
		err = run(db)
	} else {
		err = db.Transaction(run)
	}
	if err != nil {
		return fmt.Errorf("updating meal: %w", mapWriteError(err))
	}
	return nil
}

// FindByID loads a meal with its ingredients in display order.
func (r *MealRepository) FindByID(ctx context.Context, id uuid.UUID) (*mealdomain.Meal, error) {
	var model MealModel

	result := dbFrom(ctx, r.db).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC")
		}).
		First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, outbound.ErrNotFound
		}
		return nil, fmt.Errorf("finding meal: %w", result.Error)
	}

	return ModelToMeal(&model), nil
}

// Delete removes a meal; ingredient rows cascade.
func (r *MealRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := dbFrom(ctx, r.db)

	if err := db.Where("meal_id = ?", id).Delete(&MealIngredientModel{}).Error; err != nil {
		return fmt.Errorf("deleting meal ingredients: %w", err)
	}
	result := db.Delete(&MealModel{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("deleting meal: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return outbound.ErrNotFound
	}
	return nil
}
