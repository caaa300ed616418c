package gorm

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/platewise/v1/internal/domain/pattern"
	"github.com/platewise/v1/internal/ports/outbound"
)

// PatternRepository implements the recipe pattern repository using GORM
type PatternRepository struct {
	db *gorm.DB
}

// NewPatternRepository creates a new recipe pattern repository
func NewPatternRepository(db *gorm.DB) outbound.PatternRepository {
	return &PatternRepository{db: db}
}

// FindByRecipeName loads one pattern by its natural key.
func (r *PatternRepository) FindByRecipeName(ctx context.Context, ownerID uuid.UUID, recipeName string) (*pattern.Pattern, error) {
	var model RecipePatternModel

	result := dbFrom(ctx, r.db).
		First(&model, "owner_id = ? AND recipe_name = ?", ownerID, recipeName)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, outbound.ErrNotFound
		}
		return nil, fmt.Errorf("finding recipe pattern: %w", result.Error)
	}

	return ModelToPattern(&model), nil
}

// Save upserts a pattern on its (owner_id, recipe_name) key.
func (r *PatternRepository) Save(ctx context.Context, p *pattern.Pattern) error {
	model := PatternToModel(p)

	err := dbFrom(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "owner_id"}, {Name: "recipe_name"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"keywords", "companions", "times_made", "last_made", "updated_at",
			}),
		}).
		Create(model).Error
	if err != nil {
		return fmt.Errorf("saving recipe pattern: %w", mapWriteError(err))
	}
	return nil
}
