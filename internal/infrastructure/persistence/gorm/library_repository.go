package gorm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/platewise/v1/internal/domain/library"
	"github.com/platewise/v1/internal/ports/outbound"
)

// HighConfidenceThreshold marks library entries trusted enough to surface
// prominently in stats.
const HighConfidenceThreshold = 0.7

// LibraryRepository implements the ingredient library repository using GORM
type LibraryRepository struct {
	db *gorm.DB
}

// NewLibraryRepository creates a new ingredient library repository
func NewLibraryRepository(db *gorm.DB) outbound.LibraryRepository {
	return &LibraryRepository{db: db}
}

// FindByNormalizedName loads one entry by its natural key.
func (r *LibraryRepository) FindByNormalizedName(ctx context.Context, ownerID uuid.UUID, normalizedName string) (*library.Entry, error) {
	var model LibraryEntryModel

	result := dbFrom(ctx, r.db).
		First(&model, "owner_id = ? AND normalized_name = ?", ownerID, normalizedName)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, outbound.ErrNotFound
		}
		return nil, fmt.Errorf("finding library entry: %w", result.Error)
	}

	return ModelToEntry(&model), nil
}

// ListByOwner returns every entry for one user, most confident first.
func (r *LibraryRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*library.Entry, error) {
	var models []LibraryEntryModel

	result := dbFrom(ctx, r.db).
		Where("owner_id = ?", ownerID).
		Order("confidence DESC, normalized_name ASC").
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("listing library entries: %w", result.Error)
	}

	entries := make([]*library.Entry, 0, len(models))
	for i := range models {
		entries = append(entries, ModelToEntry(&models[i]))
	}
	return entries, nil
}

// SearchByName matches display names case-insensitively by substring,
// ordered by confidence descending.
func (r *LibraryRepository) SearchByName(ctx context.Context, ownerID uuid.UUID, query string, limit int) ([]*library.Entry, error) {
	var models []LibraryEntryModel

	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	result := dbFrom(ctx, r.db).
		Where("owner_id = ? AND LOWER(display_name) LIKE ?", ownerID, pattern).
		Order("confidence DESC, sample_size DESC").
		Limit(limit).
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("searching library entries: %w", result.Error)
	}

	entries := make([]*library.Entry, 0, len(models))
	for i := range models {
		entries = append(entries, ModelToEntry(&models[i]))
	}
	return entries, nil
}

// Save upserts an entry on its (owner_id, normalized_name) key. The learner
// serializes writers per key, so last-write-wins on the row is safe.
func (r *LibraryRepository) Save(ctx context.Context, entry *library.Entry) error {
	model := EntryToModel(entry)

	err := dbFrom(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "owner_id"}, {Name: "normalized_name"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"display_name", "category",
				"sample_size", "avg_calories_per_100g", "m2_calories", "stddev_calories",
				"avg_protein_per_100g", "avg_fat_per_100g", "avg_carbs_per_100g",
				"confidence", "typical_quantity", "typical_unit",
				"last_used", "updated_at",
			}),
		}).
		Create(model).Error
	if err != nil {
		return fmt.Errorf("saving library entry: %w", mapWriteError(err))
	}
	return nil
}

// Stats aggregates one user's library in a single query.
func (r *LibraryRepository) Stats(ctx context.Context, ownerID uuid.UUID) (outbound.LibraryStats, error) {
	var row struct {
		TotalEntries        int64
		AvgConfidence       *float64
		HighConfidenceCount int64
	}

	err := dbFrom(ctx, r.db).
		Model(&LibraryEntryModel{}).
		Select(
			"COUNT(*) AS total_entries, "+
				"AVG(confidence) AS avg_confidence, "+
				"SUM(CASE WHEN confidence >= ? THEN 1 ELSE 0 END) AS high_confidence_count",
			HighConfidenceThreshold,
		).
		Where("owner_id = ?", ownerID).
		Scan(&row).Error
	if err != nil {
		return outbound.LibraryStats{}, fmt.Errorf("aggregating library stats: %w", err)
	}

	stats := outbound.LibraryStats{
		TotalEntries:        row.TotalEntries,
		HighConfidenceCount: row.HighConfidenceCount,
	}
	if row.AvgConfidence != nil {
		stats.AvgConfidence = *row.AvgConfidence
	}
	return stats, nil
}
