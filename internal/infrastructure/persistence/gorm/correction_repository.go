package gorm

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platewise/v1/internal/domain/correction"
	"github.com/platewise/v1/internal/ports/outbound"
)

// CorrectionLogRepository implements the append-only correction log using GORM
type CorrectionLogRepository struct {
	db *gorm.DB
}

// NewCorrectionLogRepository creates a new correction log repository
func NewCorrectionLogRepository(db *gorm.DB) outbound.CorrectionLogRepository {
	return &CorrectionLogRepository{db: db}
}

// AppendAll inserts every row of one edit in a single statement. A unique
// violation on (edit_digest, field_key) means the same edit already landed;
// that surfaces as ErrDuplicateEdit so the caller can treat it as done.
func (r *CorrectionLogRepository) AppendAll(ctx context.Context, rows []correction.Row) error {
	if len(rows) == 0 {
		return nil
	}

	models := make([]*CorrectionLogModel, 0, len(rows))
	for _, row := range rows {
		models = append(models, RowToModel(row))
	}

	err := dbFrom(ctx, r.db).Create(&models).Error
	if err != nil {
		if errors.Is(mapWriteError(err), outbound.ErrConflict) {
			return outbound.ErrDuplicateEdit
		}
		return fmt.Errorf("appending correction rows: %w", err)
	}
	return nil
}

// HasEditDigest reports whether any row of the given edit was already logged.
func (r *CorrectionLogRepository) HasEditDigest(ctx context.Context, digest string) (bool, error) {
	var count int64

	err := dbFrom(ctx, r.db).
		Model(&CorrectionLogModel{}).
		Where("edit_digest = ?", digest).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking edit digest: %w", err)
	}
	return count > 0, nil
}

// List returns one user's correction rows, newest first.
func (r *CorrectionLogRepository) List(ctx context.Context, ownerID uuid.UUID, filter outbound.CorrectionFilter) ([]correction.Row, error) {
	query := dbFrom(ctx, r.db).
		Model(&CorrectionLogModel{}).
		Where("owner_id = ?", ownerID)

	if filter.FieldName != "" {
		query = query.Where("field_name = ?", filter.FieldName)
	}
	if filter.Since != nil {
		query = query.Where("corrected_at >= ?", *filter.Since)
	}
	if filter.Until != nil {
		query = query.Where("corrected_at < ?", *filter.Until)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var models []CorrectionLogModel
	if err := query.Order("corrected_at DESC, id ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("listing correction rows: %w", err)
	}

	rows := make([]correction.Row, 0, len(models))
	for i := range models {
		rows = append(rows, ModelToRow(&models[i]))
	}
	return rows, nil
}
