// Package learning implements the online learner: every first user
// correction of an ingredient folds a per-100g observation into that user's
// ingredient library using numerically stable running statistics.
package learning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/platewise/v1/internal/domain/library"
	"github.com/platewise/v1/internal/domain/measure"
	"github.com/platewise/v1/internal/domain/naming"
	"github.com/platewise/v1/internal/domain/nutrition"
	"github.com/platewise/v1/internal/infrastructure/monitoring"
	"github.com/platewise/v1/internal/ports/outbound"
)

// CorrectedIngredient is one user-corrected ingredient as the telemetry path
// hands it over: absolute per-portion nutrition plus the portion itself.
type CorrectedIngredient struct {
	DisplayName string
	Category    string
	Quantity    float64
	Unit        string
	Facts       nutrition.Facts
	CorrectedAt time.Time
}

// Service is the online learner. Updates to one (owner, normalized name)
// pair are serialized through a sharded mutex; the repository save runs
// inside whatever transaction the caller's context carries.
type Service struct {
	entries    outbound.LibraryRepository
	normalizer *naming.Normalizer
	converter  *measure.Converter
	params     library.ConfidenceParams
	locks      keyedMutex
	logger     *zap.Logger
	metrics    *monitoring.Metrics
}

// NewService builds the learner.
func NewService(
	entries outbound.LibraryRepository,
	normalizer *naming.Normalizer,
	converter *measure.Converter,
	params library.ConfidenceParams,
	logger *zap.Logger,
	metrics *monitoring.Metrics,
) *Service {
	return &Service{
		entries:    entries,
		normalizer: normalizer,
		converter:  converter,
		params:     params,
		logger:     logger.Named("learner"),
		metrics:    metrics,
	}
}

// Learn folds one corrected ingredient into the owner's library. An
// observation whose unit cannot be resolved to grams is dropped with a
// warning and no library mutation; that never fails the caller's edit.
func (s *Service) Learn(ctx context.Context, ownerID uuid.UUID, ing CorrectedIngredient) error {
	normalized := s.normalizer.Normalize(ing.DisplayName)
	if normalized == "" {
		s.metrics.ObserveLearnerSkip("empty_name")
		return nil
	}

	factor, err := s.converter.Per100gFactor(ing.Quantity, ing.Unit)
	if err != nil {
		s.logger.Warn("dropping observation, cannot resolve grams",
			zap.String("name", ing.DisplayName),
			zap.String("unit", ing.Unit),
			zap.Float64("quantity", ing.Quantity),
			zap.Error(err))
		s.metrics.ObserveLearnerSkip("unresolved_grams")
		return nil
	}

	obs := library.Observation{
		Per100g:    ing.Facts.Scale(factor),
		Quantity:   ing.Quantity,
		Unit:       ing.Unit,
		Category:   ing.Category,
		ObservedAt: ing.CorrectedAt,
	}

	key := ownerID.String() + "|" + normalized
	mu := s.locks.lock(key)
	defer mu.Unlock()

	entry, err := s.entries.FindByNormalizedName(ctx, ownerID, normalized)
	switch {
	case err == nil:
		entry.Observe(obs, s.params)
		entry.SetDisplayName(ing.DisplayName)
	case errors.Is(err, outbound.ErrNotFound):
		entry, err = library.NewEntry(ownerID, ing.DisplayName, normalized, obs, s.params)
		if err != nil {
			return fmt.Errorf("creating library entry: %w", err)
		}
	default:
		return fmt.Errorf("loading library entry: %w", err)
	}

	if err := s.entries.Save(ctx, entry); err != nil {
		return fmt.Errorf("saving library entry: %w", err)
	}

	s.metrics.ObserveLearnerUpdate()
	s.logger.Debug("library entry updated",
		zap.String("normalized_name", normalized),
		zap.Int64("sample_size", entry.SampleSize()),
		zap.Float64("avg_calories_per_100g", entry.AvgCalories()),
		zap.Float64("confidence", entry.Confidence()))
	return nil
}

// Normalizer exposes the learner's normalizer so collaborating services key
// lookups the same way the learner keys writes.
func (s *Service) Normalizer() *naming.Normalizer { return s.normalizer }

// Converter exposes the learner's unit table so the edit path can reject
// unknown units synchronously instead of silently dropping the observation.
func (s *Service) Converter() *measure.Converter { return s.converter }
