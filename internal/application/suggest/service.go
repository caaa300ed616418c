// Package suggest serves reads over the learned state: auto-fill
// predictions, name auto-complete, missing-companion suggestions, and the
// library and correction analytics.
package suggest

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/platewise/v1/internal/domain/library"
	"github.com/platewise/v1/internal/domain/measure"
	"github.com/platewise/v1/internal/domain/naming"
	"github.com/platewise/v1/internal/ports/inbound"
	"github.com/platewise/v1/internal/ports/outbound"
	apperrors "github.com/platewise/v1/pkg/errors"
)

// Config tunes the read paths.
type Config struct {
	// MaxEditDistance bounds the fuzzy lookup.
	MaxEditDistance int
	// DefaultSearchLimit is the auto-complete size when the caller gives none.
	DefaultSearchLimit int
	// MaxPageSize caps every listing.
	MaxPageSize int
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		MaxEditDistance:    naming.DefaultMaxEditDistance,
		DefaultSearchLimit: 8,
		MaxPageSize:        100,
	}
}

// Service implements the inbound SuggestionService port.
type Service struct {
	entries     outbound.LibraryRepository
	meals       outbound.MealRepository
	patterns    outbound.PatternRepository
	corrections outbound.CorrectionLogRepository
	normalizer  *naming.Normalizer
	converter   *measure.Converter
	cfg         Config
	logger      *zap.Logger
}

// NewService wires the suggestion reads.
func NewService(
	entries outbound.LibraryRepository,
	meals outbound.MealRepository,
	patterns outbound.PatternRepository,
	corrections outbound.CorrectionLogRepository,
	normalizer *naming.Normalizer,
	converter *measure.Converter,
	cfg Config,
	logger *zap.Logger,
) *Service {
	def := DefaultConfig()
	if cfg.MaxEditDistance <= 0 {
		cfg.MaxEditDistance = def.MaxEditDistance
	}
	if cfg.DefaultSearchLimit <= 0 {
		cfg.DefaultSearchLimit = def.DefaultSearchLimit
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = def.MaxPageSize
	}
	return &Service{
		entries:     entries,
		meals:       meals,
		patterns:    patterns,
		corrections: corrections,
		normalizer:  normalizer,
		converter:   converter,
		cfg:         cfg,
		logger:      logger.Named("suggest"),
	}
}

var _ inbound.SuggestionService = (*Service)(nil)

// GetPrediction resolves a name against the owner's library: exact
// normalized match first, then fuzzy within the edit-distance bound.
func (s *Service) GetPrediction(ctx context.Context, ownerID uuid.UUID, name string) (*inbound.Prediction, error) {
	normalized := s.normalizer.Normalize(name)
	if normalized == "" {
		return nil, apperrors.NewBadRequestError("name is required")
	}

	entry, err := s.entries.FindByNormalizedName(ctx, ownerID, normalized)
	if err == nil {
		p := s.prediction(entry, 0)
		return &p, nil
	}
	if !errors.Is(err, outbound.ErrNotFound) {
		return nil, apperrors.NewDatabaseError("load library entry", err)
	}

	all, err := s.entries.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list library", err)
	}
	candidates := make([]string, len(all))
	byName := make(map[string]*library.Entry, len(all))
	for i, e := range all {
		candidates[i] = e.NormalizedName()
		byName[e.NormalizedName()] = e
	}

	match, ok := naming.ClosestMatch(normalized, candidates, s.cfg.MaxEditDistance)
	if !ok {
		return nil, apperrors.NewNotFoundError("prediction")
	}
	p := s.prediction(byName[match.Name], match.Distance)
	return &p, nil
}

// SearchPredictions is the auto-complete path: case-insensitive substring
// search over stored names, ranked by confidence descending.
func (s *Service) SearchPredictions(ctx context.Context, ownerID uuid.UUID, prefix string, limit int) ([]inbound.Prediction, error) {
	query := strings.TrimSpace(prefix)
	if query == "" {
		return nil, apperrors.NewBadRequestError("search prefix is required")
	}
	if limit <= 0 {
		limit = s.cfg.DefaultSearchLimit
	}
	if limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}

	entries, err := s.entries.SearchByName(ctx, ownerID, query, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("search library", err)
	}
	out := make([]inbound.Prediction, 0, len(entries))
	for _, e := range entries {
		out = append(out, s.prediction(e, 0))
	}
	return out, nil
}

// GetMissingSuggestions returns the companions the owner habitually combines
// with the meal's primary ingredient but has not entered yet.
func (s *Service) GetMissingSuggestions(ctx context.Context, ownerID, mealID uuid.UUID) ([]inbound.CompanionSuggestion, error) {
	m, err := s.meals.FindByID(ctx, mealID)
	if err != nil {
		if errors.Is(err, outbound.ErrNotFound) {
			return nil, apperrors.NewMealNotFoundError(mealID.String())
		}
		return nil, apperrors.NewDatabaseError("load meal", err)
	}
	if m.OwnerID() != ownerID {
		return nil, apperrors.NewNotMealOwnerError()
	}

	primary, ok := m.PrimaryIngredient()
	if !ok {
		return nil, nil
	}
	primaryName := s.normalizer.Normalize(primary.Name)

	p, err := s.patterns.FindByRecipeName(ctx, ownerID, primaryName)
	if err != nil {
		if errors.Is(err, outbound.ErrNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewDatabaseError("load pattern", err)
	}

	present := make(map[string]bool, len(m.Ingredients()))
	for _, ing := range m.Ingredients() {
		present[s.normalizer.Normalize(ing.Name)] = true
	}

	var out []inbound.CompanionSuggestion
	for _, c := range p.Suggest(present) {
		out = append(out, inbound.CompanionSuggestion{
			Name:            c.Name,
			TypicalQuantity: c.TypicalQuantity,
			Unit:            c.Unit,
			Observations:    c.Observations,
		})
	}
	return out, nil
}

// GetLibraryStats summarizes the owner's library.
func (s *Service) GetLibraryStats(ctx context.Context, ownerID uuid.UUID) (*inbound.LibraryStatsView, error) {
	stats, err := s.entries.Stats(ctx, ownerID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("library stats", err)
	}
	return &inbound.LibraryStatsView{
		TotalEntries:        stats.TotalEntries,
		AvgConfidence:       stats.AvgConfidence,
		HighConfidenceCount: stats.HighConfidenceCount,
	}, nil
}

// ListCorrections reads the owner's correction history, newest first.
func (s *Service) ListCorrections(ctx context.Context, ownerID uuid.UUID, query inbound.ListCorrectionsQuery) ([]inbound.CorrectionView, error) {
	limit := query.Limit
	if limit <= 0 || limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}
	rows, err := s.corrections.List(ctx, ownerID, outbound.CorrectionFilter{
		FieldName: query.FieldName,
		Since:     query.Since,
		Until:     query.Until,
		Offset:    query.Offset,
		Limit:     limit,
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("list corrections", err)
	}

	out := make([]inbound.CorrectionView, 0, len(rows))
	for _, r := range rows {
		out = append(out, inbound.CorrectionView{
			ID:                   r.ID,
			MealID:               r.MealID,
			FieldName:            r.FieldName,
			AiValue:              r.AiValue,
			UserValue:            r.UserValue,
			AbsoluteError:        r.AbsoluteError,
			PercentError:         r.PercentError,
			ConfidenceAtAnalysis: r.ConfidenceAtAnalysis,
			LocationType:         r.LocationType,
			Description:          r.MealDescriptionSnapshot,
			AiAnalyzedAt:         r.AiAnalyzedAt,
			CorrectedAt:          r.CorrectedAt,
		})
	}
	return out, nil
}

// prediction scales a library entry to its typical portion. An entry whose
// typical unit no longer resolves falls back to the bare per-100g reading.
func (s *Service) prediction(e *library.Entry, distance int) inbound.Prediction {
	per100 := e.AvgPer100g()
	quantity := e.TypicalQuantity()
	unit := e.TypicalUnit()

	factor, err := s.converter.PortionFactor(quantity, unit)
	if err != nil || factor <= 0 {
		quantity = measure.ReferenceGrams
		unit = "g"
		factor = 1
	}

	return inbound.Prediction{
		Name:            e.DisplayName(),
		NormalizedName:  e.NormalizedName(),
		Category:        e.Category(),
		Quantity:        quantity,
		Unit:            unit,
		Nutrition:       inbound.PatchFromFacts(per100.Scale(factor)),
		NutritionPer100: inbound.PatchFromFacts(per100),
		Confidence:      e.Confidence(),
		SampleSize:      e.SampleSize(),
		MatchDistance:   distance,
	}
}
