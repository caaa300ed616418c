// Package meal implements the ingestion orchestrator and the edit path:
// meal creation sequences analysis, validation, and persistence; ingredient
// edits fan out into correction telemetry and learner training.
package meal

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	mealdomain "github.com/platewise/v1/internal/domain/meal"
	"github.com/platewise/v1/internal/domain/naming"
	"github.com/platewise/v1/internal/domain/nutrition"
	"github.com/platewise/v1/internal/application/analysis"
	"github.com/platewise/v1/internal/application/learning"
	"github.com/platewise/v1/internal/infrastructure/monitoring"
	"github.com/platewise/v1/internal/ports/inbound"
	"github.com/platewise/v1/internal/ports/outbound"
	apperrors "github.com/platewise/v1/pkg/errors"
)

// Analyzer is the slice of the analysis pipeline this service needs.
type Analyzer interface {
	Analyze(ctx context.Context, ownerID uuid.UUID, req outbound.AnalysisRequest) (*outbound.AnalysisResult, error)
}

// Config tunes the orchestrator.
type Config struct {
	// GeocodeTimeout bounds the reverse-geocode lookup.
	GeocodeTimeout time.Duration
	// TxRetries bounds retries of a conflicted edit transaction.
	TxRetries int
	// PrunePatternFraction drops rare pattern companions; zero keeps all.
	PrunePatternFraction float64
}

// DefaultConfig returns the stock orchestrator tuning.
func DefaultConfig() Config {
	return Config{
		GeocodeTimeout: 2 * time.Second,
		TxRetries:      3,
	}
}

// Service composes the core components behind the inbound MealService port.
type Service struct {
	meals       outbound.MealRepository
	payloads    outbound.AnalysisPayloadRepository
	corrections outbound.CorrectionLogRepository
	patterns    outbound.PatternRepository
	tx          outbound.Transactor
	analyzer    Analyzer
	validator   *nutrition.Validator
	learner     *learning.Service
	geocoder    outbound.ReverseGeocoder
	normalizer  *naming.Normalizer
	cfg         Config
	logger      *zap.Logger
	metrics     *monitoring.Metrics
}

// NewService wires the orchestrator. geocoder may be nil when location
// tagging is disabled.
func NewService(
	meals outbound.MealRepository,
	payloads outbound.AnalysisPayloadRepository,
	corrections outbound.CorrectionLogRepository,
	patterns outbound.PatternRepository,
	tx outbound.Transactor,
	analyzer Analyzer,
	validator *nutrition.Validator,
	learner *learning.Service,
	geocoder outbound.ReverseGeocoder,
	normalizer *naming.Normalizer,
	cfg Config,
	logger *zap.Logger,
	metrics *monitoring.Metrics,
) *Service {
	def := DefaultConfig()
	if cfg.GeocodeTimeout <= 0 {
		cfg.GeocodeTimeout = def.GeocodeTimeout
	}
	if cfg.TxRetries <= 0 {
		cfg.TxRetries = def.TxRetries
	}
	return &Service{
		meals:       meals,
		payloads:    payloads,
		corrections: corrections,
		patterns:    patterns,
		tx:          tx,
		analyzer:    analyzer,
		validator:   validator,
		learner:     learner,
		geocoder:    geocoder,
		normalizer:  normalizer,
		cfg:         cfg,
		logger:      logger.Named("meal"),
		metrics:     metrics,
	}
}

var _ inbound.MealService = (*Service)(nil)

// CreateMeal turns one creation request into a persisted meal: write the
// PENDING row, call the analyzer, validate, then commit the terminal state
// with its ingredients atomically. The PENDING write commits before the
// analyzer call so no database resources are held across it.
func (s *Service) CreateMeal(ctx context.Context, cmd inbound.CreateMealCommand) (*inbound.CreateMealResult, error) {
	if cmd.OwnerID == uuid.Nil {
		return nil, apperrors.NewBadRequestError("owner id is required")
	}
	if cmd.ImageHandle == "" && cmd.Description == "" {
		return nil, apperrors.NewFieldErrors([]apperrors.FieldError{{
			Field:   "description",
			Message: "at least one of image_handle and description is required",
		}})
	}

	location := s.resolveLocation(ctx, cmd.Latitude, cmd.Longitude)

	var mealTime time.Time
	if cmd.MealTime != nil {
		mealTime = cmd.MealTime.UTC()
	}
	m, err := mealdomain.NewMeal(cmd.OwnerID, cmd.ImageHandle, cmd.Description, mealTime, mealdomain.MealType(cmd.DeclaredType), location)
	if err != nil {
		return nil, apperrors.NewBadRequestError(err.Error())
	}

	if err := s.createWithRetry(ctx, m); err != nil {
		return nil, apperrors.NewDatabaseError("create meal", err)
	}

	result, err := s.analyzer.Analyze(ctx, cmd.OwnerID, outbound.AnalysisRequest{
		ImageHandle: cmd.ImageHandle,
		Description: cmd.Description,
		LocationTag: location.Tag(),
		TimeBucket:  timeBucketFor(m.MealTime().Hour()),
	})

	var report nutrition.Report
	now := time.Now().UTC()

	switch {
	case err != nil:
		// Analysis failed outright: keep the meal editable with a
		// conservative fallback estimate.
		fb := analysis.Fallback(cmd.Description)
		_ = m.FailAnalysis(factsFromResult(fb), fb.Confidence, now)
		s.retainRawPayload(ctx, m.ID(), err, now)
		s.logger.Warn("meal analysis failed, stored fallback",
			zap.String("meal_id", m.ID().String()),
			zap.Error(err))

	case result.Fallback:
		// The breaker short-circuited; the synthetic estimate is stored
		// but the meal is FAILED so nothing downstream trusts it.
		_ = m.FailAnalysis(factsFromResult(result), result.Confidence, now)

	default:
		facts := factsFromResult(result)
		report = s.validator.Check(facts)
		s.metrics.ObserveVerdict(report.Verdict.String())

		if err := m.SetIngredients(ingredientInputs(result)); err != nil {
			return nil, apperrors.NewBadRequestError(err.Error())
		}
		if report.Verdict == nutrition.VerdictError {
			_ = m.FlagForReview(facts, result.Confidence, now)
			if result.RawPayload != "" {
				if perr := s.payloads.Save(ctx, m.ID(), result.RawPayload, now); perr != nil {
					s.logger.Warn("failed to retain raw analyzer payload", zap.Error(perr))
				}
			}
		} else {
			if err := m.CompleteAnalysis(facts, result.Confidence, now); err != nil {
				return nil, apperrors.Wrap(err, "completing analysis")
			}
		}
	}

	if err := s.updateWithRetry(ctx, m); err != nil {
		return nil, apperrors.NewDatabaseError("persist analyzed meal", err)
	}
	s.metrics.ObserveMealCreated(string(m.Status()))

	if m.Status() == mealdomain.StatusCompleted {
		s.recordPattern(ctx, m, true)
	}

	return mealResult(m, report), nil
}

// GetMeal returns one meal, owner-checked.
func (s *Service) GetMeal(ctx context.Context, ownerID, mealID uuid.UUID) (*inbound.CreateMealResult, error) {
	m, err := s.loadOwnedMeal(ctx, ownerID, mealID)
	if err != nil {
		return nil, err
	}
	return mealResult(m, nutrition.Report{}), nil
}

// loadOwnedMeal fetches a meal and enforces ownership before anything else.
func (s *Service) loadOwnedMeal(ctx context.Context, ownerID, mealID uuid.UUID) (*mealdomain.Meal, error) {
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
	return m, nil
}

// createWithRetry retries the PENDING insert once on failure.
func (s *Service) createWithRetry(ctx context.Context, m *mealdomain.Meal) error {
	if err := s.meals.Create(ctx, m); err != nil {
		s.logger.Warn("meal insert failed, retrying once", zap.Error(err))
		return s.meals.Create(ctx, m)
	}
	return nil
}

// updateWithRetry retries the completion update once on failure.
func (s *Service) updateWithRetry(ctx context.Context, m *mealdomain.Meal) error {
	if err := s.meals.Update(ctx, m); err != nil {
		s.logger.Warn("meal update failed, retrying once", zap.Error(err))
		return s.meals.Update(ctx, m)
	}
	return nil
}

// resolveLocation turns coordinates into a coarse place tag. Geocoder
// failures downgrade to the unknown location and never block ingestion.
func (s *Service) resolveLocation(ctx context.Context, lat, lon *float64) mealdomain.LocationContext {
	if s.geocoder == nil || lat == nil || lon == nil {
		return mealdomain.LocationContext{}
	}
	geoCtx, cancel := context.WithTimeout(ctx, s.cfg.GeocodeTimeout)
	defer cancel()

	tag, err := s.geocoder.Resolve(geoCtx, outbound.Coordinates{Latitude: *lat, Longitude: *lon})
	if err != nil {
		s.logger.Debug("reverse geocode failed, proceeding without location", zap.Error(err))
		return mealdomain.LocationContext{}
	}
	return mealdomain.LocationContext{
		IsRestaurant: tag.IsRestaurant,
		IsHome:       tag.IsHome,
		PlaceType:    tag.PlaceType,
	}
}

// retainRawPayload keeps whatever the analyzer returned when the failure was
// a parse error, so the user can see the unusable reply.
func (s *Service) retainRawPayload(ctx context.Context, mealID uuid.UUID, err error, now time.Time) {
	ae, ok := outbound.AsAnalysisError(err)
	if !ok || ae.RawPayload == "" {
		return
	}
	if perr := s.payloads.Save(ctx, mealID, ae.RawPayload, now); perr != nil {
		s.logger.Warn("failed to retain raw analyzer payload", zap.Error(perr))
	}
}

// timeBucketFor maps a clock hour onto the coarse bucket fed to the prompt.
func timeBucketFor(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 17:
		return "afternoon"
	case hour >= 17 && hour < 22:
		return "evening"
	default:
		return "night"
	}
}
