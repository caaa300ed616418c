package meal

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/platewise/v1/internal/application/learning"
	"github.com/platewise/v1/internal/domain/correction"
	mealdomain "github.com/platewise/v1/internal/domain/meal"
	"github.com/platewise/v1/internal/ports/inbound"
	"github.com/platewise/v1/internal/ports/outbound"
	apperrors "github.com/platewise/v1/pkg/errors"
)

// UpdateIngredient applies one user edit to an ingredient. One transaction
// carries the ingredient update, every correction row for the changed fields,
// and the library update, so readers see all of it or none of it. A
// redelivered edit with the identical after-image is detected by its digest
// and writes nothing.
func (s *Service) UpdateIngredient(ctx context.Context, cmd inbound.UpdateIngredientCommand) (*inbound.UpdateIngredientResult, error) {
	after := mealdomain.IngredientInput{
		Name:     cmd.Name,
		Category: cmd.Category,
		Quantity: cmd.Quantity,
		Unit:     cmd.Unit,
		Facts:    cmd.Nutrition.Facts(),
	}
	if err := after.Validate(); err != nil {
		return nil, apperrors.NewBadRequestError(err.Error())
	}
	if _, ok := s.learner.Converter().Canonical(cmd.Unit); !ok {
		return nil, apperrors.NewUnknownUnitError(cmd.Unit)
	}

	m, err := s.loadOwnedMeal(ctx, cmd.OwnerID, cmd.MealID)
	if err != nil {
		return nil, err
	}
	if _, ok := m.Ingredient(cmd.IngredientID); !ok {
		return nil, apperrors.NewIngredientNotFoundError(cmd.IngredientID.String())
	}

	digest := correction.EditDigest(cmd.MealID, cmd.IngredientID, after.Facts, after.Quantity, after.Unit)
	if seen, err := s.corrections.HasEditDigest(ctx, digest); err != nil {
		return nil, apperrors.NewDatabaseError("check edit digest", err)
	} else if seen {
		ing, _ := m.Ingredient(cmd.IngredientID)
		s.logger.Debug("duplicate edit redelivered, skipping",
			zap.String("ingredient_id", cmd.IngredientID.String()))
		return &inbound.UpdateIngredientResult{Ingredient: ingredientView(ing)}, nil
	}

	var (
		rowsWritten int
		trained     bool
		view        inbound.IngredientView
	)

	err = s.transactWithRetry(ctx, func(txCtx context.Context) error {
		// Reload inside the transaction so the prior is_user_corrected
		// flag is read consistently with the write.
		m, err := s.loadOwnedMeal(txCtx, cmd.OwnerID, cmd.MealID)
		if err != nil {
			return err
		}

		before, first, err := m.CorrectIngredient(cmd.OwnerID, cmd.IngredientID, after)
		if err != nil {
			return mapDomainError(err)
		}

		rows := correction.Derive(before, after.Facts, correction.Context{
			MealID:               m.ID(),
			OwnerID:              cmd.OwnerID,
			ConfidenceAtAnalysis: confidencePtr(m),
			LocationType:         m.Location().Tag(),
			MealDescription:      m.Description(),
			AiAnalyzedAt:         m.AIAnalyzedAt(),
		}, digest)

		if len(rows) > 0 {
			if err := s.corrections.AppendAll(txCtx, rows); err != nil {
				if errors.Is(err, outbound.ErrDuplicateEdit) {
					// Redelivery raced past the digest pre-check;
					// drop the whole edit.
					return nil
				}
				return err
			}
		}

		if err := s.meals.Update(txCtx, m); err != nil {
			return err
		}

		// Only the first false->true correction of an ingredient trains
		// the learner, and never on a zero-calorie after-image.
		if first && after.Facts.Calories.Valid() && after.Facts.Calories.Value() > 0 {
			ing, _ := m.Ingredient(cmd.IngredientID)
			if err := s.learner.Learn(txCtx, cmd.OwnerID, learning.CorrectedIngredient{
				DisplayName: ing.Name,
				Category:    ing.Category,
				Quantity:    ing.Quantity,
				Unit:        ing.Unit,
				Facts:       ing.Facts,
				CorrectedAt: m.UpdatedAt(),
			}); err != nil {
				return err
			}
			trained = true
		}

		rowsWritten = len(rows)
		ing, _ := m.Ingredient(cmd.IngredientID)
		view = ingredientView(ing)
		return nil
	})
	if err != nil {
		if appErr, ok := err.(*apperrors.AppError); ok {
			return nil, appErr
		}
		return nil, apperrors.NewDatabaseError("apply ingredient edit", err)
	}

	s.metrics.ObserveCorrections(rowsWritten)
	return &inbound.UpdateIngredientResult{
		CorrectionRowsWritten: rowsWritten,
		LearnerTrained:        trained,
		Ingredient:            view,
	}, nil
}

// AddIngredient appends a manual ingredient to an existing meal and refreshes
// the recipe pattern's companion set.
func (s *Service) AddIngredient(ctx context.Context, cmd inbound.AddIngredientCommand) (*inbound.IngredientView, error) {
	input := mealdomain.IngredientInput{
		Name:     cmd.Name,
		Category: cmd.Category,
		Quantity: cmd.Quantity,
		Unit:     cmd.Unit,
		Facts:    cmd.Nutrition.Facts(),
	}
	if err := input.Validate(); err != nil {
		return nil, apperrors.NewBadRequestError(err.Error())
	}

	var view inbound.IngredientView
	var m *mealdomain.Meal
	err := s.transactWithRetry(ctx, func(txCtx context.Context) error {
		var err error
		m, err = s.loadOwnedMeal(txCtx, cmd.OwnerID, cmd.MealID)
		if err != nil {
			return err
		}
		ing, err := m.AddIngredient(cmd.OwnerID, input)
		if err != nil {
			return mapDomainError(err)
		}
		if err := s.meals.Update(txCtx, m); err != nil {
			return err
		}
		view = ingredientView(ing)
		return nil
	})
	if err != nil {
		if appErr, ok := err.(*apperrors.AppError); ok {
			return nil, appErr
		}
		return nil, apperrors.NewDatabaseError("add ingredient", err)
	}

	if m.Status() == mealdomain.StatusCompleted {
		s.recordPattern(ctx, m, false)
	}
	return &view, nil
}

// DeleteIngredient removes an ingredient from a meal.
func (s *Service) DeleteIngredient(ctx context.Context, ownerID, mealID, ingredientID uuid.UUID) error {
	err := s.transactWithRetry(ctx, func(txCtx context.Context) error {
		m, err := s.loadOwnedMeal(txCtx, ownerID, mealID)
		if err != nil {
			return err
		}
		if err := m.RemoveIngredient(ownerID, ingredientID); err != nil {
			return mapDomainError(err)
		}
		return s.meals.Update(txCtx, m)
	})
	if err != nil {
		if appErr, ok := err.(*apperrors.AppError); ok {
			return appErr
		}
		return apperrors.NewDatabaseError("delete ingredient", err)
	}
	return nil
}

// transactWithRetry retries a conflicted transaction a bounded number of
// times, then surfaces the conflict as transient.
func (s *Service) transactWithRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < s.cfg.TxRetries; attempt++ {
		err = s.tx.Transact(ctx, fn)
		if err == nil || !errors.Is(err, outbound.ErrConflict) {
			return err
		}
		s.logger.Debug("edit transaction conflicted, retrying", zap.Int("attempt", attempt+1))
	}
	return apperrors.NewConflictError("concurrent update, try again").WithCause(err)
}

// mapDomainError converts meal domain sentinels into the API taxonomy.
func mapDomainError(err error) error {
	switch {
	case errors.Is(err, mealdomain.ErrNotMealOwner):
		return apperrors.NewNotMealOwnerError()
	case errors.Is(err, mealdomain.ErrIngredientNotFound):
		return apperrors.NewIngredientNotFoundError("")
	case errors.Is(err, mealdomain.ErrInvalidQuantity),
		errors.Is(err, mealdomain.ErrEmptyUnit),
		errors.Is(err, mealdomain.ErrEmptyIngredientName):
		return apperrors.NewBadRequestError(err.Error())
	default:
		return err
	}
}

func confidencePtr(m *mealdomain.Meal) *float64 {
	c := m.Confidence()
	return &c
}
