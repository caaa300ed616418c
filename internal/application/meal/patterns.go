package meal

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	mealdomain "github.com/platewise/v1/internal/domain/meal"
	"github.com/platewise/v1/internal/domain/pattern"
	"github.com/platewise/v1/internal/ports/outbound"
)

// recordPattern folds a completed meal into the owner's recipe pattern for
// its primary ingredient. countMeal distinguishes a fresh completion (which
// counts toward times_made) from an ingredient-set change on an
// already-counted meal. Pattern failures are logged, never surfaced: the
// pattern table is advisory.
func (s *Service) recordPattern(ctx context.Context, m *mealdomain.Meal, countMeal bool) {
	primary, ok := m.PrimaryIngredient()
	if !ok {
		return
	}
	primaryName := s.normalizer.Normalize(primary.Name)
	if primaryName == "" {
		return
	}

	var companions []pattern.Observation
	for _, ing := range m.Ingredients() {
		if ing.ID == primary.ID {
			continue
		}
		name := s.normalizer.Normalize(ing.Name)
		if name == "" {
			continue
		}
		companions = append(companions, pattern.Observation{
			Name:     name,
			Quantity: ing.Quantity,
			Unit:     ing.Unit,
		})
	}

	now := time.Now().UTC()
	p, err := s.patterns.FindByRecipeName(ctx, m.OwnerID(), primaryName)
	switch {
	case err == nil:
	case errors.Is(err, outbound.ErrNotFound):
		p, err = pattern.NewPattern(m.OwnerID(), primaryName, keywordsFor(primaryName))
		if err != nil {
			s.logger.Warn("cannot create recipe pattern", zap.Error(err))
			return
		}
	default:
		s.logger.Warn("cannot load recipe pattern", zap.Error(err))
		return
	}

	if countMeal {
		p.RecordMeal(companions, now)
	} else {
		p.MergeCompanions(companions, now)
	}
	p.Prune(s.cfg.PrunePatternFraction)

	if err := s.patterns.Save(ctx, p); err != nil {
		s.logger.Warn("cannot save recipe pattern", zap.Error(err))
	}
}

// keywordsFor seeds a new pattern's keyword list with the name's words.
func keywordsFor(name string) []string {
	return strings.Fields(name)
}
