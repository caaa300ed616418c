package meal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/platewise/v1/internal/application/learning"
	"github.com/platewise/v1/internal/domain/correction"
	"github.com/platewise/v1/internal/domain/library"
	mealdomain "github.com/platewise/v1/internal/domain/meal"
	"github.com/platewise/v1/internal/domain/measure"
	"github.com/platewise/v1/internal/domain/naming"
	"github.com/platewise/v1/internal/domain/nutrition"
	"github.com/platewise/v1/internal/domain/pattern"
	"github.com/platewise/v1/internal/ports/inbound"
	"github.com/platewise/v1/internal/ports/outbound"
	apperrors "github.com/platewise/v1/pkg/errors"
)

// ---- in-memory fakes -------------------------------------------------------

// memMeals stores deep copies, so callers see repository reads the way a
// database would serve them: detached from each other.
type memMeals struct {
	mu    sync.Mutex
	meals map[uuid.UUID]*mealdomain.Meal
}

func newMemMeals() *memMeals {
	return &memMeals{meals: make(map[uuid.UUID]*mealdomain.Meal)}
}

func cloneMeal(m *mealdomain.Meal) *mealdomain.Meal {
	ings := make([]*mealdomain.Ingredient, len(m.Ingredients()))
	for i, ing := range m.Ingredients() {
		c := *ing
		ings[i] = &c
	}
	var analyzedAt *time.Time
	if at := m.AIAnalyzedAt(); at != nil {
		c := *at
		analyzedAt = &c
	}
	return mealdomain.ReconstructMeal(
		m.ID(), m.OwnerID(), m.MealTime(), m.Type(), m.Description(), m.ImageHandle(),
		m.Summary(), m.Confidence(), m.Status(), m.UserEdited(), m.Location(),
		ings, analyzedAt, m.CreatedAt(), m.UpdatedAt(),
	)
}

func (r *memMeals) Create(_ context.Context, m *mealdomain.Meal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.meals[m.ID()] = cloneMeal(m)
	return nil
}

func (r *memMeals) Update(_ context.Context, m *mealdomain.Meal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.meals[m.ID()]; !ok {
		return outbound.ErrNotFound
	}
	r.meals[m.ID()] = cloneMeal(m)
	return nil
}

func (r *memMeals) FindByID(_ context.Context, id uuid.UUID) (*mealdomain.Meal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.meals[id]
	if !ok {
		return nil, outbound.ErrNotFound
	}
	return cloneMeal(m), nil
}

func (r *memMeals) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.meals[id]; !ok {
		return outbound.ErrNotFound
	}
	delete(r.meals, id)
	return nil
}

type memCorrections struct {
	mu     sync.Mutex
	rows   []correction.Row
	unique map[string]bool // digest|field
}

func newMemCorrections() *memCorrections {
	return &memCorrections{unique: make(map[string]bool)}
}

func (r *memCorrections) AppendAll(_ context.Context, rows []correction.Row) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range rows {
		if r.unique[row.EditDigest+"|"+row.FieldName] {
			return outbound.ErrDuplicateEdit
		}
	}
	for _, row := range rows {
		r.unique[row.EditDigest+"|"+row.FieldName] = true
		r.rows = append(r.rows, row)
	}
	return nil
}

func (r *memCorrections) HasEditDigest(_ context.Context, digest string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.EditDigest == digest {
			return true, nil
		}
	}
	return false, nil
}

func (r *memCorrections) List(_ context.Context, ownerID uuid.UUID, filter outbound.CorrectionFilter) ([]correction.Row, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []correction.Row
	for _, row := range r.rows {
		if row.OwnerID == ownerID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *memCorrections) all() []correction.Row {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]correction.Row(nil), r.rows...)
}

type memPatterns struct {
	mu       sync.Mutex
	patterns map[string]*pattern.Pattern
}

func newMemPatterns() *memPatterns {
	return &memPatterns{patterns: make(map[string]*pattern.Pattern)}
}

func (r *memPatterns) FindByRecipeName(_ context.Context, ownerID uuid.UUID, recipeName string) (*pattern.Pattern, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patterns[ownerID.String()+"|"+recipeName]
	if !ok {
		return nil, outbound.ErrNotFound
	}
	return p, nil
}

func (r *memPatterns) Save(_ context.Context, p *pattern.Pattern) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns[p.OwnerID().String()+"|"+p.RecipeName()] = p
	return nil
}

type memPayloads struct {
	mu       sync.Mutex
	payloads map[uuid.UUID]string
}

func newMemPayloads() *memPayloads {
	return &memPayloads{payloads: make(map[uuid.UUID]string)}
}

func (r *memPayloads) Save(_ context.Context, mealID uuid.UUID, payload string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads[mealID] = payload
	return nil
}

func (r *memPayloads) FindByMealID(_ context.Context, mealID uuid.UUID) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payloads[mealID]
	if !ok {
		return "", outbound.ErrNotFound
	}
	return p, nil
}

type memLibrary struct {
	mu      sync.Mutex
	entries map[string]*library.Entry
}

func newMemLibrary() *memLibrary {
	return &memLibrary{entries: make(map[string]*library.Entry)}
}

func (r *memLibrary) FindByNormalizedName(_ context.Context, ownerID uuid.UUID, normalizedName string) (*library.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[ownerID.String()+"|"+normalizedName]
	if !ok {
		return nil, outbound.ErrNotFound
	}
	return e, nil
}

func (r *memLibrary) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*library.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*library.Entry
	for _, e := range r.entries {
		if e.OwnerID() == ownerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memLibrary) SearchByName(_ context.Context, ownerID uuid.UUID, _ string, _ int) ([]*library.Entry, error) {
	return r.ListByOwner(context.Background(), ownerID)
}

func (r *memLibrary) Save(_ context.Context, entry *library.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.OwnerID().String()+"|"+entry.NormalizedName()] = entry
	return nil
}

func (r *memLibrary) Stats(_ context.Context, ownerID uuid.UUID) (outbound.LibraryStats, error) {
	return outbound.LibraryStats{}, nil
}

// serialTransactor runs each function body exclusively, the way serializable
// transactions would.
type serialTransactor struct {
	mu sync.Mutex
}

func (t *serialTransactor) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx)
}

// stubAnalyzer returns a canned result or error.
type stubAnalyzer struct {
	mu     sync.Mutex
	result *outbound.AnalysisResult
	err    error
	calls  int
}

func (a *stubAnalyzer) Analyze(_ context.Context, _ uuid.UUID, _ outbound.AnalysisRequest) (*outbound.AnalysisResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return a.result, nil
}

// ---- fixture ---------------------------------------------------------------

type fixture struct {
	meals       *memMeals
	corrections *memCorrections
	patterns    *memPatterns
	payloads    *memPayloads
	libraryRepo *memLibrary
	analyzer    *stubAnalyzer
	svc         *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		meals:       newMemMeals(),
		corrections: newMemCorrections(),
		patterns:    newMemPatterns(),
		payloads:    newMemPayloads(),
		libraryRepo: newMemLibrary(),
		analyzer:    &stubAnalyzer{result: consistentResult()},
	}

	normalizer := naming.NewNormalizer(nil)
	converter := measure.NewConverter(nil)
	learner := learning.NewService(f.libraryRepo, normalizer, converter, library.DefaultConfidenceParams(), zap.NewNop(), nil)

	f.svc = NewService(
		f.meals, f.payloads, f.corrections, f.patterns, &serialTransactor{},
		f.analyzer, nutrition.NewValidator(nutrition.DefaultConfig()), learner,
		nil, normalizer,
		Config{}, zap.NewNop(), nil,
	)
	return f
}

func ptr(v float64) *float64 { return &v }

// consistentResult passes every physical-law check: 30*4 + 20*9 + 50*4 = 500.
func consistentResult() *outbound.AnalysisResult {
	return &outbound.AnalysisResult{
		Calories:   ptr(500),
		ProteinG:   ptr(30),
		FatG:       ptr(20),
		CarbsG:     ptr(50),
		Confidence: 0.85,
		RawPayload: `{"calories": 500}`,
		Ingredients: []outbound.EstimatedIngredient{
			{Name: "idli", Category: "grain", Quantity: 2, Unit: "piece", Calories: ptr(260)},
			{Name: "coconut chutney", Category: "condiment", Quantity: 50, Unit: "g", Calories: ptr(41)},
		},
	}
}

func createCommand(owner uuid.UUID) inbound.CreateMealCommand {
	return inbound.CreateMealCommand{
		OwnerID:     owner,
		Description: "idli with coconut chutney",
	}
}

// ---- CreateMeal ------------------------------------------------------------

func TestService_CreateMeal_Completed(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()

	result, err := f.svc.CreateMeal(context.Background(), createCommand(owner))
	require.NoError(t, err)

	assert.Equal(t, mealdomain.StatusCompleted, result.Status)
	assert.Equal(t, "valid", result.Verdict)
	assert.InDelta(t, 0.85, result.Confidence, 1e-9)
	require.Len(t, result.Ingredients, 2)
	assert.True(t, result.Ingredients[0].IsAIExtracted)

	stored, err := f.meals.FindByID(context.Background(), result.MealID)
	require.NoError(t, err)
	assert.Equal(t, mealdomain.StatusCompleted, stored.Status())
	assert.Len(t, stored.Ingredients(), 2)

	// A clean completion keeps no raw payload.
	_, err = f.payloads.FindByMealID(context.Background(), result.MealID)
	assert.ErrorIs(t, err, outbound.ErrNotFound)

	// The completed meal seeded a recipe pattern around its primary.
	p, err := f.patterns.FindByRecipeName(context.Background(), owner, "idli")
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.TimesMade())
	require.Len(t, p.Companions(), 1)
	assert.Equal(t, "coconut chutney", p.Companions()[0].Name)
}

func TestService_CreateMeal_ValidationErrorNeedsReview(t *testing.T) {
	f := newFixture(t)
	// Sugar above carbs is physically impossible: ERROR verdict.
	f.analyzer.result = &outbound.AnalysisResult{
		Calories:   ptr(300),
		ProteinG:   ptr(5),
		FatG:       ptr(10),
		CarbsG:     ptr(30),
		SugarG:     ptr(45),
		Confidence: 0.7,
		RawPayload: `{"calories": 300, "sugar_g": 45}`,
	}
	owner := uuid.New()

	result, err := f.svc.CreateMeal(context.Background(), createCommand(owner))
	require.NoError(t, err)

	assert.Equal(t, mealdomain.StatusNeedsReview, result.Status)
	assert.Equal(t, "error", result.Verdict)
	assert.NotEmpty(t, result.Issues)

	// The suspect values are kept editable and the raw reply is retained.
	require.NotNil(t, result.Nutrition.Calories)
	assert.InDelta(t, 300, *result.Nutrition.Calories, 1e-9)
	payload, err := f.payloads.FindByMealID(context.Background(), result.MealID)
	require.NoError(t, err)
	assert.Contains(t, payload, "sugar_g")

	// Nothing advisory is built from untrusted values.
	_, err = f.patterns.FindByRecipeName(context.Background(), owner, "idli")
	assert.ErrorIs(t, err, outbound.ErrNotFound)
}

func TestService_CreateMeal_AnalyzerFailureStoresFallback(t *testing.T) {
	f := newFixture(t)
	f.analyzer.err = &outbound.AnalysisError{
		Kind:       outbound.AnalysisParseError,
		RawPayload: "the model rambled instead of answering",
	}
	owner := uuid.New()

	result, err := f.svc.CreateMeal(context.Background(), createCommand(owner))
	require.NoError(t, err)

	assert.Equal(t, mealdomain.StatusFailed, result.Status)
	require.NotNil(t, result.Nutrition.Calories)
	assert.InDelta(t, 350, *result.Nutrition.Calories, 1e-9)
	assert.InDelta(t, 0.25, result.Confidence, 1e-9)

	// The unusable reply is retained for inspection.
	payload, err := f.payloads.FindByMealID(context.Background(), result.MealID)
	require.NoError(t, err)
	assert.Contains(t, payload, "rambled")
}

func TestService_CreateMeal_BreakerFallbackIsFailed(t *testing.T) {
	f := newFixture(t)
	f.analyzer.result = &outbound.AnalysisResult{
		Calories:   ptr(350),
		ProteinG:   ptr(15),
		FatG:       ptr(12),
		CarbsG:     ptr(45),
		Confidence: 0.25,
		Fallback:   true,
	}
	owner := uuid.New()

	result, err := f.svc.CreateMeal(context.Background(), createCommand(owner))
	require.NoError(t, err)

	assert.Equal(t, mealdomain.StatusFailed, result.Status)
	// Synthetic estimates never seed patterns.
	_, perr := f.patterns.FindByRecipeName(context.Background(), owner, "idli")
	assert.ErrorIs(t, perr, outbound.ErrNotFound)
}

func TestService_CreateMeal_InputValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateMeal(context.Background(), inbound.CreateMealCommand{OwnerID: uuid.New()})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeValidationFailed))

	_, err = f.svc.CreateMeal(context.Background(), inbound.CreateMealCommand{Description: "x"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeBadRequest))
}

func TestService_GetMeal(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()

	created, err := f.svc.CreateMeal(context.Background(), createCommand(owner))
	require.NoError(t, err)

	t.Run("returns the meal", func(t *testing.T) {
		got, err := f.svc.GetMeal(context.Background(), owner, created.MealID)
		require.NoError(t, err)
		assert.Equal(t, created.MealID, got.MealID)
		assert.Len(t, got.Ingredients, 2)
	})

	t.Run("owner mismatch is forbidden", func(t *testing.T) {
		_, err := f.svc.GetMeal(context.Background(), uuid.New(), created.MealID)
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.CodeNotMealOwner))
	})

	t.Run("unknown meal", func(t *testing.T) {
		_, err := f.svc.GetMeal(context.Background(), owner, uuid.New())
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.CodeMealNotFound))
	})
}
