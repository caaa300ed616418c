// Package meal contains the meal aggregate: one logged meal and the
// ingredients it decomposes into.
package meal

import (
	"time"

	"github.com/google/uuid"

	"github.com/platewise/v1/internal/domain/nutrition"
	"github.com/platewise/v1/internal/domain/shared"
)

// Ingredient is one component of a specific meal, carrying an absolute
// per-serving nutrition block. It belongs to exactly one meal and refers to it
// by id only.
type Ingredient struct {
	ID              uuid.UUID
	MealID          uuid.UUID
	Name            string
	Category        string
	Quantity        float64
	Unit            string
	Facts           nutrition.Facts
	IsAIExtracted   bool
	IsUserCorrected bool
	AIConfidence    *float64
	DisplayOrder    int
}

// IngredientInput carries the fields a caller supplies when creating or
// replacing an ingredient.
type IngredientInput struct {
	Name         string
	Category     string
	Quantity     float64
	Unit         string
	Facts        nutrition.Facts
	AIExtracted  bool
	AIConfidence *float64
}

// Validate checks the structural invariants every ingredient must satisfy.
func (in IngredientInput) Validate() error {
	if in.Name == "" {
		return ErrEmptyIngredientName
	}
	if in.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if in.Unit == "" {
		return ErrEmptyUnit
	}
	return nil
}

// Meal is the aggregate root for one logged meal. All mutation goes through
// its methods so the lifecycle invariants hold.
type Meal struct {
	id          uuid.UUID
	ownerID     uuid.UUID
	mealTime    time.Time
	mealType    MealType
	description string
	imageHandle string

	summary    nutrition.Facts
	confidence float64
	status     AnalysisStatus
	userEdited bool

	location    LocationContext
	ingredients []*Ingredient

	aiAnalyzedAt *time.Time
	createdAt    time.Time
	updatedAt    time.Time

	events []shared.DomainEvent
}

// NewMeal creates a PENDING meal. At least one of imageHandle and description
// must be present; an undeclared meal type is inferred from the clock.
func NewMeal(ownerID uuid.UUID, imageHandle, description string, mealTime time.Time, declaredType MealType, location LocationContext) (*Meal, error) {
	if ownerID == uuid.Nil {
		return nil, ErrNoOwner
	}
	if imageHandle == "" && description == "" {
		return nil, ErrNoInput
	}
	if mealTime.IsZero() {
		mealTime = time.Now().UTC()
	}
	if declaredType == "" {
		declaredType = MealTypeForHour(mealTime.Hour())
	}
	if !declaredType.IsValid() {
		return nil, ErrInvalidMealType
	}

	now := time.Now().UTC()
	m := &Meal{
		id:          uuid.New(),
		ownerID:     ownerID,
		mealTime:    mealTime,
		mealType:    declaredType,
		description: description,
		imageHandle: imageHandle,
		status:      StatusPending,
		location:    location,
		createdAt:   now,
		updatedAt:   now,
	}
	m.addEvent(MealLoggedEvent{
		MealID:   m.id,
		OwnerID:  ownerID,
		Type:     declaredType,
		LoggedAt: now,
	})
	return m, nil
}

// SetIngredients replaces the meal's ingredient list with the analyzer's
// decomposition. Display order follows input order.
func (m *Meal) SetIngredients(inputs []IngredientInput) error {
	for _, in := range inputs {
		if err := in.Validate(); err != nil {
			return err
		}
	}
	m.ingredients = m.ingredients[:0]
	for i, in := range inputs {
		m.ingredients = append(m.ingredients, &Ingredient{
			ID:            uuid.New(),
			MealID:        m.id,
			Name:          in.Name,
			Category:      in.Category,
			Quantity:      in.Quantity,
			Unit:          in.Unit,
			Facts:         in.Facts,
			IsAIExtracted: in.AIExtracted,
			AIConfidence:  in.AIConfidence,
			DisplayOrder:  i,
		})
	}
	m.touch()
	return nil
}

// CompleteAnalysis records a trusted analyzer result and moves the meal to
// COMPLETED. The summary must carry calories for the transition to be legal.
func (m *Meal) CompleteAnalysis(summary nutrition.Facts, confidence float64, analyzedAt time.Time) error {
	if m.status.IsTerminal() {
		return ErrAlreadyAnalyzed
	}
	if !summary.Calories.Valid() {
		return ErrNoCalories
	}
	m.finishAnalysis(StatusCompleted, summary, confidence, analyzedAt)
	return nil
}

// FlagForReview records an analyzer result that failed the physical-law
// checks. The values are kept so the user can correct them, but the meal is
// marked NEEDS_REVIEW and the raw response is retained elsewhere.
func (m *Meal) FlagForReview(summary nutrition.Facts, confidence float64, analyzedAt time.Time) error {
	if m.status.IsTerminal() {
		return ErrAlreadyAnalyzed
	}
	m.finishAnalysis(StatusNeedsReview, summary, confidence, analyzedAt)
	return nil
}

// FailAnalysis records an analyzer failure together with a conservative
// fallback estimate so the user can still edit the meal.
func (m *Meal) FailAnalysis(fallback nutrition.Facts, confidence float64, analyzedAt time.Time) error {
	if m.status.IsTerminal() {
		return ErrAlreadyAnalyzed
	}
	m.finishAnalysis(StatusFailed, fallback, confidence, analyzedAt)
	return nil
}

func (m *Meal) finishAnalysis(status AnalysisStatus, summary nutrition.Facts, confidence float64, analyzedAt time.Time) {
	if analyzedAt.IsZero() {
		analyzedAt = time.Now().UTC()
	}
	m.status = status
	m.summary = summary
	m.confidence = clamp01(confidence)
	m.aiAnalyzedAt = &analyzedAt
	m.touch()
	m.addEvent(MealAnalyzedEvent{
		MealID:     m.id,
		OwnerID:    m.ownerID,
		Status:     status,
		Confidence: m.confidence,
		AnalyzedAt: analyzedAt,
	})
}

// Ingredient returns the ingredient with the given id, if present.
func (m *Meal) Ingredient(id uuid.UUID) (*Ingredient, bool) {
	for _, ing := range m.ingredients {
		if ing.ID == id {
			return ing, true
		}
	}
	return nil, false
}

// AddIngredient appends a user-added ingredient after creation.
func (m *Meal) AddIngredient(ownerID uuid.UUID, in IngredientInput) (*Ingredient, error) {
	if ownerID != m.ownerID {
		return nil, ErrNotMealOwner
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	ing := &Ingredient{
		ID:            uuid.New(),
		MealID:        m.id,
		Name:          in.Name,
		Category:      in.Category,
		Quantity:      in.Quantity,
		Unit:          in.Unit,
		Facts:         in.Facts,
		IsAIExtracted: in.AIExtracted,
		AIConfidence:  in.AIConfidence,
		DisplayOrder:  len(m.ingredients),
	}
	m.ingredients = append(m.ingredients, ing)
	m.userEdited = true
	m.recomputeSummary()
	m.touch()
	m.addEvent(IngredientAddedEvent{MealID: m.id, IngredientID: ing.ID, AddedAt: m.updatedAt})
	return ing, nil
}

// RemoveIngredient deletes an ingredient from the meal.
func (m *Meal) RemoveIngredient(ownerID, ingredientID uuid.UUID) error {
	if ownerID != m.ownerID {
		return ErrNotMealOwner
	}
	for i, ing := range m.ingredients {
		if ing.ID == ingredientID {
			m.ingredients = append(m.ingredients[:i], m.ingredients[i+1:]...)
			for j := i; j < len(m.ingredients); j++ {
				m.ingredients[j].DisplayOrder = j
			}
			m.userEdited = true
			m.recomputeSummary()
			m.touch()
			m.addEvent(IngredientRemovedEvent{MealID: m.id, IngredientID: ingredientID, RemovedAt: m.updatedAt})
			return nil
		}
	}
	return ErrIngredientNotFound
}

// CorrectIngredient applies a user edit to one ingredient. It returns the
// ingredient's nutrition before the edit and whether this was the first
// correction of this ingredient, which is the transition the learner trains
// on. Editing never changes the meal's analysis status.
func (m *Meal) CorrectIngredient(ownerID, ingredientID uuid.UUID, after IngredientInput) (before nutrition.Facts, first bool, err error) {
	if ownerID != m.ownerID {
		return nutrition.Facts{}, false, ErrNotMealOwner
	}
	ing, ok := m.Ingredient(ingredientID)
	if !ok {
		return nutrition.Facts{}, false, ErrIngredientNotFound
	}
	if err := after.Validate(); err != nil {
		return nutrition.Facts{}, false, err
	}

	before = ing.Facts
	first = !ing.IsUserCorrected

	ing.Name = after.Name
	if after.Category != "" {
		ing.Category = after.Category
	}
	ing.Quantity = after.Quantity
	ing.Unit = after.Unit
	ing.Facts = after.Facts
	ing.IsUserCorrected = true

	m.userEdited = true
	m.recomputeSummary()
	m.touch()
	m.addEvent(IngredientCorrectedEvent{
		MealID:          m.id,
		IngredientID:    ingredientID,
		OwnerID:         ownerID,
		FirstCorrection: first,
		CorrectedAt:     m.updatedAt,
	})
	return before, first, nil
}

// PrimaryIngredient returns the ingredient with the largest calorie
// contribution, ties broken by earliest display order. A meal without
// ingredients has no primary.
func (m *Meal) PrimaryIngredient() (*Ingredient, bool) {
	var best *Ingredient
	for _, ing := range m.ingredients {
		if best == nil || ing.Facts.Calories.Value() > best.Facts.Calories.Value() {
			best = ing
		}
	}
	return best, best != nil
}

// recomputeSummary rebuilds the meal-level nutrition from the ingredient
// blocks. A field is present on the summary when present on at least one
// ingredient.
func (m *Meal) recomputeSummary() {
	if len(m.ingredients) == 0 {
		return
	}
	var summary nutrition.Facts
	for _, name := range nutrition.TrackedFields {
		total := 0.0
		any := false
		for _, ing := range m.ingredients {
			if v, ok := ing.Facts.Field(name).Get(); ok {
				total += v
				any = true
			}
		}
		if any {
			summary = summary.With(name, nutrition.AmountOf(total))
		}
	}
	m.summary = summary
}

func (m *Meal) touch() {
	m.updatedAt = time.Now().UTC()
}

func (m *Meal) addEvent(e shared.DomainEvent) {
	m.events = append(m.events, e)
}

// Events returns and clears the pending domain events.
func (m *Meal) Events() []shared.DomainEvent {
	events := m.events
	m.events = nil
	return events
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (m *Meal) ID() uuid.UUID              { return m.id }
func (m *Meal) OwnerID() uuid.UUID         { return m.ownerID }
func (m *Meal) MealTime() time.Time        { return m.mealTime }
func (m *Meal) Type() MealType             { return m.mealType }
func (m *Meal) Description() string        { return m.description }
func (m *Meal) ImageHandle() string        { return m.imageHandle }
func (m *Meal) Summary() nutrition.Facts   { return m.summary }
func (m *Meal) Confidence() float64        { return m.confidence }
func (m *Meal) Status() AnalysisStatus     { return m.status }
func (m *Meal) UserEdited() bool           { return m.userEdited }
func (m *Meal) Location() LocationContext  { return m.location }
func (m *Meal) Ingredients() []*Ingredient { return m.ingredients }
func (m *Meal) AIAnalyzedAt() *time.Time   { return m.aiAnalyzedAt }
func (m *Meal) CreatedAt() time.Time       { return m.createdAt }
func (m *Meal) UpdatedAt() time.Time       { return m.updatedAt }

// ReconstructMeal rebuilds a meal from persisted state. Used only by the
// persistence layer.
func ReconstructMeal(
	id, ownerID uuid.UUID,
	mealTime time.Time,
	mealType MealType,
	description, imageHandle string,
	summary nutrition.Facts,
	confidence float64,
	status AnalysisStatus,
	userEdited bool,
	location LocationContext,
	ingredients []*Ingredient,
	aiAnalyzedAt *time.Time,
	createdAt, updatedAt time.Time,
) *Meal {
	return &Meal{
		id:           id,
		ownerID:      ownerID,
		mealTime:     mealTime,
		mealType:     mealType,
		description:  description,
		imageHandle:  imageHandle,
		summary:      summary,
		confidence:   confidence,
		status:       status,
		userEdited:   userEdited,
		location:     location,
		ingredients:  ingredients,
		aiAnalyzedAt: aiAnalyzedAt,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}
