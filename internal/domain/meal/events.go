package meal

import (
	"time"

	"github.com/google/uuid"
)

// Domain Events - Events that occur within the meal domain

// MealLoggedEvent is raised when a new meal row is created (still PENDING).
type MealLoggedEvent struct {
	MealID   uuid.UUID
	OwnerID  uuid.UUID
	Type     MealType
	LoggedAt time.Time
}

func (e MealLoggedEvent) EventName() string {
	return "meal.logged"
}

func (e MealLoggedEvent) OccurredAt() time.Time {
	return e.LoggedAt
}

// MealAnalyzedEvent is raised when analysis reaches a terminal status.
type MealAnalyzedEvent struct {
	MealID     uuid.UUID
	OwnerID    uuid.UUID
	Status     AnalysisStatus
	Confidence float64
	AnalyzedAt time.Time
}

func (e MealAnalyzedEvent) EventName() string {
	return "meal.analyzed"
}

func (e MealAnalyzedEvent) OccurredAt() time.Time {
	return e.AnalyzedAt
}

// IngredientCorrectedEvent is raised when a user overrides an ingredient's
// AI-estimated values. The learner trains off this transition.
type IngredientCorrectedEvent struct {
	MealID          uuid.UUID
	IngredientID    uuid.UUID
	OwnerID         uuid.UUID
	FirstCorrection bool
	CorrectedAt     time.Time
}

func (e IngredientCorrectedEvent) EventName() string {
	return "meal.ingredient.corrected"
}

func (e IngredientCorrectedEvent) OccurredAt() time.Time {
	return e.CorrectedAt
}

// IngredientAddedEvent is raised when an ingredient is added to a meal
// after creation.
type IngredientAddedEvent struct {
	MealID       uuid.UUID
	IngredientID uuid.UUID
	AddedAt      time.Time
}

func (e IngredientAddedEvent) EventName() string {
	return "meal.ingredient.added"
}

func (e IngredientAddedEvent) OccurredAt() time.Time {
	return e.AddedAt
}

// IngredientRemovedEvent is raised when an ingredient is deleted from a meal.
type IngredientRemovedEvent struct {
	MealID       uuid.UUID
	IngredientID uuid.UUID
	RemovedAt    time.Time
}

func (e IngredientRemovedEvent) EventName() string {
	return "meal.ingredient.removed"
}

func (e IngredientRemovedEvent) OccurredAt() time.Time {
	return e.RemovedAt
}
