package meal

// MealType buckets a meal by the slot it was eaten in.
type MealType string

const (
	MealTypeBreakfast MealType = "BREAKFAST"
	MealTypeLunch     MealType = "LUNCH"
	MealTypeDinner    MealType = "DINNER"
	MealTypeSnack     MealType = "SNACK"
)

// IsValid checks if the meal type is one of the allowed values.
func (t MealType) IsValid() bool {
	switch t {
	case MealTypeBreakfast, MealTypeLunch, MealTypeDinner, MealTypeSnack:
		return true
	}
	return false
}

// MealTypeForHour infers the slot from the local clock hour when the caller
// did not declare one.
func MealTypeForHour(hour int) MealType {
	switch {
	case hour >= 5 && hour < 11:
		return MealTypeBreakfast
	case hour >= 11 && hour < 16:
		return MealTypeLunch
	case hour >= 16 && hour < 22:
		return MealTypeDinner
	default:
		return MealTypeSnack
	}
}

// AnalysisStatus tracks where a meal is in its analysis lifecycle.
type AnalysisStatus string

const (
	// StatusPending means the meal row exists but the analyzer has not
	// returned yet.
	StatusPending AnalysisStatus = "PENDING"
	// StatusCompleted means analysis succeeded and the nutrition summary
	// is trusted (possibly with warnings).
	StatusCompleted AnalysisStatus = "COMPLETED"
	// StatusFailed means the analyzer could not produce a structured
	// result; the meal carries a conservative fallback estimate.
	StatusFailed AnalysisStatus = "FAILED"
	// StatusNeedsReview means analysis produced values that failed the
	// physical-law checks; the raw response is retained for the user to
	// correct against.
	StatusNeedsReview AnalysisStatus = "NEEDS_REVIEW"
)

// IsValid checks if the status is one of the allowed values.
func (s AnalysisStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusNeedsReview:
		return true
	}
	return false
}

// IsTerminal reports whether the analyzer has finished with this meal.
func (s AnalysisStatus) IsTerminal() bool {
	return s != StatusPending
}

// LocationContext is the coarse place tag attached to a meal. It comes from
// the reverse geocoder and is best-effort: an unresolved location leaves the
// zero value.
type LocationContext struct {
	IsRestaurant bool
	IsHome       bool
	PlaceType    string
}

// Tag returns the analytics segment label for this location.
func (l LocationContext) Tag() string {
	switch {
	case l.IsRestaurant:
		return "restaurant"
	case l.IsHome:
		return "home"
	case l.PlaceType != "":
		return l.PlaceType
	default:
		return "unknown"
	}
}
