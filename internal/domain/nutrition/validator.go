package nutrition

import (
	"fmt"
	"math"
)

// Verdict is the outcome of validating one nutrition reading.
type Verdict int

const (
	VerdictValid Verdict = iota
	VerdictWarning
	VerdictError
)

// String returns the string representation of the verdict.
func (v Verdict) String() string {
	switch v {
	case VerdictValid:
		return "valid"
	case VerdictWarning:
		return "warning"
	case VerdictError:
		return "error"
	default:
		return "unknown"
	}
}

// Issue describes one failed check on one field.
type Issue struct {
	Field        string
	Severity     Verdict
	Message      string
	SuggestedFix Amount
}

// Report aggregates the issues of one validation pass.
type Report struct {
	Verdict Verdict
	Issues  []Issue
}

// IssuesFor returns the issues raised against the named field.
func (r Report) IssuesFor(field string) []Issue {
	var out []Issue
	for _, is := range r.Issues {
		if is.Field == field {
			out = append(out, is)
		}
	}
	return out
}

// Config holds the validation thresholds. Percentages are whole numbers.
type Config struct {
	AtwaterWarnPct     float64
	AtwaterErrorPct    float64
	CalorieSoftCeiling float64
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		AtwaterWarnPct:     20,
		AtwaterErrorPct:    50,
		CalorieSoftCeiling: 2500,
	}
}

// Hard physical ranges. Values outside these are rejected outright.
const (
	maxCalories = 10000
	maxMacroG   = 1000
	maxSodiumMg = 100000
)

// Validator applies the physical-law checks to a nutrition reading.
// It is pure and safe for concurrent use.
type Validator struct {
	cfg Config
}

// NewValidator creates a validator with the given thresholds. Zero thresholds
// fall back to the defaults.
func NewValidator(cfg Config) *Validator {
	def := DefaultConfig()
	if cfg.AtwaterWarnPct <= 0 {
		cfg.AtwaterWarnPct = def.AtwaterWarnPct
	}
	if cfg.AtwaterErrorPct <= 0 {
		cfg.AtwaterErrorPct = def.AtwaterErrorPct
	}
	if cfg.CalorieSoftCeiling <= 0 {
		cfg.CalorieSoftCeiling = def.CalorieSoftCeiling
	}
	return &Validator{cfg: cfg}
}

// Check runs every rule whose inputs are present and aggregates the verdict:
// any ERROR issue makes the verdict ERROR, else any WARNING makes it WARNING.
func (v *Validator) Check(f Facts) Report {
	var issues []Issue

	issues = append(issues, v.checkNegatives(f)...)
	issues = append(issues, v.checkRanges(f)...)
	issues = append(issues, v.checkMassConservation(f)...)
	issues = append(issues, v.checkAtwater(f)...)
	issues = append(issues, v.checkMacroCalorieCap(f)...)
	issues = append(issues, v.checkSparse(f)...)

	verdict := VerdictValid
	for _, is := range issues {
		if is.Severity > verdict {
			verdict = is.Severity
		}
	}
	return Report{Verdict: verdict, Issues: issues}
}

// checkNegatives rejects any negative nutrition field.
func (v *Validator) checkNegatives(f Facts) []Issue {
	var issues []Issue
	for _, name := range TrackedFields {
		if val, ok := f.Field(name).Get(); ok && val < 0 {
			issues = append(issues, Issue{
				Field:    name,
				Severity: VerdictError,
				Message:  fmt.Sprintf("%s must not be negative", name),
			})
		}
	}
	return issues
}

// checkRanges enforces the hard physical ranges and the soft portion ceiling.
func (v *Validator) checkRanges(f Facts) []Issue {
	var issues []Issue

	if cal, ok := f.Calories.Get(); ok {
		if cal > maxCalories {
			issues = append(issues, Issue{
				Field:    FieldCalories,
				Severity: VerdictError,
				Message:  fmt.Sprintf("calories %.0f exceeds physical maximum %d", cal, maxCalories),
			})
		} else if cal > v.cfg.CalorieSoftCeiling {
			issues = append(issues, Issue{
				Field:    FieldCalories,
				Severity: VerdictWarning,
				Message:  fmt.Sprintf("calories %.0f above the single-meal ceiling %.0f, check the portion", cal, v.cfg.CalorieSoftCeiling),
			})
		}
	}

	for _, name := range []string{FieldProtein, FieldFat, FieldSaturatedFat, FieldCarbs, FieldFiber, FieldSugar} {
		if val, ok := f.Field(name).Get(); ok && val > maxMacroG {
			issues = append(issues, Issue{
				Field:    name,
				Severity: VerdictError,
				Message:  fmt.Sprintf("%s %.0fg exceeds physical maximum %dg", name, val, maxMacroG),
			})
		}
	}

	if na, ok := f.SodiumMg.Get(); ok && na > maxSodiumMg {
		issues = append(issues, Issue{
			Field:    FieldSodium,
			Severity: VerdictError,
			Message:  fmt.Sprintf("sodium %.0fmg exceeds physical maximum %dmg", na, maxSodiumMg),
		})
	}

	return issues
}

// checkMassConservation enforces that the components of a macro never exceed
// the whole: fiber and sugar within carbs, saturated fat within total fat.
func (v *Validator) checkMassConservation(f Facts) []Issue {
	var issues []Issue

	if carbs, ok := f.CarbsG.Get(); ok {
		if fiber, ok := f.FiberG.Get(); ok && fiber > carbs {
			issues = append(issues, Issue{
				Field:    FieldFiber,
				Severity: VerdictError,
				Message:  fmt.Sprintf("fiber %.1fg cannot exceed total carbs %.1fg", fiber, carbs),
			})
		}
		if sugar, ok := f.SugarG.Get(); ok && sugar > carbs {
			issues = append(issues, Issue{
				Field:    FieldSugar,
				Severity: VerdictError,
				Message:  fmt.Sprintf("sugar %.1fg cannot exceed total carbs %.1fg", sugar, carbs),
			})
		}
	}

	if fat, ok := f.FatG.Get(); ok {
		if sat, ok := f.SaturatedG.Get(); ok && sat > fat {
			issues = append(issues, Issue{
				Field:    FieldSaturatedFat,
				Severity: VerdictError,
				Message:  fmt.Sprintf("saturated fat %.1fg cannot exceed total fat %.1fg", sat, fat),
			})
		}
	}

	return issues
}

// checkAtwater compares the claimed calories against the energy implied by
// the macros. The rule needs calories and the full macro triple; a sparse
// reading is handled by checkSparse instead.
func (v *Validator) checkAtwater(f Facts) []Issue {
	cal, okCal := f.Calories.Get()
	p, okP := f.ProteinG.Get()
	fat, okF := f.FatG.Get()
	c, okC := f.CarbsG.Get()
	if !okCal || !okP || !okF || !okC {
		return nil
	}

	implied := AtwaterCalories(p, fat, c)
	deviation := math.Abs(cal-implied) / math.Max(cal, 1) * 100

	if deviation > v.cfg.AtwaterErrorPct {
		return []Issue{{
			Field:        FieldCalories,
			Severity:     VerdictError,
			Message:      fmt.Sprintf("calories %.0f deviates %.0f%% from the %.0f implied by macros", cal, deviation, implied),
			SuggestedFix: AmountOf(implied),
		}}
	}
	if deviation > v.cfg.AtwaterWarnPct {
		return []Issue{{
			Field:        FieldCalories,
			Severity:     VerdictWarning,
			Message:      fmt.Sprintf("calories %.0f deviates %.0f%% from the %.0f implied by macros", cal, deviation, implied),
			SuggestedFix: AmountOf(implied),
		}}
	}
	return nil
}

// checkMacroCalorieCap flags any single macro whose energy alone exceeds the
// claimed total (with 10% headroom for rounding).
func (v *Validator) checkMacroCalorieCap(f Facts) []Issue {
	cal, ok := f.Calories.Get()
	if !ok || cal <= 0 {
		return nil
	}

	var issues []Issue
	caps := []struct {
		field  string
		amount Amount
		factor float64
	}{
		{FieldProtein, f.ProteinG, AtwaterProtein},
		{FieldFat, f.FatG, AtwaterFat},
		{FieldCarbs, f.CarbsG, AtwaterCarbs},
	}
	for _, m := range caps {
		if g, ok := m.amount.Get(); ok && g*m.factor > cal*1.1 {
			issues = append(issues, Issue{
				Field:    m.field,
				Severity: VerdictWarning,
				Message:  fmt.Sprintf("%s alone implies %.0f kcal, more than the claimed %.0f", m.field, g*m.factor, cal),
			})
		}
	}
	return issues
}

// checkSparse flags a reading that claims calories but carries no macros at
// all, which usually means the model returned a guess.
func (v *Validator) checkSparse(f Facts) []Issue {
	if !f.Calories.Valid() {
		return nil
	}
	if f.ProteinG.Valid() || f.FatG.Valid() || f.CarbsG.Valid() || f.FiberG.Valid() {
		return nil
	}
	return []Issue{{
		Field:    FieldCalories,
		Severity: VerdictWarning,
		Message:  "calories reported without any macro breakdown",
	}}
}
