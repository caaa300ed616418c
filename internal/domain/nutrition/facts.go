// Package nutrition contains the nutrition value objects and the
// physical-law validation engine applied to untrusted analysis output.
package nutrition

// Canonical field names shared by validation issues and correction telemetry.
const (
	FieldCalories     = "calories"
	FieldProtein      = "protein_g"
	FieldFat          = "fat_g"
	FieldSaturatedFat = "saturated_fat_g"
	FieldCarbs        = "carbs_g"
	FieldFiber        = "fiber_g"
	FieldSugar        = "sugar_g"
	FieldSodium       = "sodium_mg"
)

// TrackedFields lists every field correction telemetry records, in a stable order.
var TrackedFields = []string{
	FieldCalories,
	FieldProtein,
	FieldFat,
	FieldSaturatedFat,
	FieldCarbs,
	FieldFiber,
	FieldSugar,
	FieldSodium,
}

// Amount is a nullable nutrition quantity. The zero value is "absent".
// Absence is modeled explicitly so missing data never masquerades as zero.
type Amount struct {
	value float64
	valid bool
}

// AmountOf returns a present Amount.
func AmountOf(v float64) Amount {
	return Amount{value: v, valid: true}
}

// NoAmount returns an absent Amount.
func NoAmount() Amount {
	return Amount{}
}

// Valid reports whether the amount is present.
func (a Amount) Valid() bool {
	return a.valid
}

// Value returns the amount, or 0 when absent.
func (a Amount) Value() float64 {
	return a.value
}

// Get returns the amount together with its presence flag.
func (a Amount) Get() (float64, bool) {
	return a.value, a.valid
}

// Or returns the amount, or def when absent.
func (a Amount) Or(def float64) float64 {
	if a.valid {
		return a.value
	}
	return def
}

// Ptr returns a pointer to the value, or nil when absent.
// Used by the persistence layer to map onto nullable columns.
func (a Amount) Ptr() *float64 {
	if !a.valid {
		return nil
	}
	v := a.value
	return &v
}

// AmountFromPtr converts a nullable column value back into an Amount.
func AmountFromPtr(p *float64) Amount {
	if p == nil {
		return NoAmount()
	}
	return AmountOf(*p)
}

// Facts is one nutrition reading. Every field may be absent; the validator
// skips any rule whose inputs are missing.
type Facts struct {
	Calories     Amount
	ProteinG     Amount
	FatG         Amount
	SaturatedG   Amount
	CarbsG       Amount
	FiberG       Amount
	SugarG       Amount
	SodiumMg     Amount
}

// Field returns the named field of the reading. Unknown names return an
// absent Amount.
func (f Facts) Field(name string) Amount {
	switch name {
	case FieldCalories:
		return f.Calories
	case FieldProtein:
		return f.ProteinG
	case FieldFat:
		return f.FatG
	case FieldSaturatedFat:
		return f.SaturatedG
	case FieldCarbs:
		return f.CarbsG
	case FieldFiber:
		return f.FiberG
	case FieldSugar:
		return f.SugarG
	case FieldSodium:
		return f.SodiumMg
	default:
		return NoAmount()
	}
}

// With returns a copy of the reading with the named field replaced. Unknown
// names return the reading unchanged.
func (f Facts) With(name string, a Amount) Facts {
	switch name {
	case FieldCalories:
		f.Calories = a
	case FieldProtein:
		f.ProteinG = a
	case FieldFat:
		f.FatG = a
	case FieldSaturatedFat:
		f.SaturatedG = a
	case FieldCarbs:
		f.CarbsG = a
	case FieldFiber:
		f.FiberG = a
	case FieldSugar:
		f.SugarG = a
	case FieldSodium:
		f.SodiumMg = a
	}
	return f
}

// Scale returns the reading with every present field multiplied by factor.
// Used for per-100g conversion and portion scaling.
func (f Facts) Scale(factor float64) Facts {
	scale := func(a Amount) Amount {
		if !a.valid {
			return a
		}
		return AmountOf(a.value * factor)
	}
	return Facts{
		Calories:   scale(f.Calories),
		ProteinG:   scale(f.ProteinG),
		FatG:       scale(f.FatG),
		SaturatedG: scale(f.SaturatedG),
		CarbsG:     scale(f.CarbsG),
		FiberG:     scale(f.FiberG),
		SugarG:     scale(f.SugarG),
		SodiumMg:   scale(f.SodiumMg),
	}
}

// Atwater energy factors, kcal per gram.
const (
	AtwaterProtein = 4.0
	AtwaterFat     = 9.0
	AtwaterCarbs   = 4.0
)

// AtwaterCalories returns the energy implied by the macro masses.
func AtwaterCalories(proteinG, fatG, carbsG float64) float64 {
	return AtwaterProtein*proteinG + AtwaterFat*fatG + AtwaterCarbs*carbsG
}
