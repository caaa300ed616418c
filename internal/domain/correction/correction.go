// Package correction derives the append-only telemetry rows written whenever
// a user overrides an AI nutrition estimate.
package correction

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/platewise/v1/internal/domain/nutrition"
)

// changeEpsilon is the smallest difference treated as a real edit. Differences
// below it are float noise from round-tripping, not corrections.
const changeEpsilon = 1e-6

// descriptionSnapshotLimit bounds the meal description stored on each row.
const descriptionSnapshotLimit = 200

// Row is one append-only correction record: a single field's transition from
// the AI's value to the user's value on a single edit. Rows are never updated
// or deleted.
type Row struct {
	ID                      uuid.UUID
	MealID                  uuid.UUID
	OwnerID                 uuid.UUID
	FieldName               string
	AiValue                 float64
	UserValue               float64
	AbsoluteError           float64
	PercentError            float64
	ConfidenceAtAnalysis    *float64
	LocationType            string
	MealDescriptionSnapshot string
	AiAnalyzedAt            *time.Time
	CorrectedAt             time.Time
	EditDigest              string
}

// Context carries the meal-level snapshot attached to every row of one edit,
// so later analytics can segment accuracy by confidence band or location.
type Context struct {
	MealID               uuid.UUID
	OwnerID              uuid.UUID
	ConfidenceAtAnalysis *float64
	LocationType         string
	MealDescription      string
	AiAnalyzedAt         *time.Time
	CorrectedAt          time.Time
}

// Derive compares the before and after images of one ingredient and returns
// one row per field that actually changed.
//
// A field produces a row only when both sides are present and the change
// exceeds epsilon. A user value of zero makes percent error undefined, so no
// row is written for that field.
func Derive(before, after nutrition.Facts, ctx Context, digest string) []Row {
	snapshot := ctx.MealDescription
	if len(snapshot) > descriptionSnapshotLimit {
		snapshot = snapshot[:descriptionSnapshotLimit]
	}
	correctedAt := ctx.CorrectedAt
	if correctedAt.IsZero() {
		correctedAt = time.Now().UTC()
	}

	var rows []Row
	for _, field := range nutrition.TrackedFields {
		aiValue, okBefore := before.Field(field).Get()
		userValue, okAfter := after.Field(field).Get()
		if !okBefore || !okAfter {
			continue
		}
		if math.Abs(userValue-aiValue) <= changeEpsilon {
			continue
		}
		if userValue == 0 {
			continue
		}

		rows = append(rows, Row{
			ID:                      uuid.New(),
			MealID:                  ctx.MealID,
			OwnerID:                 ctx.OwnerID,
			FieldName:               field,
			AiValue:                 aiValue,
			UserValue:               userValue,
			AbsoluteError:           math.Abs(userValue - aiValue),
			PercentError:            (userValue - aiValue) / userValue * 100,
			ConfidenceAtAnalysis:    ctx.ConfidenceAtAnalysis,
			LocationType:            ctx.LocationType,
			MealDescriptionSnapshot: snapshot,
			AiAnalyzedAt:            ctx.AiAnalyzedAt,
			CorrectedAt:             correctedAt,
			EditDigest:              digest,
		})
	}
	return rows
}

// EditDigest fingerprints one edit: the target ingredient plus the canonical
// after-image. A redelivered edit with the identical after-image hashes to
// the same digest, which the unique column in the log table rejects, so
// retries never double-write rows or double-train the learner.
func EditDigest(mealID, ingredientID uuid.UUID, after nutrition.Facts, quantity float64, unit string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|q=%.6f|u=%s", mealID, ingredientID, quantity, unit)

	fields := make([]string, 0, len(nutrition.TrackedFields))
	for _, field := range nutrition.TrackedFields {
		if v, ok := after.Field(field).Get(); ok {
			fields = append(fields, fmt.Sprintf("%s=%.6f", field, v))
		}
	}
	sort.Strings(fields)
	for _, f := range fields {
		b.WriteByte('|')
		b.WriteString(f)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
