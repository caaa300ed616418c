package learning

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/platewise/v1/internal/domain/library"
	"github.com/platewise/v1/internal/domain/measure"
	"github.com/platewise/v1/internal/domain/naming"
	"github.com/platewise/v1/internal/domain/nutrition"
	"github.com/platewise/v1/internal/ports/outbound"
)

// memoryLibrary is an in-memory LibraryRepository keyed the way the schema
// keys it: (owner_id, normalized_name).
type memoryLibrary struct {
	mu      sync.Mutex
	entries map[string]*library.Entry
}

func newMemoryLibrary() *memoryLibrary {
	return &memoryLibrary{entries: make(map[string]*library.Entry)}
}

func libKey(ownerID uuid.UUID, name string) string {
	return ownerID.String() + "|" + name
}

func (r *memoryLibrary) FindByNormalizedName(_ context.Context, ownerID uuid.UUID, normalizedName string) (*library.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[libKey(ownerID, normalizedName)]
	if !ok {
		return nil, outbound.ErrNotFound
	}
	return e, nil
}

func (r *memoryLibrary) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*library.Entry, error) {
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

func (r *memoryLibrary) SearchByName(_ context.Context, ownerID uuid.UUID, query string, limit int) ([]*library.Entry, error) {
	return r.ListByOwner(context.Background(), ownerID)
}

func (r *memoryLibrary) Save(_ context.Context, entry *library.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[libKey(entry.OwnerID(), entry.NormalizedName())] = entry
	return nil
}

func (r *memoryLibrary) Stats(_ context.Context, ownerID uuid.UUID) (outbound.LibraryStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stats outbound.LibraryStats
	for _, e := range r.entries {
		if e.OwnerID() == ownerID {
			stats.TotalEntries++
			stats.AvgConfidence += e.Confidence()
		}
	}
	if stats.TotalEntries > 0 {
		stats.AvgConfidence /= float64(stats.TotalEntries)
	}
	return stats, nil
}

func newTestService(repo outbound.LibraryRepository) *Service {
	return NewService(
		repo,
		naming.NewNormalizer(nil),
		measure.NewConverter(nil),
		library.DefaultConfidenceParams(),
		zap.NewNop(),
		nil,
	)
}

func corrected(name string, quantity float64, unit string, calories float64) CorrectedIngredient {
	return CorrectedIngredient{
		DisplayName: name,
		Quantity:    quantity,
		Unit:        unit,
		Facts:       nutrition.Facts{Calories: nutrition.AmountOf(calories)},
		CorrectedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestService_Learn_CreatesEntryRebasedTo100g(t *testing.T) {
	repo := newMemoryLibrary()
	svc := newTestService(repo)
	owner := uuid.New()

	// 68 kcal over a 50g portion is 136 kcal per 100g.
	err := svc.Learn(context.Background(), owner, corrected("Coconut Chutney", 50, "g", 68))
	require.NoError(t, err)

	entry, err := repo.FindByNormalizedName(context.Background(), owner, "coconut chutney")
	require.NoError(t, err)
	assert.Equal(t, int64(1), entry.SampleSize())
	assert.InDelta(t, 136, entry.AvgCalories(), 1e-9)
	assert.Zero(t, entry.StddevCalories())
	assert.Equal(t, "Coconut Chutney", entry.DisplayName())
	assert.InDelta(t, 50, entry.TypicalQuantity(), 1e-9)
}

// Surface spellings that normalize to the same canonical name train a single
// entry, never parallel ones.
func TestService_Learn_AliasesMergeIntoOneEntry(t *testing.T) {
	repo := newMemoryLibrary()
	svc := newTestService(repo)
	owner := uuid.New()

	require.NoError(t, svc.Learn(context.Background(), owner, corrected("Idly", 100, "g", 140)))
	require.NoError(t, svc.Learn(context.Background(), owner, corrected("idli", 100, "g", 160)))

	entries, err := repo.ListByOwner(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, "idli", entry.NormalizedName())
	assert.Equal(t, int64(2), entry.SampleSize())
	assert.InDelta(t, 150, entry.AvgCalories(), 1e-9)
	assert.InDelta(t, 14.14, entry.StddevCalories(), 0.01)
	// The display name tracks the latest spelling the user typed.
	assert.Equal(t, "idli", entry.DisplayName())
}

func TestService_Learn_HouseholdUnitsResolveThroughGramTable(t *testing.T) {
	repo := newMemoryLibrary()
	svc := newTestService(repo)
	owner := uuid.New()

	// 2 pieces at 50g each is 100g: per-100g equals the portion reading.
	require.NoError(t, svc.Learn(context.Background(), owner, corrected("idli", 2, "piece", 130)))

	entry, err := repo.FindByNormalizedName(context.Background(), owner, "idli")
	require.NoError(t, err)
	assert.InDelta(t, 130, entry.AvgCalories(), 1e-9)
}

// An observation whose unit cannot resolve to grams is dropped without
// failing the edit that carried it.
func TestService_Learn_UnknownUnitDropsObservation(t *testing.T) {
	repo := newMemoryLibrary()
	svc := newTestService(repo)
	owner := uuid.New()

	err := svc.Learn(context.Background(), owner, corrected("dal", 1, "katori", 180))
	require.NoError(t, err)

	_, err = repo.FindByNormalizedName(context.Background(), owner, "dal")
	assert.ErrorIs(t, err, outbound.ErrNotFound)
}

func TestService_Learn_EmptyNameDropped(t *testing.T) {
	repo := newMemoryLibrary()
	svc := newTestService(repo)

	err := svc.Learn(context.Background(), uuid.New(), corrected("!!!", 100, "g", 100))
	require.NoError(t, err)
	assert.Empty(t, repo.entries)
}

// Libraries are per user: the same name trained by two owners yields two
// independent entries.
func TestService_Learn_OwnersIsolated(t *testing.T) {
	repo := newMemoryLibrary()
	svc := newTestService(repo)
	alice := uuid.New()
	bob := uuid.New()

	require.NoError(t, svc.Learn(context.Background(), alice, corrected("idli", 100, "g", 130)))
	require.NoError(t, svc.Learn(context.Background(), bob, corrected("idli", 100, "g", 170)))

	a, err := repo.FindByNormalizedName(context.Background(), alice, "idli")
	require.NoError(t, err)
	b, err := repo.FindByNormalizedName(context.Background(), bob, "idli")
	require.NoError(t, err)

	assert.InDelta(t, 130, a.AvgCalories(), 1e-9)
	assert.InDelta(t, 170, b.AvgCalories(), 1e-9)
	assert.Equal(t, int64(1), a.SampleSize())
	assert.Equal(t, int64(1), b.SampleSize())
}

// Concurrent corrections of the same name serialize through the keyed mutex:
// no observation is lost.
func TestService_Learn_ConcurrentSameKey(t *testing.T) {
	repo := newMemoryLibrary()
	svc := newTestService(repo)
	owner := uuid.New()

	const workers = 16
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			err := svc.Learn(context.Background(), owner, corrected("idli", 100, "g", float64(100+i)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	entry, err := repo.FindByNormalizedName(context.Background(), owner, "idli")
	require.NoError(t, err)
	assert.Equal(t, int64(workers), entry.SampleSize())
}
