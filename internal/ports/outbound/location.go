package outbound

import (
	"context"
	"time"
)

// Coordinates is a coarse capture location. Callers round before lookup so
// the cache key has useful locality.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// PlaceTag is the resolved coarse location label attached to a meal.
type PlaceTag struct {
	IsRestaurant bool
	IsHome       bool
	PlaceType    string
}

// ReverseGeocoder resolves coordinates to a coarse place tag. Failures are
// non-fatal: callers proceed with an unknown location.
type ReverseGeocoder interface {
	Resolve(ctx context.Context, coords Coordinates) (PlaceTag, error)
}

// KeyValueCache is a read-through cache with TTL, used for external lookup
// results. Cache failures must never block the primary path.
type KeyValueCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}
