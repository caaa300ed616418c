package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/platewise/v1/internal/ports/outbound"
)

// CachedGeocoder reads through a key-value cache before hitting the
// geocoder. Coordinates are rounded to ~100 m so nearby captures share an
// entry. Cache failures fall through to the inner geocoder.
type CachedGeocoder struct {
	inner  outbound.ReverseGeocoder
	cache  outbound.KeyValueCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedGeocoder wraps a geocoder with a read-through cache.
func NewCachedGeocoder(inner outbound.ReverseGeocoder, cache outbound.KeyValueCache, ttl time.Duration, logger *zap.Logger) *CachedGeocoder {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedGeocoder{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		logger: logger.Named("geocache"),
	}
}

var _ outbound.ReverseGeocoder = (*CachedGeocoder)(nil)

type cachedTag struct {
	IsRestaurant bool   `json:"is_restaurant"`
	IsHome       bool   `json:"is_home"`
	PlaceType    string `json:"place_type"`
}

// Resolve returns the cached tag when present, otherwise resolves and
// caches the result.
func (g *CachedGeocoder) Resolve(ctx context.Context, coords outbound.Coordinates) (outbound.PlaceTag, error) {
	key := cacheKey(coords)

	if val, ok, err := g.cache.Get(ctx, key); err != nil {
		g.logger.Debug("geocode cache read failed", zap.Error(err))
	} else if ok {
		var ct cachedTag
		if err := json.Unmarshal([]byte(val), &ct); err == nil {
			return outbound.PlaceTag{
				IsRestaurant: ct.IsRestaurant,
				IsHome:       ct.IsHome,
				PlaceType:    ct.PlaceType,
			}, nil
		}
	}

	tag, err := g.inner.Resolve(ctx, coords)
	if err != nil {
		return outbound.PlaceTag{}, err
	}

	if buf, err := json.Marshal(cachedTag{
		IsRestaurant: tag.IsRestaurant,
		IsHome:       tag.IsHome,
		PlaceType:    tag.PlaceType,
	}); err == nil {
		if err := g.cache.Set(ctx, key, string(buf), g.ttl); err != nil {
			g.logger.Debug("geocode cache write failed", zap.Error(err))
		}
	}
	return tag, nil
}

// cacheKey rounds to three decimals, roughly 100 m of locality.
func cacheKey(coords outbound.Coordinates) string {
	return fmt.Sprintf("geo:%.3f:%.3f", coords.Latitude, coords.Longitude)
}
