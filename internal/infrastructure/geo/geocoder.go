// Package geo provides the reverse geocoder adapter. Lookups are best
// effort: any failure resolves to an unknown location and never blocks
// meal creation.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/platewise/v1/internal/ports/outbound"
)

// restaurantPlaceTypes are the place categories treated as eating out.
var restaurantPlaceTypes = map[string]bool{
	"restaurant": true,
	"cafe":       true,
	"fast_food":  true,
	"bar":        true,
	"pub":        true,
	"food_court": true,
}

// Config configures the geocoder client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client resolves coordinates against a Nominatim-compatible reverse
// geocoding endpoint.
type Client struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// NewClient creates a geocoder client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.Named("geocoder"),
	}
}

var _ outbound.ReverseGeocoder = (*Client)(nil)

type reverseResponse struct {
	Type     string `json:"type"`
	Category string `json:"category"`
	Address  struct {
		Amenity string `json:"amenity"`
	} `json:"address"`
}

// Resolve looks up the place tag for one coordinate pair.
func (c *Client) Resolve(ctx context.Context, coords outbound.Coordinates) (outbound.PlaceTag, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", fmt.Sprintf("%.4f", coords.Latitude))
	q.Set("lon", fmt.Sprintf("%.4f", coords.Longitude))
	q.Set("zoom", "18")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return outbound.PlaceTag{}, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return outbound.PlaceTag{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return outbound.PlaceTag{}, fmt.Errorf("geocoder status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<18))
	if err != nil {
		return outbound.PlaceTag{}, err
	}

	var rr reverseResponse
	if err := json.Unmarshal(raw, &rr); err != nil {
		return outbound.PlaceTag{}, fmt.Errorf("decoding geocoder reply: %w", err)
	}

	return tagFromPlace(rr), nil
}

func tagFromPlace(rr reverseResponse) outbound.PlaceTag {
	placeType := rr.Type
	if rr.Address.Amenity != "" && rr.Category == "amenity" {
		placeType = rr.Type
	}
	placeType = strings.ToLower(placeType)

	tag := outbound.PlaceTag{PlaceType: placeType}
	switch {
	case restaurantPlaceTypes[placeType]:
		tag.IsRestaurant = true
	case placeType == "house" || placeType == "residential" || placeType == "apartments":
		tag.IsHome = true
	}
	return tag
}
