// Package geocode resolves service addresses to coordinates with the Google Maps Geocoding API.
package geocode

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"googlemaps.github.io/maps"
)

// GoogleGeocoder implements a never-failing geocoder: every failure is logged
// and reported as "no result". A failed call is retried once.
type GoogleGeocoder struct {
	client *maps.Client
	logger *zap.Logger
}

// NewGoogleGeocoder creates a GoogleGeocoder. baseURL overrides the API host (tests).
func NewGoogleGeocoder(apiKey, baseURL string, logger *zap.Logger) (*GoogleGeocoder, error) {
	opts := []maps.ClientOption{maps.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, maps.WithBaseURL(baseURL))
	}
	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GoogleGeocoder{client: client, logger: logger}, nil
}

// Geocode returns the first result's location.
func (g *GoogleGeocoder) Geocode(ctx context.Context, address string) (float64, float64, bool) {
	address = strings.TrimSpace(address)
	if address == "" {
		return 0, 0, false
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
		if err != nil {
			lastErr = err
			continue
		}
		if len(results) == 0 {
			return 0, 0, false
		}
		loc := results[0].Geometry.Location
		return loc.Lat, loc.Lng, true
	}

	g.logger.Warn("geocode failed", zap.String("address", address), zap.Error(lastErr))
	return 0, 0, false
}

// Noop never resolves anything. It is used when no API key is configured.
type Noop struct{}

// Geocode always reports no result.
func (Noop) Geocode(context.Context, string) (float64, float64, bool) { return 0, 0, false }
