package geocode

import (
	"context"
	"errors"
	"fmt"

	"github.com/aditya/ridequote/internal/models"
	"googlemaps.github.io/maps"
)

var ErrNoResults = errors.New("no geocoding results")

// Geocoder resolves addresses to coordinates and back.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*models.Location, error)
	Reverse(ctx context.Context, lat, lng float64) (*models.Location, error)
}

type mapsClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
	ReverseGeocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

type GoogleGeocoder struct {
	client mapsClient
}

func NewGoogleGeocoder(apiKey string) (*GoogleGeocoder, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GoogleGeocoder{client: client}, nil
}

func (g *GoogleGeocoder) Geocode(ctx context.Context, address string) (*models.Location, error) {
	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return nil, fmt.Errorf("maps api error: %w", err)
	}
	return first(results)
}

func (g *GoogleGeocoder) Reverse(ctx context.Context, lat, lng float64) (*models.Location, error) {
	results, err := g.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: lat, Lng: lng},
	})
	if err != nil {
		return nil, fmt.Errorf("maps api error: %w", err)
	}
	loc, err := first(results)
	if err != nil {
		return nil, err
	}
	// keep the caller's point; only the address comes from the lookup
	loc.Lat, loc.Lng = lat, lng
	return loc, nil
}

func first(results []maps.GeocodingResult) (*models.Location, error) {
	if len(results) == 0 {
		return nil, ErrNoResults
	}
	r := results[0]
	return &models.Location{
		Lat:     r.Geometry.Location.Lat,
		Lng:     r.Geometry.Location.Lng,
		Address: r.FormattedAddress,
	}, nil
}
