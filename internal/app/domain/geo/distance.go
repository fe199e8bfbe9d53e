// Package geo holds the distance and location helpers used by the restaurant listings.
package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/FACorreiaa/hansikdang-api/internal/app/models"
)

// EarthRadiusKm is the mean Earth radius used by HaversineDistanceKm.
const EarthRadiusKm = 6371.0

// HaversineDistanceKm returns the great-circle distance between a and b in kilometres,
// rounded to one decimal place (half away from zero).
func HaversineDistanceKm(a, b models.Coordinate) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}

	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Latitude))*math.Cos(toRadians(b.Latitude))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return math.Round(EarthRadiusKm*c*10) / 10, nil
}

// FormatDistance renders a distance for display: metres below one kilometre, otherwise the
// kilometre value as given. The locale is part of the signature for per-locale units;
// every locale currently renders the same string.
func FormatDistance(distanceKm float64, locale string) string {
	if distanceKm < 1 {
		meters := int64(math.Round(distanceKm * 1000))
		return strconv.FormatInt(meters, 10) + "m"
	}
	return strconv.FormatFloat(distanceKm, 'f', -1, 64) + "km"
}

// ParseCoordinate parses a "lat,lng" pair and validates it.
func ParseCoordinate(s string) (models.Coordinate, error) {
	latStr, lngStr, ok := strings.Cut(s, ",")
	if !ok {
		return models.Coordinate{}, fmt.Errorf("%w: expected \"lat,lng\", got %q", models.ErrInvalidCoordinate, s)
	}
	return ParseLatLng(latStr, lngStr)
}

// ParseLatLng parses separate latitude and longitude strings and validates the result.
func ParseLatLng(latStr, lngStr string) (models.Coordinate, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("%w: latitude %q: %v", models.ErrInvalidCoordinate, latStr, err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("%w: longitude %q: %v", models.ErrInvalidCoordinate, lngStr, err)
	}

	c := models.Coordinate{Latitude: lat, Longitude: lng}
	if err := c.Validate(); err != nil {
		return models.Coordinate{}, err
	}
	return c, nil
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
