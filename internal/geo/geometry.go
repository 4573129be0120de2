// Package geo provides great-circle distances and nearest-point lookups over
// stop coordinates.
package geo

import (
	"errors"
	"math"
)

const (
	// EarthRadiusKm is the mean Earth radius used by the haversine formula.
	EarthRadiusKm = 6371.0
)

// ErrEmptyInput is returned when a nearest-point query is given no candidates.
var ErrEmptyInput = errors.New("empty input: no candidate points")

// Coordinate is a WGS84 (lat, lon) pair in degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// CoordinateBounds represents a bounding box with min/max latitude and longitude
type CoordinateBounds struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// DistanceKm returns the haversine great-circle distance between a and b.
func DistanceKm(a, b Coordinate) float64 {
	lat1 := a.Lat * (math.Pi / 180)
	lat2 := b.Lat * (math.Pi / 180)
	dLat := (b.Lat - a.Lat) * (math.Pi / 180)
	dLon := (b.Lon - a.Lon) * (math.Pi / 180)

	x := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// Rounding can push x marginally above 1 for antipodal points.
	x = math.Min(1, math.Max(0, x))

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(x))
}

// CalculateBounds returns a box that contains every point within radiusKm of
// (lat, lon). It is a prefilter; callers still check DistanceKm.
func CalculateBounds(lat, lon, radiusKm float64) CoordinateBounds {
	latRadians := lat * math.Pi / 180

	latOffset := radiusKm / EarthRadiusKm
	lonRadius := math.Cos(latRadians) * EarthRadiusKm
	lonOffset := math.Pi
	if lonRadius > 0 {
		lonOffset = radiusKm / lonRadius
	}

	return CoordinateBounds{
		MinLat: lat - latOffset*180/math.Pi,
		MaxLat: lat + latOffset*180/math.Pi,
		MinLon: lon - lonOffset*180/math.Pi,
		MaxLon: lon + lonOffset*180/math.Pi,
	}
}

// IsOutOfBounds returns true only if the inner bounds have no overlap
// with the outer bounds.
func IsOutOfBounds(inner, outer CoordinateBounds) bool {
	return inner.MaxLat < outer.MinLat ||
		inner.MinLat > outer.MaxLat ||
		inner.MaxLon < outer.MinLon ||
		inner.MinLon > outer.MaxLon
}
