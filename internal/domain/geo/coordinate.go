package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Coordinate is a WGS84 point. The wire form used by upstream intake is
// "lat,lon" with two decimal numbers; Parse is the only way such strings
// enter the engine.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

var (
	ErrMalformedCoordinate = errors.New("coordinate must be two comma-separated numbers")
	ErrInvalidLatitude     = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude    = errors.New("longitude must be between -180 and 180")
)

// New constructs a Coordinate with range checks.
func New(latitude, longitude float64) (Coordinate, error) {
	coordinate := Coordinate{Latitude: latitude, Longitude: longitude}
	if err := coordinate.Validate(); err != nil {
		return Coordinate{}, err
	}
	return coordinate, nil
}

// Parse converts a "lat,lon" string into a Coordinate. Surrounding
// whitespace around either number is tolerated; everything else fails.
func Parse(s string) (Coordinate, error) {
	latPart, lonPart, found := strings.Cut(s, ",")
	if !found || strings.Contains(lonPart, ",") {
		return Coordinate{}, ErrMalformedCoordinate
	}

	latitude, err := strconv.ParseFloat(strings.TrimSpace(latPart), 64)
	if err != nil {
		return Coordinate{}, ErrMalformedCoordinate
	}
	longitude, err := strconv.ParseFloat(strings.TrimSpace(lonPart), 64)
	if err != nil {
		return Coordinate{}, ErrMalformedCoordinate
	}

	return New(latitude, longitude)
}

// Validate checks the WGS84 ranges. NaN never compares true, so it is
// rejected explicitly.
func (coordinate Coordinate) Validate() error {
	if math.IsNaN(coordinate.Latitude) || coordinate.Latitude < -90 || coordinate.Latitude > 90 {
		return ErrInvalidLatitude
	}
	if math.IsNaN(coordinate.Longitude) || coordinate.Longitude < -180 || coordinate.Longitude > 180 {
		return ErrInvalidLongitude
	}
	return nil
}

// String renders the canonical wire form.
func (coordinate Coordinate) String() string {
	return fmt.Sprintf("%g,%g", coordinate.Latitude, coordinate.Longitude)
}

// HaversineKM is the great-circle distance between two points in kilometers.
func HaversineKM(a, b Coordinate) float64 {
	const R = 6371.0 // Earth radius in km
	a1 := a.Latitude * math.Pi / 180
	a2 := b.Latitude * math.Pi / 180
	da := (b.Latitude - a.Latitude) * math.Pi / 180
	db := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(da/2)*math.Sin(da/2) +
		math.Cos(a1)*math.Cos(a2)*math.Sin(db/2)*math.Sin(db/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return R * c
}

// Centroid is the arithmetic mean of latitudes and longitudes taken
// independently. Callers only pass points inside a single urban-scale
// cluster, where the planar approximation is fine. Empty input yields the
// zero coordinate.
func Centroid(points []Coordinate) Coordinate {
	if len(points) == 0 {
		return Coordinate{}
	}
	var latSum, lonSum float64
	for _, p := range points {
		latSum += p.Latitude
		lonSum += p.Longitude
	}
	n := float64(len(points))
	return Coordinate{Latitude: latSum / n, Longitude: lonSum / n}
}
