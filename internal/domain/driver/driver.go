package driver

import (
	"errors"

	"ride-pool/internal/domain/geo"
)

// Vehicle is a driver's car as registered upstream. The engine reads
// identity and capacity, nothing more.
type Vehicle struct {
	ID          string
	Capacity    int
	VehicleType string
}

// Driver is the dispatchable snapshot of a driver row. Drivers and their
// vehicles are owned by the fleet module; the engine only reads them and
// toggles availability through the registry's reserve/release.
type Driver struct {
	ID            string
	UserRef       string
	LocationRaw   string // "lat,lon" as last reported; may be stale or malformed
	LicenseNumber string
	Rating        float64 // [0,5], read-only to the engine
	TotalTrips    int
	IsAvailable   bool
	Vehicles      []Vehicle // ordered; the first is the primary vehicle
}

var (
	ErrInvalidRating   = errors.New("rating must be between 0 and 5")
	ErrNegativeTrips   = errors.New("total_trips cannot be negative")
	ErrInvalidCapacity = errors.New("vehicle capacity must be at least 1")
	ErrNoVehicle       = errors.New("driver has no vehicle")
)

// Validate checks the invariants the engine relies on when ranking.
func (d *Driver) Validate() error {
	if d.Rating < 0 || d.Rating > 5 {
		return ErrInvalidRating
	}
	if d.TotalTrips < 0 {
		return ErrNegativeTrips
	}
	for _, v := range d.Vehicles {
		if v.Capacity < 1 {
			return ErrInvalidCapacity
		}
	}
	return nil
}

// PrimaryVehicle returns the first vehicle of the ordered set, which is the
// one committed to a trip at assignment time.
func (d *Driver) PrimaryVehicle() (Vehicle, error) {
	if len(d.Vehicles) == 0 {
		return Vehicle{}, ErrNoVehicle
	}
	return d.Vehicles[0], nil
}

// Location parses the last reported position. Callers treat a parse
// failure as "infinitely far away" rather than as a hard error.
func (d *Driver) Location() (geo.Coordinate, error) {
	return geo.Parse(d.LocationRaw)
}
