package trip

import (
	"errors"
	"strings"
	"time"
)

// Trip is the domain entity corresponding to the `trips` table: a driver
// and vehicle committed to an ordered set of bookings and deliveries.
type Trip struct {
	// Identity & audit
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Endpoints, preserved verbatim from the seed request's wire strings.
	FromLocation string
	ToLocation   string

	// Core state
	DepartureTime  time.Time
	AvailableSeats int
	PricePerSeat   float64
	Status         Status

	// Resources
	DriverID  string
	VehicleID string

	// Serialized visit order for pickups and dropoffs.
	RouteCoordinates RoutePlan
}

var (
	ErrFromRequired            = errors.New("from location is required")
	ErrToRequired              = errors.New("to location is required")
	ErrDriverRequired          = errors.New("driver id is required")
	ErrVehicleRequired         = errors.New("vehicle id is required")
	ErrInvalidSeatCount        = errors.New("available seats cannot be negative")
	ErrNegativePrice           = errors.New("price per seat cannot be negative")
	ErrSeatsExceedCapacity     = errors.New("seats used exceed vehicle capacity")
	ErrInvalidStatusTransition = errors.New("invalid trip status transition")
)

// NewTrip creates a fresh PENDING trip with every seat of the vehicle open.
func NewTrip(from, to string, departure time.Time, capacity int, pricePerSeat float64, driverID, vehicleID string, plan RoutePlan) (*Trip, error) {
	if from = strings.TrimSpace(from); from == "" {
		return nil, ErrFromRequired
	}
	if to = strings.TrimSpace(to); to == "" {
		return nil, ErrToRequired
	}
	if driverID = strings.TrimSpace(driverID); driverID == "" {
		return nil, ErrDriverRequired
	}
	if vehicleID = strings.TrimSpace(vehicleID); vehicleID == "" {
		return nil, ErrVehicleRequired
	}
	if capacity < 1 {
		return nil, ErrInvalidSeatCount
	}
	if pricePerSeat < 0 {
		return nil, ErrNegativePrice
	}

	now := time.Now().UTC()
	return &Trip{
		CreatedAt:        now,
		UpdatedAt:        now,
		FromLocation:     from,
		ToLocation:       to,
		DepartureTime:    departure,
		AvailableSeats:   capacity,
		PricePerSeat:     pricePerSeat,
		Status:           StatusPending,
		DriverID:         driverID,
		VehicleID:        vehicleID,
		RouteCoordinates: plan,
	}, nil
}

// ApplySeatUsage recomputes availability after an attachment pass.
// seatsUsed counts every seat consumed on the trip so far, including those
// held before this pass. A fully used vehicle flips to FULL; any fresh
// attachment puts an idle trip into IN_PROGRESS; otherwise the status is
// left alone.
func (trip *Trip) ApplySeatUsage(capacity, seatsUsed int, attachedAny bool) error {
	if seatsUsed > capacity {
		return ErrSeatsExceedCapacity
	}
	if seatsUsed < 0 {
		return ErrInvalidSeatCount
	}

	trip.AvailableSeats = capacity - seatsUsed
	switch {
	case trip.AvailableSeats <= 0:
		trip.setStatus(StatusFull)
	case attachedAny && trip.Status == StatusPending:
		trip.setStatus(StatusInProgress)
	default:
		trip.touch()
	}
	return nil
}

// Cancel transitions to CANCELLED (if not terminal).
func (trip *Trip) Cancel() error {
	if trip.Status.Terminal() {
		return ErrInvalidStatusTransition
	}
	trip.setStatus(StatusCancelled)
	return nil
}

// ---- internal helpers ----

func (trip *Trip) setStatus(status Status) {
	trip.Status = status
	trip.touch()
}

func (trip *Trip) touch() {
	trip.UpdatedAt = time.Now().UTC()
}
