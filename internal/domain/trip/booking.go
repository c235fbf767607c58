package trip

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// BookingStatus is a booking status as stored in the `bookings` table.
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCompleted BookingStatus = "COMPLETED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// Valid reports whether the status is a known booking status constant.
func (status BookingStatus) Valid() bool {
	switch status {
	case BookingPending, BookingConfirmed, BookingCompleted, BookingCancelled:
		return true
	default:
		return false
	}
}

// String returns the string representation of the BookingStatus.
func (status BookingStatus) String() string {
	return string(status)
}

// Booking links a trip to a passenger request: who sits where and what
// they pay.
type Booking struct {
	ID          string
	TripID      string
	CustomerRef string
	Seats       []string // ordered labels, one per passenger
	TotalPrice  float64
	Status      BookingStatus
	CreatedAt   time.Time
}

var (
	ErrTripRequired     = errors.New("trip id is required")
	ErrCustomerRequired = errors.New("customer ref is required")
	ErrNoSeatsRequested = errors.New("a booking needs at least one seat")
)

// NewBooking creates a CONFIRMED booking occupying the next passengerCount
// seat labels after seatsUsed. Capacity enforcement is the assembler's job;
// the constructor only shapes the record.
func NewBooking(tripID, customerRef string, seatsUsed, passengerCount int, pricePerSeat float64) (*Booking, error) {
	if tripID = strings.TrimSpace(tripID); tripID == "" {
		return nil, ErrTripRequired
	}
	if customerRef = strings.TrimSpace(customerRef); customerRef == "" {
		return nil, ErrCustomerRequired
	}
	if passengerCount < 1 {
		return nil, ErrNoSeatsRequested
	}

	return &Booking{
		TripID:      tripID,
		CustomerRef: customerRef,
		Seats:       SeatLabels(seatsUsed, passengerCount),
		TotalPrice:  float64(passengerCount) * pricePerSeat,
		Status:      BookingConfirmed,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// SeatLabels returns the labels for count seats starting after seatsUsed.
// Labels are 1-based decimal strings, so a vehicle of capacity 4 hands out
// "1" through "4" over its lifetime.
func SeatLabels(seatsUsed, count int) []string {
	labels := make([]string, count)
	for i := 0; i < count; i++ {
		labels[i] = strconv.Itoa(seatsUsed + i + 1)
	}
	return labels
}
