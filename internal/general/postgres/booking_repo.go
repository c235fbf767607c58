package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"ride-pool/internal/domain/trip"
	"ride-pool/internal/ports"
)

// BookingRepo persists bookings using pgx and plain SQL.
type BookingRepo struct{}

// NewBookingRepo constructs a new BookingRepo.
func NewBookingRepo() ports.BookingRepository {
	return &BookingRepo{}
}

// Create inserts a booking row and writes the BOOKING_ATTACHED event.
func (repo *BookingRepo) Create(ctx context.Context, booking *trip.Booking) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	seats, err := json.Marshal(booking.Seats)
	if err != nil {
		return fmt.Errorf("encode seats: %w", err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO bookings (trip_id, customer_ref, seats, total_price, status)
		VALUES ($1, $2, $3::jsonb, $4, $5)
		RETURNING id, created_at
	`,
		booking.TripID,
		booking.CustomerRef,
		string(seats),
		booking.TotalPrice,
		booking.Status.String(),
	).Scan(&booking.ID, &booking.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	eventData := map[string]any{
		"booking_id":   booking.ID,
		"customer_ref": booking.CustomerRef,
		"seats":        booking.Seats,
		"total_price":  booking.TotalPrice,
	}
	return insertTripEvent(ctx, tx, booking.TripID, trip.EventBookingAttached.String(), eventData)
}
