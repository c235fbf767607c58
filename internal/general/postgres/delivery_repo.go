package postgres

import (
	"context"
	"fmt"

	"ride-pool/internal/domain/trip"
	"ride-pool/internal/ports"
)

// DeliveryRepo persists deliveries using pgx and plain SQL.
type DeliveryRepo struct{}

// NewDeliveryRepo constructs a new DeliveryRepo.
func NewDeliveryRepo() ports.DeliveryRepository {
	return &DeliveryRepo{}
}

// Create inserts a delivery row and writes the DELIVERY_ATTACHED event.
func (repo *DeliveryRepo) Create(ctx context.Context, delivery *trip.Delivery) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO deliveries (
			trip_id, sender_ref, receiver_name, receiver_phone,
			item_description, weight_kg, insurance_amount, delivery_code, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`,
		delivery.TripID,
		delivery.SenderRef,
		delivery.ReceiverName,
		delivery.ReceiverPhone,
		delivery.ItemDescription,
		delivery.WeightKG,
		delivery.InsuranceAmount,
		delivery.DeliveryCode,
		delivery.Status.String(),
	).Scan(&delivery.ID, &delivery.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}

	eventData := map[string]any{
		"delivery_id":   delivery.ID,
		"sender_ref":    delivery.SenderRef,
		"delivery_code": delivery.DeliveryCode,
		"weight_kg":     delivery.WeightKG,
	}
	return insertTripEvent(ctx, tx, delivery.TripID, trip.EventDeliveryAttached.String(), eventData)
}
