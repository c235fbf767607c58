package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"ride-pool/internal/domain/trip"
	"ride-pool/internal/ports"

	"github.com/jackc/pgx/v5"
)

// TripEventRepo appends rows to the trip_events audit trail.
type TripEventRepo struct{}

// NewTripEventRepo constructs a new TripEventRepo.
func NewTripEventRepo() ports.TripEventRepository {
	return &TripEventRepo{}
}

// Append writes one event row in the caller's transaction.
func (repo *TripEventRepo) Append(ctx context.Context, event *trip.Event) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	body, err := event.DataJSON()
	if err != nil {
		return fmt.Errorf("encode event data: %w", err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO trip_events (trip_id, event_type, event_data)
		VALUES ($1, $2, $3::jsonb)
		RETURNING id, created_at
	`, event.TripID, event.Type.String(), string(body)).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert trip event: %w", err)
	}
	return nil
}

// insertTripEvent writes a row into trip_events with encoded event_data.
// Repos call it to co-locate the audit row with the mutation it describes.
func insertTripEvent(ctx context.Context, tx pgx.Tx, tripID, eventType string, eventData any) error {
	body, err := json.Marshal(eventData)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO trip_events (trip_id, event_type, event_data)
		VALUES ($1, $2, $3::jsonb)
	`, tripID, eventType, string(body))
	return err
}
