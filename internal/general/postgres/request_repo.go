package postgres

import (
	"context"
	"fmt"

	"ride-pool/internal/domain/request"
	"ride-pool/internal/ports"
)

// RequestRepo reads intake-owned request rows using pgx and plain SQL.
// The dispatcher never inserts requests; it lists PENDING ones and flips
// their status exactly once.
type RequestRepo struct{}

// NewRequestRepo constructs a new RequestRepo.
func NewRequestRepo() ports.RequestRepository {
	return &RequestRepo{}
}

// ListPendingPassengers returns every PENDING passenger request in intake order.
func (repo *RequestRepo) ListPendingPassengers(ctx context.Context) ([]*request.Pending, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("get transaction from context: %w", err)
	}

	rows, err := tx.Query(ctx, `
		SELECT id, user_ref, from_location, to_location, departure_time,
		       passenger_count, status, created_at
		FROM passenger_requests
		WHERE status = 'PENDING'
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query pending passenger requests: %w", err)
	}
	defer rows.Close()

	var out []*request.Pending
	for rows.Next() {
		var (
			pending request.Pending
			status  string
		)
		if err := rows.Scan(
			&pending.ID, &pending.RequesterRef, &pending.FromRaw, &pending.ToRaw,
			&pending.DepartureTime, &pending.PassengerCount, &status, &pending.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan passenger request: %w", err)
		}
		pending.Kind = request.KindPassenger
		pending.Status = request.Status(status)
		out = append(out, &pending)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return out, nil
}

// ListPendingDeliveries returns every PENDING delivery request in intake order.
// Delivery rows have no departure time of their own; created_at stands in.
func (repo *RequestRepo) ListPendingDeliveries(ctx context.Context) ([]*request.Pending, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("get transaction from context: %w", err)
	}

	rows, err := tx.Query(ctx, `
		SELECT id, sender_ref, from_location, to_location,
		       item_description, weight_kg, insurance_amount,
		       COALESCE(receiver_name, ''), COALESCE(receiver_phone, ''),
		       status, created_at
		FROM delivery_requests
		WHERE status = 'PENDING'
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query pending delivery requests: %w", err)
	}
	defer rows.Close()

	var out []*request.Pending
	for rows.Next() {
		var (
			pending request.Pending
			status  string
		)
		if err := rows.Scan(
			&pending.ID, &pending.RequesterRef, &pending.FromRaw, &pending.ToRaw,
			&pending.ItemDescription, &pending.WeightKG, &pending.InsuranceAmount,
			&pending.ReceiverName, &pending.ReceiverPhone,
			&status, &pending.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan delivery request: %w", err)
		}
		pending.Kind = request.KindDelivery
		pending.Status = request.Status(status)
		pending.DepartureTime = pending.CreatedAt
		out = append(out, &pending)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return out, nil
}

// MarkAccepted flips the request out of PENDING into ACCEPTED. Returns false
// when the row was already taken (another worker won the race) or missing.
func (repo *RequestRepo) MarkAccepted(ctx context.Context, key request.Key) (bool, error) {
	return repo.markStatus(ctx, key, request.StatusAccepted)
}

// MarkFailed flips the request out of PENDING into FAILED. Same guard as
// MarkAccepted.
func (repo *RequestRepo) MarkFailed(ctx context.Context, key request.Key) (bool, error) {
	return repo.markStatus(ctx, key, request.StatusFailed)
}

func (repo *RequestRepo) markStatus(ctx context.Context, key request.Key, status request.Status) (bool, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return false, err
	}

	table, err := tableFor(key.Kind)
	if err != nil {
		return false, err
	}

	// the PENDING guard makes the transition single-shot under concurrency
	tag, err := tx.Exec(ctx, `
		UPDATE `+table+`
		SET status = $1,
		    updated_at = now()
		WHERE id = $2
		  AND status = 'PENDING'
	`, status.String(), key.ID)
	if err != nil {
		return false, fmt.Errorf("update %s status: %w", table, err)
	}

	return tag.RowsAffected() == 1, nil
}

func tableFor(kind request.Kind) (string, error) {
	switch kind {
	case request.KindPassenger:
		return "passenger_requests", nil
	case request.KindDelivery:
		return "delivery_requests", nil
	default:
		return "", fmt.Errorf("unknown request kind %q", kind)
	}
}
