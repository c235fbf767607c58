package postgres

import (
	"context"
	"fmt"

	"ride-pool/internal/domain/geo"
	"ride-pool/internal/domain/trip"
	"ride-pool/internal/ports"
)

// TripRepo persists trips using pgx and plain SQL.
type TripRepo struct{}

// NewTripRepo constructs a new TripRepo.
func NewTripRepo() ports.TripRepository {
	return &TripRepo{}
}

// reuseCandidateLimit bounds how many open trips one lookup inspects.
// Endpoints live in the rows as verbatim "lat,lon" strings, so the radius
// check happens here after parsing, not in SQL.
const reuseCandidateLimit = 50

// FindReusable returns the oldest open trip whose endpoints both fall within
// radiusKm of the given from/to and that still has minSeats seats, along with
// its vehicle's capacity. Returns (nil, nil) when nothing matches.
func (repo *TripRepo) FindReusable(ctx context.Context, from, to string, minSeats int, radiusKm float64) (*ports.ReusableTrip, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	wantFrom, err := geo.Parse(from)
	if err != nil {
		return nil, fmt.Errorf("parse from %q: %w", from, err)
	}
	wantTo, err := geo.Parse(to)
	if err != nil {
		return nil, fmt.Errorf("parse to %q: %w", to, err)
	}

	// lock candidate rows so the seat update later in this transaction does
	// not race a concurrent dispatcher
	rows, err := tx.Query(ctx, `
		SELECT t.id, t.created_at, t.updated_at, t.from_location, t.to_location,
		       t.departure_time, t.available_seats, t.price_per_seat, t.status,
		       t.driver_id, t.vehicle_id, COALESCE(t.route_coordinates::text, ''),
		       v.capacity
		FROM trips t
		JOIN vehicles v ON v.id = t.vehicle_id
		WHERE t.status IN ('PENDING', 'IN_PROGRESS')
		  AND t.available_seats >= $1
		ORDER BY t.created_at
		LIMIT $2
		FOR UPDATE OF t
	`, minSeats, reuseCandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("query reusable trips: %w", err)
	}
	defer rows.Close()

	var (
		match    *trip.Trip
		capacity int
	)
	for rows.Next() {
		var (
			candidate       trip.Trip
			status          string
			rawPlan         string
			vehicleCapacity int
		)
		if err := rows.Scan(
			&candidate.ID, &candidate.CreatedAt, &candidate.UpdatedAt,
			&candidate.FromLocation, &candidate.ToLocation,
			&candidate.DepartureTime, &candidate.AvailableSeats, &candidate.PricePerSeat, &status,
			&candidate.DriverID, &candidate.VehicleID, &rawPlan,
			&vehicleCapacity,
		); err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}

		if match != nil {
			continue // drain remaining rows; first hit wins
		}

		tripFrom, err := geo.Parse(candidate.FromLocation)
		if err != nil {
			continue // unmatched candidates with bad endpoints are skipped, not fatal
		}
		tripTo, err := geo.Parse(candidate.ToLocation)
		if err != nil {
			continue
		}
		if geo.HaversineKM(tripFrom, wantFrom) > radiusKm || geo.HaversineKM(tripTo, wantTo) > radiusKm {
			continue
		}

		plan, err := trip.DecodeRoutePlan(rawPlan)
		if err != nil {
			return nil, fmt.Errorf("decode route plan of trip %s: %w", candidate.ID, err)
		}
		candidate.Status = trip.Status(status)
		candidate.RouteCoordinates = plan

		matched := candidate
		match = &matched
		capacity = vehicleCapacity
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if match == nil {
		return nil, nil
	}
	return &ports.ReusableTrip{Trip: match, VehicleCapacity: capacity}, nil
}

// Create inserts a new trip row and writes the TRIP_CREATED event.
func (repo *TripRepo) Create(ctx context.Context, newTrip *trip.Trip) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	rawPlan, err := newTrip.RouteCoordinates.Encode()
	if err != nil {
		return fmt.Errorf("encode route plan: %w", err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO trips (
			from_location, to_location, departure_time, available_seats,
			price_per_seat, status, driver_id, vehicle_id, route_coordinates
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb)
		RETURNING id, created_at, updated_at
	`,
		newTrip.FromLocation,
		newTrip.ToLocation,
		newTrip.DepartureTime,
		newTrip.AvailableSeats,
		newTrip.PricePerSeat,
		newTrip.Status.String(),
		newTrip.DriverID,
		newTrip.VehicleID,
		rawPlan,
	).Scan(&newTrip.ID, &newTrip.CreatedAt, &newTrip.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert trip: %w", err)
	}

	eventData := map[string]any{
		"driver_id":       newTrip.DriverID,
		"vehicle_id":      newTrip.VehicleID,
		"available_seats": newTrip.AvailableSeats,
		"price_per_seat":  newTrip.PricePerSeat,
	}
	return insertTripEvent(ctx, tx, newTrip.ID, trip.EventTripCreated.String(), eventData)
}

// UpdateSeats sets available_seats and status after an attachment pass.
// The open-status guard keeps a trip another worker already closed intact.
func (repo *TripRepo) UpdateSeats(ctx context.Context, id string, availableSeats int, status trip.Status) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE trips
		SET available_seats = $1,
		    status = $2,
		    updated_at = now()
		WHERE id = $3
		  AND status IN ('PENDING', 'IN_PROGRESS')
	`, availableSeats, status.String(), id)
	if err != nil {
		return fmt.Errorf("update trip seats: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("trip %s is not open", id)
	}

	if status == trip.StatusFull {
		eventData := map[string]any{"available_seats": availableSeats}
		return insertTripEvent(ctx, tx, id, trip.EventTripFull.String(), eventData)
	}
	return nil
}

// ListOpenWithRoutes returns up to limit open trips that carry a route plan,
// oldest first. The merge advisor scans these after each round.
func (repo *TripRepo) ListOpenWithRoutes(ctx context.Context, limit int) ([]*trip.Trip, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT id, created_at, updated_at, from_location, to_location,
		       departure_time, available_seats, price_per_seat, status,
		       driver_id, vehicle_id, COALESCE(route_coordinates::text, '')
		FROM trips
		WHERE status = 'PENDING'
		  AND route_coordinates IS NOT NULL
		ORDER BY created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query open trips: %w", err)
	}
	defer rows.Close()

	var out []*trip.Trip
	for rows.Next() {
		var (
			row     trip.Trip
			status  string
			rawPlan string
		)
		if err := rows.Scan(
			&row.ID, &row.CreatedAt, &row.UpdatedAt, &row.FromLocation, &row.ToLocation,
			&row.DepartureTime, &row.AvailableSeats, &row.PricePerSeat, &status,
			&row.DriverID, &row.VehicleID, &rawPlan,
		); err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}

		plan, err := trip.DecodeRoutePlan(rawPlan)
		if err != nil {
			return nil, fmt.Errorf("decode route plan of trip %s: %w", row.ID, err)
		}
		row.Status = trip.Status(status)
		row.RouteCoordinates = plan
		out = append(out, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return out, nil
}
