package postgres

import (
	"context"
	"fmt"

	"ride-pool/internal/domain/driver"
	"ride-pool/internal/ports"
)

// DriverRegistry reads fleet-owned driver rows and gates their availability.
// Reserve and Release are the only mutators of is_available in this service.
type DriverRegistry struct{}

// NewDriverRegistry constructs a new DriverRegistry.
func NewDriverRegistry() ports.DriverRegistry {
	return &DriverRegistry{}
}

// ListAvailable returns every available driver owning at least one vehicle
// with capacity >= minCapacity, each with their full ordered vehicle set.
// Ranking is the selector's job, not the registry's.
func (reg *DriverRegistry) ListAvailable(ctx context.Context, minCapacity int) ([]driver.Driver, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT d.id, d.user_ref, COALESCE(d.current_location, ''),
		       COALESCE(d.license_number, ''), d.rating, d.total_trips, d.is_available,
		       v.id, v.capacity, v.vehicle_type
		FROM drivers d
		JOIN vehicles v ON v.driver_id = d.id
		WHERE d.is_available = true
		  AND EXISTS (
			SELECT 1 FROM vehicles vv
			WHERE vv.driver_id = d.id AND vv.capacity >= $1
		  )
		ORDER BY d.created_at, d.id, v.created_at, v.id
	`, minCapacity)
	if err != nil {
		return nil, fmt.Errorf("query available drivers: %w", err)
	}
	defer rows.Close()

	var (
		out  []driver.Driver
		last *driver.Driver
	)
	for rows.Next() {
		var (
			row     driver.Driver
			vehicle driver.Vehicle
		)
		if err := rows.Scan(
			&row.ID, &row.UserRef, &row.LocationRaw,
			&row.LicenseNumber, &row.Rating, &row.TotalTrips, &row.IsAvailable,
			&vehicle.ID, &vehicle.Capacity, &vehicle.VehicleType,
		); err != nil {
			return nil, fmt.Errorf("scan driver: %w", err)
		}

		// rows arrive grouped by driver; fold vehicles into the current one
		if last != nil && last.ID == row.ID {
			last.Vehicles = append(last.Vehicles, vehicle)
			continue
		}
		row.Vehicles = []driver.Vehicle{vehicle}
		out = append(out, row)
		last = &out[len(out)-1]
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return out, nil
}

// Reserve flips is_available from true to false. The compare-and-set makes
// concurrent workers lose cleanly with ports.ErrDriverReserved. Returns the
// fresh driver snapshot and the primary vehicle committed to the trip.
func (reg *DriverRegistry) Reserve(ctx context.Context, driverID string) (*driver.Driver, driver.Vehicle, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, driver.Vehicle{}, err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE drivers
		SET is_available = false,
		    updated_at = now()
		WHERE id = $1
		  AND is_available = true
	`, driverID)
	if err != nil {
		return nil, driver.Vehicle{}, fmt.Errorf("reserve driver: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, driver.Vehicle{}, ports.ErrDriverReserved
	}

	reserved, err := reg.getByID(ctx, driverID)
	if err != nil {
		return nil, driver.Vehicle{}, err
	}
	vehicle, err := reserved.PrimaryVehicle()
	if err != nil {
		return nil, driver.Vehicle{}, err
	}
	return reserved, vehicle, nil
}

// Release returns a driver to the available pool. The round flow never calls
// it (a rolled-back reservation undoes itself); trip completion does.
func (reg *DriverRegistry) Release(ctx context.Context, driverID string) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE drivers
		SET is_available = true,
		    updated_at = now()
		WHERE id = $1
	`, driverID)
	if err != nil {
		return fmt.Errorf("release driver: %w", err)
	}
	return nil
}

// getByID loads one driver with the ordered vehicle set.
func (reg *DriverRegistry) getByID(ctx context.Context, driverID string) (*driver.Driver, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var out driver.Driver
	err = tx.QueryRow(ctx, `
		SELECT id, user_ref, COALESCE(current_location, ''),
		       COALESCE(license_number, ''), rating, total_trips, is_available
		FROM drivers
		WHERE id = $1
	`, driverID).Scan(
		&out.ID, &out.UserRef, &out.LocationRaw,
		&out.LicenseNumber, &out.Rating, &out.TotalTrips, &out.IsAvailable,
	)
	if err != nil {
		return nil, fmt.Errorf("load driver %s: %w", driverID, err)
	}

	rows, err := tx.Query(ctx, `
		SELECT id, capacity, vehicle_type
		FROM vehicles
		WHERE driver_id = $1
		ORDER BY created_at, id
	`, driverID)
	if err != nil {
		return nil, fmt.Errorf("query vehicles of %s: %w", driverID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var vehicle driver.Vehicle
		if err := rows.Scan(&vehicle.ID, &vehicle.Capacity, &vehicle.VehicleType); err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		out.Vehicles = append(out.Vehicles, vehicle)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return &out, nil
}
