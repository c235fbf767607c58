package ports

import (
	"context"
	"errors"

	"ride-pool/internal/domain/driver"
	"ride-pool/internal/domain/request"
	"ride-pool/internal/domain/trip"
)

// ErrDriverReserved is returned by DriverRegistry.Reserve when another
// worker already flipped the driver to unavailable.
var ErrDriverReserved = errors.New("driver already reserved")

// UnitOfWork interface is used to manage transactions across multiple repository operations.
// Implementations must provide serializable semantics and run the commit
// hooks collected in ctx (see contextx.OnCommit) only after the outermost
// transaction commits.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// RequestRepository reads the two intake tables and flips request statuses.
// Status writes use the `UPDATE ... WHERE status = 'PENDING'` form: the
// returned bool reports whether this call performed the transition, so a
// request leaves PENDING at most once across concurrent workers.
type RequestRepository interface {
	ListPendingPassengers(ctx context.Context) ([]*request.Pending, error)
	ListPendingDeliveries(ctx context.Context) ([]*request.Pending, error)
	MarkAccepted(ctx context.Context, key request.Key) (bool, error)
	MarkFailed(ctx context.Context, key request.Key) (bool, error)
}

// ReusableTrip is an open trip that can absorb more requests, together
// with the capacity of its committed vehicle (the seat-accounting base).
type ReusableTrip struct {
	Trip            *trip.Trip
	VehicleCapacity int
}

// TripRepository defines the methods for managing trip data.
type TripRepository interface {
	// FindReusable returns the oldest open trip whose endpoints are within
	// radiusKm (haversine) of from/to and that still has minSeats seats,
	// or nil when none qualifies.
	FindReusable(ctx context.Context, from, to string, minSeats int, radiusKm float64) (*ReusableTrip, error)
	Create(ctx context.Context, t *trip.Trip) error
	UpdateSeats(ctx context.Context, id string, availableSeats int, status trip.Status) error
	// ListOpenWithRoutes returns PENDING trips carrying a route plan, for
	// the post-round merge scan.
	ListOpenWithRoutes(ctx context.Context, limit int) ([]*trip.Trip, error)
}

// BookingRepository defines the methods for managing booking data.
type BookingRepository interface {
	Create(ctx context.Context, b *trip.Booking) error
}

// DeliveryRepository defines the methods for managing delivery data.
type DeliveryRepository interface {
	Create(ctx context.Context, d *trip.Delivery) error
}

// TripEventRepository defines the methods for managing trip event data.
type TripEventRepository interface {
	Append(ctx context.Context, e *trip.Event) error
}

// DriverRegistry owns driver availability. Reserve and Release are the only
// legal mutators of is_available anywhere in the system.
type DriverRegistry interface {
	// ListAvailable returns available drivers whose primary vehicle seats
	// at least minCapacity, with their vehicles loaded in registration order.
	ListAvailable(ctx context.Context, minCapacity int) ([]driver.Driver, error)
	// Reserve flips is_available true -> false and returns the driver with
	// the chosen (first) vehicle. ErrDriverReserved signals that a
	// concurrent worker won the flip.
	Reserve(ctx context.Context, driverID string) (*driver.Driver, driver.Vehicle, error)
	// Release flips is_available false -> true.
	Release(ctx context.Context, driverID string) error
}
