package dispatch

import (
	"context"

	"ride-pool/internal/common/contextx"
	"ride-pool/internal/domain/geo"
	"ride-pool/internal/domain/request"
	"ride-pool/internal/domain/route"
	"ride-pool/internal/domain/trip"
	"ride-pool/internal/ports"
)

// clusterOutcome is what one committed cluster produced. The caller folds
// it into the round summary only after the transaction commits, so dropped
// clusters never inflate the counters.
type clusterOutcome struct {
	tripID      string
	tripCreated bool
	tripReused  bool
	bookings    int
	deliveries  int
	attached    []*request.Pending // accepted in this transaction
	skipped     []*request.Pending // over capacity, retried by the caller
}

func clusterSeats(group []*request.Pending) int {
	total := 0
	for _, pending := range group {
		total += pending.Seats()
	}
	return total
}

// assembleCluster binds one cluster to a trip inside a single serializable
// transaction. An open trip close enough to the cluster is extended;
// otherwise a driver is reserved and a fresh trip created. Passengers are
// attached while seats last, deliveries always. Notifications ride the
// commit hooks, so a rollback leaks nothing.
func (service *dispatchService) assembleCluster(ctx context.Context, group []*request.Pending) (clusterOutcome, error) {
	var outcome clusterOutcome
	seed := group[0]
	minSeats := clusterSeats(group)
	if minSeats < 1 {
		minSeats = 1
	}

	err := service.uow.WithinTx(ctx, func(ctx context.Context) error {
		reusable, err := service.trips.FindReusable(ctx, seed.FromRaw, seed.ToRaw, minSeats, reuseRadiusKM)
		if err != nil {
			return err
		}

		var (
			current  *trip.Trip
			capacity int
		)
		if reusable != nil {
			current = reusable.Trip
			capacity = reusable.VehicleCapacity
			outcome.tripReused = true
		} else {
			current, capacity, err = service.createTrip(ctx, group)
			if err != nil {
				return err
			}
			outcome.tripCreated = true
		}
		ctx = contextx.WithTripID(ctx, current.ID)
		outcome.tripID = current.ID

		if outcome.tripReused {
			event, err := trip.NewEvent(current.ID, trip.EventTripReused, map[string]any{
				"cluster_size":    len(group),
				"seats_remaining": current.AvailableSeats,
			})
			if err != nil {
				return err
			}
			if err := service.events.Append(ctx, event); err != nil {
				return err
			}
		}

		seatsUsed := capacity - current.AvailableSeats
		for _, pending := range group {
			if pending.Kind != request.KindPassenger {
				continue
			}
			if seatsUsed+pending.PassengerCount > capacity {
				outcome.skipped = append(outcome.skipped, pending)
				continue
			}
			taken, err := service.requests.MarkAccepted(ctx, pending.Key())
			if err != nil {
				return err
			}
			if !taken {
				continue // another worker moved it out of PENDING
			}
			booking, err := trip.NewBooking(current.ID, pending.RequesterRef, seatsUsed, pending.PassengerCount, current.PricePerSeat)
			if err != nil {
				return err
			}
			if err := service.bookings.Create(ctx, booking); err != nil {
				return err
			}
			seatsUsed += pending.PassengerCount
			outcome.bookings++
			outcome.attached = append(outcome.attached, pending)
			service.notifyOnCommit(ctx, pending.RequesterRef, ports.NotifyBookingConfirmed, map[string]any{
				"trip_id":     current.ID,
				"seats":       booking.Seats,
				"total_price": booking.TotalPrice,
			})
		}

		for _, pending := range group {
			if pending.Kind != request.KindDelivery {
				continue
			}
			taken, err := service.requests.MarkAccepted(ctx, pending.Key())
			if err != nil {
				return err
			}
			if !taken {
				continue
			}
			delivery, err := trip.NewDelivery(current.ID, pending)
			if err != nil {
				return err
			}
			if err := service.deliveries.Create(ctx, delivery); err != nil {
				return err
			}
			outcome.deliveries++
			outcome.attached = append(outcome.attached, pending)
			service.notifyOnCommit(ctx, pending.RequesterRef, ports.NotifyDeliveryConfirmed, map[string]any{
				"trip_id":       current.ID,
				"delivery_code": delivery.DeliveryCode,
			})
		}

		attachedAny := len(outcome.attached) > 0
		if err := current.ApplySeatUsage(capacity, seatsUsed, attachedAny); err != nil {
			return err
		}
		return service.trips.UpdateSeats(ctx, current.ID, current.AvailableSeats, current.Status)
	})
	if err != nil {
		return clusterOutcome{}, err
	}
	return outcome, nil
}

// createTrip reserves the selected driver and writes a fresh PENDING trip
// seeded from the cluster's first request. Returns the trip and the
// vehicle capacity the seat accounting runs against.
func (service *dispatchService) createTrip(ctx context.Context, group []*request.Pending) (*trip.Trip, int, error) {
	seed := group[0]
	chosen, vehicle, err := service.selectDriver(ctx, group)
	if err != nil {
		return nil, 0, err
	}

	now := service.clock.Now()
	price := trip.PricePerSeat(len(group), now, service.params.DynamicPricing, service.params.PricePerSeat)
	created, err := trip.NewTrip(seed.FromRaw, seed.ToRaw, now, vehicle.Capacity, price, chosen.ID, vehicle.ID, routePlan(group))
	if err != nil {
		return nil, 0, err
	}
	if err := service.trips.Create(ctx, created); err != nil {
		return nil, 0, err
	}

	service.logger.Info(ctx, "trip_created", "trip created for cluster", map[string]any{
		"trip_id":        created.ID,
		"driver_id":      chosen.ID,
		"vehicle_id":     vehicle.ID,
		"capacity":       vehicle.Capacity,
		"price_per_seat": created.PricePerSeat,
	})
	service.notifyOnCommit(ctx, chosen.UserRef, ports.NotifyTripAssigned, map[string]any{
		"trip_id":        created.ID,
		"from_location":  created.FromLocation,
		"to_location":    created.ToLocation,
		"departure_time": created.DepartureTime,
	})
	return created, vehicle.Capacity, nil
}

// routePlan sequences the cluster's pickups and dropoffs independently,
// each nearest-neighbor from the seed request's point.
func routePlan(group []*request.Pending) trip.RoutePlan {
	pickups := make([]geo.Coordinate, 0, len(group))
	dropoffs := make([]geo.Coordinate, 0, len(group))
	for _, pending := range group {
		from, to, err := pending.ParseEndpoints()
		if err != nil {
			continue // grouped requests were already parse-checked
		}
		pickups = append(pickups, from)
		dropoffs = append(dropoffs, to)
	}
	return trip.RoutePlan{
		Pickup:  route.NearestNeighbor(pickups),
		Dropoff: route.NearestNeighbor(dropoffs),
	}
}
