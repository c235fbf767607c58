package dispatch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ride-pool/internal/common/contextx"
	"ride-pool/internal/domain/cluster"
	"ride-pool/internal/domain/driver"
	"ride-pool/internal/domain/geo"
	"ride-pool/internal/domain/request"
	"ride-pool/internal/domain/trip"
	"ride-pool/internal/general/logger"
	"ride-pool/internal/general/metrics"
	"ride-pool/internal/ports"
)

type fakeTxKey struct{}

// fakeUOW mimics the transactional envelope: nested calls join the open
// scope, commit hooks run only when the outermost closure succeeds.
type fakeUOW struct {
	begun int
}

func (u *fakeUOW) WithinTx(ctx context.Context, fn func(context.Context) error) error {
	if ctx.Value(fakeTxKey{}) != nil {
		return fn(ctx)
	}
	u.begun++
	txCtx := context.WithValue(ctx, fakeTxKey{}, true)
	txCtx, bag := contextx.WithHookBag(txCtx)
	if err := fn(txCtx); err != nil {
		return err
	}
	bag.Run()
	return nil
}

// memStore backs the request, trip and event repositories with in-memory
// state. Mutations apply immediately, so tests that force mid-transaction
// failures assert on behavior rather than on rolled-back contents.
type memStore struct {
	requests map[request.Key]*request.Pending
	trips    []*trip.Trip
	caps     map[string]int // vehicle id -> capacity, for reuse lookups
	bookings []*trip.Booking
	parcels  []*trip.Delivery
	events   []*trip.Event

	listPassengersErr error
	createBookingErr  error
	updateSeatsErr    error
	onListPassengers  func()
}

func newMemStore() *memStore {
	return &memStore{
		requests: make(map[request.Key]*request.Pending),
		caps:     make(map[string]int),
	}
}

func (s *memStore) add(items ...*request.Pending) {
	for _, item := range items {
		s.requests[item.Key()] = item
	}
}

func (s *memStore) seedTrip(t *trip.Trip, vehicleCapacity int) {
	s.caps[t.VehicleID] = vehicleCapacity
	s.trips = append(s.trips, t)
}

func (s *memStore) status(kind request.Kind, id int64) request.Status {
	return s.requests[request.Key{Kind: kind, ID: id}].Status
}

func (s *memStore) eventsOf(eventType trip.EventType) []*trip.Event {
	out := []*trip.Event{}
	for _, event := range s.events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

func (s *memStore) ListPendingPassengers(_ context.Context) ([]*request.Pending, error) {
	if s.onListPassengers != nil {
		s.onListPassengers()
	}
	if s.listPassengersErr != nil {
		return nil, s.listPassengersErr
	}
	return s.pendingOf(request.KindPassenger), nil
}

func (s *memStore) ListPendingDeliveries(_ context.Context) ([]*request.Pending, error) {
	return s.pendingOf(request.KindDelivery), nil
}

func (s *memStore) pendingOf(kind request.Kind) []*request.Pending {
	out := []*request.Pending{}
	for _, item := range s.requests {
		if item.Kind == kind && item.Status == request.StatusPending {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memStore) MarkAccepted(_ context.Context, key request.Key) (bool, error) {
	return s.mark(key, request.StatusAccepted), nil
}

func (s *memStore) MarkFailed(_ context.Context, key request.Key) (bool, error) {
	return s.mark(key, request.StatusFailed), nil
}

func (s *memStore) mark(key request.Key, status request.Status) bool {
	item, ok := s.requests[key]
	if !ok || item.Status != request.StatusPending {
		return false
	}
	item.Status = status
	return true
}

func (s *memStore) FindReusable(_ context.Context, from, to string, minSeats int, radiusKm float64) (*ports.ReusableTrip, error) {
	wantFrom, err := geo.Parse(from)
	if err != nil {
		return nil, err
	}
	wantTo, err := geo.Parse(to)
	if err != nil {
		return nil, err
	}
	for _, candidate := range s.trips {
		if candidate.Status != trip.StatusPending && candidate.Status != trip.StatusInProgress {
			continue
		}
		if candidate.AvailableSeats < minSeats {
			continue
		}
		tripFrom, errFrom := geo.Parse(candidate.FromLocation)
		tripTo, errTo := geo.Parse(candidate.ToLocation)
		if errFrom != nil || errTo != nil {
			continue
		}
		if geo.HaversineKM(tripFrom, wantFrom) > radiusKm || geo.HaversineKM(tripTo, wantTo) > radiusKm {
			continue
		}
		clone := *candidate
		return &ports.ReusableTrip{Trip: &clone, VehicleCapacity: s.caps[candidate.VehicleID]}, nil
	}
	return nil, nil
}

func (s *memStore) Create(_ context.Context, created *trip.Trip) error {
	created.ID = fmt.Sprintf("trip-%06d", len(s.trips)+1)
	clone := *created
	s.trips = append(s.trips, &clone)
	s.caps[created.VehicleID] = created.AvailableSeats // fresh trips have every seat open
	return nil
}

func (s *memStore) UpdateSeats(_ context.Context, id string, availableSeats int, status trip.Status) error {
	if s.updateSeatsErr != nil {
		return s.updateSeatsErr
	}
	for _, t := range s.trips {
		if t.ID == id {
			t.AvailableSeats = availableSeats
			t.Status = status
			return nil
		}
	}
	return fmt.Errorf("trip %s not found", id)
}

func (s *memStore) ListOpenWithRoutes(_ context.Context, limit int) ([]*trip.Trip, error) {
	out := []*trip.Trip{}
	for _, t := range s.trips {
		if t.Status != trip.StatusPending || len(t.RouteCoordinates.Pickup) == 0 {
			continue
		}
		clone := *t
		out = append(out, &clone)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memStore) Append(_ context.Context, event *trip.Event) error {
	s.events = append(s.events, event)
	return nil
}

// bookingStore and deliveryStore split off because their Create signatures
// collide with the trip repository's.
type bookingStore struct{ s *memStore }

func (b bookingStore) Create(_ context.Context, booking *trip.Booking) error {
	if b.s.createBookingErr != nil {
		return b.s.createBookingErr
	}
	b.s.bookings = append(b.s.bookings, booking)
	return nil
}

type deliveryStore struct{ s *memStore }

func (d deliveryStore) Create(_ context.Context, delivery *trip.Delivery) error {
	d.s.parcels = append(d.s.parcels, delivery)
	return nil
}

// fakeRegistry is the in-memory driver pool.
type fakeRegistry struct {
	drivers    []*driver.Driver
	listErr    error
	reserveErr error
}

func (r *fakeRegistry) ListAvailable(_ context.Context, minCapacity int) ([]driver.Driver, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := []driver.Driver{}
	for _, d := range r.drivers {
		if !d.IsAvailable {
			continue
		}
		for _, v := range d.Vehicles {
			if v.Capacity >= minCapacity {
				out = append(out, *d)
				break
			}
		}
	}
	return out, nil
}

func (r *fakeRegistry) Reserve(_ context.Context, driverID string) (*driver.Driver, driver.Vehicle, error) {
	if r.reserveErr != nil {
		return nil, driver.Vehicle{}, r.reserveErr
	}
	for _, d := range r.drivers {
		if d.ID != driverID {
			continue
		}
		if !d.IsAvailable {
			return nil, driver.Vehicle{}, ports.ErrDriverReserved
		}
		vehicle, err := d.PrimaryVehicle()
		if err != nil {
			return nil, driver.Vehicle{}, err
		}
		d.IsAvailable = false
		clone := *d
		return &clone, vehicle, nil
	}
	return nil, driver.Vehicle{}, ports.ErrDriverReserved
}

func (r *fakeRegistry) Release(_ context.Context, driverID string) error {
	for _, d := range r.drivers {
		if d.ID == driverID {
			d.IsAvailable = true
			return nil
		}
	}
	return nil
}

type sentNote struct {
	userRef string
	kind    ports.NotificationKind
	payload map[string]any
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNote
}

func (n *fakeNotifier) Enqueue(_ context.Context, userRef string, kind ports.NotificationKind, payload map[string]any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNote{userRef: userRef, kind: kind, payload: payload})
	return nil
}

func (n *fakeNotifier) ofKind(kind ports.NotificationKind) []sentNote {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := []sentNote{}
	for _, note := range n.sent {
		if note.kind == kind {
			out = append(out, note)
		}
	}
	return out
}

// fakeClock is a hand-driven time source. After always hands back the same
// channel; tests push ticks into it to release the scheduler.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	ticks chan time.Time
	waits []time.Duration
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start, ticks: make(chan time.Time, 8)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.waits = append(c.waits, d)
	c.mu.Unlock()
	return c.ticks
}

func (c *fakeClock) waitCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waits)
}

// testEnv wires a dispatch service onto the fakes.
type testEnv struct {
	uow      *fakeUOW
	store    *memStore
	registry *fakeRegistry
	notifier *fakeNotifier
	clock    *fakeClock
	ledger   *MemoryRetryLedger
	metrics  *metrics.Metrics
	service  ports.DispatchService
}

func newTestEnv(t *testing.T, params Params) *testEnv {
	t.Helper()

	if params.Interval == 0 {
		params.Interval = 20 * time.Second
	}
	if params.RoundDeadline == 0 {
		params.RoundDeadline = time.Minute
	}
	if params.MinClusterSize == 0 {
		params.MinClusterSize = 3
	}
	if params.MaxDetourKM == 0 {
		params.MaxDetourKM = 5
	}
	if params.ProximityKM == 0 {
		params.ProximityKM = 1.0
	}
	if params.TimeWindow == 0 {
		params.TimeWindow = 15 * time.Minute
	}
	if params.PricePerSeat == 0 {
		params.PricePerSeat = 25.0
	}

	clusterer, err := cluster.New(cluster.Params{
		Backend:        cluster.BackendHDBSCAN,
		MinClusterSize: params.MinClusterSize,
		Eps:            0.1,
		MinSamples:     3,
	}, nil)
	require.NoError(t, err)

	env := &testEnv{
		uow:      &fakeUOW{},
		store:    newMemStore(),
		registry: &fakeRegistry{},
		notifier: &fakeNotifier{},
		clock:    newFakeClock(time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)),
		metrics:  metrics.New(),
	}
	env.ledger = NewMemoryRetryLedger(time.Hour, env.clock)
	env.service = NewService(
		logger.New("dispatch-test"),
		env.uow,
		env.store,
		env.store,
		bookingStore{env.store},
		deliveryStore{env.store},
		env.store,
		env.registry,
		env.notifier,
		env.clock,
		env.ledger,
		clusterer,
		env.metrics,
		params,
	)
	return env
}

func (env *testEnv) addDriver(d *driver.Driver) {
	env.registry.drivers = append(env.registry.drivers, d)
	for _, v := range d.Vehicles {
		env.store.caps[v.ID] = v.Capacity
	}
}

func mustPassenger(t *testing.T, id int64, ref, from, to string, departure time.Time, seats int) *request.Pending {
	t.Helper()
	p, err := request.NewPassenger(id, ref, from, to, departure, seats)
	require.NoError(t, err)
	return p
}

func mustDelivery(t *testing.T, id int64, ref, from, to, description string) *request.Pending {
	t.Helper()
	p, err := request.NewDelivery(id, ref, from, to, description, 2.5, 0, "", "")
	require.NoError(t, err)
	return p
}

func availableDriver(id, userRef, location string, rating float64, trips, capacity int) *driver.Driver {
	return &driver.Driver{
		ID:          id,
		UserRef:     userRef,
		LocationRaw: location,
		Rating:      rating,
		TotalTrips:  trips,
		IsAvailable: true,
		Vehicles: []driver.Vehicle{
			{ID: "veh-" + id, Capacity: capacity, VehicleType: "sedan"},
		},
	}
}
