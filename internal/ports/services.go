package ports

import (
	"context"
	"time"

	"ride-pool/internal/domain/request"
)

// ----- Notification boundary -----

// NotificationKind names the push categories the engine emits. Delivery is
// an external collaborator's job; the engine only enqueues.
type NotificationKind string

const (
	NotifyTripAssigned      NotificationKind = "TRIP_ASSIGNED"
	NotifyBookingConfirmed  NotificationKind = "BOOKING_CONFIRMED"
	NotifyDeliveryConfirmed NotificationKind = "DELIVERY_CONFIRMED"
	NotifyRetryWaiting      NotificationKind = "RETRY_WAITING"
)

// Notifier hands notifications to the delivery pipeline. Calls made inside
// a dispatch transaction are deferred via commit hooks, so nothing leaks on
// rollback.
type Notifier interface {
	Enqueue(ctx context.Context, userRef string, kind NotificationKind, payload map[string]any) error
}

// ----- Time and retry state -----

// Clock is the injectable time source. After exists so the scheduler loop
// can be driven by a fake clock in tests instead of real sleeps.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// RetryRegistry deduplicates retry marking per request with a cooldown.
// Mark returns true when the entry was recorded (first mark, or the old one
// aged past the cooldown) and false for a suppressed re-mark. The registry
// is advisory: request status in the store stays the source of truth.
type RetryRegistry interface {
	Mark(ctx context.Context, key request.Key) bool
	Len() int
}

// ----- DTOs for Dispatch Service -----

// RoundSummary reports what one dispatch round did.
type RoundSummary struct {
	RoundID           string        `json:"round_id"`
	PendingSeen       int           `json:"pending_seen"`
	InvalidRequests   int           `json:"invalid_requests"`
	Clusters          int           `json:"clusters"`
	TripsCreated      int           `json:"trips_created"`
	TripsReused       int           `json:"trips_reused"`
	BookingsCreated   int           `json:"bookings_created"`
	DeliveriesCreated int           `json:"deliveries_created"`
	RequestsAccepted  int           `json:"requests_accepted"`
	RequestsRetried   int           `json:"requests_retried"`
	MergeCandidates   int           `json:"merge_candidates"`
	Duration          time.Duration `json:"duration"`
}

// ----- Dispatch Service Interface -----

// DispatchService exposes the boundary for the batch dispatcher.
type DispatchService interface {
	// RunRound executes one dispatch round: fetch, cluster, assign, commit.
	RunRound(ctx context.Context) (RoundSummary, error)
	// RunScheduler drives rounds at the configured interval until ctx is
	// cancelled. Rounds never overlap; round errors are logged, not returned.
	RunScheduler(ctx context.Context) error
}
