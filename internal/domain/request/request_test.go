package request

import (
	"errors"
	"testing"
	"time"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusAccepted, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusCancelled, true},
		// terminal states have no outgoing transitions
		{StatusAccepted, StatusPending, false},
		{StatusAccepted, StatusFailed, false},
		{StatusFailed, StatusPending, false},
		{StatusCancelled, StatusAccepted, false},
		{StatusPending, StatusPending, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if s, err := ParseStatus(" pending "); err != nil || s != StatusPending {
		t.Errorf("ParseStatus(\" pending \") = (%v, %v), want (PENDING, nil)", s, err)
	}
	if _, err := ParseStatus("IN_TRANSIT"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("ParseStatus(IN_TRANSIT) error = %v, want ErrInvalidStatus", err)
	}
}

func TestNewPassengerValidation(t *testing.T) {
	departure := time.Now().Add(10 * time.Minute)

	if _, err := NewPassenger(7, "user-1", "24.71,46.67", "24.80,46.70", departure, 2); err != nil {
		t.Fatalf("valid passenger request rejected: %v", err)
	}
	if _, err := NewPassenger(0, "user-1", "24.71,46.67", "24.80,46.70", departure, 2); !errors.Is(err, ErrInvalidID) {
		t.Errorf("zero id: error = %v, want ErrInvalidID", err)
	}
	if _, err := NewPassenger(7, "  ", "24.71,46.67", "24.80,46.70", departure, 2); !errors.Is(err, ErrEmptyRequesterRef) {
		t.Errorf("blank requester: error = %v, want ErrEmptyRequesterRef", err)
	}
	if _, err := NewPassenger(7, "user-1", "24.71,46.67", "24.80,46.70", departure, 0); !errors.Is(err, ErrInvalidPassengerCount) {
		t.Errorf("zero passengers: error = %v, want ErrInvalidPassengerCount", err)
	}
}

func TestNewDeliveryValidation(t *testing.T) {
	if _, err := NewDelivery(3, "sender-1", "24.71,46.67", "24.80,46.70", "books", 2.5, 0, "", ""); err != nil {
		t.Fatalf("valid delivery request rejected: %v", err)
	}
	if _, err := NewDelivery(3, "sender-1", "24.71,46.67", "24.80,46.70", "books", -1, 0, "", ""); !errors.Is(err, ErrNegativeWeight) {
		t.Errorf("negative weight: error = %v, want ErrNegativeWeight", err)
	}
	if _, err := NewDelivery(3, "sender-1", "24.71,46.67", "24.80,46.70", "books", 1, -5, "", ""); !errors.Is(err, ErrNegativeInsurance) {
		t.Errorf("negative insurance: error = %v, want ErrNegativeInsurance", err)
	}
}

func TestSeatsByKind(t *testing.T) {
	passenger := &Pending{Kind: KindPassenger, PassengerCount: 3}
	if got := passenger.Seats(); got != 3 {
		t.Errorf("passenger Seats() = %d, want 3", got)
	}
	delivery := &Pending{Kind: KindDelivery, WeightKG: 12}
	if got := delivery.Seats(); got != 0 {
		t.Errorf("delivery Seats() = %d, want 0", got)
	}
}

func TestKeySeparatesKinds(t *testing.T) {
	passenger := &Pending{ID: 42, Kind: KindPassenger}
	delivery := &Pending{ID: 42, Kind: KindDelivery}
	if passenger.Key() == delivery.Key() {
		t.Error("keys for distinct kinds with the same id must differ")
	}
}

func TestParseEndpoints(t *testing.T) {
	pending := &Pending{FromRaw: "24.71,46.67", ToRaw: "24.80,46.70"}
	from, to, err := pending.ParseEndpoints()
	if err != nil {
		t.Fatalf("ParseEndpoints: %v", err)
	}
	if from.Latitude != 24.71 || to.Longitude != 46.70 {
		t.Errorf("parsed endpoints (%v, %v) do not match raw strings", from, to)
	}

	bad := &Pending{FromRaw: "not-a-coordinate", ToRaw: "24.80,46.70"}
	if _, _, err := bad.ParseEndpoints(); err == nil {
		t.Error("malformed from string should fail")
	}
}
