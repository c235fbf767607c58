package trip

import (
	"errors"
	"regexp"
	"testing"

	"ride-pool/internal/domain/request"
)

func TestSeatLabels(t *testing.T) {
	got := SeatLabels(0, 3)
	want := []string{"1", "2", "3"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SeatLabels(0,3) = %v, want %v", got, want)
		}
	}

	got = SeatLabels(2, 2)
	want = []string{"3", "4"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SeatLabels(2,2) = %v, want %v", got, want)
		}
	}
}

func TestNewBooking(t *testing.T) {
	booking, err := NewBooking("trip-1", "user-9", 1, 2, 25.0)
	if err != nil {
		t.Fatalf("NewBooking: %v", err)
	}
	if booking.Status != BookingConfirmed {
		t.Errorf("status = %s, want CONFIRMED", booking.Status)
	}
	if booking.TotalPrice != 50.0 {
		t.Errorf("total price = %v, want passengers x price = 50.0", booking.TotalPrice)
	}
	if len(booking.Seats) != 2 || booking.Seats[0] != "2" || booking.Seats[1] != "3" {
		t.Errorf("seats = %v, want [2 3]", booking.Seats)
	}
}

func TestNewBookingValidation(t *testing.T) {
	if _, err := NewBooking(" ", "user-9", 0, 1, 25); !errors.Is(err, ErrTripRequired) {
		t.Errorf("blank trip: %v, want ErrTripRequired", err)
	}
	if _, err := NewBooking("trip-1", "", 0, 1, 25); !errors.Is(err, ErrCustomerRequired) {
		t.Errorf("blank customer: %v, want ErrCustomerRequired", err)
	}
	if _, err := NewBooking("trip-1", "user-9", 0, 0, 25); !errors.Is(err, ErrNoSeatsRequested) {
		t.Errorf("zero passengers: %v, want ErrNoSeatsRequested", err)
	}
}

var deliveryCodePattern = regexp.MustCompile(`^D\d{6,}$`)

func TestDeliveryCode(t *testing.T) {
	cases := []struct {
		id   int64
		want string
	}{
		{1, "D000001"},
		{123, "D000123"},
		{999999, "D999999"},
		{1234567, "D1234567"}, // wider ids print in full
	}
	for _, tc := range cases {
		got := DeliveryCode(tc.id)
		if got != tc.want {
			t.Errorf("DeliveryCode(%d) = %s, want %s", tc.id, got, tc.want)
		}
		if !deliveryCodePattern.MatchString(got) {
			t.Errorf("DeliveryCode(%d) = %s does not match D\\d{6,}", tc.id, got)
		}
	}
}

func TestNewDelivery(t *testing.T) {
	pending := &request.Pending{
		ID:              42,
		Kind:            request.KindDelivery,
		RequesterRef:    "sender-1",
		ItemDescription: "books",
		WeightKG:        2.5,
	}

	delivery, err := NewDelivery("trip-1", pending)
	if err != nil {
		t.Fatalf("NewDelivery: %v", err)
	}
	if delivery.Status != DeliveryInTransit {
		t.Errorf("status = %s, want IN_TRANSIT", delivery.Status)
	}
	if delivery.DeliveryCode != "D000042" {
		t.Errorf("code = %s, want D000042", delivery.DeliveryCode)
	}
	if delivery.ReceiverName != "Unknown" || delivery.ReceiverPhone != "000000000" {
		t.Errorf("blank receiver fields must get defaults, got %q / %q", delivery.ReceiverName, delivery.ReceiverPhone)
	}
	if delivery.InsuranceAmount != 0 {
		t.Errorf("insurance = %v, want 0 default", delivery.InsuranceAmount)
	}
}

func TestNewDeliveryKeepsProvidedReceiver(t *testing.T) {
	pending := &request.Pending{
		ID:            7,
		Kind:          request.KindDelivery,
		RequesterRef:  "sender-1",
		ReceiverName:  "Sara",
		ReceiverPhone: "0551234567",
	}
	delivery, err := NewDelivery("trip-1", pending)
	if err != nil {
		t.Fatalf("NewDelivery: %v", err)
	}
	if delivery.ReceiverName != "Sara" || delivery.ReceiverPhone != "0551234567" {
		t.Errorf("provided receiver overwritten: %q / %q", delivery.ReceiverName, delivery.ReceiverPhone)
	}
}

func TestNewDeliveryRejectsPassengerRequest(t *testing.T) {
	pending := &request.Pending{ID: 7, Kind: request.KindPassenger, RequesterRef: "user-1", PassengerCount: 1}
	if _, err := NewDelivery("trip-1", pending); !errors.Is(err, ErrNotADelivery) {
		t.Errorf("passenger request: %v, want ErrNotADelivery", err)
	}
}
