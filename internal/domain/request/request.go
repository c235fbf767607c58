package request

import (
	"errors"
	"strings"
	"time"

	"ride-pool/internal/domain/geo"
)

// Kind discriminates the two intake pipelines that share the dispatcher.
type Kind string

const (
	KindPassenger Kind = "PASSENGER"
	KindDelivery  Kind = "DELIVERY"
)

// Key identifies a request across both upstream id sequences, which are
// independent serials and may collide numerically.
type Key struct {
	Kind Kind
	ID   int64
}

var (
	ErrInvalidID             = errors.New("request id must be positive")
	ErrEmptyRequesterRef     = errors.New("requester_ref cannot be empty")
	ErrInvalidPassengerCount = errors.New("passenger_count must be at least 1")
	ErrNegativeWeight        = errors.New("weight_kg cannot be negative")
	ErrNegativeInsurance     = errors.New("insurance_amount cannot be negative")
)

// Pending is one unit of dispatch work: a passenger ride request or a
// parcel delivery request, tagged by Kind. Shared fields are populated for
// both kinds; the payload fields only for their own kind. The engine never
// creates these records, it only reads them and flips Status.
type Pending struct {
	ID            int64
	Kind          Kind
	RequesterRef  string // customer for passengers, sender for deliveries
	FromRaw       string // "lat,lon" as received from intake
	ToRaw         string
	DepartureTime time.Time // delivery rows carry their creation time here
	CreatedAt     time.Time
	Status        Status

	// Passenger payload.
	PassengerCount int

	// Delivery payload.
	ItemDescription string
	WeightKG        float64
	InsuranceAmount float64
	ReceiverName    string
	ReceiverPhone   string
}

// NewPassenger constructs a pending passenger request in PENDING.
func NewPassenger(id int64, requesterRef, fromRaw, toRaw string, departure time.Time, passengers int) (*Pending, error) {
	pending := &Pending{
		ID:             id,
		Kind:           KindPassenger,
		RequesterRef:   strings.TrimSpace(requesterRef),
		FromRaw:        strings.TrimSpace(fromRaw),
		ToRaw:          strings.TrimSpace(toRaw),
		DepartureTime:  departure,
		CreatedAt:      time.Now().UTC(),
		Status:         StatusPending,
		PassengerCount: passengers,
	}
	if err := pending.Validate(); err != nil {
		return nil, err
	}
	return pending, nil
}

// NewDelivery constructs a pending delivery request in PENDING.
func NewDelivery(id int64, senderRef, fromRaw, toRaw, description string, weightKG, insurance float64, receiverName, receiverPhone string) (*Pending, error) {
	now := time.Now().UTC()
	pending := &Pending{
		ID:              id,
		Kind:            KindDelivery,
		RequesterRef:    strings.TrimSpace(senderRef),
		FromRaw:         strings.TrimSpace(fromRaw),
		ToRaw:           strings.TrimSpace(toRaw),
		DepartureTime:   now,
		CreatedAt:       now,
		Status:          StatusPending,
		ItemDescription: strings.TrimSpace(description),
		WeightKG:        weightKG,
		InsuranceAmount: insurance,
		ReceiverName:    strings.TrimSpace(receiverName),
		ReceiverPhone:   strings.TrimSpace(receiverPhone),
	}
	if err := pending.Validate(); err != nil {
		return nil, err
	}
	return pending, nil
}

// Validate checks invariants of the Pending entity.
func (pending *Pending) Validate() error {
	if pending.ID <= 0 {
		return ErrInvalidID
	}
	if strings.TrimSpace(pending.RequesterRef) == "" {
		return ErrEmptyRequesterRef
	}
	switch pending.Kind {
	case KindPassenger:
		if pending.PassengerCount < 1 {
			return ErrInvalidPassengerCount
		}
	case KindDelivery:
		if pending.WeightKG < 0 {
			return ErrNegativeWeight
		}
		if pending.InsuranceAmount < 0 {
			return ErrNegativeInsurance
		}
	}
	return nil
}

// Key returns the kind-qualified identity of the request.
func (pending *Pending) Key() Key {
	return Key{Kind: pending.Kind, ID: pending.ID}
}

// Seats is the seat impact of the request: passenger headcount for rides,
// zero for parcels.
func (pending *Pending) Seats() int {
	if pending.Kind == KindPassenger {
		return pending.PassengerCount
	}
	return 0
}

// ParseEndpoints parses the raw from/to strings. Either failing makes the
// whole request undispatchable for the round.
func (pending *Pending) ParseEndpoints() (from, to geo.Coordinate, err error) {
	from, err = geo.Parse(pending.FromRaw)
	if err != nil {
		return geo.Coordinate{}, geo.Coordinate{}, err
	}
	to, err = geo.Parse(pending.ToRaw)
	if err != nil {
		return geo.Coordinate{}, geo.Coordinate{}, err
	}
	return from, to, nil
}
