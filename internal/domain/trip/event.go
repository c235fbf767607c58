package trip

import (
	"encoding/json"
	"errors"
	"maps"
	"strings"
	"time"
)

// EventType corresponds to the values accepted by the `trip_events` table.
type EventType string

const (
	EventTripCreated      EventType = "TRIP_CREATED"
	EventTripReused       EventType = "TRIP_REUSED"
	EventBookingAttached  EventType = "BOOKING_ATTACHED"
	EventDeliveryAttached EventType = "DELIVERY_ATTACHED"
	EventTripFull         EventType = "TRIP_FULL"
	EventMergeCandidate   EventType = "TRIP_MERGE_CANDIDATE"
)

var ErrInvalidEventType = errors.New("invalid trip event type")

// ParseEventType normalizes (uppercases+trims) and validates an event type string.
func ParseEventType(input string) (EventType, error) {
	eventType := EventType(strings.ToUpper(strings.TrimSpace(input)))
	if eventType.Valid() {
		return eventType, nil
	}
	return "", ErrInvalidEventType
}

// Valid reports whether eventType is one of the allowed event type constants.
func (eventType EventType) Valid() bool {
	switch eventType {
	case EventTripCreated,
		EventTripReused,
		EventBookingAttached,
		EventDeliveryAttached,
		EventTripFull,
		EventMergeCandidate:
		return true
	default:
		return false
	}
}

// String returns the string representation of the EventType.
func (eventType EventType) String() string {
	return string(eventType)
}

// Event is the domain entity corresponding to the `trip_events` table. One
// row per dispatch-relevant fact, written in the same transaction as the
// mutation it describes.
type Event struct {
	// Identity & audit
	ID        string
	CreatedAt time.Time

	// Foreign keys
	TripID string

	// Core payload
	Type EventType
	Data map[string]any
}

var (
	ErrEventTripRequired = errors.New("trip id is required")
	ErrEventDataNil      = errors.New("event data must not be nil")
)

// NewEvent constructs a new domain Event.
func NewEvent(tripID string, eventType EventType, eventData map[string]any) (*Event, error) {
	if tripID = strings.TrimSpace(tripID); tripID == "" {
		return nil, ErrEventTripRequired
	}
	if !eventType.Valid() {
		return nil, ErrInvalidEventType
	}
	if eventData == nil {
		return nil, ErrEventDataNil
	}

	return &Event{
		TripID:    tripID,
		Type:      eventType,
		Data:      cloneMap(eventData),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// DataJSON returns event.Data encoded as JSON.
func (event *Event) DataJSON() ([]byte, error) {
	if event.Data == nil {
		return nil, ErrEventDataNil
	}
	return json.Marshal(event.Data)
}

// cloneMap makes a shallow defensive copy of a map[string]any.
func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}

	dst := make(map[string]any, len(src))
	maps.Copy(dst, src)
	return dst
}
