package contracts

import "time"

// NotificationMessage is published by the dispatch service for user-facing
// delivery by a downstream consumer.
// Routing key: "notify.{kind}" on ExchangeNotifyTopic.
type NotificationMessage struct {
	UserRef   string         `json:"user_ref"`
	Kind      string         `json:"kind"` // TRIP_ASSIGNED|BOOKING_CONFIRMED|DELIVERY_CONFIRMED|RETRY_WAITING
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Envelope
}
