package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ride-pool/internal/common/contextx"
	"ride-pool/internal/general/contracts"
	"ride-pool/internal/ports"
)

const producerName = "dispatch-service"

// Notifier publishes user-facing notification messages to the notify topic.
// Callers defer Enqueue behind the transaction commit; the adapter itself
// publishes immediately.
type Notifier struct {
	client *Client
}

// NewNotifier constructs a Notifier over the given client.
func NewNotifier(client *Client) ports.Notifier {
	return &Notifier{client: client}
}

// Enqueue publishes one notification, routed "notify.{kind}" (lowercased).
func (n *Notifier) Enqueue(ctx context.Context, userRef string, kind ports.NotificationKind, payload map[string]any) error {
	msg := contracts.NotificationMessage{
		UserRef:   userRef,
		Kind:      string(kind),
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		Envelope: contracts.Envelope{
			CorrelationID: contextx.GetRoundID(ctx),
			Producer:      producerName,
			SentAt:        time.Now().UTC(),
		},
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	routingKey := contracts.RouteNotifyPrefix + strings.ToLower(string(kind))
	if err := n.client.Publish(ctx, contracts.ExchangeNotifyTopic, routingKey, body); err != nil {
		return fmt.Errorf("publish notification %s: %w", routingKey, err)
	}
	return nil
}
