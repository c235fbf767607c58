package dispatch

import (
	"context"

	"ride-pool/internal/common/contextx"
	"ride-pool/internal/domain/request"
	"ride-pool/internal/ports"
)

// notifyOnCommit defers a notification until the enclosing transaction
// commits; outside a transaction it fires right away. Publish failures are
// logged and dropped, the store stays authoritative either way.
func (service *dispatchService) notifyOnCommit(ctx context.Context, userRef string, kind ports.NotificationKind, payload map[string]any) {
	contextx.OnCommit(ctx, func() {
		if err := service.notifier.Enqueue(ctx, userRef, kind, payload); err != nil {
			service.logger.Warn(ctx, "notify_failed", "notification enqueue failed", map[string]any{
				"user_ref": userRef,
				"kind":     string(kind),
				"error":    err.Error(),
			})
			return
		}
		if service.metrics != nil {
			service.metrics.NotificationsPublished.Inc()
		}
	})
}

// waitingNotice tells a requester their below-threshold request was served
// as a singleton while waiting for more riders. The retry ledger gates it,
// so a requester hears this at most once per cooldown.
func (service *dispatchService) waitingNotice(ctx context.Context, pending *request.Pending) {
	if !service.retries.Mark(ctx, pending.Key()) {
		return
	}
	service.notifyOnCommit(ctx, pending.RequesterRef, ports.NotifyRetryWaiting, waitingPayload(pending))
}

func waitingPayload(pending *request.Pending) map[string]any {
	return map[string]any{
		"request_id": pending.ID,
		"kind":       string(pending.Kind),
	}
}
