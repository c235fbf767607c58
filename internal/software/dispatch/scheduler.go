package dispatch

import (
	"context"
)

// RunScheduler drives dispatch rounds at the configured interval until ctx
// is cancelled. Rounds never overlap: a round that outlasts the interval
// is followed immediately by the next one. Round errors are observed and
// logged, never returned; the in-flight round finishes or rolls back on
// shutdown.
func (service *dispatchService) RunScheduler(ctx context.Context) error {
	service.logger.Info(ctx, "scheduler_started", "dispatch scheduler started", map[string]any{
		"interval":       service.params.Interval.String(),
		"round_deadline": service.params.RoundDeadline.String(),
	})

	for {
		if ctx.Err() != nil {
			service.logger.Info(ctx, "scheduler_stopped", "dispatch scheduler stopped", nil)
			return nil
		}

		started := service.clock.Now()
		roundCtx, cancel := context.WithTimeout(ctx, service.params.RoundDeadline)
		summary, err := service.RunRound(roundCtx)
		cancel()

		if service.metrics != nil {
			service.metrics.ObserveRound(summary, err)
		}
		if err != nil {
			service.logger.Error(ctx, "round_error", "dispatch round failed", err, map[string]any{
				"round_id": summary.RoundID,
			})
		}

		elapsed := service.clock.Now().Sub(started)
		if elapsed >= service.params.Interval {
			service.logger.Warn(ctx, "round_overrun", "round outlasted the interval", map[string]any{
				"elapsed":  elapsed.String(),
				"interval": service.params.Interval.String(),
			})
			continue
		}
		if ctx.Err() != nil {
			service.logger.Info(ctx, "scheduler_stopped", "dispatch scheduler stopped", nil)
			return nil
		}

		select {
		case <-ctx.Done():
			service.logger.Info(ctx, "scheduler_stopped", "dispatch scheduler stopped", nil)
			return nil
		case <-service.clock.After(service.params.Interval - elapsed):
		}
	}
}
