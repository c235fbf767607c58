package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ride-pool/internal/common/contextx"
	"ride-pool/internal/domain/cluster"
	"ride-pool/internal/domain/request"
	"ride-pool/internal/general/postgres"
	"ride-pool/internal/ports"
)

// RunRound executes one dispatch round: snapshot the pending intake,
// cluster it by geography, and bind every cluster to a trip. Cluster
// failures are isolated; only a transient store failure aborts the round,
// and the next tick picks the work up again.
func (service *dispatchService) RunRound(ctx context.Context) (ports.RoundSummary, error) {
	ctx = contextx.WithNewRoundID(ctx)
	started := service.clock.Now()
	summary := ports.RoundSummary{RoundID: contextx.GetRoundID(ctx)}
	service.logger.Info(ctx, "round_started", "dispatch round started", nil)

	pending, err := service.snapshotPending(ctx)
	if err != nil {
		summary.Duration = service.clock.Now().Sub(started)
		service.logger.Error(ctx, "round_failed", "pending snapshot failed", err, nil)
		return summary, err
	}
	summary.PendingSeen = len(pending)
	if len(pending) == 0 {
		summary.Duration = service.clock.Now().Sub(started)
		service.logger.Info(ctx, "round_finished", "no pending requests", summary)
		return summary, nil
	}

	valid := make([]*request.Pending, 0, len(pending))
	for _, item := range pending {
		if _, _, err := item.ParseEndpoints(); err != nil {
			summary.InvalidRequests++
			service.logger.Warn(ctx, "invalid_coordinates", "request endpoints are unparsable", map[string]any{
				"kind":       string(item.Kind),
				"request_id": item.ID,
				"error":      err.Error(),
			})
			service.retryItem(ctx, &summary, item, false)
			continue
		}
		valid = append(valid, item)
	}

	flagged := len(valid) < service.params.MinClusterSize
	for _, group := range service.groupRequests(valid) {
		if err := service.processGroup(ctx, &summary, group, flagged); err != nil {
			summary.Duration = service.clock.Now().Sub(started)
			service.logger.Error(ctx, "round_failed", "store failure aborted the round", err, nil)
			return summary, err
		}
		summary.Clusters++
	}

	merges, err := service.adviseMerges(ctx)
	if err != nil {
		// Advisory tail of the round; a failed scan costs nothing but the hints.
		service.logger.Warn(ctx, "merge_scan_failed", "trip merge scan failed", map[string]any{
			"error": err.Error(),
		})
	}
	summary.MergeCandidates = merges

	summary.Duration = service.clock.Now().Sub(started)
	service.logger.Info(ctx, "round_finished", "dispatch round finished", summary)
	return summary, nil
}

// snapshotPending reads both intake tables in one short transaction,
// passengers first, each ordered by id.
func (service *dispatchService) snapshotPending(ctx context.Context) ([]*request.Pending, error) {
	var pending []*request.Pending
	err := service.uow.WithinTx(ctx, func(ctx context.Context) error {
		passengers, err := service.requests.ListPendingPassengers(ctx)
		if err != nil {
			return err
		}
		deliveries, err := service.requests.ListPendingDeliveries(ctx)
		if err != nil {
			return err
		}
		pending = append(passengers, deliveries...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pending, nil
}

// groupRequests turns the parse-valid snapshot into clusters to dispatch.
// Below the cluster threshold everything is a singleton. Otherwise the
// clusterer runs on [fromLat, fromLon, toLat, toLon] rows; labeled clusters
// come first in ascending label order, then noise points as singletons in
// input order.
func (service *dispatchService) groupRequests(valid []*request.Pending) [][]*request.Pending {
	if len(valid) == 0 {
		return nil
	}
	if len(valid) < service.params.MinClusterSize {
		return singletons(valid)
	}

	features := make([][]float64, len(valid))
	for i, item := range valid {
		from, to, _ := item.ParseEndpoints()
		features[i] = []float64{from.Latitude, from.Longitude, to.Latitude, to.Longitude}
	}
	labels := service.clusterer.Labels(features)
	clusters, noise := cluster.Groups(labels)

	groups := make([][]*request.Pending, 0, len(clusters)+len(noise))
	for _, indexes := range clusters {
		group := make([]*request.Pending, len(indexes))
		for i, idx := range indexes {
			group[i] = valid[idx]
		}
		groups = append(groups, group)
	}
	for _, idx := range noise {
		groups = append(groups, []*request.Pending{valid[idx]})
	}

	if service.clusterer.Backend() == cluster.BackendDBSCAN {
		groups = service.bucketByDeparture(groups)
	}
	return groups
}

func singletons(valid []*request.Pending) [][]*request.Pending {
	groups := make([][]*request.Pending, len(valid))
	for i, item := range valid {
		groups[i] = []*request.Pending{item}
	}
	return groups
}

// bucketByDeparture splits clusters whose departure spread exceeds the
// configured time window into k-means buckets over minutes-to-departure,
// k = ceil(n/3). Buckets come back ordered by ascending mean departure.
func (service *dispatchService) bucketByDeparture(groups [][]*request.Pending) [][]*request.Pending {
	now := service.clock.Now()
	out := make([][]*request.Pending, 0, len(groups))
	for _, group := range groups {
		if len(group) < 2 || departureSpread(group) <= service.params.TimeWindow {
			out = append(out, group)
			continue
		}
		minutes := make([]float64, len(group))
		for i, item := range group {
			minutes[i] = item.DepartureTime.Sub(now).Minutes()
		}
		k := (len(group) + 2) / 3
		for _, bucket := range cluster.TimeBuckets(minutes, k) {
			sub := make([]*request.Pending, len(bucket))
			for i, idx := range bucket {
				sub[i] = group[idx]
			}
			out = append(out, sub)
		}
	}
	return out
}

func departureSpread(group []*request.Pending) time.Duration {
	earliest, latest := group[0].DepartureTime, group[0].DepartureTime
	for _, item := range group[1:] {
		if item.DepartureTime.Before(earliest) {
			earliest = item.DepartureTime
		}
		if item.DepartureTime.After(latest) {
			latest = item.DepartureTime
		}
	}
	return latest.Sub(earliest)
}

// processGroup dispatches one cluster and absorbs its failures. Transient
// store errors bubble up and abort the round; everything else parks the
// cluster's items in the retry registry and lets the round move on.
func (service *dispatchService) processGroup(ctx context.Context, summary *ports.RoundSummary, group []*request.Pending, flagged bool) error {
	outcome, err := service.assembleCluster(ctx, group)
	if err == nil {
		if outcome.tripCreated {
			summary.TripsCreated++
		}
		if outcome.tripReused {
			summary.TripsReused++
		}
		summary.BookingsCreated += outcome.bookings
		summary.DeliveriesCreated += outcome.deliveries
		summary.RequestsAccepted += len(outcome.attached)

		for _, pending := range outcome.skipped {
			service.logger.Warn(ctx, "capacity_exceeded", "request does not fit the vehicle", map[string]any{
				"kind":       string(pending.Kind),
				"request_id": pending.ID,
				"trip_id":    outcome.tripID,
			})
			service.retryItem(ctx, summary, pending, flagged)
		}
		if flagged {
			for _, pending := range outcome.attached {
				service.waitingNotice(ctx, pending)
			}
		}
		service.logger.Info(ctx, "cluster_processed", "cluster dispatched", map[string]any{
			"trip_id":    outcome.tripID,
			"size":       len(group),
			"bookings":   outcome.bookings,
			"deliveries": outcome.deliveries,
			"skipped":    len(outcome.skipped),
			"reused":     outcome.tripReused,
		})
		return nil
	}

	if postgres.IsTransient(err) {
		return fmt.Errorf("cluster of %d requests: %w", len(group), err)
	}

	switch {
	case errors.Is(err, ErrNoAvailableDriver):
		service.logger.Warn(ctx, "no_available_driver", "no driver can serve the cluster", map[string]any{
			"size": len(group),
		})
	case errors.Is(err, ports.ErrDriverReserved):
		service.logger.Warn(ctx, "driver_reservation_conflict", "another worker reserved the driver first", map[string]any{
			"size": len(group),
		})
	default:
		service.logger.Error(ctx, "cluster_failed", "cluster dropped for this round", err, map[string]any{
			"size": len(group),
		})
	}
	for _, pending := range group {
		service.retryItem(ctx, summary, pending, flagged)
	}
	return nil
}

// retryItem parks one request for a later round. The request row stays
// PENDING; the registry only deduplicates the bookkeeping. RETRY_WAITING
// goes out for below-threshold items, once per cooldown.
func (service *dispatchService) retryItem(ctx context.Context, summary *ports.RoundSummary, pending *request.Pending, flagged bool) {
	if !service.retries.Mark(ctx, pending.Key()) {
		return
	}
	summary.RequestsRetried++
	service.logger.Debug(ctx, "retry_marked", "request parked for retry", map[string]any{
		"kind":       string(pending.Kind),
		"request_id": pending.ID,
	})
	if flagged {
		service.notifyOnCommit(ctx, pending.RequesterRef, ports.NotifyRetryWaiting, waitingPayload(pending))
	}
}
