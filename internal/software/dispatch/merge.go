package dispatch

import (
	"context"

	"ride-pool/internal/domain/geo"
	"ride-pool/internal/domain/trip"
)

// Upper bound on open trips examined per merge scan. The scan is pairwise,
// so the work grows quadratically with this.
const defaultMergeScanLimit = 50

// adviseMerges scans open trips after a round and records a
// TRIP_MERGE_CANDIDATE event for every pair whose pickup polylines shadow
// each other within the proximity threshold. Purely advisory: operators
// act on the events, the engine never merges on its own.
func (service *dispatchService) adviseMerges(ctx context.Context) (int, error) {
	found := 0
	err := service.uow.WithinTx(ctx, func(ctx context.Context) error {
		open, err := service.trips.ListOpenWithRoutes(ctx, service.params.MergeScanLimit)
		if err != nil {
			return err
		}
		for i := 0; i < len(open); i++ {
			for j := i + 1; j < len(open); j++ {
				similarity := geo.RouteSimilarityKM(open[i].RouteCoordinates.Pickup, open[j].RouteCoordinates.Pickup)
				if similarity > service.params.ProximityKM {
					continue
				}
				event, err := trip.NewEvent(open[i].ID, trip.EventMergeCandidate, map[string]any{
					"merge_with":    open[j].ID,
					"similarity_km": similarity,
				})
				if err != nil {
					return err
				}
				if err := service.events.Append(ctx, event); err != nil {
					return err
				}
				found++
				service.logger.Info(ctx, "merge_candidate", "open trips run close routes", map[string]any{
					"trip_id":       open[i].ID,
					"merge_with":    open[j].ID,
					"similarity_km": similarity,
				})
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return found, nil
}
