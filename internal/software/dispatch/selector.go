package dispatch

import (
	"context"
	"math"
	"sort"

	"ride-pool/internal/domain/driver"
	"ride-pool/internal/domain/geo"
	"ride-pool/internal/domain/request"
)

// scoredCandidate pairs a driver with its selection score: distance to the
// cluster's representative pickup in km, negated rating, total trips.
// Ascending lexicographic order means closer beats higher-rated beats
// less-used. A driver with an unparsable location scores (+Inf, 0, 0).
type scoredCandidate struct {
	drv     driver.Driver
	vehicle driver.Vehicle
	score   [3]float64
}

func (a scoredCandidate) before(b scoredCandidate) bool {
	for i := range a.score {
		if a.score[i] != b.score[i] {
			return a.score[i] < b.score[i]
		}
	}
	return false
}

// rankCandidates scores candidates against the representative pickup and
// sorts them. Candidates with a known location farther than maxDetourKM
// are outside the pickup radius and dropped; unknown locations are kept,
// ranked last. Candidates without a vehicle are dropped.
func rankCandidates(candidates []driver.Driver, pickup geo.Coordinate, maxDetourKM float64) []scoredCandidate {
	ranked := make([]scoredCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		vehicle, err := candidate.PrimaryVehicle()
		if err != nil {
			continue
		}
		scored := scoredCandidate{drv: candidate, vehicle: vehicle}
		if at, err := candidate.Location(); err != nil {
			scored.score = [3]float64{math.Inf(1), 0, 0}
		} else {
			distance := geo.HaversineKM(at, pickup)
			if maxDetourKM > 0 && distance > maxDetourKM {
				continue
			}
			scored.score = [3]float64{distance, -candidate.Rating, float64(candidate.TotalTrips)}
		}
		ranked = append(ranked, scored)
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].before(ranked[j]) })
	return ranked
}

// selectDriver picks and reserves a driver for a cluster that needs a new
// trip. The first ranked candidate whose vehicle seats the whole cluster
// wins; when none fits, the top-ranked one is taken and the assembler
// skips the overflow per request.
func (service *dispatchService) selectDriver(ctx context.Context, group []*request.Pending) (*driver.Driver, driver.Vehicle, error) {
	candidates, err := service.drivers.ListAvailable(ctx, 1)
	if err != nil {
		return nil, driver.Vehicle{}, err
	}

	pickup, _, err := group[0].ParseEndpoints()
	if err != nil {
		return nil, driver.Vehicle{}, err
	}

	ranked := rankCandidates(candidates, pickup, service.params.MaxDetourKM)
	if len(ranked) == 0 {
		return nil, driver.Vehicle{}, ErrNoAvailableDriver
	}

	pick := ranked[0]
	needed := clusterSeats(group)
	for _, candidate := range ranked {
		if candidate.vehicle.Capacity >= needed {
			pick = candidate
			break
		}
	}
	return service.drivers.Reserve(ctx, pick.drv.ID)
}
