package dispatch

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ride-pool/internal/domain/driver"
	"ride-pool/internal/domain/geo"
	"ride-pool/internal/domain/request"
)

func coord(t *testing.T, s string) geo.Coordinate {
	t.Helper()
	c, err := geo.Parse(s)
	require.NoError(t, err)
	return c
}

func TestRankCandidatesOrdering(t *testing.T) {
	pickup := coord(t, "24.71,46.67")
	candidates := []driver.Driver{
		*availableDriver("far", "u-far", "24.80,46.67", 5.0, 10, 4),        // ~10 km
		*availableDriver("near-low", "u-nl", "24.71,46.67", 4.0, 10, 4),    // 0 km, rating 4.0
		*availableDriver("near-high", "u-nh", "24.71,46.67", 4.9, 500, 4),  // 0 km, rating 4.9
		*availableDriver("near-fresh", "u-nf", "24.71,46.67", 4.9, 12, 4),  // 0 km, rating 4.9, fewer trips
		*availableDriver("lost", "u-lost", "somewhere downtown", 5.0, 0, 4), // unparsable
	}

	ranked := rankCandidates(candidates, pickup, 0) // no radius cut
	require.Len(t, ranked, 5)

	order := []string{}
	for _, c := range ranked {
		order = append(order, c.drv.ID)
	}
	assert.Equal(t, []string{"near-fresh", "near-high", "near-low", "far", "lost"}, order)
	assert.True(t, math.IsInf(ranked[4].score[0], 1))
}

func TestRankCandidatesDetourRadius(t *testing.T) {
	pickup := coord(t, "24.71,46.67")
	candidates := []driver.Driver{
		*availableDriver("close", "u-c", "24.712,46.671", 4.0, 10, 4), // ~250 m
		*availableDriver("far", "u-f", "24.90,46.90", 5.0, 0, 4),      // ~30 km
		*availableDriver("lost", "u-l", "not,coordinates", 5.0, 0, 4),
	}

	ranked := rankCandidates(candidates, pickup, 5)
	require.Len(t, ranked, 2)
	assert.Equal(t, "close", ranked[0].drv.ID)
	assert.Equal(t, "lost", ranked[1].drv.ID) // unknown location is kept, ranked last
}

func TestRankCandidatesDropsVehicleless(t *testing.T) {
	pickup := coord(t, "24.71,46.67")
	noVehicle := driver.Driver{ID: "walker", UserRef: "u-w", LocationRaw: "24.71,46.67", IsAvailable: true}

	ranked := rankCandidates([]driver.Driver{noVehicle}, pickup, 0)
	assert.Empty(t, ranked)
}

func TestSelectDriverPrefersVehicleThatFits(t *testing.T) {
	env := newTestEnv(t, Params{})
	env.addDriver(availableDriver("small", "u-s", "24.71,46.67", 5.0, 10, 2))   // closest
	env.addDriver(availableDriver("big", "u-b", "24.715,46.675", 4.0, 10, 6))   // farther, fits

	departure := env.clock.Now().Add(10 * time.Minute)
	group := []*request.Pending{
		mustPassenger(t, 1, "user-1", "24.71,46.67", "24.80,46.70", departure, 4),
	}

	svc := env.service.(*dispatchService)
	chosen, vehicle, err := svc.selectDriver(context.Background(), group)
	require.NoError(t, err)
	assert.Equal(t, "big", chosen.ID)
	assert.Equal(t, 6, vehicle.Capacity)
	assert.False(t, env.registry.drivers[1].IsAvailable)
	assert.True(t, env.registry.drivers[0].IsAvailable)
}

func TestSelectDriverFallsBackToTopRanked(t *testing.T) {
	env := newTestEnv(t, Params{})
	env.addDriver(availableDriver("near", "u-n", "24.71,46.67", 4.0, 10, 2))
	env.addDriver(availableDriver("far", "u-f", "24.73,46.69", 5.0, 10, 2))

	departure := env.clock.Now().Add(10 * time.Minute)
	group := []*request.Pending{
		mustPassenger(t, 1, "user-1", "24.71,46.67", "24.80,46.70", departure, 5),
	}

	svc := env.service.(*dispatchService)
	chosen, vehicle, err := svc.selectDriver(context.Background(), group)
	require.NoError(t, err)
	assert.Equal(t, "near", chosen.ID) // nobody fits five, closest wins anyway
	assert.Equal(t, 2, vehicle.Capacity)
}

func TestSelectDriverEmptyPool(t *testing.T) {
	env := newTestEnv(t, Params{})
	departure := env.clock.Now().Add(10 * time.Minute)
	group := []*request.Pending{
		mustPassenger(t, 1, "user-1", "24.71,46.67", "24.80,46.70", departure, 1),
	}

	svc := env.service.(*dispatchService)
	_, _, err := svc.selectDriver(context.Background(), group)
	assert.ErrorIs(t, err, ErrNoAvailableDriver)
}
