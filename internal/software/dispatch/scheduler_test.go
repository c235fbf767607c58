package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSchedulerTicksBetweenRounds(t *testing.T) {
	env := newTestEnv(t, Params{Interval: 20 * time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	env.store.onListPassengers = func() {
		calls++
		if calls == 2 {
			cancel()
		}
	}

	done := make(chan error, 1)
	go func() { done <- env.service.RunScheduler(ctx) }()

	// Round one runs immediately; the loop then parks on the clock.
	require.Eventually(t, func() bool { return env.clock.waitCount() == 1 }, time.Second, time.Millisecond)
	env.clock.ticks <- time.Time{}

	require.NoError(t, <-done)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.Rounds))
	assert.Equal(t, []time.Duration{20 * time.Second}, env.clock.waits)
}

func TestRunSchedulerFollowsOverrunImmediately(t *testing.T) {
	env := newTestEnv(t, Params{Interval: 20 * time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	env.store.onListPassengers = func() {
		calls++
		env.clock.Advance(25 * time.Second) // every round outlasts the interval
		if calls == 3 {
			cancel()
		}
	}

	err := env.service.RunScheduler(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, calls)
	assert.Equal(t, 0, env.clock.waitCount()) // overruns never park on the clock
	assert.Equal(t, 3.0, testutil.ToFloat64(env.metrics.Rounds))
}

func TestRunSchedulerStopsWhenAlreadyCancelled(t *testing.T) {
	env := newTestEnv(t, Params{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, env.service.RunScheduler(ctx))
	assert.Equal(t, 0.0, testutil.ToFloat64(env.metrics.Rounds))
}

func TestRunSchedulerCountsRoundErrors(t *testing.T) {
	env := newTestEnv(t, Params{Interval: 20 * time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	env.store.onListPassengers = func() {
		calls++
		env.clock.Advance(25 * time.Second)
		if calls == 2 {
			cancel()
		}
	}
	env.store.listPassengersErr = context.DeadlineExceeded

	require.NoError(t, env.service.RunScheduler(ctx))
	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.Rounds))
	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.RoundErrors))
}
