package dispatch

import (
	"time"

	"ride-pool/internal/ports"
)

// SystemClock is the wall-clock implementation of ports.Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

func (SystemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

var _ ports.Clock = SystemClock{}
