package dispatch

import "errors"

// ErrNoAvailableDriver means the driver registry returned no candidate for
// a cluster that needed a fresh trip. The cluster's items go to the retry
// registry and stay PENDING.
var ErrNoAvailableDriver = errors.New("no available driver")
