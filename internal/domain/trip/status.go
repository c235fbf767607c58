package trip

import (
	"errors"
	"strings"
)

// Status is a trip status as stored in the `trips` table.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusFull       Status = "FULL"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

var ErrInvalidStatus = errors.New("invalid trip status")

// ParseStatus normalizes (uppercases+trims) and validates a status string.
func ParseStatus(in string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(in)))
	if status.Valid() {
		return status, nil
	}
	return "", ErrInvalidStatus
}

// Valid reports whether status is one of the allowed trip status constants.
func (status Status) Valid() bool {
	switch status {
	case StatusPending, StatusInProgress, StatusFull, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// String returns the string representation of the Status.
func (status Status) String() string {
	return string(status)
}

// CanTransitionTo specifies if the status can transition to the next status.
// FULL may drop back to IN_PROGRESS when an upstream cancellation frees a
// seat; everything else moves forward only.
func (status Status) CanTransitionTo(next Status) bool {
	switch status {
	case StatusPending:
		return next == StatusInProgress || next == StatusFull || next == StatusCancelled
	case StatusInProgress:
		return next == StatusFull || next == StatusCompleted || next == StatusCancelled
	case StatusFull:
		return next == StatusInProgress || next == StatusCompleted || next == StatusCancelled
	case StatusCompleted, StatusCancelled:
		return false
	default:
		return false
	}
}

// Open indicates the trip can still accept bookings or deliveries.
func (status Status) Open() bool {
	return status == StatusPending || status == StatusInProgress
}

// Terminal indicates if the status is in a terminal state.
func (status Status) Terminal() bool {
	return status == StatusCompleted || status == StatusCancelled
}

// Active indicates the trip currently binds its driver.
func (status Status) Active() bool {
	return status == StatusPending || status == StatusInProgress || status == StatusFull
}
