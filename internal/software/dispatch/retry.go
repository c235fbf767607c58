package dispatch

import (
	"context"
	"sync"
	"time"

	"ride-pool/internal/domain/request"
	"ride-pool/internal/ports"
)

// MemoryRetryLedger is the in-process retry registry. It only suppresses
// repeat notifications and log lines; request status in the store stays the
// source of truth, so losing this state on restart is harmless.
type MemoryRetryLedger struct {
	mu       sync.Mutex
	cooldown time.Duration
	clock    ports.Clock
	marks    map[request.Key]time.Time
}

// NewMemoryRetryLedger builds a ledger that suppresses re-marks younger
// than cooldown.
func NewMemoryRetryLedger(cooldown time.Duration, clock ports.Clock) *MemoryRetryLedger {
	if clock == nil {
		clock = SystemClock{}
	}
	return &MemoryRetryLedger{
		cooldown: cooldown,
		clock:    clock,
		marks:    make(map[request.Key]time.Time),
	}
}

// Mark records now() for key and reports true, unless the previous mark is
// still younger than the cooldown, in which case nothing is recorded and
// Mark reports false.
func (ledger *MemoryRetryLedger) Mark(_ context.Context, key request.Key) bool {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()

	now := ledger.clock.Now()
	if last, ok := ledger.marks[key]; ok && now.Sub(last) < ledger.cooldown {
		return false
	}
	ledger.marks[key] = now
	return true
}

// Len reports how many keys carry a mark, expired ones included.
func (ledger *MemoryRetryLedger) Len() int {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	return len(ledger.marks)
}

var _ ports.RetryRegistry = (*MemoryRetryLedger)(nil)
