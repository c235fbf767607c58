package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ride-pool/internal/domain/request"
	"ride-pool/internal/general/logger"
	"ride-pool/internal/ports"

	"github.com/redis/go-redis/v9"
)

const retryKeyPrefix = "retry:"

// RetryLedger is the Redis-backed retry registry. One SETNX with the cooldown
// as TTL gives the exact mark-once-per-cooldown semantics across processes:
// the key exists while the entry is fresh and evaporates when it ages out.
type RetryLedger struct {
	client   *redis.Client
	cooldown time.Duration
	log      *logger.Logger
}

// NewRetryLedger constructs a RetryLedger with the given cooldown.
func NewRetryLedger(client *redis.Client, cooldown time.Duration, log *logger.Logger) ports.RetryRegistry {
	return &RetryLedger{client: client, cooldown: cooldown, log: log}
}

// Mark records the request for retry. Returns false when a fresh entry
// already exists. Redis being unreachable degrades to true: the ledger only
// suppresses duplicate notifications, it is not the source of truth.
func (ledger *RetryLedger) Mark(ctx context.Context, key request.Key) bool {
	ok, err := ledger.client.SetNX(ctx, ledgerKey(key), time.Now().UTC().Format(time.RFC3339Nano), ledger.cooldown).Result()
	if err != nil {
		ledger.log.Warn(ctx, "retry_ledger_degraded", "Redis mark failed; treating as first mark", map[string]any{
			"key":   ledgerKey(key),
			"error": err.Error(),
		})
		return true
	}
	return ok
}

// Len counts the fresh retry entries. Used by logs and the round summary;
// a scan failure just reports zero.
func (ledger *RetryLedger) Len() int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := ledger.client.Scan(ctx, cursor, retryKeyPrefix+"*", 100).Result()
		if err != nil {
			ledger.log.Warn(ctx, "retry_ledger_scan_failed", "Redis scan failed", map[string]any{
				"error": err.Error(),
			})
			return 0
		}
		total += len(keys)
		cursor = next
		if cursor == 0 {
			return total
		}
	}
}

func ledgerKey(key request.Key) string {
	return fmt.Sprintf("%s%s:%d", retryKeyPrefix, strings.ToLower(string(key.Kind)), key.ID)
}
