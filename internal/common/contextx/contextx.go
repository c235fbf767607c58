// Package contextx carries the dispatcher's per-round correlation values
// and the post-commit hook bag through context.Context.
package contextx

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type ctxKey string

const (
	roundIDKey ctxKey = "round_id"
	tripIDKey  ctxKey = "trip_id"
	hookBagKey ctxKey = "commit_hooks"
)

// WithNewRoundID stamps ctx with a fresh round correlation id.
func WithNewRoundID(ctx context.Context) context.Context {
	return context.WithValue(ctx, roundIDKey, "round_"+uuid.NewString())
}

// WithRoundID returns a new context carrying the given round id.
func WithRoundID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, roundIDKey, id)
}

// GetRoundID extracts the round id from ctx (empty when absent).
func GetRoundID(ctx context.Context) string {
	if v, ok := ctx.Value(roundIDKey).(string); ok {
		return v
	}
	return ""
}

// WithTripID returns a new context carrying the trip being assembled.
func WithTripID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, tripIDKey, id)
}

// GetTripID extracts the trip id from ctx (empty when absent).
func GetTripID(ctx context.Context) string {
	if v, ok := ctx.Value(tripIDKey).(string); ok {
		return v
	}
	return ""
}

// ----- Post-commit hooks -----

// HookBag collects callbacks that must run only after the enclosing
// transaction commits (notification publishes, mainly). The unit of work
// installs one bag per outermost transaction, runs it on commit, and drops
// it on rollback.
type HookBag struct {
	mu    sync.Mutex
	hooks []func()
}

// WithHookBag installs a fresh bag in ctx and returns both. Installing a
// bag when one is already present shadows the outer bag; the unit of work
// only installs one for the outermost transaction, so this does not happen
// in practice.
func WithHookBag(ctx context.Context) (context.Context, *HookBag) {
	bag := &HookBag{}
	return context.WithValue(ctx, hookBagKey, bag), bag
}

// OnCommit defers fn until the enclosing transaction commits. Outside a
// transaction there is nothing to wait for and fn runs immediately.
func OnCommit(ctx context.Context, fn func()) {
	if bag, ok := ctx.Value(hookBagKey).(*HookBag); ok {
		bag.add(fn)
		return
	}
	fn()
}

func (bag *HookBag) add(fn func()) {
	bag.mu.Lock()
	defer bag.mu.Unlock()
	bag.hooks = append(bag.hooks, fn)
}

// Run fires the collected hooks in registration order and empties the bag.
func (bag *HookBag) Run() {
	bag.mu.Lock()
	hooks := bag.hooks
	bag.hooks = nil
	bag.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

// Len reports how many hooks are pending.
func (bag *HookBag) Len() int {
	bag.mu.Lock()
	defer bag.mu.Unlock()
	return len(bag.hooks)
}
