// Package txn implements the transaction coordinator that sequences
// commands across one or more shards. Single-key commands take the
// single-hop path; multi-key and GLOBAL_TRANS commands take the
// schedule/execute path so every participating shard (or, for
// GLOBAL_TRANS, every shard) observes the same relative ordering of
// concurrent transactions.
package txn

import (
	"context"
	"sync"

	"github.com/ryanrussell/dragonfly/internal/shard"
)

// Flags mirror the command table's execution-class bitmask.
type Flags uint32

const (
	FlagNone Flags = 0
	// FlagGlobal marks a transaction that must run its body on every
	// shard while holding the coordinator-wide ordering lock, e.g.
	// FLUSHALL or a full SAVE.
	FlagGlobal Flags = 1 << iota
)

// ShardOp is the body of a transaction run on one shard's goroutine.
type ShardOp func(ctx context.Context, sh *shard.EngineShard) error

// Coordinator sequences transactions across the shard set.
type Coordinator struct {
	shards *shard.EngineShardSet

	// globalMu is an RWMutex: a GLOBAL_TRANS transaction takes the
	// write side for the full duration of its fan-out, so no other
	// transaction's hop can interleave on any shard while it runs;
	// every non-global transaction takes the read side, so they still
	// run concurrently with each other but never alongside a global.
	// This directly implements the cross-shard ordering guarantee:
	// without it, a GLOBAL_TRANS transaction could observe shard A
	// before a concurrent single-hop write and shard B after it.
	globalMu sync.RWMutex
}

// NewCoordinator creates a Coordinator over the given shard set.
func NewCoordinator(shards *shard.EngineShardSet) *Coordinator {
	return &Coordinator{shards: shards}
}

// Transaction is one in-flight command's execution plan.
type Transaction struct {
	coord *Coordinator
	flags Flags
	keys  []string
}

// NewTransaction builds a Transaction touching the given keys, with
// flags describing the execution class (GLOBAL_TRANS, etc).
func (c *Coordinator) NewTransaction(flags Flags, keys ...string) *Transaction {
	return &Transaction{coord: c, flags: flags, keys: keys}
}

// RunSingleHop is the fast path for a transaction that touches keys
// all owned by exactly one shard (the common case: a single-key
// command, or a multi-key command whose keys all hash to the same
// shard). op runs once, synchronously, on that shard's goroutine.
func (t *Transaction) RunSingleHop(ctx context.Context, op ShardOp) error {
	shards := t.coord.shards.ShardsForKeys(t.keys...)
	if len(shards) != 1 {
		return t.Schedule(ctx, func(ctx context.Context, sh *shard.EngineShard) error {
			return op(ctx, sh)
		})
	}
	t.coord.globalMu.RLock()
	defer t.coord.globalMu.RUnlock()

	var opErr error
	awaitErr := shards[0].AwaitContext(ctx, func() {
		opErr = op(ctx, shards[0])
	})
	if awaitErr != nil {
		return awaitErr
	}
	return opErr
}

// Schedule runs op on every shard that owns one of the transaction's
// keys. If the transaction is FlagGlobal, op instead runs on every
// shard in the set, and the whole fan-out happens under the
// coordinator's global ordering lock.
func (t *Transaction) Schedule(ctx context.Context, op ShardOp) error {
	if t.flags&FlagGlobal != 0 {
		return t.scheduleGlobal(ctx, op)
	}

	t.coord.globalMu.RLock()
	defer t.coord.globalMu.RUnlock()

	shards := t.coord.shards.ShardsForKeys(t.keys...)
	errs := make([]error, len(shards))
	var wg sync.WaitGroup
	wg.Add(len(shards))
	for i, sh := range shards {
		i, sh := i, sh
		go func() {
			defer wg.Done()
			var opErr error
			awaitErr := sh.AwaitContext(ctx, func() {
				opErr = op(ctx, sh)
			})
			if awaitErr != nil {
				errs[i] = awaitErr
				return
			}
			errs[i] = opErr
		}()
	}
	wg.Wait()
	return firstError(errs)
}

func (t *Transaction) scheduleGlobal(ctx context.Context, op ShardOp) error {
	t.coord.globalMu.Lock()
	defer t.coord.globalMu.Unlock()

	n := t.coord.shards.Size()
	errs := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		sh := t.coord.shards.Shard(i)
		go func() {
			defer wg.Done()
			var opErr error
			awaitErr := sh.AwaitContext(ctx, func() {
				opErr = op(ctx, sh)
			})
			if awaitErr != nil {
				errs[i] = awaitErr
				return
			}
			errs[i] = opErr
		}()
	}
	wg.Wait()
	return firstError(errs)
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
