// Package shard implements the shared-nothing execution engine: one
// goroutine per shard owns that shard's DbSlice exclusively, and is
// reached only by sending it a callback ("hop") over a channel. This
// is the idiomatic-Go rendering of pinning a shard to a single I/O
// reactor thread.
package shard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/ryanrussell/dragonfly/internal/dbslice"
	"github.com/ryanrussell/dragonfly/lib/logger"
	"github.com/ryanrussell/dragonfly/lib/timewheel"
)

// hop is a callback scheduled to run on a shard's own goroutine.
type hop struct {
	fn   func()
	done chan struct{}
}

// EngineShard owns one DbSlice and the single goroutine allowed to
// touch it.
type EngineShard struct {
	ID    int
	Slice *dbslice.DbSlice

	hops chan hop
	quit chan struct{}
	wg   sync.WaitGroup
}

// NewEngineShard creates a shard with the given number of logical
// databases. Call Start to begin serving hops.
func NewEngineShard(id int, databases int) *EngineShard {
	return &EngineShard{
		ID:    id,
		Slice: dbslice.New(id, databases),
		hops:  make(chan hop, 4096),
		quit:  make(chan struct{}),
	}
}

// Start begins the shard's reactor goroutine.
func (s *EngineShard) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop ends the reactor goroutine without draining: hops still queued
// are abandoned; callers must not hop after Stop returns.
func (s *EngineShard) Stop() {
	close(s.quit)
	s.wg.Wait()
}

func (s *EngineShard) run() {
	defer s.wg.Done()
	for {
		select {
		case h := <-s.hops:
			s.runHop(h)
		case <-s.quit:
			return
		}
	}
}

func (s *EngineShard) runHop(h hop) {
	defer close(h.done)
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("shard %d hop panicked: %v", s.ID, r)
		}
	}()
	h.fn()
}

// Await runs fn on this shard's goroutine and blocks until it
// returns. fn must not block on I/O; use the EngineShardSet pool for
// that (see RunBlockingInParallel).
func (s *EngineShard) Await(fn func()) {
	done := make(chan struct{})
	s.hops <- hop{fn: fn, done: done}
	<-done
}

// AwaitContext is Await with cancellation: if ctx is done before the
// hop is accepted or completes, it returns ctx.Err() without
// guaranteeing fn ran.
func (s *EngineShard) AwaitContext(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case s.hops <- hop{fn: fn, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// expireTaskKey names key's slot on the package-level timewheel,
// scoped by shard and logical database so identical keys on different
// shards never collide in the one process-wide wheel.
func expireTaskKey(shardID, dbIndex int, key string) string {
	return fmt.Sprintf("expire:%d:%d:%s", shardID, dbIndex, key)
}

// ScheduleExpire arms an active-expire job on the shared timewheel for
// key in database dbIndex, firing at deadline. The job hops back onto
// this shard's own goroutine before touching the DbSlice, the same
// invariant every other access to it observes. It is a pure safety
// net: reads already enforce the deadline lazily, so a job that fires
// against a key already overwritten, persisted, or removed is a
// harmless no-op.
func (s *EngineShard) ScheduleExpire(dbIndex int, key string, deadline time.Time) {
	timewheel.At(deadline, expireTaskKey(s.ID, dbIndex, key), func() {
		s.Await(func() {
			s.Slice.DB(dbIndex).ExpireIfDue(key, time.Now().UnixNano())
		})
	})
}

// CancelExpire disarms a pending active-expire job for key in
// database dbIndex, called when the TTL is cleared before it fires.
func (s *EngineShard) CancelExpire(dbIndex int, key string) {
	timewheel.Cancel(expireTaskKey(s.ID, dbIndex, key))
}

const maxShards = 1024

// EngineShardSet owns every shard plus the bounded worker pool used to
// run blocking bodies (snapshot writes) off the shards' own
// goroutines.
type EngineShardSet struct {
	shards []*EngineShard
	pool   *ants.Pool
}

// NewEngineShardSet creates n shards, each with the given number of
// logical databases, and starts their reactor goroutines. n is capped
// at maxShards.
func NewEngineShardSet(n int, databases int) (*EngineShardSet, error) {
	if n <= 0 {
		n = 1
	}
	if n > maxShards {
		n = maxShards
	}
	pool, err := ants.NewPool(n)
	if err != nil {
		return nil, err
	}
	shards := make([]*EngineShard, n)
	for i := 0; i < n; i++ {
		shards[i] = NewEngineShard(i, databases)
		shards[i].Start()
	}
	return &EngineShardSet{shards: shards, pool: pool}, nil
}

// Size returns the number of shards.
func (set *EngineShardSet) Size() int {
	return len(set.shards)
}

// Shard returns the shard at index i.
func (set *EngineShardSet) Shard(i int) *EngineShard {
	return set.shards[i]
}

const fnvPrime32 = uint32(16777619)

func fnv32(key string) uint32 {
	hash := uint32(2166136261)
	for i := 0; i < len(key); i++ {
		hash *= fnvPrime32
		hash ^= uint32(key[i])
	}
	return hash
}

// ShardForKey returns the shard that owns key.
func (set *EngineShardSet) ShardForKey(key string) *EngineShard {
	idx := int(fnv32(key)) % len(set.shards)
	if idx < 0 {
		idx += len(set.shards)
	}
	return set.shards[idx]
}

// ShardsForKeys returns the distinct shards owning any of keys, in a
// stable order (by shard ID) so callers that lock across shards never
// form a lock-order cycle.
func (set *EngineShardSet) ShardsForKeys(keys ...string) []*EngineShard {
	seen := make(map[int]*EngineShard)
	for _, key := range keys {
		sh := set.ShardForKey(key)
		seen[sh.ID] = sh
	}
	result := make([]*EngineShard, 0, len(seen))
	for i := 0; i < len(set.shards); i++ {
		if sh, ok := seen[i]; ok {
			result = append(result, sh)
		}
	}
	return result
}

// RunBriefInParallel runs fn concurrently on every shard's own
// goroutine and waits for all of them to finish. fn must be brief: it
// runs inline on the shard's reactor, blocking that shard's other
// hops for its duration.
func (set *EngineShardSet) RunBriefInParallel(fn func(shard *EngineShard)) {
	var wg sync.WaitGroup
	wg.Add(len(set.shards))
	for _, sh := range set.shards {
		sh := sh
		go func() {
			defer wg.Done()
			sh.Await(func() { fn(sh) })
		}()
	}
	wg.Wait()
}

// AwaitFiberOnAll is RunBriefInParallel under the name used for the
// GLOBAL_TRANS fan-out: every shard's fiber runs fn and the caller
// waits for all of them.
func (set *EngineShardSet) AwaitFiberOnAll(fn func(shard *EngineShard)) {
	set.RunBriefInParallel(fn)
}

// RunBlockingInParallel runs capture on each shard's own goroutine to
// take a consistent per-shard snapshot, then runs the (possibly slow,
// blocking) body for that shard on the bounded worker pool so no
// single shard's I/O stalls another shard's hop queue. It returns one
// error slot per shard, indexed by shard ID.
func (set *EngineShardSet) RunBlockingInParallel(
	capture func(shard *EngineShard) interface{},
	body func(shard *EngineShard, captured interface{}) error,
) []error {
	errs := make([]error, len(set.shards))
	var wg sync.WaitGroup
	wg.Add(len(set.shards))
	for i, sh := range set.shards {
		i, sh := i, sh
		go func() {
			defer wg.Done()
			var captured interface{}
			sh.Await(func() { captured = capture(sh) })

			done := make(chan struct{})
			submitErr := set.pool.Submit(func() {
				defer close(done)
				errs[i] = body(sh, captured)
			})
			if submitErr != nil {
				errs[i] = submitErr
				return
			}
			<-done
		}()
	}
	wg.Wait()
	return errs
}

// DBSize reports the number of live keys in logical database dbIndex
// across every shard, used by DBSIZE and INFO keyspace. It runs as a
// RunBriefInParallel read-only aggregation, never mutating shard
// state.
func (set *EngineShardSet) DBSize(dbIndex int) int64 {
	var mu sync.Mutex
	var total int64
	set.RunBriefInParallel(func(sh *EngineShard) {
		n := sh.Slice.DB(dbIndex).Len()
		mu.Lock()
		total += int64(n)
		mu.Unlock()
	})
	return total
}

// Stop stops every shard's reactor goroutine and releases the worker
// pool.
func (set *EngineShardSet) Stop() {
	for _, sh := range set.shards {
		sh.Stop()
	}
	set.pool.Release()
}
