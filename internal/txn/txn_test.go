package txn

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ryanrussell/dragonfly/internal/shard"
)

func newTestShardSet(t *testing.T, n int) *shard.EngineShardSet {
	t.Helper()
	set, err := shard.NewEngineShardSet(n, 16)
	if err != nil {
		t.Fatalf("NewEngineShardSet: %v", err)
	}
	t.Cleanup(set.Stop)
	return set
}

func TestRunSingleHopWritesOnOwningShard(t *testing.T) {
	set := newTestShardSet(t, 4)
	coord := NewCoordinator(set)

	tx := coord.NewTransaction(FlagNone, "mykey")
	err := tx.RunSingleHop(context.Background(), func(ctx context.Context, sh *shard.EngineShard) error {
		sh.Slice.DB(0).Put("mykey", []byte("val"))
		return nil
	})
	if err != nil {
		t.Fatalf("RunSingleHop: %v", err)
	}

	owner := set.ShardForKey("mykey")
	val, ok := owner.Slice.DB(0).Get("mykey", 0)
	if !ok || string(val.([]byte)) != "val" {
		t.Fatalf("expected mykey=val on owning shard, got %v ok=%v", val, ok)
	}
}

func TestRunSingleHopPropagatesError(t *testing.T) {
	set := newTestShardSet(t, 4)
	coord := NewCoordinator(set)
	tx := coord.NewTransaction(FlagNone, "mykey")
	wantErr := errors.New("boom")
	err := tx.RunSingleHop(context.Background(), func(ctx context.Context, sh *shard.EngineShard) error {
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
}

func TestScheduleGlobalTouchesEveryShard(t *testing.T) {
	set := newTestShardSet(t, 4)
	coord := NewCoordinator(set)
	tx := coord.NewTransaction(FlagGlobal)

	touched := make([]bool, set.Size())
	var mu sync.Mutex
	err := tx.Schedule(context.Background(), func(ctx context.Context, sh *shard.EngineShard) error {
		mu.Lock()
		touched[sh.ID] = true
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	for i, v := range touched {
		if !v {
			t.Fatalf("shard %d was not touched by global transaction", i)
		}
	}
}

func TestGlobalTransactionExcludesConcurrentSingleHop(t *testing.T) {
	set := newTestShardSet(t, 4)
	coord := NewCoordinator(set)

	var globalRunning atomic.Bool
	var sawOverlap atomic.Bool
	started := make(chan struct{})

	globalTx := coord.NewTransaction(FlagGlobal)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = globalTx.Schedule(context.Background(), func(ctx context.Context, sh *shard.EngineShard) error {
			globalRunning.Store(true)
			if sh.ID == 0 {
				close(started)
			}
			time.Sleep(20 * time.Millisecond)
			globalRunning.Store(false)
			return nil
		})
	}()

	<-started
	singleTx := coord.NewTransaction(FlagNone, "mykey")
	err := singleTx.RunSingleHop(context.Background(), func(ctx context.Context, sh *shard.EngineShard) error {
		if globalRunning.Load() {
			sawOverlap.Store(true)
		}
		return nil
	})
	wg.Wait()
	if err != nil {
		t.Fatalf("RunSingleHop: %v", err)
	}
	if sawOverlap.Load() {
		t.Fatalf("single-hop transaction ran while a global transaction was in flight")
	}
}
