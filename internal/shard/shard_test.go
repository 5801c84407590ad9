package shard

import (
	"testing"
	"time"
)

func TestAwaitRunsOnShardGoroutine(t *testing.T) {
	sh := NewEngineShard(0, 16)
	sh.Start()
	defer sh.Stop()

	sh.Slice.DB(0).Put("a", []byte("1"))
	var got interface{}
	sh.Await(func() {
		got, _ = sh.Slice.DB(0).Get("a", 0)
	})
	if string(got.([]byte)) != "1" {
		t.Fatalf("expected a=1, got %v", got)
	}
}

func TestShardForKeyIsStable(t *testing.T) {
	set, err := NewEngineShardSet(4, 16)
	if err != nil {
		t.Fatal(err)
	}
	defer set.Stop()

	first := set.ShardForKey("mykey")
	for i := 0; i < 10; i++ {
		if set.ShardForKey("mykey").ID != first.ID {
			t.Fatal("expected ShardForKey to be stable across calls")
		}
	}
}

func TestShardsForKeysStableOrder(t *testing.T) {
	set, err := NewEngineShardSet(8, 16)
	if err != nil {
		t.Fatal(err)
	}
	defer set.Stop()

	shards := set.ShardsForKeys("a", "b", "c", "d")
	for i := 1; i < len(shards); i++ {
		if shards[i].ID <= shards[i-1].ID {
			t.Fatalf("expected ascending shard IDs, got %v", shards)
		}
	}
}

func TestDBSizeAggregatesAcrossShards(t *testing.T) {
	set, err := NewEngineShardSet(4, 16)
	if err != nil {
		t.Fatal(err)
	}
	defer set.Stop()

	for i := 0; i < set.Size(); i++ {
		sh := set.Shard(i)
		sh.Await(func() {
			sh.Slice.DB(0).Put("k", []byte("v"))
		})
	}
	if size := set.DBSize(0); size != int64(set.Size()) {
		t.Fatalf("expected %d keys, got %d", set.Size(), size)
	}
}

func TestScheduleExpireFiresActiveExpire(t *testing.T) {
	sh := NewEngineShard(0, 16)
	sh.Start()
	defer sh.Stop()

	sh.Await(func() {
		sh.Slice.DB(0).Put("a", []byte("1"))
	})
	deadline := time.Now().Add(50 * time.Millisecond)
	sh.Await(func() {
		sh.Slice.DB(0).Expire("a", deadline.UnixNano())
	})
	sh.ScheduleExpire(0, "a", deadline)

	deadlineWait := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadlineWait) {
		var exists bool
		sh.Await(func() {
			_, exists = sh.Slice.DB(0).Get("a", time.Now().UnixNano())
		})
		if !exists {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("expected active-expire job to remove key after deadline")
}

func TestCancelExpirePreventsFiring(t *testing.T) {
	sh := NewEngineShard(0, 16)
	sh.Start()
	defer sh.Stop()

	deadline := time.Now().Add(50 * time.Millisecond)
	sh.Await(func() {
		sh.Slice.DB(0).Put("a", []byte("1"))
		sh.Slice.DB(0).Expire("a", deadline.UnixNano())
	})
	sh.ScheduleExpire(0, "a", deadline)
	sh.Await(func() {
		sh.Slice.DB(0).Persist("a")
	})
	sh.CancelExpire(0, "a")

	time.Sleep(200 * time.Millisecond)
	var exists bool
	sh.Await(func() {
		_, exists = sh.Slice.DB(0).Get("a", time.Now().UnixNano())
	})
	if !exists {
		t.Fatal("expected persisted key to survive past the cancelled deadline")
	}
}
