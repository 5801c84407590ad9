package dbslice

import "testing"

func TestPutGetRemove(t *testing.T) {
	s := New(0, 16)
	db := s.DB(0)

	db.Put("a", []byte("1"))
	val, ok := db.Get("a", 0)
	if !ok || string(val.([]byte)) != "1" {
		t.Fatalf("expected a=1, got %v ok=%v", val, ok)
	}

	if removed := db.Remove("a"); removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, ok := db.Get("a", 0); ok {
		t.Fatal("expected a to be gone")
	}
}

func TestExpire(t *testing.T) {
	s := New(0, 16)
	db := s.DB(0)
	db.Put("a", []byte("1"))
	db.Expire("a", 100)

	if _, ok := db.Get("a", 50); !ok {
		t.Fatal("expected a to still be alive before deadline")
	}
	if _, ok := db.Get("a", 200); ok {
		t.Fatal("expected a to be expired after deadline")
	}
}

func TestVersionBumpsOnWrite(t *testing.T) {
	s := New(0, 16)
	db := s.DB(0)
	v0 := db.GetVersion("a")
	db.Put("a", []byte("1"))
	v1 := db.GetVersion("a")
	if v1 <= v0 {
		t.Fatalf("expected version to increase, got v0=%d v1=%d", v0, v1)
	}
	db.Remove("a")
	v2 := db.GetVersion("a")
	if v2 <= v1 {
		t.Fatalf("expected version to increase on remove, got v1=%d v2=%d", v1, v2)
	}
}

func TestKeysPattern(t *testing.T) {
	s := New(0, 16)
	db := s.DB(0)
	db.Put("foo1", []byte("1"))
	db.Put("foo2", []byte("1"))
	db.Put("bar", []byte("1"))

	keys := db.Keys("foo*", 0)
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys matching foo*, got %d", len(keys))
	}
}

func TestFlush(t *testing.T) {
	s := New(0, 16)
	db := s.DB(0)
	db.Put("a", []byte("1"))
	db.Flush()
	if db.Len() != 0 {
		t.Fatalf("expected empty db after flush, got %d keys", db.Len())
	}
}

func TestSnapshotIterator(t *testing.T) {
	s := New(0, 16)
	db := s.DB(0)
	db.Put("a", []byte("1"))
	db.Put("b", []byte("2"))
	entries := db.NewSnapshotIterator(0)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
}
