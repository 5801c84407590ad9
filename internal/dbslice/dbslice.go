// Package dbslice implements the per-shard, multi-database key/value
// store. A DbSlice is owned by exactly one EngineShard goroutine and
// is never locked internally: callers must only reach it from inside
// that shard's hop, the same invariant the teacher's lock-striped
// dict enforced with mutexes is enforced here by never sharing the
// DbSlice across goroutines at all.
package dbslice

import (
	"github.com/ryanrussell/dragonfly/datastruct/dict"
	"github.com/ryanrussell/dragonfly/lib/wildcard"
)

// DB holds one logical database (SELECT 0..15) worth of keys for a
// single shard.
type DB struct {
	Index int

	data       dict.Dict
	ttlMap     dict.Dict // key -> expiry unix nano (int64)
	versionMap dict.Dict // key -> version counter (uint32), bumped on every write, backs WATCH
}

func makeDB(index int) *DB {
	return &DB{
		Index:      index,
		data:       dict.MakeSimple(),
		ttlMap:     dict.MakeSimple(),
		versionMap: dict.MakeSimple(),
	}
}

// DbSlice is the full set of databases owned by one shard.
type DbSlice struct {
	ShardID int
	dbs     []*DB
}

// New creates a DbSlice with the given number of logical databases.
func New(shardID int, databases int) *DbSlice {
	dbs := make([]*DB, databases)
	for i := range dbs {
		dbs[i] = makeDB(i)
	}
	return &DbSlice{ShardID: shardID, dbs: dbs}
}

// DB returns the logical database at index, panicking if out of
// range the same way a bad SELECT is rejected before reaching here.
func (s *DbSlice) DB(index int) *DB {
	return s.dbs[index]
}

// Databases returns the number of logical databases in this slice.
func (s *DbSlice) Databases() int {
	return len(s.dbs)
}

func (db *DB) bumpVersion(key string) {
	v, ok := db.versionMap.Get(key)
	if !ok {
		db.versionMap.Put(key, uint32(1))
		return
	}
	db.versionMap.Put(key, v.(uint32)+1)
}

// GetVersion returns the watch version of key, 0 if it has never been
// written.
func (db *DB) GetVersion(key string) uint32 {
	v, ok := db.versionMap.Get(key)
	if !ok {
		return 0
	}
	return v.(uint32)
}

// IsExpired reports whether key has a TTL that has passed, without
// removing it.
func (db *DB) IsExpired(key string, nowUnixNano int64) bool {
	raw, ok := db.ttlMap.Get(key)
	if !ok {
		return false
	}
	return nowUnixNano >= raw.(int64)
}

// expireIfNeeded removes key if it has an expired TTL. Returns true
// if the key was removed.
func (db *DB) expireIfNeeded(key string, nowUnixNano int64) bool {
	if !db.IsExpired(key, nowUnixNano) {
		return false
	}
	db.data.Remove(key)
	db.ttlMap.Remove(key)
	db.bumpVersion(key)
	return true
}

// Get returns the value bound to key, applying lazy TTL expiry first.
func (db *DB) Get(key string, nowUnixNano int64) (interface{}, bool) {
	db.expireIfNeeded(key, nowUnixNano)
	return db.data.Get(key)
}

// Exists reports whether key is present and unexpired.
func (db *DB) Exists(key string, nowUnixNano int64) bool {
	_, ok := db.Get(key, nowUnixNano)
	return ok
}

// Put stores val at key, clearing any TTL (matches SET's default
// semantics; callers that need to keep a TTL use PutKeepTTL).
func (db *DB) Put(key string, val interface{}) {
	db.data.Put(key, val)
	db.ttlMap.Remove(key)
	db.bumpVersion(key)
}

// PutKeepTTL stores val at key without touching any existing TTL.
func (db *DB) PutKeepTTL(key string, val interface{}) {
	db.data.Put(key, val)
	db.bumpVersion(key)
}

// PutIfAbsent stores val at key only if key is not already present,
// returning 1 if it stored, 0 if key already existed.
func (db *DB) PutIfAbsent(key string, val interface{}) int {
	result := db.data.PutIfAbsent(key, val)
	if result > 0 {
		db.bumpVersion(key)
	}
	return result
}

// Remove deletes key and its TTL, returning 1 if key existed.
func (db *DB) Remove(key string) int {
	_, result := db.data.Remove(key)
	db.ttlMap.Remove(key)
	if result > 0 {
		db.bumpVersion(key)
	}
	return result
}

// Removes deletes each of keys, returning the number actually
// removed.
func (db *DB) Removes(keys ...string) int {
	deleted := 0
	for _, key := range keys {
		deleted += db.Remove(key)
	}
	return deleted
}

// Expire sets key's expiry to the given absolute unix-nano deadline.
func (db *DB) Expire(key string, expireAtUnixNano int64) {
	db.ttlMap.Put(key, expireAtUnixNano)
	db.bumpVersion(key)
}

// Persist removes key's TTL, returning 1 if it had one.
func (db *DB) Persist(key string) int {
	_, result := db.ttlMap.Remove(key)
	if result > 0 {
		db.bumpVersion(key)
	}
	return result
}

// ExpireIfDue removes key if its TTL has passed as of nowUnixNano.
// Exported for the shard's active-expire timewheel job, which must
// reach into the DB from inside a hop rather than calling the lazy
// expireIfNeeded path directly from whatever goroutine the timer
// fires on.
func (db *DB) ExpireIfDue(key string, nowUnixNano int64) bool {
	return db.expireIfNeeded(key, nowUnixNano)
}

// TTL returns the remaining ttl in nanoseconds and whether key has
// one at all.
func (db *DB) TTL(key string, nowUnixNano int64) (int64, bool) {
	raw, ok := db.ttlMap.Get(key)
	if !ok {
		return 0, false
	}
	remaining := raw.(int64) - nowUnixNano
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// Len returns the number of live keys, not accounting for lazily
// unexpired entries still sitting in data.
func (db *DB) Len() int {
	return db.data.Len()
}

// Flush removes every key in this database.
func (db *DB) Flush() {
	db.data.Clear()
	db.ttlMap.Clear()
	db.versionMap.Clear()
}

// ForEach calls consumer for every live key, applying lazy expiry as
// it scans. consumer returning false stops the scan.
func (db *DB) ForEach(nowUnixNano int64, consumer func(key string, val interface{}) bool) {
	var expired []string
	db.data.ForEach(func(key string, val interface{}) bool {
		if db.IsExpired(key, nowUnixNano) {
			expired = append(expired, key)
			return true
		}
		return consumer(key, val)
	})
	for _, key := range expired {
		db.expireIfNeeded(key, nowUnixNano)
	}
}

// Keys returns every live key matching pattern.
func (db *DB) Keys(pattern string, nowUnixNano int64) []string {
	matcher := wildcard.CompilePattern(pattern)
	var result []string
	db.ForEach(nowUnixNano, func(key string, _ interface{}) bool {
		if matcher.IsMatch(key) {
			result = append(result, key)
		}
		return true
	})
	return result
}

// SnapshotEntry is one key's value as seen by a point-in-time scan.
type SnapshotEntry struct {
	Key string
	Val interface{}
}

// NewSnapshotIterator captures the consistent per-shard cut a
// snapshot write uses: because the DbSlice is only ever touched by
// its owning shard's goroutine, and this call itself runs on that
// goroutine (inside a hop), the returned slice is a correct
// point-in-time copy with no extra locking.
func (db *DB) NewSnapshotIterator(nowUnixNano int64) []SnapshotEntry {
	entries := make([]SnapshotEntry, 0, db.data.Len())
	db.ForEach(nowUnixNano, func(key string, val interface{}) bool {
		entries = append(entries, SnapshotEntry{Key: key, Val: val})
		return true
	})
	return entries
}
