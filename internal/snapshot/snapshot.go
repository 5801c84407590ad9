// Package snapshot implements RDB/DFS snapshotting: the DoSave
// orchestrator, the save-schedule cron, and the per-shard RDB writer.
package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	rdbcore "github.com/hdt3213/rdb/core"
	"github.com/hdt3213/rdb/model"

	"github.com/ryanrussell/dragonfly/datastruct/dict"
	"github.com/ryanrussell/dragonfly/datastruct/list"
	"github.com/ryanrussell/dragonfly/datastruct/set"
	"github.com/ryanrussell/dragonfly/datastruct/sortedset"
	"github.com/ryanrussell/dragonfly/internal/dbslice"
	"github.com/ryanrussell/dragonfly/internal/shard"
	"github.com/ryanrussell/dragonfly/internal/txn"
	"github.com/ryanrussell/dragonfly/lib/logger"
)

// LastSaveInfo is the read-only result of the most recent DoSave,
// published under Orchestrator.mu the same way the original keeps a
// shared_ptr<const LastSaveInfo> readers copy out instead of locking
// against.
type LastSaveInfo struct {
	SaveTime   time.Time
	Duration   time.Duration
	TypeCounts map[string]int
	Err        error
}

// Orchestrator drives DoSave and the save-schedule cron.
type Orchestrator struct {
	shards *shard.EngineShardSet
	coord  *txn.Coordinator

	dir        string
	dbFilename string

	mu       sync.Mutex
	lastSave *LastSaveInfo
	saving   bool

	schedules []*SnapshotSpec
	stopCron  chan struct{}
	cronWG    sync.WaitGroup

	stateHook StateHook
}

// StateHook lets the owning server gate DoSave through its global
// lifecycle state machine: Enter must succeed (ACTIVE->SAVING) before
// a save proceeds, and Exit restores ACTIVE once it's done. Neither
// field is required; a zero StateHook leaves DoSave ungated.
type StateHook struct {
	Enter func() bool
	Exit  func()
}

// SetStateHook installs the hook DoSave uses to enter/exit the
// server's SAVING state. internal/snapshot cannot import server
// (server already imports internal/snapshot), so the server wires
// itself in through this callback instead, the same way Replica
// exposes SetDispatchHook.
func (o *Orchestrator) SetStateHook(hook StateHook) {
	o.mu.Lock()
	o.stateHook = hook
	o.mu.Unlock()
}

// New creates an Orchestrator that saves into dir/dbFilename-shaped
// paths, using shards to open and write each shard's own file in the
// native layout and coord for the global transactions of the legacy
// single-file save and of DoFlush.
func New(shards *shard.EngineShardSet, coord *txn.Coordinator, dir, dbFilename string) *Orchestrator {
	return &Orchestrator{shards: shards, coord: coord, dir: dir, dbFilename: dbFilename}
}

// GetLastSaveInfo returns a copy of the most recent save's result, or
// nil if no save has ever run.
func (o *Orchestrator) GetLastSaveInfo() *LastSaveInfo {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.lastSave == nil {
		return nil
	}
	cp := *o.lastSave
	return &cp
}

// IsSaving reports whether a DoSave is currently in flight.
func (o *Orchestrator) IsSaving() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.saving
}

// DoSave runs a full snapshot. newVersion selects the native
// per-shard ".dfs" layout, one file per shard; false selects the
// legacy single-file RDB path, where every shard's databases are
// captured and appended into one shared file (mirroring the
// original's non-sharded mode).
func (o *Orchestrator) DoSave(ctx context.Context, newVersion bool) (*LastSaveInfo, error) {
	o.mu.Lock()
	if o.saving {
		o.mu.Unlock()
		return nil, fmt.Errorf("SAVING - can not save database")
	}
	hook := o.stateHook
	o.saving = true
	o.mu.Unlock()
	if hook.Enter != nil && !hook.Enter() {
		o.mu.Lock()
		o.saving = false
		o.mu.Unlock()
		return nil, fmt.Errorf("SAVING - can not save database")
	}
	defer func() {
		o.mu.Lock()
		o.saving = false
		o.mu.Unlock()
		if hook.Exit != nil {
			hook.Exit()
		}
	}()

	if o.dir != "" {
		if err := os.MkdirAll(o.dir, 0755); err != nil {
			return nil, fmt.Errorf("create-dir: %w", err)
		}
	}

	start := time.Now()
	now := start
	filename := o.dbFilename
	if filename == "" {
		filename = "dump"
	}

	var writers []*rdbSnapshot
	var writersMu sync.Mutex
	var firstErr error
	recordErr := func(err error) {
		if err == nil {
			return
		}
		writersMu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		writersMu.Unlock()
	}

	if newVersion {
		writers = make([]*rdbSnapshot, o.shards.Size())
		errs := o.shards.RunBlockingInParallel(
			func(sh *shard.EngineShard) interface{} {
				shardFile := ExtendFilename(now, sh.ID, filename)
				path := filepath.Join(o.dir, shardFile)
				f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
				if err != nil {
					return err
				}
				w := newRdbSnapshot(f)
				writers[sh.ID] = w
				return CaptureAllDBs(sh, now.UnixNano())
			},
			func(sh *shard.EngineShard, captured interface{}) error {
				if err, ok := captured.(error); ok {
					return err
				}
				entriesByDB := captured.(map[int][]dbslice.SnapshotEntry)
				w := writers[sh.ID]
				if w == nil {
					return nil
				}
				return w.saveBody(entriesByDB)
			},
		)
		for _, err := range errs {
			recordErr(err)
		}
	} else {
		shardFile := ExtendFilename(now, -1, filename)
		path := filepath.Join(o.dir, shardFile)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		w := newRdbSnapshot(f)
		writers = []*rdbSnapshot{w}

		// Every shard writes into this one file; w.saveBody's internal
		// sync.Once ensures the "REDIS" header is emitted exactly once
		// no matter how many shards' hops race to call it.
		tx := o.coord.NewTransaction(txn.FlagGlobal)
		err = tx.Schedule(ctx, func(ctx context.Context, sh *shard.EngineShard) error {
			entriesByDB := CaptureAllDBs(sh, now.UnixNano())
			return w.saveBody(entriesByDB)
		})
		recordErr(err)
	}

	typeCounts := make(map[string]int)
	for _, w := range writers {
		if w == nil {
			continue
		}
		recordErr(w.close())
		for k, v := range w.typeCounts {
			typeCounts[k] += v
		}
	}

	result := &LastSaveInfo{
		SaveTime:   start,
		Duration:   time.Since(start),
		TypeCounts: typeCounts,
		Err:        firstErr,
	}
	o.mu.Lock()
	o.lastSave = result
	o.mu.Unlock()

	if firstErr != nil {
		logger.Errorf("save failed: %v", firstErr)
		return result, firstErr
	}
	logger.Infof("save completed in %s", result.Duration)
	return result, nil
}

// DoFlush implements FLUSHALL/FLUSHDB: a global transaction that
// flushes dbIndex on every shard, or every database if dbIndex < 0.
func (o *Orchestrator) DoFlush(ctx context.Context, dbIndex int) error {
	tx := o.coord.NewTransaction(txn.FlagGlobal)
	return tx.Schedule(ctx, func(ctx context.Context, sh *shard.EngineShard) error {
		if dbIndex < 0 {
			for i := 0; i < sh.Slice.Databases(); i++ {
				sh.Slice.DB(i).Flush()
			}
			return nil
		}
		sh.Slice.DB(dbIndex).Flush()
		return nil
	})
}

// StartCron begins the save-schedule loop: every 20s it checks every
// parsed schedule entry against the current UTC time and synthesizes
// an internal SAVE (legacy single-file RDB) on a match, skipping a
// match whose minute has already triggered a save.
func (o *Orchestrator) StartCron(schedules []*SnapshotSpec) {
	o.schedules = schedules
	if len(schedules) == 0 {
		return
	}
	o.stopCron = make(chan struct{})
	o.cronWG.Add(1)
	go o.runCron()
}

func (o *Orchestrator) runCron() {
	defer o.cronWG.Done()
	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now().UTC()
			if last := o.GetLastSaveInfo(); last != nil && last.SaveTime.Truncate(time.Minute).Equal(now.Truncate(time.Minute)) {
				continue
			}
			for _, spec := range o.schedules {
				if DoesTimeMatchSpecifier(spec, now) {
					if _, err := o.DoSave(context.Background(), false); err != nil {
						logger.Errorf("scheduled save failed: %v", err)
					}
					break
				}
			}
		case <-o.stopCron:
			return
		}
	}
}

// StopCron halts the save-schedule loop, if running.
func (o *Orchestrator) StopCron() {
	if o.stopCron == nil {
		return
	}
	close(o.stopCron)
	o.cronWG.Wait()
}

// CaptureAllDBs returns a snapshot cut of every live key across every
// logical database owned by sh, indexed by db index. SELECT lets keys
// live in any of sh.Slice.Databases() databases, not just DB 0, so a
// save must capture all of them. Must run inside a hop on sh's own
// goroutine, same as the single-DB NewSnapshotIterator call it wraps.
func CaptureAllDBs(sh *shard.EngineShard, nowUnixNano int64) map[int][]dbslice.SnapshotEntry {
	out := make(map[int][]dbslice.SnapshotEntry, sh.Slice.Databases())
	for i := 0; i < sh.Slice.Databases(); i++ {
		entries := sh.Slice.DB(i).NewSnapshotIterator(nowUnixNano)
		if len(entries) > 0 {
			out[i] = entries
		}
	}
	return out
}

// rdbSnapshot wraps one RDB file's encoder. Multiple shards may call
// saveBody against the same rdbSnapshot (the legacy single-file save
// path schedules one saveBody per shard against one shared writer),
// so the file-level header must only ever be written once.
type rdbSnapshot struct {
	f          *os.File
	enc        *rdbcore.Encoder
	typeCounts map[string]int
	mu         sync.Mutex
	headerOnce sync.Once
	headerErr  error
}

func newRdbSnapshot(f *os.File) *rdbSnapshot {
	return &rdbSnapshot{
		f:          f,
		enc:        rdbcore.NewEncoder(f),
		typeCounts: make(map[string]int),
	}
}

func (w *rdbSnapshot) saveBody(entriesByDB map[int][]dbslice.SnapshotEntry) error {
	w.headerOnce.Do(func() {
		w.headerErr = w.enc.WriteHeader()
	})
	if w.headerErr != nil {
		return w.headerErr
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	counts, err := EncodeShardBody(w.enc, entriesByDB)
	for k, v := range counts {
		w.typeCounts[k] += v
	}
	return err
}

// EncodeShardBody writes entriesByDB as one or more RDB database
// bodies (a WriteDBHeader followed by its per-key objects for each
// non-empty db index, matching the original's per-shard RDB writer)
// onto enc, returning a per-type write count for the caller's
// type-frequency aggregation. Callers own writing the file-level
// header exactly once; EncodeShardBody never calls WriteHeader itself
// so it can be invoked per-db-index or per-shard without duplicating
// it. Shared by the file-backed save path and DflyCmd's live DFLY
// FLOW streaming, which encodes straight onto a replica's socket
// instead of a file.
func EncodeShardBody(enc *rdbcore.Encoder, entriesByDB map[int][]dbslice.SnapshotEntry) (map[string]int, error) {
	typeCounts := make(map[string]int)
	indices := make([]int, 0, len(entriesByDB))
	for idx := range entriesByDB {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	for _, dbIndex := range indices {
		entries := entriesByDB[dbIndex]
		if err := enc.WriteDBHeader(uint(dbIndex), uint64(len(entries)), 0); err != nil {
			return typeCounts, err
		}
		for _, entry := range entries {
			if err := writeEntry(enc, typeCounts, entry); err != nil {
				return typeCounts, err
			}
		}
	}
	return typeCounts, nil
}

func writeEntry(enc *rdbcore.Encoder, typeCounts map[string]int, entry dbslice.SnapshotEntry) error {
	switch v := entry.Val.(type) {
	case []byte:
		typeCounts[model.StringType]++
		return enc.WriteStringObject(entry.Key, v)
	case *list.QuickList:
		typeCounts[model.ListType]++
		n := v.Len()
		if n == 0 {
			return nil
		}
		raw := v.Range(0, n)
		values := make([][]byte, len(raw))
		for i, r := range raw {
			values[i] = r.([]byte)
		}
		return enc.WriteListObject(entry.Key, values)
	case dict.Dict:
		typeCounts[model.HashType]++
		hash := make(map[string][]byte)
		v.ForEach(func(field string, val interface{}) bool {
			if b, ok := val.([]byte); ok {
				hash[field] = b
			}
			return true
		})
		return enc.WriteHashMapObject(entry.Key, hash)
	case *set.Set:
		typeCounts[model.SetType]++
		members := v.ToSlice()
		values := make([][]byte, len(members))
		for i, m := range members {
			values[i] = []byte(m)
		}
		return enc.WriteSetObject(entry.Key, values)
	case *sortedset.SortedSet:
		typeCounts[model.ZSetType]++
		elements := v.Range(0, v.Len(), false)
		zentries := make([]*model.ZSetEntry, len(elements))
		for i, el := range elements {
			zentries[i] = &model.ZSetEntry{Member: el.Member, Score: el.Score}
		}
		return enc.WriteZSetObject(entry.Key, zentries)
	default:
		return nil
	}
}

func (w *rdbSnapshot) close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.WriteEnd(); err != nil {
		_ = w.f.Close()
		return err
	}
	return w.f.Close()
}
