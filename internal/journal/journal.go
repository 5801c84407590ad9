// Package journal implements the append-only change log that
// replication reads from: a generalization of the teacher's AOF
// handler (single writer goroutine draining a buffered channel) to an
// in-memory log consumed by replicas instead of a file consumed by
// nobody but the next restart.
package journal

import (
	"sync"
	"sync/atomic"

	"github.com/ryanrussell/dragonfly/lib/logger"
)

// CmdLine is alias for [][]byte, a parsed command line.
type CmdLine = [][]byte

// Entry is one committed write, tagged with the shard and db it ran
// against so a replica can replay it faithfully.
type Entry struct {
	ShardID int
	DBIndex int
	CmdLine CmdLine
}

const journalQueueSize = 1 << 16

const (
	stateActive int32 = iota
	stateLameDuck
	stateClosed
)

// Journal fans in writes from every shard's goroutine onto a single
// buffered channel and lets readers (replica flows) subscribe to the
// stream of entries. It never blocks a shard's hop: Append is a
// non-blocking channel send, matching the teacher's AddAof.
type Journal struct {
	entries chan *Entry
	state   int32

	mu          sync.RWMutex
	subscribers map[int]chan *Entry
	nextSubID   int

	closed chan struct{}
	once   sync.Once
}

// New creates a Journal and starts its fan-out goroutine.
func New() *Journal {
	j := &Journal{
		entries:     make(chan *Entry, journalQueueSize),
		subscribers: make(map[int]chan *Entry),
		closed:      make(chan struct{}),
	}
	go j.run()
	return j
}

func (j *Journal) run() {
	for entry := range j.entries {
		j.mu.RLock()
		for _, sub := range j.subscribers {
			select {
			case sub <- entry:
			default:
				logger.Warnf("journal subscriber is lagging, dropping entry for shard %d", entry.ShardID)
			}
		}
		j.mu.RUnlock()
	}
	close(j.closed)
}

// Append records a committed write. It is a no-op, not an error, once
// the journal has entered lame-duck or closed state, matching the
// teacher's AddAof guard on config.Properties.AppendOnly.
func (j *Journal) Append(shardID int, dbIndex int, cmdLine CmdLine) {
	if atomic.LoadInt32(&j.state) != stateActive {
		return
	}
	select {
	case j.entries <- &Entry{ShardID: shardID, DBIndex: dbIndex, CmdLine: cmdLine}:
	default:
		logger.Warn("journal queue full, dropping entry")
	}
}

// Subscribe registers a new reader and returns its channel plus an
// id to later Unsubscribe with. Used by a replica flow to stream
// entries to a DFLY SYNC session.
func (j *Journal) Subscribe() (id int, ch <-chan *Entry) {
	j.mu.Lock()
	defer j.mu.Unlock()
	id = j.nextSubID
	j.nextSubID++
	c := make(chan *Entry, 4096)
	j.subscribers[id] = c
	return id, c
}

// Unsubscribe removes a reader registered by Subscribe.
func (j *Journal) Unsubscribe(id int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if c, ok := j.subscribers[id]; ok {
		delete(j.subscribers, id)
		close(c)
	}
}

// EnterLameDuck transitions the journal from active to draining: new
// Appends are dropped, but existing subscribers keep draining queued
// entries until Close. It is idempotent: the compare-and-swap only
// succeeds from the active state, so repeated calls are safe.
func (j *Journal) EnterLameDuck() bool {
	return atomic.CompareAndSwapInt32(&j.state, stateActive, stateLameDuck)
}

// Close stops accepting new entries and shuts down the fan-out
// goroutine once the queue drains.
func (j *Journal) Close() {
	j.once.Do(func() {
		atomic.StoreInt32(&j.state, stateClosed)
		close(j.entries)
		<-j.closed
		j.mu.Lock()
		for id, c := range j.subscribers {
			delete(j.subscribers, id)
			close(c)
		}
		j.mu.Unlock()
	})
}
