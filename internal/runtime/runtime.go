// Package runtime bundles the pieces a running server needs to reach
// from command dispatch: the shard set, its transaction coordinator,
// the change journal, and the snapshot orchestrator. It exists so
// server.NewServer and cmd/dragonfly/main.go share one construction
// path instead of wiring each piece ad hoc.
package runtime

import (
	"fmt"
	"time"

	"github.com/ryanrussell/dragonfly/internal/dflycmd"
	"github.com/ryanrussell/dragonfly/internal/journal"
	"github.com/ryanrussell/dragonfly/internal/replica"
	"github.com/ryanrussell/dragonfly/internal/shard"
	"github.com/ryanrussell/dragonfly/internal/snapshot"
	"github.com/ryanrussell/dragonfly/internal/txn"
)

// Runtime is the server's live state, constructed once at boot and
// shared by every connection.
type Runtime struct {
	Shards  *shard.EngineShardSet
	Coord   *txn.Coordinator
	Journal *journal.Journal
	Snap    *snapshot.Orchestrator
	DflyCmd *dflycmd.Registry
	Replica *replica.Replica

	// BootTime records process start for LASTSAVE's "no save yet"
	// fallback and INFO server's uptime field.
	BootTime time.Time

	databases int
}

// Config bundles Runtime's construction parameters.
type Config struct {
	NumShards  int
	Databases  int
	Dir        string
	DBFilename string
}

// New constructs a Runtime with numShards EngineShard goroutines
// already started.
func New(cfg Config) (*Runtime, error) {
	if cfg.NumShards <= 0 {
		return nil, fmt.Errorf("runtime: NumShards must be positive, got %d", cfg.NumShards)
	}
	if cfg.Databases <= 0 {
		cfg.Databases = 16
	}

	shards, err := shard.NewEngineShardSet(cfg.NumShards, cfg.Databases)
	if err != nil {
		return nil, fmt.Errorf("runtime: %w", err)
	}
	coord := txn.NewCoordinator(shards)
	j := journal.New()
	snap := snapshot.New(shards, coord, cfg.Dir, cfg.DBFilename)

	return &Runtime{
		Shards:    shards,
		Coord:     coord,
		Journal:   j,
		Snap:      snap,
		DflyCmd:   dflycmd.NewRegistry(),
		Replica:   replica.New(),
		BootTime:  time.Now(),
		databases: cfg.Databases,
	}, nil
}

// Databases returns the number of logical databases each shard owns.
func (r *Runtime) Databases() int {
	return r.databases
}

// Shutdown stops the cron scheduler and every shard goroutine, then
// closes the journal. It does not itself flush or save; callers that
// want a save-on-exit should call Snap.DoSave first.
func (r *Runtime) Shutdown() {
	r.Snap.StopCron()
	r.Journal.EnterLameDuck()
	r.Shards.Stop()
	r.Journal.Close()
}
