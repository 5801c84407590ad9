package server

import (
	"github.com/ryanrussell/dragonfly/config"
	"github.com/ryanrussell/dragonfly/internal/runtime"
	"github.com/ryanrussell/dragonfly/internal/snapshot"
)

// loadLatestSnapshot replays the most recent RDB/DFS snapshot under
// dir, if any, routing every decoded entry to the shard that owns its
// key.
func loadLatestSnapshot(rt *runtime.Runtime, dir, dbFilename string) (bool, error) {
	if dbFilename == "" {
		dbFilename = "dump"
	}
	return snapshot.LoadLatest(rt.Shards, dir, dbFilename)
}

// parseConfiguredSchedule parses config.Properties.SaveSchedule, a
// comma-separated list of "HH:MM" glob entries, into the cron's
// schedule set.
func parseConfiguredSchedule() ([]*snapshot.SnapshotSpec, error) {
	return snapshot.ParseSaveSchedules(config.Properties.SaveSchedule)
}
