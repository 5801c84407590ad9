package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	rdbcore "github.com/hdt3213/rdb/core"
	rdbparser "github.com/hdt3213/rdb/parser"

	"github.com/ryanrussell/dragonfly/datastruct/dict"
	"github.com/ryanrussell/dragonfly/datastruct/list"
	"github.com/ryanrussell/dragonfly/datastruct/set"
	"github.com/ryanrussell/dragonfly/datastruct/sortedset"
	"github.com/ryanrussell/dragonfly/internal/shard"
	"github.com/ryanrussell/dragonfly/lib/logger"
)

// LatestSnapshotFiles returns the file set belonging to the most
// recent save under dir for dbFilename: either a single legacy
// "<dbFilename>-<ts>.rdb" or every "<dbFilename>-<ts>-NNNN.dfs" sharing
// the newest timestamp. Returns nil, nil if no matching file exists.
func LatestSnapshotFiles(dir, dbFilename string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	prefix := dbFilename + "-"
	var best string
	var bestFiles []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := strings.TrimPrefix(name, prefix)
		var ts string
		switch {
		case strings.HasSuffix(rest, ".rdb"):
			ts = strings.TrimSuffix(rest, ".rdb")
		case strings.HasSuffix(rest, ".dfs"):
			trimmed := strings.TrimSuffix(rest, ".dfs")
			idx := strings.LastIndex(trimmed, "-")
			if idx < 0 {
				continue
			}
			ts = trimmed[:idx]
		default:
			continue
		}
		switch {
		case ts > best:
			best = ts
			bestFiles = []string{filepath.Join(dir, name)}
		case ts == best:
			bestFiles = append(bestFiles, filepath.Join(dir, name))
		}
	}
	sort.Strings(bestFiles)
	return bestFiles, nil
}

// LoadFile replays one RDB or DFS file into shards, routing each
// decoded entry to the shard that owns its key by hash rather than by
// which file it came from, so a native snapshot's N files can be
// loaded in any order (or even merged with a stray legacy file) and
// still land on the correct shard.
func LoadFile(shards *shard.EngineShardSet, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := rdbcore.NewDecoder(f)
	err = dec.Parse(func(o rdbparser.RedisObject) bool {
		val := decodeObject(o)
		if val == nil {
			return true
		}
		key := o.GetKey()
		dbIndex := o.GetDBIndex()
		sh := shards.ShardForKey(key)
		sh.Await(func() {
			if dbIndex < 0 || dbIndex >= sh.Slice.Databases() {
				return
			}
			db := sh.Slice.DB(dbIndex)
			db.Put(key, val)
			if exp := o.GetExpiration(); exp != nil {
				db.Expire(key, exp.UnixNano())
			}
		})
		return true
	})
	return err
}

func decodeObject(o rdbparser.RedisObject) interface{} {
	switch o.GetType() {
	case rdbparser.StringType:
		str := o.(*rdbparser.StringObject)
		return str.Value
	case rdbparser.ListType:
		listObj := o.(*rdbparser.ListObject)
		ql := list.NewQuickList()
		for _, v := range listObj.Values {
			ql.Add(v)
		}
		return ql
	case rdbparser.HashType:
		hashObj := o.(*rdbparser.HashObject)
		hash := dict.MakeSimple()
		for k, v := range hashObj.Hash {
			hash.Put(k, v)
		}
		return hash
	case rdbparser.SetType:
		setObj := o.(*rdbparser.SetObject)
		s := set.Make()
		for _, v := range setObj.Members {
			s.Add(string(v))
		}
		return s
	case rdbparser.ZSetType:
		zsetObj := o.(*rdbparser.ZSetObject)
		zs := sortedset.Make()
		for _, e := range zsetObj.Entries {
			zs.Add(e.Member, e.Score)
		}
		return zs
	default:
		return nil
	}
}

// LoadLatest finds and replays the most recent snapshot under dir, if
// any. It is a no-op returning (false, nil) when no snapshot file
// exists, matching the teacher's loadRdbFile's "log and continue"
// behavior on a missing file, but surfaced as a return value instead
// of a logged-and-swallowed error so callers can decide whether a
// missing snapshot at boot is noteworthy.
func LoadLatest(shards *shard.EngineShardSet, dir, dbFilename string) (bool, error) {
	files, err := LatestSnapshotFiles(dir, dbFilename)
	if err != nil {
		return false, err
	}
	if len(files) == 0 {
		return false, nil
	}
	for _, f := range files {
		if err := LoadFile(shards, f); err != nil {
			return false, fmt.Errorf("load %s: %w", f, err)
		}
		logger.Infof("loaded snapshot %s", f)
	}
	return true, nil
}
