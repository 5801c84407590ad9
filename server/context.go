package server

import (
	"context"
	"time"

	"github.com/ryanrussell/dragonfly/interface/redis"
	"github.com/ryanrussell/dragonfly/internal/runtime"
	"github.com/ryanrussell/dragonfly/internal/shard"
	"github.com/ryanrussell/dragonfly/internal/txn"
	"github.com/ryanrussell/dragonfly/redis/protocol"
)

// execContext bundles what a command's Exec function needs: the
// runtime it reaches the shard set through, and the connection that
// issued the command (for its selected db, name, and tx state).
type execContext struct {
	ctx     context.Context
	rt      *runtime.Runtime
	conn    redis.Connection
	srv     *Server
	replica bool // true when executing a command replayed from the replication stream
}

func (c *execContext) dbIndex() int {
	return c.conn.GetDBIndex()
}

func (c *execContext) now() int64 {
	return time.Now().UnixNano()
}

// runReadOnly runs fn against the shard owning keys (or, for zero
// keys, any shard — callers with no keys should not use this) without
// journaling, since reads have nothing to replicate.
func (c *execContext) runReadOnly(keys []string, fn func(sh *shard.EngineShard) redis.Reply) redis.Reply {
	tx := c.rt.Coord.NewTransaction(txn.FlagNone, keys...)
	var reply redis.Reply
	err := tx.RunSingleHop(c.ctx, func(ctx context.Context, sh *shard.EngineShard) error {
		reply = fn(sh)
		return nil
	})
	if err != nil {
		return protocol.MakeErrReply(err.Error())
	}
	return reply
}

// runWrite is runReadOnly plus journaling: on success, args is
// recorded to the journal under the shard that ran it, so replication
// observes exactly the writes that actually committed. Skipped when
// the command came from the replication stream itself, to avoid
// re-propagating a replica's own applied writes.
func (c *execContext) runWrite(keys []string, args [][]byte, fn func(sh *shard.EngineShard) redis.Reply) redis.Reply {
	tx := c.rt.Coord.NewTransaction(txn.FlagNone, keys...)
	var reply redis.Reply
	err := tx.RunSingleHop(c.ctx, func(ctx context.Context, sh *shard.EngineShard) error {
		reply = fn(sh)
		if !c.replica && !protocol.IsErrorReply(reply) {
			c.rt.Journal.Append(sh.ID, c.dbIndex(), args)
		}
		return nil
	})
	if err != nil {
		return protocol.MakeErrReply(err.Error())
	}
	return reply
}

// runGlobal runs fn on every shard under the coordinator's global
// ordering lock, used by FLUSHALL/FLUSHDB-class commands.
func (c *execContext) runGlobal(fn func(sh *shard.EngineShard) error) redis.Reply {
	tx := c.rt.Coord.NewTransaction(txn.FlagGlobal)
	if err := tx.Schedule(c.ctx, func(ctx context.Context, sh *shard.EngineShard) error {
		return fn(sh)
	}); err != nil {
		return protocol.MakeErrReply(err.Error())
	}
	return protocol.MakeOkReply()
}
