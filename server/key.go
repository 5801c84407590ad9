package server

import (
	"context"
	"sync"
	"time"

	"github.com/ryanrussell/dragonfly/datastruct/bitmap"
	"github.com/ryanrussell/dragonfly/datastruct/dict"
	"github.com/ryanrussell/dragonfly/datastruct/list"
	"github.com/ryanrussell/dragonfly/datastruct/set"
	"github.com/ryanrussell/dragonfly/datastruct/sortedset"
	"github.com/ryanrussell/dragonfly/interface/redis"
	"github.com/ryanrussell/dragonfly/internal/shard"
	"github.com/ryanrussell/dragonfly/internal/txn"
	"github.com/ryanrussell/dragonfly/redis/protocol"
)

func registerKeyCommands() {
	register(&Command{Name: "DEL", Arity: -2, Flags: Write, FirstKey: 1, LastKey: -1, KeyStep: 1, Exec: execDel})
	register(&Command{Name: "EXISTS", Arity: -2, Flags: Readonly | Fast, FirstKey: 1, LastKey: -1, KeyStep: 1, Exec: execExists})
	register(&Command{Name: "EXPIRE", Arity: 3, Flags: Write | Fast, FirstKey: 1, LastKey: 1, KeyStep: 1, Exec: execExpire})
	register(&Command{Name: "PERSIST", Arity: 2, Flags: Write | Fast, FirstKey: 1, LastKey: 1, KeyStep: 1, Exec: execPersist})
	register(&Command{Name: "TTL", Arity: 2, Flags: Readonly | Fast, FirstKey: 1, LastKey: 1, KeyStep: 1, Exec: execTTL})
	register(&Command{Name: "TYPE", Arity: 2, Flags: Readonly | Fast, FirstKey: 1, LastKey: 1, KeyStep: 1, Exec: execType})
	register(&Command{Name: "KEYS", Arity: 2, Flags: Readonly, Exec: execKeys})
	register(&Command{Name: "DBSIZE", Arity: 1, Flags: Readonly | Fast, Exec: execDBSize})
}

func execDel(c *execContext, args [][]byte) redis.Reply {
	keys := make([]string, 0, len(args)-1)
	byShard := make(map[int][]string)
	for _, a := range args[1:] {
		key := string(a)
		keys = append(keys, key)
		owner := c.rt.Shards.ShardForKey(key)
		byShard[owner.ID] = append(byShard[owner.ID], key)
	}

	var deleted int64
	var mu sync.Mutex
	tx := c.rt.Coord.NewTransaction(txn.FlagNone, keys...)
	err := tx.Schedule(c.ctx, func(ctx context.Context, sh *shard.EngineShard) error {
		n := sh.Slice.DB(c.dbIndex()).Removes(byShard[sh.ID]...)
		mu.Lock()
		deleted += int64(n)
		mu.Unlock()
		if !c.replica && n > 0 {
			c.rt.Journal.Append(sh.ID, c.dbIndex(), args)
		}
		return nil
	})
	if err != nil {
		return protocol.MakeErrReply(err.Error())
	}
	return protocol.MakeIntReply(deleted)
}

func execExists(c *execContext, args [][]byte) redis.Reply {
	var count int64
	for _, a := range args[1:] {
		key := string(a)
		reply := c.runReadOnly([]string{key}, func(sh *shard.EngineShard) redis.Reply {
			if sh.Slice.DB(c.dbIndex()).Exists(key, c.now()) {
				return protocol.MakeIntReply(1)
			}
			return protocol.MakeIntReply(0)
		})
		if ir, ok := reply.(*protocol.IntReply); ok {
			count += ir.Code
		}
	}
	return protocol.MakeIntReply(count)
}

func execExpire(c *execContext, args [][]byte) redis.Reply {
	key := string(args[1])
	seconds, err := parseInt64(args[2])
	if err != nil {
		return protocol.MakeErrReply("ERR value is not an integer or out of range")
	}
	return c.runWrite([]string{key}, args, func(sh *shard.EngineShard) redis.Reply {
		db := sh.Slice.DB(c.dbIndex())
		if !db.Exists(key, c.now()) {
			return protocol.MakeIntReply(0)
		}
		deadline := time.Now().Add(time.Duration(seconds) * time.Second)
		db.Expire(key, deadline.UnixNano())
		sh.ScheduleExpire(c.dbIndex(), key, deadline)
		return protocol.MakeIntReply(1)
	})
}

func execPersist(c *execContext, args [][]byte) redis.Reply {
	key := string(args[1])
	return c.runWrite([]string{key}, args, func(sh *shard.EngineShard) redis.Reply {
		result := sh.Slice.DB(c.dbIndex()).Persist(key)
		if result > 0 {
			sh.CancelExpire(c.dbIndex(), key)
		}
		return protocol.MakeIntReply(int64(result))
	})
}

func execTTL(c *execContext, args [][]byte) redis.Reply {
	key := string(args[1])
	return c.runReadOnly([]string{key}, func(sh *shard.EngineShard) redis.Reply {
		db := sh.Slice.DB(c.dbIndex())
		if !db.Exists(key, c.now()) {
			return protocol.MakeIntReply(-2)
		}
		remaining, ok := db.TTL(key, c.now())
		if !ok {
			return protocol.MakeIntReply(-1)
		}
		return protocol.MakeIntReply(int64(remaining / int64(time.Second)))
	})
}

func execType(c *execContext, args [][]byte) redis.Reply {
	key := string(args[1])
	return c.runReadOnly([]string{key}, func(sh *shard.EngineShard) redis.Reply {
		val, ok := sh.Slice.DB(c.dbIndex()).Get(key, c.now())
		if !ok {
			return protocol.MakeStatusReply("none")
		}
		return protocol.MakeStatusReply(typeName(val))
	})
}

func typeName(val interface{}) string {
	switch val.(type) {
	case []byte:
		return "string"
	case *list.QuickList:
		return "list"
	case dict.Dict:
		return "hash"
	case *set.Set:
		return "set"
	case *sortedset.SortedSet:
		return "zset"
	case *bitmap.BitMap:
		return "string"
	default:
		return "none"
	}
}

func execKeys(c *execContext, args [][]byte) redis.Reply {
	pattern := string(args[1])
	now := c.now()
	var all []string
	n := c.rt.Shards.Size()
	for i := 0; i < n; i++ {
		sh := c.rt.Shards.Shard(i)
		sh.Await(func() {
			all = append(all, sh.Slice.DB(c.dbIndex()).Keys(pattern, now)...)
		})
	}
	replies := make([][]byte, len(all))
	for i, k := range all {
		replies[i] = []byte(k)
	}
	return protocol.MakeMultiBulkReply(replies)
}

func execDBSize(c *execContext, args [][]byte) redis.Reply {
	var total int64
	n := c.rt.Shards.Size()
	for i := 0; i < n; i++ {
		sh := c.rt.Shards.Shard(i)
		sh.Await(func() {
			total += int64(sh.Slice.DB(c.dbIndex()).Len())
		})
	}
	return protocol.MakeIntReply(total)
}
