package server

import (
	"github.com/ryanrussell/dragonfly/datastruct/dict"
	"github.com/ryanrussell/dragonfly/interface/redis"
	"github.com/ryanrussell/dragonfly/internal/shard"
	"github.com/ryanrussell/dragonfly/redis/protocol"
)

func registerHashCommands() {
	register(&Command{Name: "HSET", Arity: -4, Flags: Write, FirstKey: 1, LastKey: 1, KeyStep: 1, Exec: execHSet})
	register(&Command{Name: "HGET", Arity: 3, Flags: Readonly | Fast, FirstKey: 1, LastKey: 1, KeyStep: 1, Exec: execHGet})
	register(&Command{Name: "HDEL", Arity: -3, Flags: Write, FirstKey: 1, LastKey: 1, KeyStep: 1, Exec: execHDel})
	register(&Command{Name: "HGETALL", Arity: 2, Flags: Readonly, FirstKey: 1, LastKey: 1, KeyStep: 1, Exec: execHGetAll})
	register(&Command{Name: "HLEN", Arity: 2, Flags: Readonly | Fast, FirstKey: 1, LastKey: 1, KeyStep: 1, Exec: execHLen})
	register(&Command{Name: "HEXISTS", Arity: 3, Flags: Readonly | Fast, FirstKey: 1, LastKey: 1, KeyStep: 1, Exec: execHExists})
}

// getHash fetches the hash stored at key. A missing key returns
// (nil, nil) unless create is set, in which case a fresh hash is
// stored and returned. A key holding a non-hash value returns a
// WRONGTYPE reply as the second value.
func getHash(sh *shard.EngineShard, dbIndex int, key string, now int64, create bool) (dict.Dict, redis.Reply) {
	db := sh.Slice.DB(dbIndex)
	val, ok := db.Get(key, now)
	if !ok {
		if !create {
			return nil, nil
		}
		h := dict.MakeSimple()
		db.PutKeepTTL(key, h)
		return h, nil
	}
	h, ok := val.(dict.Dict)
	if !ok {
		return nil, &protocol.WrongTypeErrReply{}
	}
	return h, nil
}

func execHSet(c *execContext, args [][]byte) redis.Reply {
	if len(args)%2 != 0 {
		return protocol.MakeArgNumErrReply("hset")
	}
	key := string(args[1])
	return c.runWrite([]string{key}, args, func(sh *shard.EngineShard) redis.Reply {
		h, errReply := getHash(sh, c.dbIndex(), key, c.now(), true)
		if errReply != nil {
			return errReply
		}
		added := 0
		for i := 2; i+1 < len(args); i += 2 {
			added += h.Put(string(args[i]), args[i+1])
		}
		return protocol.MakeIntReply(int64(added))
	})
}

func execHGet(c *execContext, args [][]byte) redis.Reply {
	key := string(args[1])
	field := string(args[2])
	return c.runReadOnly([]string{key}, func(sh *shard.EngineShard) redis.Reply {
		h, errReply := getHash(sh, c.dbIndex(), key, c.now(), false)
		if errReply != nil {
			return errReply
		}
		if h == nil {
			return protocol.MakeNullBulkReply()
		}
		val, ok := h.Get(field)
		if !ok {
			return protocol.MakeNullBulkReply()
		}
		return protocol.MakeBulkReply(val.([]byte))
	})
}

func execHDel(c *execContext, args [][]byte) redis.Reply {
	key := string(args[1])
	return c.runWrite([]string{key}, args, func(sh *shard.EngineShard) redis.Reply {
		h, errReply := getHash(sh, c.dbIndex(), key, c.now(), false)
		if errReply != nil {
			return errReply
		}
		if h == nil {
			return protocol.MakeIntReply(0)
		}
		removed := 0
		for _, f := range args[2:] {
			_, n := h.Remove(string(f))
			removed += n
		}
		return protocol.MakeIntReply(int64(removed))
	})
}

func execHGetAll(c *execContext, args [][]byte) redis.Reply {
	key := string(args[1])
	return c.runReadOnly([]string{key}, func(sh *shard.EngineShard) redis.Reply {
		h, errReply := getHash(sh, c.dbIndex(), key, c.now(), false)
		if errReply != nil {
			return errReply
		}
		if h == nil {
			return protocol.MakeEmptyMultiBulkReply()
		}
		result := make([][]byte, 0, h.Len()*2)
		h.ForEach(func(field string, val interface{}) bool {
			result = append(result, []byte(field), val.([]byte))
			return true
		})
		return protocol.MakeMultiBulkReply(result)
	})
}

func execHLen(c *execContext, args [][]byte) redis.Reply {
	key := string(args[1])
	return c.runReadOnly([]string{key}, func(sh *shard.EngineShard) redis.Reply {
		h, errReply := getHash(sh, c.dbIndex(), key, c.now(), false)
		if errReply != nil {
			return errReply
		}
		if h == nil {
			return protocol.MakeIntReply(0)
		}
		return protocol.MakeIntReply(int64(h.Len()))
	})
}

func execHExists(c *execContext, args [][]byte) redis.Reply {
	key := string(args[1])
	field := string(args[2])
	return c.runReadOnly([]string{key}, func(sh *shard.EngineShard) redis.Reply {
		h, errReply := getHash(sh, c.dbIndex(), key, c.now(), false)
		if errReply != nil {
			return errReply
		}
		if h == nil {
			return protocol.MakeIntReply(0)
		}
		if _, ok := h.Get(field); ok {
			return protocol.MakeIntReply(1)
		}
		return protocol.MakeIntReply(0)
	})
}
