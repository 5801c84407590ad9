package server

import (
	"github.com/ryanrussell/dragonfly/datastruct/sortedset"
	"github.com/ryanrussell/dragonfly/interface/redis"
	"github.com/ryanrussell/dragonfly/internal/shard"
	"github.com/ryanrussell/dragonfly/redis/protocol"
)

func registerZSetCommands() {
	register(&Command{Name: "ZADD", Arity: -4, Flags: Write, FirstKey: 1, LastKey: 1, KeyStep: 1, Exec: execZAdd})
	register(&Command{Name: "ZSCORE", Arity: 3, Flags: Readonly | Fast, FirstKey: 1, LastKey: 1, KeyStep: 1, Exec: execZScore})
	register(&Command{Name: "ZCARD", Arity: 2, Flags: Readonly | Fast, FirstKey: 1, LastKey: 1, KeyStep: 1, Exec: execZCard})
	register(&Command{Name: "ZRANGE", Arity: 4, Flags: Readonly, FirstKey: 1, LastKey: 1, KeyStep: 1, Exec: execZRange})
	register(&Command{Name: "ZREM", Arity: -3, Flags: Write, FirstKey: 1, LastKey: 1, KeyStep: 1, Exec: execZRem})
}

func getZSet(sh *shard.EngineShard, dbIndex int, key string, now int64, create bool) (*sortedset.SortedSet, redis.Reply) {
	db := sh.Slice.DB(dbIndex)
	val, ok := db.Get(key, now)
	if !ok {
		if !create {
			return nil, nil
		}
		z := sortedset.Make()
		db.PutKeepTTL(key, z)
		return z, nil
	}
	z, ok := val.(*sortedset.SortedSet)
	if !ok {
		return nil, &protocol.WrongTypeErrReply{}
	}
	return z, nil
}

func execZAdd(c *execContext, args [][]byte) redis.Reply {
	if len(args)%2 != 0 {
		return protocol.MakeSyntaxErrReply()
	}
	key := string(args[1])
	return c.runWrite([]string{key}, args, func(sh *shard.EngineShard) redis.Reply {
		z, errReply := getZSet(sh, c.dbIndex(), key, c.now(), true)
		if errReply != nil {
			return errReply
		}
		added := 0
		for i := 2; i+1 < len(args); i += 2 {
			score, err := parseFloat64(args[i])
			if err != nil {
				return protocol.MakeErrReply("ERR value is not a valid float")
			}
			if z.Add(string(args[i+1]), score) {
				added++
			}
		}
		return protocol.MakeIntReply(int64(added))
	})
}

func execZScore(c *execContext, args [][]byte) redis.Reply {
	key := string(args[1])
	member := string(args[2])
	return c.runReadOnly([]string{key}, func(sh *shard.EngineShard) redis.Reply {
		z, errReply := getZSet(sh, c.dbIndex(), key, c.now(), false)
		if errReply != nil {
			return errReply
		}
		if z == nil {
			return protocol.MakeNullBulkReply()
		}
		elem, ok := z.Get(member)
		if !ok {
			return protocol.MakeNullBulkReply()
		}
		return protocol.MakeBulkReply([]byte(formatFloat(elem.Score)))
	})
}

func execZCard(c *execContext, args [][]byte) redis.Reply {
	key := string(args[1])
	return c.runReadOnly([]string{key}, func(sh *shard.EngineShard) redis.Reply {
		z, errReply := getZSet(sh, c.dbIndex(), key, c.now(), false)
		if errReply != nil {
			return errReply
		}
		if z == nil {
			return protocol.MakeIntReply(0)
		}
		return protocol.MakeIntReply(z.Len())
	})
}

func execZRange(c *execContext, args [][]byte) redis.Reply {
	key := string(args[1])
	start, err := parseInt64(args[2])
	if err != nil {
		return protocol.MakeErrReply("ERR value is not an integer or out of range")
	}
	stop, err := parseInt64(args[3])
	if err != nil {
		return protocol.MakeErrReply("ERR value is not an integer or out of range")
	}
	return c.runReadOnly([]string{key}, func(sh *shard.EngineShard) redis.Reply {
		z, errReply := getZSet(sh, c.dbIndex(), key, c.now(), false)
		if errReply != nil {
			return errReply
		}
		if z == nil || z.Len() == 0 {
			return protocol.MakeEmptyMultiBulkReply()
		}
		from, to := normalizeRange(int(start), int(stop), int(z.Len()))
		if from >= to {
			return protocol.MakeEmptyMultiBulkReply()
		}
		elements := z.Range(int64(from), int64(to), false)
		result := make([][]byte, len(elements))
		for i, el := range elements {
			result[i] = []byte(el.Member)
		}
		return protocol.MakeMultiBulkReply(result)
	})
}

func execZRem(c *execContext, args [][]byte) redis.Reply {
	key := string(args[1])
	return c.runWrite([]string{key}, args, func(sh *shard.EngineShard) redis.Reply {
		z, errReply := getZSet(sh, c.dbIndex(), key, c.now(), false)
		if errReply != nil {
			return errReply
		}
		if z == nil {
			return protocol.MakeIntReply(0)
		}
		removed := 0
		for _, m := range args[2:] {
			if z.Remove(string(m)) {
				removed++
			}
		}
		return protocol.MakeIntReply(int64(removed))
	})
}
