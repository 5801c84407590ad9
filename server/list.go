package server

import (
	"github.com/ryanrussell/dragonfly/datastruct/list"
	"github.com/ryanrussell/dragonfly/interface/redis"
	"github.com/ryanrussell/dragonfly/internal/shard"
	"github.com/ryanrussell/dragonfly/redis/protocol"
)

func registerListCommands() {
	register(&Command{Name: "LPUSH", Arity: -3, Flags: Write, FirstKey: 1, LastKey: 1, KeyStep: 1, Exec: execLPush})
	register(&Command{Name: "RPUSH", Arity: -3, Flags: Write, FirstKey: 1, LastKey: 1, KeyStep: 1, Exec: execRPush})
	register(&Command{Name: "LRANGE", Arity: 4, Flags: Readonly, FirstKey: 1, LastKey: 1, KeyStep: 1, Exec: execLRange})
	register(&Command{Name: "LLEN", Arity: 2, Flags: Readonly | Fast, FirstKey: 1, LastKey: 1, KeyStep: 1, Exec: execLLen})
	register(&Command{Name: "LPOP", Arity: 2, Flags: Write | Fast, FirstKey: 1, LastKey: 1, KeyStep: 1, Exec: execLPop})
	register(&Command{Name: "RPOP", Arity: 2, Flags: Write | Fast, FirstKey: 1, LastKey: 1, KeyStep: 1, Exec: execRPop})
}

func getList(sh *shard.EngineShard, dbIndex int, key string, now int64, create bool) (*list.QuickList, redis.Reply) {
	db := sh.Slice.DB(dbIndex)
	val, ok := db.Get(key, now)
	if !ok {
		if !create {
			return nil, nil
		}
		l := list.NewQuickList()
		db.PutKeepTTL(key, l)
		return l, nil
	}
	l, ok := val.(*list.QuickList)
	if !ok {
		return nil, &protocol.WrongTypeErrReply{}
	}
	return l, nil
}

func execLPush(c *execContext, args [][]byte) redis.Reply {
	key := string(args[1])
	return c.runWrite([]string{key}, args, func(sh *shard.EngineShard) redis.Reply {
		l, errReply := getList(sh, c.dbIndex(), key, c.now(), true)
		if errReply != nil {
			return errReply
		}
		for _, v := range args[2:] {
			l.Insert(0, v)
		}
		return protocol.MakeIntReply(int64(l.Len()))
	})
}

func execRPush(c *execContext, args [][]byte) redis.Reply {
	key := string(args[1])
	return c.runWrite([]string{key}, args, func(sh *shard.EngineShard) redis.Reply {
		l, errReply := getList(sh, c.dbIndex(), key, c.now(), true)
		if errReply != nil {
			return errReply
		}
		for _, v := range args[2:] {
			l.Add(v)
		}
		return protocol.MakeIntReply(int64(l.Len()))
	})
}

func execLRange(c *execContext, args [][]byte) redis.Reply {
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
		l, errReply := getList(sh, c.dbIndex(), key, c.now(), false)
		if errReply != nil {
			return errReply
		}
		if l == nil || l.Len() == 0 {
			return protocol.MakeEmptyMultiBulkReply()
		}
		from, to := normalizeRange(int(start), int(stop), l.Len())
		if from >= to {
			return protocol.MakeEmptyMultiBulkReply()
		}
		raw := l.Range(from, to)
		result := make([][]byte, len(raw))
		for i, v := range raw {
			result[i] = v.([]byte)
		}
		return protocol.MakeMultiBulkReply(result)
	})
}

// normalizeRange converts possibly-negative, possibly-out-of-bounds
// Redis LRANGE start/stop indices into a clamped [from, to) slice
// range over a sequence of length n.
func normalizeRange(start, stop, n int) (from, to int) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return 0, 0
	}
	return start, stop + 1
}

func execLLen(c *execContext, args [][]byte) redis.Reply {
	key := string(args[1])
	return c.runReadOnly([]string{key}, func(sh *shard.EngineShard) redis.Reply {
		l, errReply := getList(sh, c.dbIndex(), key, c.now(), false)
		if errReply != nil {
			return errReply
		}
		if l == nil {
			return protocol.MakeIntReply(0)
		}
		return protocol.MakeIntReply(int64(l.Len()))
	})
}

func execLPop(c *execContext, args [][]byte) redis.Reply {
	key := string(args[1])
	return c.runWrite([]string{key}, args, func(sh *shard.EngineShard) redis.Reply {
		l, errReply := getList(sh, c.dbIndex(), key, c.now(), false)
		if errReply != nil {
			return errReply
		}
		if l == nil || l.Len() == 0 {
			return protocol.MakeNullBulkReply()
		}
		return protocol.MakeBulkReply(l.Remove(0).([]byte))
	})
}

func execRPop(c *execContext, args [][]byte) redis.Reply {
	key := string(args[1])
	return c.runWrite([]string{key}, args, func(sh *shard.EngineShard) redis.Reply {
		l, errReply := getList(sh, c.dbIndex(), key, c.now(), false)
		if errReply != nil {
			return errReply
		}
		if l == nil || l.Len() == 0 {
			return protocol.MakeNullBulkReply()
		}
		return protocol.MakeBulkReply(l.RemoveLast().([]byte))
	})
}
