package server

import (
	"github.com/ryanrussell/dragonfly/internal/shard"
	"github.com/ryanrussell/dragonfly/interface/redis"
	"github.com/ryanrussell/dragonfly/redis/protocol"
)

func registerStringCommands() {
	register(&Command{Name: "GET", Arity: 2, Flags: Readonly | Fast, FirstKey: 1, LastKey: 1, KeyStep: 1, Exec: execGet})
	register(&Command{Name: "SET", Arity: -3, Flags: Write, FirstKey: 1, LastKey: 1, KeyStep: 1, Exec: execSet})
	register(&Command{Name: "SETNX", Arity: 3, Flags: Write | Fast, FirstKey: 1, LastKey: 1, KeyStep: 1, Exec: execSetNX})
	register(&Command{Name: "STRLEN", Arity: 2, Flags: Readonly | Fast, FirstKey: 1, LastKey: 1, KeyStep: 1, Exec: execStrLen})
	register(&Command{Name: "APPEND", Arity: 3, Flags: Write, FirstKey: 1, LastKey: 1, KeyStep: 1, Exec: execAppend})
}

func execGet(c *execContext, args [][]byte) redis.Reply {
	key := string(args[1])
	return c.runReadOnly([]string{key}, func(sh *shard.EngineShard) redis.Reply {
		val, ok := sh.Slice.DB(c.dbIndex()).Get(key, c.now())
		if !ok {
			return protocol.MakeNullBulkReply()
		}
		b, ok := val.([]byte)
		if !ok {
			return &protocol.WrongTypeErrReply{}
		}
		return protocol.MakeBulkReply(b)
	})
}

func execSet(c *execContext, args [][]byte) redis.Reply {
	key := string(args[1])
	val := args[2]
	return c.runWrite([]string{key}, args, func(sh *shard.EngineShard) redis.Reply {
		sh.Slice.DB(c.dbIndex()).Put(key, val)
		return protocol.MakeOkReply()
	})
}

func execSetNX(c *execContext, args [][]byte) redis.Reply {
	key := string(args[1])
	val := args[2]
	return c.runWrite([]string{key}, args, func(sh *shard.EngineShard) redis.Reply {
		result := sh.Slice.DB(c.dbIndex()).PutIfAbsent(key, val)
		return protocol.MakeIntReply(int64(result))
	})
}

func execStrLen(c *execContext, args [][]byte) redis.Reply {
	key := string(args[1])
	return c.runReadOnly([]string{key}, func(sh *shard.EngineShard) redis.Reply {
		val, ok := sh.Slice.DB(c.dbIndex()).Get(key, c.now())
		if !ok {
			return protocol.MakeIntReply(0)
		}
		b, ok := val.([]byte)
		if !ok {
			return &protocol.WrongTypeErrReply{}
		}
		return protocol.MakeIntReply(int64(len(b)))
	})
}

func execAppend(c *execContext, args [][]byte) redis.Reply {
	key := string(args[1])
	suffix := args[2]
	return c.runWrite([]string{key}, args, func(sh *shard.EngineShard) redis.Reply {
		db := sh.Slice.DB(c.dbIndex())
		val, ok := db.Get(key, c.now())
		var b []byte
		if ok {
			existing, ok := val.([]byte)
			if !ok {
				return &protocol.WrongTypeErrReply{}
			}
			b = existing
		}
		b = append(append([]byte{}, b...), suffix...)
		db.PutKeepTTL(key, b)
		return protocol.MakeIntReply(int64(len(b)))
	})
}
