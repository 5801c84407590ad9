package server

import (
	"github.com/ryanrussell/dragonfly/datastruct/set"
	"github.com/ryanrussell/dragonfly/interface/redis"
	"github.com/ryanrussell/dragonfly/internal/shard"
	"github.com/ryanrussell/dragonfly/redis/protocol"
)

func registerSetCommands() {
	register(&Command{Name: "SADD", Arity: -3, Flags: Write, FirstKey: 1, LastKey: 1, KeyStep: 1, Exec: execSAdd})
	register(&Command{Name: "SREM", Arity: -3, Flags: Write, FirstKey: 1, LastKey: 1, KeyStep: 1, Exec: execSRem})
	register(&Command{Name: "SMEMBERS", Arity: 2, Flags: Readonly, FirstKey: 1, LastKey: 1, KeyStep: 1, Exec: execSMembers})
	register(&Command{Name: "SCARD", Arity: 2, Flags: Readonly | Fast, FirstKey: 1, LastKey: 1, KeyStep: 1, Exec: execSCard})
	register(&Command{Name: "SISMEMBER", Arity: 3, Flags: Readonly | Fast, FirstKey: 1, LastKey: 1, KeyStep: 1, Exec: execSIsMember})
}

func getSet(sh *shard.EngineShard, dbIndex int, key string, now int64, create bool) (*set.Set, redis.Reply) {
	db := sh.Slice.DB(dbIndex)
	val, ok := db.Get(key, now)
	if !ok {
		if !create {
			return nil, nil
		}
		s := set.Make()
		db.PutKeepTTL(key, s)
		return s, nil
	}
	s, ok := val.(*set.Set)
	if !ok {
		return nil, &protocol.WrongTypeErrReply{}
	}
	return s, nil
}

func execSAdd(c *execContext, args [][]byte) redis.Reply {
	key := string(args[1])
	return c.runWrite([]string{key}, args, func(sh *shard.EngineShard) redis.Reply {
		s, errReply := getSet(sh, c.dbIndex(), key, c.now(), true)
		if errReply != nil {
			return errReply
		}
		added := 0
		for _, m := range args[2:] {
			added += s.Add(string(m))
		}
		return protocol.MakeIntReply(int64(added))
	})
}

func execSRem(c *execContext, args [][]byte) redis.Reply {
	key := string(args[1])
	return c.runWrite([]string{key}, args, func(sh *shard.EngineShard) redis.Reply {
		s, errReply := getSet(sh, c.dbIndex(), key, c.now(), false)
		if errReply != nil {
			return errReply
		}
		if s == nil {
			return protocol.MakeIntReply(0)
		}
		removed := 0
		for _, m := range args[2:] {
			removed += s.Remove(string(m))
		}
		return protocol.MakeIntReply(int64(removed))
	})
}

func execSMembers(c *execContext, args [][]byte) redis.Reply {
	key := string(args[1])
	return c.runReadOnly([]string{key}, func(sh *shard.EngineShard) redis.Reply {
		s, errReply := getSet(sh, c.dbIndex(), key, c.now(), false)
		if errReply != nil {
			return errReply
		}
		if s == nil {
			return protocol.MakeEmptyMultiBulkReply()
		}
		members := s.ToSlice()
		result := make([][]byte, len(members))
		for i, m := range members {
			result[i] = []byte(m)
		}
		return protocol.MakeMultiBulkReply(result)
	})
}

func execSCard(c *execContext, args [][]byte) redis.Reply {
	key := string(args[1])
	return c.runReadOnly([]string{key}, func(sh *shard.EngineShard) redis.Reply {
		s, errReply := getSet(sh, c.dbIndex(), key, c.now(), false)
		if errReply != nil {
			return errReply
		}
		if s == nil {
			return protocol.MakeIntReply(0)
		}
		return protocol.MakeIntReply(int64(s.Len()))
	})
}

func execSIsMember(c *execContext, args [][]byte) redis.Reply {
	key := string(args[1])
	member := string(args[2])
	return c.runReadOnly([]string{key}, func(sh *shard.EngineShard) redis.Reply {
		s, errReply := getSet(sh, c.dbIndex(), key, c.now(), false)
		if errReply != nil {
			return errReply
		}
		if s == nil || !s.Has(member) {
			return protocol.MakeIntReply(0)
		}
		return protocol.MakeIntReply(1)
	})
}
