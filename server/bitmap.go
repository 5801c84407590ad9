package server

import (
	"github.com/ryanrussell/dragonfly/datastruct/bitmap"
	"github.com/ryanrussell/dragonfly/interface/redis"
	"github.com/ryanrussell/dragonfly/internal/shard"
	"github.com/ryanrussell/dragonfly/redis/protocol"
)

func registerBitmapCommands() {
	register(&Command{Name: "SETBIT", Arity: 4, Flags: Write, FirstKey: 1, LastKey: 1, KeyStep: 1, Exec: execSetBit})
	register(&Command{Name: "GETBIT", Arity: 3, Flags: Readonly | Fast, FirstKey: 1, LastKey: 1, KeyStep: 1, Exec: execGetBit})
}

func getBitmap(sh *shard.EngineShard, dbIndex int, key string, now int64, create bool) (*bitmap.BitMap, redis.Reply) {
	db := sh.Slice.DB(dbIndex)
	val, ok := db.Get(key, now)
	if !ok {
		if !create {
			return nil, nil
		}
		bm := bitmap.New()
		db.PutKeepTTL(key, bm)
		return bm, nil
	}
	bm, ok := val.(*bitmap.BitMap)
	if !ok {
		return nil, &protocol.WrongTypeErrReply{}
	}
	return bm, nil
}

func execSetBit(c *execContext, args [][]byte) redis.Reply {
	key := string(args[1])
	offset, err := parseInt64(args[2])
	if err != nil || offset < 0 {
		return protocol.MakeErrReply("ERR bit offset is not an integer or out of range")
	}
	val, err := parseInt64(args[3])
	if err != nil || (val != 0 && val != 1) {
		return protocol.MakeErrReply("ERR bit is not an integer or out of range")
	}
	return c.runWrite([]string{key}, args, func(sh *shard.EngineShard) redis.Reply {
		bm, errReply := getBitmap(sh, c.dbIndex(), key, c.now(), true)
		if errReply != nil {
			return errReply
		}
		previous := bm.GetBit(offset)
		bm.SetBit(offset, byte(val))
		return protocol.MakeIntReply(int64(previous))
	})
}

func execGetBit(c *execContext, args [][]byte) redis.Reply {
	key := string(args[1])
	offset, err := parseInt64(args[2])
	if err != nil || offset < 0 {
		return protocol.MakeErrReply("ERR bit offset is not an integer or out of range")
	}
	return c.runReadOnly([]string{key}, func(sh *shard.EngineShard) redis.Reply {
		bm, errReply := getBitmap(sh, c.dbIndex(), key, c.now(), false)
		if errReply != nil {
			return errReply
		}
		if bm == nil {
			return protocol.MakeIntReply(0)
		}
		return protocol.MakeIntReply(int64(bm.GetBit(offset)))
	})
}
