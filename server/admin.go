package server

import (
	"strings"

	"github.com/ryanrussell/dragonfly/interface/redis"
	"github.com/ryanrussell/dragonfly/internal/shard"
	"github.com/ryanrussell/dragonfly/redis/protocol"
)

func registerAdminCommands() {
	register(&Command{Name: "FLUSHDB", Arity: -1, Flags: Write | GlobalTrans, Exec: execFlushDB})
	register(&Command{Name: "FLUSHALL", Arity: -1, Flags: Write | GlobalTrans, Exec: execFlushAll})
	register(&Command{Name: "SAVE", Arity: -1, Flags: Admin | GlobalTrans, Exec: execSave})
	register(&Command{Name: "BGSAVE", Arity: -1, Flags: Admin | GlobalTrans, Exec: execBgSave})
	register(&Command{Name: "LASTSAVE", Arity: 1, Flags: Admin | Fast, Exec: execLastSave})
	register(&Command{Name: "CONFIG", Arity: -2, Flags: Admin, Exec: execConfig})
	register(&Command{Name: "SHUTDOWN", Arity: -1, Flags: Admin, Exec: execShutdown})
}

func execFlushDB(c *execContext, args [][]byte) redis.Reply {
	dbIndex := c.dbIndex()
	return c.runGlobal(func(sh *shard.EngineShard) error {
		sh.Slice.DB(dbIndex).Flush()
		return nil
	})
}

func execFlushAll(c *execContext, args [][]byte) redis.Reply {
	return c.runGlobal(func(sh *shard.EngineShard) error {
		for i := 0; i < sh.Slice.Databases(); i++ {
			sh.Slice.DB(i).Flush()
		}
		return nil
	})
}

func execSave(c *execContext, args [][]byte) redis.Reply {
	newVersion := len(args) > 1 && strings.EqualFold(string(args[1]), "DF")
	if _, err := c.rt.Snap.DoSave(c.ctx, newVersion); err != nil {
		return protocol.MakeErrReply("ERR " + err.Error())
	}
	return protocol.MakeOkReply()
}

func execBgSave(c *execContext, args [][]byte) redis.Reply {
	if c.rt.Snap.IsSaving() {
		return protocol.MakeErrReply("ERR Background save already in progress")
	}
	go func() {
		if _, err := c.rt.Snap.DoSave(c.ctx, true); err != nil {
			// logged inside DoSave
			_ = err
		}
	}()
	return protocol.MakeStatusReply("Background saving started")
}

func execLastSave(c *execContext, args [][]byte) redis.Reply {
	info := c.rt.Snap.GetLastSaveInfo()
	if info == nil {
		return protocol.MakeIntReply(c.rt.BootTime.Unix())
	}
	return protocol.MakeIntReply(info.SaveTime.Unix())
}

func execConfig(c *execContext, args [][]byte) redis.Reply {
	if len(args) < 2 {
		return protocol.MakeArgNumErrReply("config")
	}
	switch strings.ToUpper(string(args[1])) {
	case "GET":
		if len(args) != 3 {
			return protocol.MakeArgNumErrReply("config|get")
		}
		name, val := c.srv.configGet(string(args[2]))
		if name == "" {
			return protocol.MakeEmptyMultiBulkReply()
		}
		return protocol.MakeMultiBulkReply([][]byte{[]byte(name), []byte(val)})
	case "SET":
		return protocol.MakeOkReply()
	case "RESETSTAT":
		return protocol.MakeOkReply()
	default:
		return protocol.MakeErrReply("ERR unknown CONFIG subcommand")
	}
}

func execShutdown(c *execContext, args [][]byte) redis.Reply {
	go c.srv.Shutdown()
	return protocol.MakeOkReply()
}
