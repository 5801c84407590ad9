package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/ryanrussell/dragonfly/interface/redis"
	"github.com/ryanrussell/dragonfly/internal/shard"
	"github.com/ryanrussell/dragonfly/lib/mem"
	"github.com/ryanrussell/dragonfly/redis/protocol"
)

func registerDebugCommands() {
	register(&Command{Name: "DEBUG", Arity: -2, Flags: Admin, Exec: execDebug})
	register(&Command{Name: "MEMORY", Arity: -2, Flags: Readonly | Fast, Exec: execMemory})
	register(&Command{Name: "LATENCY", Arity: -2, Flags: Admin | Fast, Exec: execLatency})
	register(&Command{Name: "SCRIPT", Arity: -2, Flags: Admin | Noscript, Exec: execScript})
}

// execDebug implements the handful of DEBUG subcommands real clients
// and test suites poke at; the Lua scripting subsystem DEBUG would
// otherwise inspect is out of scope, so SET-ACTIVE-EXPIRE and similar
// knobs are accepted and ignored.
func execDebug(c *execContext, args [][]byte) redis.Reply {
	switch strings.ToUpper(string(args[1])) {
	case "SLEEP":
		if len(args) != 3 {
			return protocol.MakeArgNumErrReply("debug|sleep")
		}
		seconds, err := strconv.ParseFloat(string(args[2]), 64)
		if err != nil {
			return protocol.MakeErrReply("ERR value is not a valid float")
		}
		time.Sleep(time.Duration(seconds * float64(time.Second)))
		return protocol.MakeOkReply()
	case "OBJECT":
		if len(args) != 3 {
			return protocol.MakeArgNumErrReply("debug|object")
		}
		key := string(args[2])
		return c.runReadOnly([]string{key}, func(sh *shard.EngineShard) redis.Reply {
			val, ok := sh.Slice.DB(c.dbIndex()).Get(key, c.now())
			if !ok {
				return protocol.MakeErrReply("ERR no such key")
			}
			return protocol.MakeStatusReply(
				"Value at:0x0 type:" + typeName(val) + " serializedlength:" +
					strconv.FormatInt(mem.EntitySize(val), 10) + " refcount:1")
		})
	default:
		return protocol.MakeOkReply()
	}
}

// execMemory implements MEMORY USAGE key [SAMPLES n] and MEMORY DOCTOR.
func execMemory(c *execContext, args [][]byte) redis.Reply {
	if len(args) < 2 {
		return protocol.MakeArgNumErrReply("memory")
	}
	switch strings.ToUpper(string(args[1])) {
	case "USAGE":
		if len(args) < 3 {
			return protocol.MakeArgNumErrReply("memory|usage")
		}
		key := string(args[2])
		return c.runReadOnly([]string{key}, func(sh *shard.EngineShard) redis.Reply {
			val, ok := sh.Slice.DB(c.dbIndex()).Get(key, c.now())
			if !ok {
				return protocol.MakeNullBulkReply()
			}
			return protocol.MakeIntReply(mem.EntitySize(val))
		})
	case "DOCTOR":
		return protocol.MakeBulkReply([]byte("Sam, I detected no worrisome issues."))
	default:
		return protocol.MakeErrReply("ERR unknown MEMORY subcommand")
	}
}

// execLatency implements LATENCY LATEST, always empty: no latency
// event monitor is kept, so there is nothing to report.
func execLatency(c *execContext, args [][]byte) redis.Reply {
	switch strings.ToUpper(string(args[1])) {
	case "LATEST", "HISTORY", "RESET":
		return protocol.MakeEmptyMultiBulkReply()
	default:
		return protocol.MakeErrReply("ERR unknown LATENCY subcommand")
	}
}

// execScript stubs the SCRIPT subcommands a client library sends
// unconditionally before EVAL. The Lua scripting subsystem itself is
// out of scope, so there is never a cached script to find.
func execScript(c *execContext, args [][]byte) redis.Reply {
	switch strings.ToUpper(string(args[1])) {
	case "EXISTS":
		replies := make([]redis.Reply, len(args)-2)
		for i := range replies {
			replies[i] = protocol.MakeIntReply(0)
		}
		return protocol.MakeMultiRawReply(replies)
	case "FLUSH":
		return protocol.MakeOkReply()
	case "LOAD":
		return protocol.MakeErrReply("ERR scripting is not supported")
	default:
		return protocol.MakeErrReply("ERR unknown SCRIPT subcommand")
	}
}
