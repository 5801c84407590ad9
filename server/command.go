// Package server implements the command table, dispatch, and
// connection lifecycle: the teacher's database.Server Exec cascade
// reworked into a table lookup over internal/runtime's shard set.
package server

import (
	"strings"

	"github.com/ryanrussell/dragonfly/interface/redis"
)

// Flags is the command-table execution-class bitmask.
type Flags uint32

const (
	FlagNone Flags = 0
	// Admin marks a command requiring operator-level trust (CONFIG,
	// SHUTDOWN, REPLICAOF).
	Admin Flags = 1 << iota
	// Write marks a command that mutates keyspace state. Dispatch
	// does not check it: a replica accepts Write commands from any
	// client connection.
	Write
	// Readonly marks a command that only reads keyspace state.
	Readonly
	// Loading marks a command allowed while the server is still
	// replaying RDB/DFS files at boot.
	Loading
	// Fast marks a command with bounded, data-independent cost,
	// exempt from slow-command accounting.
	Fast
	// Noscript marks a command forbidden from EVAL bodies. No
	// scripting engine exists yet; kept for command-table parity
	// with real Redis clients that introspect COMMAND INFO.
	Noscript
	// GlobalTrans marks a command that must fan out to every shard
	// under the coordinator-wide ordering lock (FLUSHALL, SAVE).
	GlobalTrans
)

// Command describes one dispatchable command: its arity, its
// execution-class flags, which argument positions are keys (the same
// firstKey/lastKey/step triple real Redis's COMMAND INFO reports), and
// the function that actually runs it.
type Command struct {
	Name     string
	Arity    int // arity < 0 means len(args) >= -arity (variadic); >=0 means exact
	Flags    Flags
	FirstKey int // 1-based index of the first key argument, 0 if none
	LastKey  int // 1-based index of the last key argument; negative counts from the end
	KeyStep  int
	Exec     ExecFunc
}

// ExecFunc runs a command against its arguments (args[0] is the
// command name itself, matching the wire command line shape).
type ExecFunc func(c *execContext, args [][]byte) redis.Reply

var cmdTable = make(map[string]*Command)

func register(cmd *Command) {
	cmdTable[strings.ToLower(cmd.Name)] = cmd
}

// lookup returns the command registered under name, case-insensitive.
func lookup(name string) (*Command, bool) {
	cmd, ok := cmdTable[strings.ToLower(name)]
	return cmd, ok
}

// validateArity reports whether argc (including the command name
// itself) satisfies cmd's arity.
func validateArity(cmd *Command, argc int) bool {
	if cmd.Arity >= 0 {
		return argc == cmd.Arity
	}
	return argc >= -cmd.Arity
}

// Keys extracts the key arguments of a command line per its
// FirstKey/LastKey/KeyStep triple.
func (cmd *Command) Keys(args [][]byte) []string {
	if cmd.FirstKey <= 0 {
		return nil
	}
	last := cmd.LastKey
	if last < 0 {
		last = len(args) + last
	}
	if last >= len(args) {
		last = len(args) - 1
	}
	step := cmd.KeyStep
	if step <= 0 {
		step = 1
	}
	var keys []string
	for i := cmd.FirstKey; i <= last; i += step {
		keys = append(keys, string(args[i]))
	}
	return keys
}

func init() {
	registerStringCommands()
	registerKeyCommands()
	registerHashCommands()
	registerListCommands()
	registerSetCommands()
	registerZSetCommands()
	registerBitmapCommands()
	registerConnectionCommands()
	registerAdminCommands()
	registerReplicationCommands()
	registerInfoCommands()
	registerDebugCommands()
}
