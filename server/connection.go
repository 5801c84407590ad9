package server

import (
	"strings"

	"github.com/ryanrussell/dragonfly/interface/redis"
	"github.com/ryanrussell/dragonfly/redis/protocol"
)

func registerConnectionCommands() {
	register(&Command{Name: "PING", Arity: -1, Flags: Fast, Exec: execPing})
	register(&Command{Name: "SELECT", Arity: 2, Flags: Loading | Fast, Exec: execSelect})
	register(&Command{Name: "AUTH", Arity: 2, Flags: Fast, Exec: execAuth})
	register(&Command{Name: "CLIENT", Arity: -2, Flags: Fast, Exec: execClient})
	register(&Command{Name: "HELLO", Arity: -1, Flags: Fast, Exec: execHello})
	register(&Command{Name: "ECHO", Arity: 2, Flags: Fast, Exec: execEcho})
}

func execPing(c *execContext, args [][]byte) redis.Reply {
	if len(args) > 1 {
		return protocol.MakeStatusReply(string(args[1]))
	}
	return protocol.MakePongReply()
}

func execEcho(c *execContext, args [][]byte) redis.Reply {
	return protocol.MakeBulkReply(args[1])
}

func execSelect(c *execContext, args [][]byte) redis.Reply {
	n, err := parseInt64(args[1])
	if err != nil || n < 0 || int(n) >= c.rt.Databases() {
		return protocol.MakeErrReply("ERR DB index is out of range")
	}
	c.conn.SelectDB(int(n))
	return protocol.MakeOkReply()
}

func execAuth(c *execContext, args [][]byte) redis.Reply {
	pass := string(args[1])
	required := c.srv.requirePass()
	if required == "" {
		return protocol.MakeErrReply("ERR Client sent AUTH, but no password is set")
	}
	if pass != required {
		return protocol.MakeErrReply("ERR invalid password")
	}
	c.conn.SetPassword(pass)
	return protocol.MakeOkReply()
}

func execClient(c *execContext, args [][]byte) redis.Reply {
	if len(args) < 2 {
		return protocol.MakeArgNumErrReply("client")
	}
	switch string(args[1]) {
	case "SETNAME", "setname":
		if len(args) != 3 {
			return protocol.MakeArgNumErrReply("client|setname")
		}
		c.conn.SetName(string(args[2]))
		return protocol.MakeOkReply()
	case "GETNAME", "getname":
		return protocol.MakeBulkReply([]byte(c.conn.Name()))
	case "LIST", "list":
		return protocol.MakeBulkReply([]byte(strings.Join(c.srv.ClientList(), "\n")))
	default:
		return protocol.MakeErrReply("ERR unknown CLIENT subcommand")
	}
}

// execHello implements just enough of RESP's protocol-negotiation
// handshake for clients that send it unconditionally; this server
// speaks RESP2 only. A protover other than 2, or any extra argument
// (AUTH/SETNAME), is treated as an unknown command rather than
// negotiated.
func execHello(c *execContext, args [][]byte) redis.Reply {
	if len(args) > 2 {
		return protocol.MakeErrReply("ERR unknown command 'hello'")
	}
	if len(args) == 2 && string(args[1]) != "2" {
		return protocol.MakeErrReply("ERR unknown command 'hello'")
	}
	fields := []redis.Reply{
		protocol.MakeBulkReply([]byte("server")),
		protocol.MakeBulkReply([]byte("dragonfly")),
		protocol.MakeBulkReply([]byte("proto")),
		protocol.MakeIntReply(2),
		protocol.MakeBulkReply([]byte("mode")),
		protocol.MakeBulkReply([]byte("standalone")),
		protocol.MakeBulkReply([]byte("role")),
		protocol.MakeBulkReply([]byte(c.srv.role())),
	}
	return protocol.MakeMultiRawReply(fields)
}
