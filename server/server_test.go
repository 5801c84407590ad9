package server

import (
	"context"
	"strings"
	"testing"

	"github.com/ryanrussell/dragonfly/internal/runtime"
	"github.com/ryanrussell/dragonfly/redis/connection"
	"github.com/ryanrussell/dragonfly/redis/protocol"
)

func newTestServer(t *testing.T) (*Server, *connection.Connection) {
	t.Helper()
	rt, err := runtime.New(runtime.Config{NumShards: 4, Databases: 16})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(rt.Shutdown)
	return NewServer(rt), connection.NewConn(nil)
}

func args(parts ...string) [][]byte {
	out := make([][]byte, len(parts))
	for i, p := range parts {
		out[i] = []byte(p)
	}
	return out
}

func TestExecCommandSetGet(t *testing.T) {
	srv, conn := newTestServer(t)
	ctx := context.Background()

	reply := srv.execCommand(ctx, conn, args("SET", "a", "1"), false)
	if status, ok := reply.(*protocol.StatusReply); !ok || status.Status != "OK" {
		t.Fatalf("expected +OK, got %v", reply)
	}

	reply = srv.execCommand(ctx, conn, args("GET", "a"), false)
	bulk, ok := reply.(*protocol.BulkReply)
	if !ok || string(bulk.Arg) != "1" {
		t.Fatalf("expected bulk \"1\", got %v", reply)
	}
}

func TestExecCommandUnknown(t *testing.T) {
	srv, conn := newTestServer(t)
	reply := srv.execCommand(context.Background(), conn, args("NOSUCHCOMMAND"), false)
	if !protocol.IsErrorReply(reply) {
		t.Fatalf("expected an error reply, got %v", reply)
	}
}

func TestClientListReportsConnectedClients(t *testing.T) {
	srv, conn := newTestServer(t)
	conn.SetName("tester")
	srv.addConn(conn)
	defer srv.removeConn(conn)

	lines := srv.ClientList()
	if len(lines) != 1 || !strings.Contains(lines[0], "name=tester") {
		t.Fatalf("expected one line naming tester, got %v", lines)
	}
}

func TestRequirePassGatesCommands(t *testing.T) {
	srv, conn := newTestServer(t)
	srv.requirepass = "secret"
	ctx := context.Background()

	reply := srv.execCommand(ctx, conn, args("GET", "a"), false)
	if !protocol.IsErrorReply(reply) {
		t.Fatalf("expected NOAUTH error, got %v", reply)
	}

	reply = srv.execCommand(ctx, conn, args("AUTH", "secret"), false)
	if protocol.IsErrorReply(reply) {
		t.Fatalf("expected AUTH to succeed, got %v", reply)
	}
	conn.SetPassword("secret")

	reply = srv.execCommand(ctx, conn, args("GET", "a"), false)
	if protocol.IsErrorReply(reply) {
		t.Fatalf("expected GET to succeed once authenticated, got %v", reply)
	}
}

func TestExpireThenPersistCancelsActiveExpire(t *testing.T) {
	srv, conn := newTestServer(t)
	ctx := context.Background()

	srv.execCommand(ctx, conn, args("SET", "a", "1"), false)
	srv.execCommand(ctx, conn, args("EXPIRE", "a", "100"), false)
	reply := srv.execCommand(ctx, conn, args("PERSIST", "a"), false)
	if ir, ok := reply.(*protocol.IntReply); !ok || ir.Code != 1 {
		t.Fatalf("expected :1 from PERSIST, got %v", reply)
	}

	reply = srv.execCommand(ctx, conn, args("TTL", "a"), false)
	if ir, ok := reply.(*protocol.IntReply); !ok || ir.Code != -1 {
		t.Fatalf("expected no TTL after PERSIST, got %v", reply)
	}
}
