package server

import (
	"context"
	"strings"
	"testing"

	"github.com/ryanrussell/dragonfly/redis/protocol"
)

func TestDebugObjectReportsType(t *testing.T) {
	srv, conn := newTestServer(t)
	ctx := context.Background()

	srv.execCommand(ctx, conn, args("SET", "a", "1"), false)
	reply := srv.execCommand(ctx, conn, args("DEBUG", "OBJECT", "a"), false)
	status, ok := reply.(*protocol.StatusReply)
	if !ok {
		t.Fatalf("expected a status reply, got %v", reply)
	}
	if !strings.Contains(status.Status, "type:string") {
		t.Fatalf("expected status to mention type:string, got %q", status.Status)
	}
}

func TestDebugObjectMissingKey(t *testing.T) {
	srv, conn := newTestServer(t)
	reply := srv.execCommand(context.Background(), conn, args("DEBUG", "OBJECT", "missing"), false)
	if !protocol.IsErrorReply(reply) {
		t.Fatalf("expected an error for a missing key, got %v", reply)
	}
}

func TestMemoryUsageReportsSize(t *testing.T) {
	srv, conn := newTestServer(t)
	ctx := context.Background()

	srv.execCommand(ctx, conn, args("SET", "a", "hello"), false)
	reply := srv.execCommand(ctx, conn, args("MEMORY", "USAGE", "a"), false)
	ir, ok := reply.(*protocol.IntReply)
	if !ok || ir.Code <= 0 {
		t.Fatalf("expected a positive byte count, got %v", reply)
	}
}

func TestLatencyLatestIsEmpty(t *testing.T) {
	srv, conn := newTestServer(t)
	reply := srv.execCommand(context.Background(), conn, args("LATENCY", "LATEST"), false)
	if _, ok := reply.(*protocol.EmptyMultiBulkReply); !ok {
		t.Fatalf("expected an empty multi-bulk reply, got %v", reply)
	}
}

func TestScriptExistsReportsAllMissing(t *testing.T) {
	srv, conn := newTestServer(t)
	reply := srv.execCommand(context.Background(), conn, args("SCRIPT", "EXISTS", "deadbeef"), false)
	multi, ok := reply.(*protocol.MultiRawReply)
	if !ok || len(multi.Replies) != 1 {
		t.Fatalf("expected one reply slot, got %v", reply)
	}
	ir, ok := multi.Replies[0].(*protocol.IntReply)
	if !ok || ir.Code != 0 {
		t.Fatalf("expected :0 for an unknown script sha, got %v", multi.Replies[0])
	}
}
