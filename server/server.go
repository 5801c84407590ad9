package server

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/ryanrussell/dragonfly/config"
	"github.com/ryanrussell/dragonfly/interface/redis"
	"github.com/ryanrussell/dragonfly/internal/runtime"
	"github.com/ryanrussell/dragonfly/internal/snapshot"
	"github.com/ryanrussell/dragonfly/lib/logger"
	"github.com/ryanrussell/dragonfly/redis/connection"
	"github.com/ryanrussell/dragonfly/redis/parser"
	"github.com/ryanrussell/dragonfly/redis/protocol"
	"github.com/ryanrussell/dragonfly/server/metrics"
)

// globalState mirrors ServerState.global_state: the mutually exclusive
// lifecycle states gating which commands may run.
type globalState int32

const (
	stateActive globalState = iota
	stateLoading
	stateSaving
	stateShuttingDown
)

func (s globalState) String() string {
	switch s {
	case stateActive:
		return "ACTIVE"
	case stateLoading:
		return "LOADING"
	case stateSaving:
		return "SAVING"
	case stateShuttingDown:
		return "SHUTTING_DOWN"
	default:
		return "UNKNOWN"
	}
}

// Server is ServerFamily: the command table, dispatch loop, and
// lifecycle (boot, SAVE scheduling, role transitions, shutdown) built
// on top of a runtime.Runtime's shard set and transaction coordinator.
type Server struct {
	rt *runtime.Runtime

	mu          sync.RWMutex
	state       globalState
	requirepass string
	startTime   int64

	connMu sync.Mutex
	conns  map[*connection.Connection]struct{}

	closing chan struct{}
}

// NewServer wires a Server around an already-constructed Runtime.
func NewServer(rt *runtime.Runtime) *Server {
	s := &Server{
		rt:          rt,
		requirepass: config.Properties.RequirePass,
		conns:       make(map[*connection.Connection]struct{}),
		closing:     make(chan struct{}),
	}
	rt.Replica.SetDispatchHook(s.applyReplicated)
	rt.Snap.SetStateHook(snapshot.StateHook{
		Enter: func() bool {
			ok, _ := s.switchState(stateActive, stateSaving)
			return ok
		},
		Exit: func() {
			s.setState(stateActive)
		},
	})
	return s
}

// Boot runs the startup sequence: switch into LOADING, replay the
// most recent snapshot if one exists, switch to ACTIVE, start the
// save-schedule cron, and (if --replicaof was given) start the
// replica link. Mirrors ServerFamily's constructor-time load-then-cron
// sequence.
func (s *Server) Boot() error {
	s.setState(stateLoading)
	loaded, err := loadLatestSnapshot(s.rt, config.Properties.Dir, config.Properties.DBFilename)
	s.setState(stateActive)
	if err != nil {
		logger.Errorf("boot: snapshot load failed: %v", err)
	} else if loaded {
		logger.Info("boot: loaded snapshot from disk")
	} else {
		logger.Info("boot: no snapshot found, starting with an empty keyspace")
	}

	schedules, err := parseConfiguredSchedule()
	if err != nil {
		return fmt.Errorf("boot: %w", err)
	}
	s.rt.Snap.StartCron(schedules)

	if ro := config.Properties.ReplicaOf; ro != "" {
		host, port, err := splitHostPort(ro)
		if err != nil {
			logger.Errorf("boot: invalid --replicaof %q: %v", ro, err)
		} else {
			s.rt.Replica.Start(host, port)
		}
	}
	return nil
}

func (s *Server) setState(st globalState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// switchState implements SwitchState(from, to): it atomically checks
// the current state equals from and, if so, moves to to, returning
// whether the swap happened and the state actually observed.
func (s *Server) switchState(from, to globalState) (bool, globalState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return false, s.state
	}
	s.state = to
	return true, to
}

func (s *Server) getState() globalState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Server) requirePass() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requirepass
}

func (s *Server) role() string {
	if s.rt.Replica.ReplicationInfo().Role == "slave" && s.isReplicaEnabled() {
		return "slave"
	}
	return "master"
}

func (s *Server) isReplicaEnabled() bool {
	return s.rt.Replica.IsEnabled()
}

func (s *Server) configGet(name string) (string, string) {
	switch strings.ToLower(name) {
	case "dir":
		return "dir", config.Properties.Dir
	case "dbfilename":
		return "dbfilename", config.Properties.DBFilename
	case "save_schedule", "save-schedule":
		return "save_schedule", config.Properties.SaveSchedule
	case "requirepass":
		return "requirepass", s.requirePass()
	case "maxmemory":
		return "maxmemory", fmt.Sprintf("%d", config.Properties.Maxmemory)
	case "port":
		return "port", fmt.Sprintf("%d", config.Properties.Port)
	default:
		return "", ""
	}
}

// Handle implements tcp.Handler: one goroutine per accepted
// connection, parsing RESP frames and dispatching each to the command
// table until the connection closes or the server starts shutting
// down.
func (s *Server) Handle(ctx context.Context, netConn net.Conn) {
	if s.getState() == stateShuttingDown {
		_ = netConn.Close()
		return
	}

	client := connection.NewConn(netConn)
	s.addConn(client)
	defer s.removeConn(client)

	ch := parser.ParseStream(netConn)
	for payload := range ch {
		if payload.Err != nil {
			_ = client.Write(protocol.MakeErrReply("ERR " + payload.Err.Error()).ToBytes())
			continue
		}
		if payload.Data == nil {
			continue
		}
		multiBulk, ok := payload.Data.(*protocol.MultiBulkReply)
		if !ok || len(multiBulk.Args) == 0 {
			continue
		}
		reply := s.execCommand(ctx, client, multiBulk.Args, false)
		if reply != nil {
			_ = client.Write(reply.ToBytes())
		}
	}
}

// Close implements tcp.Handler: it stops taking new connections and
// lets in-flight ones drain via Shutdown.
func (s *Server) Close() error {
	s.Shutdown()
	return nil
}

func (s *Server) addConn(c *connection.Connection) {
	s.connMu.Lock()
	s.conns[c] = struct{}{}
	s.connMu.Unlock()
}

func (s *Server) removeConn(c *connection.Connection) {
	s.connMu.Lock()
	delete(s.conns, c)
	s.connMu.Unlock()
	_ = c.Close()
}

// ClientCount reports the number of live connections, used by INFO
// clients.
func (s *Server) ClientCount() int {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return len(s.conns)
}

// ClientList formats one line per live connection in the
// "addr=... name=... db=..." shape CLIENT LIST reports.
func (s *Server) ClientList() []string {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	lines := make([]string, 0, len(s.conns))
	for c := range s.conns {
		lines = append(lines, fmt.Sprintf("addr=%s name=%s db=%d", c.RemoteAddr(), c.Name(), c.GetDBIndex()))
	}
	return lines
}

// applyReplicated is the Replica dispatch hook: it runs a command
// consumed off the replication stream with is_replicating=true and a
// discarded reply, matching spec.md 4.3's "dispatch to the local
// command service with is_replicating=true and a null reply sink."
func (s *Server) applyReplicated(ctx context.Context, cmdLine [][]byte) {
	if len(cmdLine) == 0 {
		return
	}
	s.execCommand(ctx, nil, cmdLine, true)
}

// execCommand looks up, validates, and runs one command line. conn is
// nil when the command line was replayed from the replication stream
// rather than issued by a real client.
func (s *Server) execCommand(ctx context.Context, conn redis.Connection, args [][]byte, replica bool) redis.Reply {
	cmdName := strings.ToLower(string(args[0]))
	cmd, ok := lookup(cmdName)
	if !ok {
		return protocol.MakeErrReply("ERR unknown command '" + cmdName + "'")
	}
	if !validateArity(cmd, len(args)) {
		return protocol.MakeArgNumErrReply(cmdName)
	}

	if conn != nil && s.requirePass() != "" && !conn.IsMaster() {
		if cmdName != "auth" && conn.GetPassword() != s.requirePass() {
			return protocol.MakeErrReply("NOAUTH Authentication required.")
		}
	}

	st := s.getState()
	if st == stateLoading && cmd.Flags&Loading == 0 {
		return protocol.MakeErrReply("LOADING Dragonfly is loading the dataset in memory")
	}

	if conn == nil {
		conn = replicationConn
	}
	metrics.CommandsTotal(cmdName)
	cc := &execContext{ctx: ctx, rt: s.rt, conn: conn, srv: s, replica: replica}
	reply := cmd.Exec(cc, args)
	if reply != nil && protocol.IsErrorReply(reply) {
		metrics.CommandErrorsTotal(cmdName)
	}
	return reply
}

// replicationConn stands in for the connection a command line replayed
// off the replication stream was "issued on": it always selects db 0,
// matching the teacher's single-db-at-a-time AOF replay assumption,
// generalized here to never panic on the Connection interface calls
// execContext makes.
var replicationConn redis.Connection = connection.NewConn(nil)

// Shutdown runs the cooperative shutdown sequence: stop the snapshot
// cron, drain the journal into lame-duck, stop any replica link, and
// release the shard set. It does not itself SAVE; callers that want a
// save-on-exit call Snap.DoSave first.
func (s *Server) Shutdown() {
	s.mu.Lock()
	if s.state == stateShuttingDown {
		s.mu.Unlock()
		return
	}
	s.state = stateShuttingDown
	s.mu.Unlock()

	close(s.closing)
	s.rt.Replica.Stop()
	s.rt.Shutdown()
}

func splitHostPort(hostport string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		// allow "host port" (REPLICAOF wire form) as well as "host:port"
		parts := strings.Fields(hostport)
		if len(parts) != 2 {
			return "", 0, fmt.Errorf("expected host:port or \"host port\"")
		}
		host = parts[0]
		portStr = parts[1]
	}
	var port int
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		return "", 0, fmt.Errorf("invalid port %q", portStr)
	}
	return host, port, nil
}
