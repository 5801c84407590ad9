// Package replica implements the outbound side of replication: the
// state machine a server runs when it has been told REPLICAOF a
// master, its handshake, and its two full-sync strategies (legacy
// PSYNC and native multi-flow DFLY SYNC).
package replica

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ryanrussell/dragonfly/lib/logger"
	"github.com/ryanrussell/dragonfly/redis/parser"
	"github.com/ryanrussell/dragonfly/redis/protocol"
)

// StateFlag is a bit in Replica's lifecycle bitmask, mirroring the
// original's R_ENABLED/R_TCP_CONNECTED/R_GREETED/R_SYNCING/R_SYNC_OK.
type StateFlag uint32

const (
	REnabled      StateFlag = 1 << iota // supervisor wants the link up
	RTCPConnected                       // socket is connected
	RGreeted                            // handshake completed
	RSyncing                            // full sync in progress
	RSyncOK                             // streaming the replication log
)

// MasterContext identifies the master a Replica (or one of its
// per-flow subordinates) talks to. Subordinate flows hold this by
// value, not by pointer to the parent, to avoid an ownership cycle.
type MasterContext struct {
	Host         string
	Port         int
	MasterReplID string
	SyncID       string
	FlowID       int
	NumFlows     int
}

func (m MasterContext) addr() string {
	return fmt.Sprintf("%s:%d", m.Host, m.Port)
}

// ReplicationInfo is the read-only snapshot INFO replication reports.
type ReplicationInfo struct {
	Role                  string
	MasterHost            string
	MasterPort            int
	MasterLinkEstablished bool
	SyncInProgress        bool
}

// Replica supervises one replication link to a master. The zero value
// via New is disabled; call Start to enable it.
type Replica struct {
	state   uint32 // atomic StateFlag bitmask
	paused  atomic.Bool
	lastIO  int64 // unix nano, atomic
	master  MasterContext
	conn    net.Conn
	mu      sync.Mutex
	stopCh  chan struct{}
	wg      sync.WaitGroup
	flows   []*Replica
	onEntry func(ctx context.Context, cmdLine [][]byte) // dispatch hook, set by the server on construction
}

// New creates a disabled Replica with no master configured.
func New() *Replica {
	return &Replica{}
}

// SetDispatchHook installs the function used to apply commands
// consumed from the replication stream against the local instance.
func (r *Replica) SetDispatchHook(fn func(ctx context.Context, cmdLine [][]byte)) {
	r.onEntry = fn
}

func (r *Replica) hasState(f StateFlag) bool {
	return atomic.LoadUint32(&r.state)&uint32(f) != 0
}

func (r *Replica) setState(f StateFlag) {
	for {
		old := atomic.LoadUint32(&r.state)
		if atomic.CompareAndSwapUint32(&r.state, old, old|uint32(f)) {
			return
		}
	}
}

func (r *Replica) clearState(f StateFlag) {
	for {
		old := atomic.LoadUint32(&r.state)
		if atomic.CompareAndSwapUint32(&r.state, old, old&^uint32(f)) {
			return
		}
	}
}

// Start configures host/port and launches the supervisor loop,
// enabling the link.
func (r *Replica) Start(host string, port int) {
	r.mu.Lock()
	r.master = MasterContext{Host: host, Port: port}
	r.stopCh = make(chan struct{})
	r.mu.Unlock()

	r.setState(REnabled)
	r.wg.Add(1)
	go r.run()
}

// Pause toggles the paused flag, checked at the top of the reconnect
// path. It does not tear down an existing connection.
func (r *Replica) Pause(pause bool) {
	r.paused.Store(pause)
}

// Stop clears the enabled flag, closes the socket, and joins the
// supervisor loop along with every subordinate flow.
func (r *Replica) Stop() {
	if !r.hasState(REnabled) {
		return
	}
	r.clearState(REnabled)
	r.mu.Lock()
	if r.stopCh != nil {
		close(r.stopCh)
	}
	conn := r.conn
	r.master = MasterContext{}
	r.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	r.wg.Wait()
	for _, f := range r.flows {
		f.Stop()
	}
}

// IsEnabled reports whether the supervisor loop is currently running,
// i.e. whether this instance is configured as a replica of some
// master.
func (r *Replica) IsEnabled() bool {
	return r.hasState(REnabled)
}

// ReplicationInfo reports the current link state for INFO replication.
func (r *Replica) ReplicationInfo() ReplicationInfo {
	r.mu.Lock()
	host, port := r.master.Host, r.master.Port
	r.mu.Unlock()
	return ReplicationInfo{
		Role:                  "slave",
		MasterHost:            host,
		MasterPort:            port,
		MasterLinkEstablished: r.hasState(RSyncOK),
		SyncInProgress:        r.hasState(RSyncing),
	}
}

func (r *Replica) run() {
	defer r.wg.Done()
	for r.hasState(REnabled) {
		select {
		case <-r.stopCh:
			return
		default:
		}

		if r.paused.Load() {
			time.Sleep(500 * time.Millisecond)
			continue
		}

		if !r.hasState(RTCPConnected) {
			if err := r.connect(); err != nil {
				logger.Warnf("replica: connect to %s failed: %v", r.master.addr(), err)
				time.Sleep(500 * time.Millisecond)
				continue
			}
		}

		if !r.hasState(RGreeted) {
			if err := r.greet(); err != nil {
				logger.Warnf("replica: handshake with %s failed: %v", r.master.addr(), err)
				r.disconnect()
				continue
			}
		}

		if !r.hasState(RSyncOK) {
			r.setState(RSyncing)
			var err error
			if r.master.SyncID == "" {
				err = r.initiatePSync()
			} else {
				err = r.initiateDflySync()
			}
			r.clearState(RSyncing)
			if err != nil {
				logger.Warnf("replica: full sync with %s failed: %v", r.master.addr(), err)
				r.disconnect()
				continue
			}
			r.setState(RSyncOK)
		}

		r.consumeStream()
		r.clearState(RSyncOK)
	}
}

func (r *Replica) connect() error {
	conn, err := net.DialTimeout("tcp", r.master.addr(), 5*time.Second)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.conn = conn
	r.mu.Unlock()
	atomic.StoreInt64(&r.lastIO, time.Now().UnixNano())
	r.setState(RTCPConnected)
	return nil
}

func (r *Replica) disconnect() {
	r.clearState(RTCPConnected | RGreeted | RSyncOK)
	r.mu.Lock()
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func (r *Replica) sendCommand(w *bufio.Writer, args ...string) error {
	raw := make([][]byte, len(args))
	for i, a := range args {
		raw[i] = []byte(a)
	}
	if _, err := w.Write(protocol.MakeMultiBulkReply(raw).ToBytes()); err != nil {
		return err
	}
	return w.Flush()
}

// greet runs the PING / REPLCONF handshake and, if the master answers
// the dragonfly capability probe with a 3-element array, records the
// native sync session it grants.
func (r *Replica) greet() error {
	w := bufio.NewWriter(r.conn)
	reader := bufio.NewReader(r.conn)

	if err := r.sendCommand(w, "PING"); err != nil {
		return err
	}
	if reply, err := ReadRespReply(reader); err != nil || reply != "PONG" {
		return fmt.Errorf("bad_message: expected PONG, got %q (err=%v)", reply, err)
	}

	if err := r.sendCommand(w, "REPLCONF", "capa", "eof", "capa", "psync2"); err != nil {
		return err
	}
	if reply, err := ReadRespReply(reader); err != nil || reply != "OK" {
		return fmt.Errorf("bad_message: expected OK, got %q (err=%v)", reply, err)
	}

	if err := r.sendCommand(w, "REPLCONF", "capa", "dragonfly"); err != nil {
		return err
	}
	line, err := ReadLine(reader)
	if err != nil {
		return err
	}
	switch {
	case len(line) > 0 && line[0] == '+':
		// legacy master: plain +OK, no native session.
	case len(line) > 0 && line[0] == '*':
		if err := r.parseNativeGreeting(line, reader); err != nil {
			return err
		}
	default:
		return fmt.Errorf("bad_message: unexpected dragonfly capa reply %q", line)
	}

	r.setState(RGreeted)
	return nil
}

// parseNativeGreeting reads the 3-element "*3" array a master sends
// after REPLCONF capa dragonfly: master replication id, sync id, and
// flow count. The first two travel as bulk strings; the flow count
// may arrive as either a bulk string or a RESP integer, since callers
// on either side of this handshake reach for whichever reply
// constructor fits the value's type most naturally.
func (r *Replica) parseNativeGreeting(header string, reader *bufio.Reader) error {
	if header != "*3" {
		return fmt.Errorf("bad_message: expected 3-element native greeting, got %q", header)
	}
	fields := make([]string, 3)
	for i := range fields {
		line, err := ReadLine(reader)
		if err != nil {
			return err
		}
		if len(line) == 0 {
			return fmt.Errorf("bad_message: empty element in native greeting")
		}
		switch line[0] {
		case '$':
			val, err := ReadLine(reader)
			if err != nil {
				return err
			}
			fields[i] = val
		case ':':
			fields[i] = line[1:]
		default:
			return fmt.Errorf("bad_message: unexpected element %q in native greeting", line)
		}
	}
	r.master.MasterReplID = fields[0]
	r.master.SyncID = fields[1]
	numFlows, err := strconv.Atoi(fields[2])
	if err != nil || numFlows <= 0 {
		return fmt.Errorf("bad_message: invalid num_flows %q in native greeting", fields[2])
	}
	r.master.NumFlows = numFlows
	return nil
}

// initiatePSync runs the legacy full-sync handshake, reading and
// discarding the RDB payload (a real load into dbslice is future
// work; this establishes the protocol-level contract correctly).
func (r *Replica) initiatePSync() error {
	w := bufio.NewWriter(r.conn)
	reader := bufio.NewReader(r.conn)

	if err := r.sendCommand(w, "PSYNC", "?", "-1"); err != nil {
		return err
	}
	statusLine, err := ReadLine(reader)
	if err != nil {
		return err
	}
	if len(statusLine) == 0 {
		return fmt.Errorf("bad_message: empty PSYNC reply")
	}
	switch statusLine[0] {
	case '+':
		content := statusLine[1:]
		if content == "CONTINUE" {
			return nil // partial sync, treated as a zero-length full sync
		}
		replID, offset, err := ParseReplicationHeader(content)
		if err != nil {
			return err
		}
		r.master.MasterReplID = replID
		_ = offset
	default:
		return fmt.Errorf("bad_message: unexpected PSYNC status %q", statusLine)
	}

	preambleLine, err := ReadLine(reader)
	if err != nil {
		return err
	}
	eofToken, size, err := ParseRdbPreamble(preambleLine)
	if err != nil {
		return err
	}
	if eofToken != "" {
		return r.drainDisklessRdb(reader, eofToken)
	}
	return r.drainSizedRdb(reader, size)
}

func (r *Replica) drainDisklessRdb(reader *bufio.Reader, eofToken string) error {
	tail := make([]byte, 0, eofTokenSize)
	buf := make([]byte, 4096)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			tail = append(tail, buf[:n]...)
			if len(tail) > eofTokenSize {
				tail = tail[len(tail)-eofTokenSize:]
			}
			if len(tail) == eofTokenSize && string(tail) == eofToken {
				return nil
			}
		}
		if err != nil {
			return err
		}
	}
}

func (r *Replica) drainSizedRdb(reader *bufio.Reader, size int64) error {
	_, err := reader.Discard(int(size))
	return err
}

// initiateDflySync starts one subordinate flow per master flow id,
// each on its own goroutine and connection, handshakes each via
// DFLY FLOW, then sends DFLY SYNC on the main link.
func (r *Replica) initiateDflySync() error {
	numFlows := r.master.NumFlows
	if numFlows <= 0 {
		numFlows = 1
	}
	r.flows = make([]*Replica, numFlows)
	var wg sync.WaitGroup
	errs := make([]error, numFlows)
	for i := 0; i < numFlows; i++ {
		ctx := r.master
		ctx.FlowID = i
		flow := &Replica{master: ctx}
		r.flows[i] = flow
		wg.Add(1)
		go func(i int, flow *Replica) {
			defer wg.Done()
			errs[i] = flow.startFlow()
		}(i, flow)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	w := bufio.NewWriter(r.conn)
	reader := bufio.NewReader(r.conn)
	if err := r.sendCommand(w, "DFLY", "SYNC", r.master.SyncID); err != nil {
		return err
	}
	if reply, err := ReadRespReply(reader); err != nil || reply != "OK" {
		return fmt.Errorf("bad_message: expected OK from DFLY SYNC, got %q (err=%v)", reply, err)
	}
	return nil
}

func (r *Replica) startFlow() error {
	if err := r.connect(); err != nil {
		return err
	}
	w := bufio.NewWriter(r.conn)
	reader := bufio.NewReader(r.conn)
	if err := r.sendCommand(w, "DFLY", "FLOW", r.master.MasterReplID, r.master.SyncID, fmt.Sprintf("%d", r.master.FlowID)); err != nil {
		return err
	}
	header, err := ReadLine(reader)
	if err != nil {
		return err
	}
	if header != "*2" {
		return fmt.Errorf("bad_message: expected 2-element DFLY FLOW reply, got %q", header)
	}
	marker, err := readBulk(reader)
	if err != nil {
		return err
	}
	if marker != "FULL" {
		return fmt.Errorf("bad_message: expected FULL, got %q", marker)
	}
	eofToken, err := readBulk(reader)
	if err != nil {
		return err
	}
	return r.drainDisklessRdb(reader, eofToken)
}

func readBulk(reader *bufio.Reader) (string, error) {
	header, err := ReadLine(reader)
	if err != nil {
		return "", err
	}
	if len(header) == 0 || header[0] != '$' {
		return "", fmt.Errorf("bad_message: expected bulk string header, got %q", header)
	}
	return ReadLine(reader)
}

// consumeStream reads the post-sync replication log. The legacy path
// dispatches parsed RESP commands locally and periodically acks the
// observed offset; the native path has no streaming-log wire format
// yet, so it quits cleanly rather than spin on an undefined protocol.
func (r *Replica) consumeStream() {
	if r.master.SyncID != "" {
		r.consumeDflyStream()
		return
	}
	r.consumeRedisStream()
}

func (r *Replica) consumeRedisStream() {
	w := bufio.NewWriter(r.conn)
	_ = r.sendCommand(w, "REPLCONF", "ACK", "0")

	ch := parser.ParseStream(r.conn)
	var replOffs, ackOffs int64
	lastAck := time.Now()
	for {
		select {
		case <-r.stopCh:
			return
		case payload, ok := <-ch:
			if !ok {
				logger.Warnf("replica: stream from %s closed", r.master.addr())
				return
			}
			if payload.Err != nil {
				logger.Warnf("replica: stream read from %s ended: %v", r.master.addr(), payload.Err)
				return
			}
			atomic.StoreInt64(&r.lastIO, time.Now().UnixNano())
			multiBulk, ok := payload.Data.(*protocol.MultiBulkReply)
			if !ok || len(multiBulk.Args) == 0 {
				continue
			}
			replOffs += int64(len(multiBulk.ToBytes()))
			if r.onEntry != nil {
				r.onEntry(context.Background(), multiBulk.Args)
			}
			if replOffs-ackOffs > 1024 || time.Since(lastAck) > 5*time.Second {
				if err := r.sendCommand(w, "REPLCONF", "ACK", fmt.Sprintf("%d", replOffs)); err == nil {
					ackOffs = replOffs
					lastAck = time.Now()
				}
			}
		}
	}
}

// consumeDflyStream is a placeholder for the streaming-log design:
// the native wire format for incremental propagation is not yet
// defined, so a connected native replica quits and disables itself
// rather than block forever on undefined bytes.
func (r *Replica) consumeDflyStream() {
	w := bufio.NewWriter(r.conn)
	_ = r.sendCommand(w, "QUIT")
	r.clearState(REnabled)
}
