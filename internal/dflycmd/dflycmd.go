// Package dflycmd implements the master side of native replication:
// the DFLY FLOW / DFLY SYNC session registry a replica's
// InitiateDflySync handshakes against.
package dflycmd

import (
	"fmt"
	"sync"

	"github.com/ryanrussell/dragonfly/lib/utils"
)

// flowPhase is the lifecycle of one flow within a sync session.
type flowPhase int

const (
	flowPreparing flowPhase = iota
	flowFull
	flowStable
)

type flowState struct {
	phase    flowPhase
	eofToken string
}

// session tracks one replica's multi-flow sync, keyed by a generated
// sync id. masterReplID is shared by every session since it names
// this instance's replication identity, not the session.
type session struct {
	masterReplID string
	syncID       string
	numFlows     int
	flows        map[int]*flowState
}

// Registry is the master-side table of in-flight sync sessions,
// sync_id -> *session, matching the original's DflyCmd.
type Registry struct {
	mu           sync.Mutex
	masterReplID string
	sessions     map[string]*session
}

// NewRegistry creates an empty Registry with a freshly generated
// 40-character master replication id, the same length class the
// teacher generates for cluster/run ids.
func NewRegistry() *Registry {
	return &Registry{
		masterReplID: utils.RandHexString(40),
		sessions:     make(map[string]*session),
	}
}

// MasterReplID returns this instance's replication id, advertised
// during REPLCONF capa dragonfly and in INFO replication.
func (reg *Registry) MasterReplID() string {
	return reg.masterReplID
}

// StartSession reserves a new sync session for a replica that has
// just completed the dragonfly capability handshake, returning the
// session id and this instance's master replication id.
func (reg *Registry) StartSession(numFlows int) (syncID string, masterReplID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	syncID = "SYNC" + utils.RandHexString(8)
	sess := &session{
		masterReplID: reg.masterReplID,
		syncID:       syncID,
		numFlows:     numFlows,
		flows:        make(map[int]*flowState),
	}
	reg.sessions[syncID] = sess
	return syncID, reg.masterReplID
}

// Flow validates a DFLY FLOW request against session bookkeeping and
// returns the eof token the master should send before the RDB body.
// eofToken is generated fresh per flow so a replica can detect a
// misdelivered or truncated stream by byte-exact comparison.
func (reg *Registry) Flow(masterReplID, syncID string, flowID int) (eofToken string, err error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if masterReplID != reg.masterReplID {
		return "", fmt.Errorf("bad_message: unknown master replication id %q", masterReplID)
	}
	sess, ok := reg.sessions[syncID]
	if !ok {
		return "", fmt.Errorf("bad_message: unknown sync session %q", syncID)
	}
	if flowID < 0 || flowID >= sess.numFlows {
		return "", fmt.Errorf("bad_message: flow id %d out of range [0,%d)", flowID, sess.numFlows)
	}
	token := utils.RandHexString(40)
	sess.flows[flowID] = &flowState{phase: flowFull, eofToken: token}
	return token, nil
}

// Sync validates a DFLY SYNC request and flips every flow of the
// session into its streaming phase.
func (reg *Registry) Sync(syncID string) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	sess, ok := reg.sessions[syncID]
	if !ok {
		return fmt.Errorf("bad_message: unknown sync session %q", syncID)
	}
	if len(sess.flows) != sess.numFlows {
		return fmt.Errorf("operation_in_progress: only %d/%d flows have connected", len(sess.flows), sess.numFlows)
	}
	for _, f := range sess.flows {
		f.phase = flowStable
	}
	return nil
}

// EndSession drops a session's bookkeeping, called when the
// replica's connection is lost.
func (reg *Registry) EndSession(syncID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.sessions, syncID)
}

// SessionCount reports the number of in-flight sync sessions, used by
// INFO replication's connected_slaves-equivalent field.
func (reg *Registry) SessionCount() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.sessions)
}
