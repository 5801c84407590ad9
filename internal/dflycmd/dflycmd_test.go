package dflycmd

import "testing"

func TestStartSessionAndFlowHandshake(t *testing.T) {
	reg := NewRegistry()
	syncID, masterReplID := reg.StartSession(2)
	if masterReplID != reg.MasterReplID() {
		t.Fatalf("expected master repl id to match registry, got %q", masterReplID)
	}

	if _, err := reg.Flow(masterReplID, syncID, 0); err != nil {
		t.Fatalf("unexpected error on flow 0: %v", err)
	}
	if _, err := reg.Flow(masterReplID, syncID, 1); err != nil {
		t.Fatalf("unexpected error on flow 1: %v", err)
	}

	if err := reg.Sync(syncID); err != nil {
		t.Fatalf("expected Sync to succeed once every flow connected: %v", err)
	}
}

func TestFlowRejectsUnknownSession(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Flow(reg.MasterReplID(), "SYNCbogus", 0); err == nil {
		t.Fatal("expected an error for an unknown sync session")
	}
}

func TestFlowRejectsWrongMasterReplID(t *testing.T) {
	reg := NewRegistry()
	syncID, _ := reg.StartSession(1)
	if _, err := reg.Flow("not-the-master-id", syncID, 0); err == nil {
		t.Fatal("expected an error for a mismatched master replication id")
	}
}

func TestFlowRejectsOutOfRangeFlowID(t *testing.T) {
	reg := NewRegistry()
	syncID, masterReplID := reg.StartSession(1)
	if _, err := reg.Flow(masterReplID, syncID, 5); err == nil {
		t.Fatal("expected an error for a flow id outside [0, numFlows)")
	}
}

func TestSyncRejectsIncompleteFlows(t *testing.T) {
	reg := NewRegistry()
	syncID, masterReplID := reg.StartSession(2)
	if _, err := reg.Flow(masterReplID, syncID, 0); err != nil {
		t.Fatal(err)
	}
	if err := reg.Sync(syncID); err == nil {
		t.Fatal("expected Sync to fail with only 1/2 flows connected")
	}
}

func TestEndSessionDropsBookkeeping(t *testing.T) {
	reg := NewRegistry()
	syncID, _ := reg.StartSession(1)
	if reg.SessionCount() != 1 {
		t.Fatalf("expected 1 session, got %d", reg.SessionCount())
	}
	reg.EndSession(syncID)
	if reg.SessionCount() != 0 {
		t.Fatalf("expected 0 sessions after EndSession, got %d", reg.SessionCount())
	}
}
