package journal

import (
	"testing"
	"time"
)

func TestAppendDeliversToSubscriber(t *testing.T) {
	j := New()
	defer j.Close()

	_, ch := j.Subscribe()
	j.Append(0, 0, CmdLine{[]byte("SET"), []byte("a"), []byte("1")})

	select {
	case entry := <-ch:
		if string(entry.CmdLine[0]) != "SET" {
			t.Fatalf("expected SET, got %s", entry.CmdLine[0])
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for journal entry")
	}
}

func TestEnterLameDuckStopsAcceptingWrites(t *testing.T) {
	j := New()
	defer j.Close()

	if !j.EnterLameDuck() {
		t.Fatal("expected first EnterLameDuck to succeed")
	}
	if j.EnterLameDuck() {
		t.Fatal("expected second EnterLameDuck to be a no-op")
	}

	_, ch := j.Subscribe()
	j.Append(0, 0, CmdLine{[]byte("SET"), []byte("a"), []byte("1")})

	select {
	case <-ch:
		t.Fatal("expected no entry after entering lame duck")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	j := New()
	defer j.Close()

	id, ch := j.Subscribe()
	j.Unsubscribe(id)

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}
