package snapshot

import (
	"testing"
	"time"
)

func TestParseSaveSchedule(t *testing.T) {
	cases := []struct {
		spec    string
		wantErr bool
	}{
		{"*:*", false},
		{"3:*", false},
		{"*:30", false},
		{"23:59", false},
		{"24:00", true},
		{"1:60", true},
		{"130", true},
		{"", true},
		{":00", true},
		{"9*:00", true},
		{"1*:00", false},
	}
	for _, c := range cases {
		_, err := ParseSaveSchedule(c.spec)
		if (err != nil) != c.wantErr {
			t.Errorf("ParseSaveSchedule(%q) err=%v, wantErr=%v", c.spec, err, c.wantErr)
		}
	}
}

func TestParseSaveSchedules(t *testing.T) {
	specs, err := ParseSaveSchedules("0:00, 12:00")
	if err != nil {
		t.Fatalf("ParseSaveSchedules: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("expected 2 schedules, got %d", len(specs))
	}

	specs, err = ParseSaveSchedules("")
	if err != nil || specs != nil {
		t.Fatalf("expected nil, nil for empty spec, got %v, %v", specs, err)
	}
}

func TestDoesTimeNibbleMatchSpecifier(t *testing.T) {
	cases := []struct {
		spec    string
		current uint
		want    bool
	}{
		{"*", 5, true},
		{"5", 5, true},
		{"5", 15, false},
		{"*5", 15, true},
		{"*5", 25, true},
		{"*5", 6, false},
		{"5", 0, false},
	}
	for _, c := range cases {
		got := DoesTimeNibbleMatchSpecifier(c.spec, c.current)
		if got != c.want {
			t.Errorf("DoesTimeNibbleMatchSpecifier(%q, %d) = %v, want %v", c.spec, c.current, got, c.want)
		}
	}
}

func TestDoesTimeMatchSpecifier(t *testing.T) {
	spec, err := ParseSaveSchedule("3:30")
	if err != nil {
		t.Fatalf("ParseSaveSchedule: %v", err)
	}
	now := time.Date(2026, 1, 1, 3, 30, 0, 0, time.UTC)
	if !DoesTimeMatchSpecifier(spec, now) {
		t.Fatalf("expected match at 03:30")
	}
	now = time.Date(2026, 1, 1, 3, 31, 0, 0, time.UTC)
	if DoesTimeMatchSpecifier(spec, now) {
		t.Fatalf("expected no match at 03:31")
	}
}

func TestExtendFilename(t *testing.T) {
	now := time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC)

	legacy := ExtendFilename(now, -1, "dump")
	if legacy != "dump-2026-08-06T12:00:00.rdb" {
		t.Fatalf("unexpected legacy filename: %s", legacy)
	}

	sharded := ExtendFilename(now, 7, "dump")
	if sharded != "dump-2026-08-06T12:00:00-0007.dfs" {
		t.Fatalf("unexpected sharded filename: %s", sharded)
	}

	withExt := ExtendFilename(now, -1, "dump.rdb")
	if withExt != "dump.rdb" {
		t.Fatalf("expected an already-extensioned filename to pass through unchanged, got %s", withExt)
	}
}
