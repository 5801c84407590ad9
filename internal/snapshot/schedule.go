package snapshot

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// SnapshotSpec is a parsed HH:MM save schedule entry, each half a
// "nibble" that may contain literal digits and '*' wildcards, e.g.
// "*:*" (every minute), "3:*" (every minute of hour 3), "*:30".
type SnapshotSpec struct {
	HourSpec   string
	MinuteSpec string
}

// ParseSaveSchedule parses a single "H:MM"-shaped schedule entry.
// Hour accepts 1-2 digits or "*"; minute must be exactly 2 digits or
// "*". Returns an error if the entry is malformed or out of range.
func ParseSaveSchedule(spec string) (*SnapshotSpec, error) {
	if len(spec) < 3 || len(spec) > 5 {
		return nil, fmt.Errorf("invalid save schedule %q: must be 3-5 characters", spec)
	}

	sepIdx := strings.IndexByte(spec, ':')
	if sepIdx == 0 || sepIdx < 0 || sepIdx >= 3 {
		return nil, fmt.Errorf("invalid save schedule %q: missing or misplaced ':'", spec)
	}

	s := &SnapshotSpec{
		HourSpec:   spec[:sepIdx],
		MinuteSpec: spec[sepIdx+1:],
	}
	if s.MinuteSpec != "*" && len(s.MinuteSpec) != 2 {
		return nil, fmt.Errorf("invalid save schedule %q: minute must be 2 digits or '*'", spec)
	}
	if !isValidNibble(s.HourSpec, 23) {
		return nil, fmt.Errorf("invalid save schedule %q: hour out of range", spec)
	}
	if !isValidNibble(s.MinuteSpec, 59) {
		return nil, fmt.Errorf("invalid save schedule %q: minute out of range", spec)
	}
	return s, nil
}

// isValidNibble range-checks nibble by substituting every '*' with
// '0' and checking the resulting minimum value against max: a nibble
// is only valid if the smallest value it could stand for is in range,
// e.g. "9*" for an hour field has a minimum of 90, which exceeds 23.
func isValidNibble(nibble string, max uint) bool {
	if nibble == "*" {
		return true
	}
	minDigits := make([]byte, len(nibble))
	for i := 0; i < len(nibble); i++ {
		c := nibble[i]
		switch {
		case c == '*':
			minDigits[i] = '0'
		case c >= '0' && c <= '9':
			minDigits[i] = c
		default:
			return false
		}
	}
	val, err := strconv.ParseUint(string(minDigits), 10, 32)
	if err != nil {
		return false
	}
	return uint(val) <= max
}

// DoesTimeNibbleMatchSpecifier reports whether current matches a
// right-aligned nibble specifier: digits are matched from the
// least-significant place, '*' matches any single digit there, and a
// lone "*" matches everything.
func DoesTimeNibbleMatchSpecifier(timeSpec string, current uint) bool {
	if timeSpec == "*" {
		return true
	}
	for i := len(timeSpec) - 1; i >= 0; i-- {
		c := timeSpec[i]
		if c != '*' && int(current%10) != int(c-'0') {
			return false
		}
		current /= 10
	}
	return current == 0
}

// DoesTimeMatchSpecifier reports whether now's hour and minute match
// spec. Callers driving the save-schedule cron pass now in UTC, per
// the original's now_utc.
func DoesTimeMatchSpecifier(spec *SnapshotSpec, now time.Time) bool {
	hour := uint(now.Hour())
	minute := uint(now.Minute())
	return DoesTimeNibbleMatchSpecifier(spec.HourSpec, hour) &&
		DoesTimeNibbleMatchSpecifier(spec.MinuteSpec, minute)
}

// ParseSaveSchedules parses a comma-separated list of schedule
// entries, e.g. "0:00,12:00" for twice-daily saves. An empty string
// yields no schedules (snapshotting stays purely manual).
func ParseSaveSchedules(spec string) ([]*SnapshotSpec, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	parts := strings.Split(spec, ",")
	specs := make([]*SnapshotSpec, 0, len(parts))
	for _, part := range parts {
		s, err := ParseSaveSchedule(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		specs = append(specs, s)
	}
	return specs, nil
}

// ExtendFilename appends a timestamp, and for shard >= 0 a
// zero-padded shard index, to filename. shard < 0 produces the
// legacy single-file ".rdb" name, unless filename already carries an
// extension, in which case it's used as-is; shard >= 0 produces the
// native per-shard ".dfs" name regardless.
func ExtendFilename(now time.Time, shard int, filename string) string {
	ts := now.Format("2006-01-02T15:04:05")
	if shard < 0 {
		if filepath.Ext(filename) != "" {
			return filename
		}
		return filename + "-" + ts + ".rdb"
	}
	return fmt.Sprintf("%s-%s-%04d.dfs", filename, ts, shard)
}
