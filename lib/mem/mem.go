// Package mem reports process memory usage for INFO memory and the
// MEMORY USAGE command, and backs the server's soft maxmemory check.
package mem

import (
	"runtime"

	"github.com/ryanrussell/dragonfly/config"
)

// UsedBytes returns the process's current heap allocation in bytes.
func UsedBytes() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc
}

// UsedMegabytes is UsedBytes rounded down to whole megabytes, the unit
// INFO memory reports used_memory_human in.
func UsedMegabytes() uint64 {
	return UsedBytes() / 1024 / 1024
}

// OverLimit reports whether the process is above the configured
// maxmemory soft limit. A zero limit disables the check.
func OverLimit() bool {
	limit := config.Properties.Maxmemory
	return limit != 0 && UsedBytes() > limit
}

// EntitySize estimates the footprint of a value for MEMORY USAGE: the
// byte length of a []byte or string value; every other value type,
// containers included, is reported as a flat 16 bytes.
func EntitySize(v interface{}) int64 {
	switch val := v.(type) {
	case []byte:
		return int64(len(val))
	case string:
		return int64(len(val))
	default:
		return 16
	}
}
