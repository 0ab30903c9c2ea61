// Package resource auto-sizes the buffer pool from container memory
// limits, rate-limits broker.Send, and samples CPU/memory for the
// health-telemetry service.
package resource

import (
	"os"
	"strconv"
	"strings"
)

// MemoryLimitBytes returns the container memory limit in bytes, trying
// cgroup v2 first and falling back to cgroup v1. It returns 0 (with a
// nil error) when neither file exists or cgroup v2 reports "max". A
// cgroup v1 file is parsed as is, so an unconstrained v1 container
// yields the kernel's very large placeholder value rather than 0.
func MemoryLimitBytes() (int64, error) {
	if data, err := os.ReadFile("/sys/fs/cgroup/memory.max"); err == nil {
		limit := strings.TrimSpace(string(data))
		if limit != "max" {
			return strconv.ParseInt(limit, 10, 64)
		}
		return 0, nil
	}

	if data, err := os.ReadFile("/sys/fs/cgroup/memory/memory.limit_in_bytes"); err == nil {
		return strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	}

	return 0, nil
}

// PoolCapacityFromMemory derives a buffer pool capacity from a detected
// memory limit, the same way a connection count gets derived: reserve
// a runtime overhead, divide the remainder by a per-buffer budget, then
// clamp to a sane range. If memoryLimitBytes is 0 (no limit detected) it
// returns fallback unchanged.
func PoolCapacityFromMemory(memoryLimitBytes int64, bytesPerBuffer int, fallback int) int {
	if memoryLimitBytes == 0 || bytesPerBuffer <= 0 {
		return fallback
	}

	const runtimeOverheadBytes = 64 * 1024 * 1024
	available := memoryLimitBytes - runtimeOverheadBytes
	if available < 0 {
		available = memoryLimitBytes / 2
	}

	capacity := int(available / int64(bytesPerBuffer))
	const minCapacity = 16
	const maxCapacity = 1 << 20
	if capacity < minCapacity {
		capacity = minCapacity
	}
	if capacity > maxCapacity {
		capacity = maxCapacity
	}
	return capacity
}
