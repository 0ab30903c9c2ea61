package resource

import (
	"os"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Sample is a point-in-time resource reading, fed to the
// health-telemetry service for periodic TLM publication.
type Sample struct {
	ProcessMemoryBytes uint64
	SystemMemoryBytes  uint64
	CPUPercent         float64
}

// Sampler samples the current process's memory and CPU usage, falling
// back to system-wide CPU when no process handle is available; system
// memory in use is read on every sample (grounded on a process-stats
// collector: process.NewProcess plus mem.VirtualMemory).
type Sampler struct {
	proc *process.Process
}

// NewSampler builds a sampler bound to the current process.
func NewSampler() *Sampler {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return &Sampler{proc: nil}
	}
	return &Sampler{proc: proc}
}

// Sample takes one reading. CPU percent is measured instantaneously
// (0% baseline on the first call, since cpu.Percent needs a window to
// compare against: callers sampling periodically will see meaningful
// deltas from the second call onward).
func (s *Sampler) Sample() Sample {
	var out Sample

	if s.proc != nil {
		if info, err := s.proc.MemoryInfo(); err == nil {
			out.ProcessMemoryBytes = info.RSS
		}
		if pct, err := s.proc.CPUPercent(); err == nil {
			out.CPUPercent = pct
		}
	} else if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 {
		out.CPUPercent = pcts[0]
	}

	if vmem, err := mem.VirtualMemory(); err == nil {
		out.SystemMemoryBytes = vmem.Used
	}

	return out
}
