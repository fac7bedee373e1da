// Package procstat samples resource usage of the server process for INFO.
package procstat

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Sample is a point-in-time view of process resource usage.
type Sample struct {
	// RSS is the resident set size in bytes.
	RSS uint64
	// VMS is the virtual memory size in bytes.
	VMS uint64
	// CPUUser and CPUSystem are cumulative CPU seconds.
	CPUUser   float64
	CPUSystem float64
	// Threads is the number of OS threads.
	Threads int32
	// TotalSystemMemory is the physical memory of the host in bytes.
	TotalSystemMemory uint64
}

// Sampler reads statistics of one process.
type Sampler struct {
	proc *process.Process
}

// New returns a sampler for the current process.
func New() (*Sampler, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("procstat: open process: %w", err)
	}
	return &Sampler{proc: proc}, nil
}

// Sample collects the current statistics. Fields the platform cannot report
// are left zero; an error is returned only when nothing could be read.
func (s *Sampler) Sample() (Sample, error) {
	var (
		out  Sample
		errs int
	)

	if m, err := s.proc.MemoryInfo(); err == nil {
		out.RSS = m.RSS
		out.VMS = m.VMS
	} else {
		errs++
	}

	if t, err := s.proc.Times(); err == nil {
		out.CPUUser = t.User
		out.CPUSystem = t.System
	} else {
		errs++
	}

	if n, err := s.proc.NumThreads(); err == nil {
		out.Threads = n
	} else {
		errs++
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		out.TotalSystemMemory = vm.Total
	} else {
		errs++
	}

	if errs == 4 {
		return out, fmt.Errorf("procstat: no statistics available")
	}
	return out, nil
}

// DiskUsage reports used and free bytes of the filesystem holding path.
func DiskUsage(path string) (used, free uint64, err error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, 0, fmt.Errorf("procstat: disk usage of %s: %w", path, err)
	}
	return usage.Used, usage.Free, nil
}
