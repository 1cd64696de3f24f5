// Package stat abstracts point-in-time readings of OS counters behind a
// Source interface so the monitors can be exercised against synthetic
// snapshots. The production implementation is backed by gopsutil.
//
// Cumulative counters (I/O bytes, packet counts) are assumed monotonic
// non-decreasing within one process lifetime; consumers take deltas between
// consecutive snapshots and clamp decreases to zero.
package stat

// DiskIOSnapshot is a system-wide disk I/O reading, summed across devices.
// Times are in milliseconds.
type DiskIOSnapshot struct {
	ReadCount  uint64
	WriteCount uint64
	ReadBytes  uint64
	WriteBytes uint64
	ReadTime   uint64
	WriteTime  uint64
}

// NetIOSnapshot is one network interface's cumulative traffic counters.
type NetIOSnapshot struct {
	BytesSent   uint64
	BytesRecv   uint64
	PacketsSent uint64
	PacketsRecv uint64
	ErrIn       uint64
	ErrOut      uint64
	DropIn      uint64
	DropOut     uint64
}

// MemSnapshot is a virtual-memory reading. Sizes are in bytes.
type MemSnapshot struct {
	Total       uint64
	Used        uint64
	Available   uint64
	Free        uint64
	UsedPercent float64
}

// SwapSnapshot is a swap reading. Sizes are in bytes.
type SwapSnapshot struct {
	Total       uint64
	Used        uint64
	Free        uint64
	UsedPercent float64
}

// ProcInfo identifies one running process in an enumeration.
type ProcInfo struct {
	PID  int32
	Name string
}

// ProcSnapshot holds one process's resource usage at a point in time.
// CPUPercent is instantaneous (since the previous reading of the same
// process), not cumulative since process start.
type ProcSnapshot struct {
	IOReadCount  uint64
	IOWriteCount uint64
	IOReadBytes  uint64
	IOWriteBytes uint64
	RSS          uint64
	MemPercent   float64
	CPUPercent   float64
}

// Source is a point-in-time view of OS counters. Implementations need not be
// safe for concurrent use; the sampler polls strictly sequentially.
type Source interface {
	// CPUCounts returns the number of logical cores.
	CPUCounts() (int, error)

	// CPUPercent returns the whole-system CPU percentage since the previous
	// call (first call establishes the baseline).
	CPUPercent() (float64, error)

	// PerCPUPercent returns per-core CPU percentages since the previous call.
	PerCPUPercent() ([]float64, error)

	VirtualMemory() (MemSnapshot, error)
	SwapMemory() (SwapSnapshot, error)

	// DiskIOCounters returns system-wide disk counters summed over devices.
	DiskIOCounters() (DiskIOSnapshot, error)

	// NICNames returns the names of the interfaces that currently exist.
	NICNames() (map[string]struct{}, error)

	// NetIOCounters returns per-interface traffic counters keyed by name.
	NetIOCounters() (map[string]NetIOSnapshot, error)

	// Processes enumerates currently running processes.
	Processes() ([]ProcInfo, error)

	// ProcessStats reads one process's usage. A process that exited or denies
	// access yields ErrProcGone.
	ProcessStats(pid int32) (ProcSnapshot, error)
}
