package stat

import (
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	gnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

// SystemSource reads live OS counters via gopsutil.
//
// Process handles are cached by PID so that CPUPercent reflects usage since
// the previous poll of the same process rather than since process start.
// PIDs are reused by the OS after a process exits, so a cached handle is
// only trusted while the creation time behind its PID is unchanged; handles
// are also pruned against each enumeration.
type SystemSource struct {
	procs map[int32]*procHandle
}

// procHandle pairs a cached gopsutil handle with the creation time that
// identifies the process instance currently occupying the PID.
type procHandle struct {
	p       *process.Process
	created int64
}

// NewSystemSource returns a Source backed by the local OS.
func NewSystemSource() *SystemSource {
	return &SystemSource{procs: make(map[int32]*procHandle)}
}

func (s *SystemSource) CPUCounts() (int, error) {
	return cpu.Counts(true)
}

func (s *SystemSource) CPUPercent() (float64, error) {
	pct, err := cpu.Percent(0, false)
	if err != nil {
		return 0, err
	}
	if len(pct) == 0 {
		return 0, ErrNoCPU
	}
	return pct[0], nil
}

func (s *SystemSource) PerCPUPercent() ([]float64, error) {
	return cpu.Percent(0, true)
}

func (s *SystemSource) VirtualMemory() (MemSnapshot, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return MemSnapshot{}, err
	}
	return MemSnapshot{
		Total:       vm.Total,
		Used:        vm.Used,
		Available:   vm.Available,
		Free:        vm.Free,
		UsedPercent: vm.UsedPercent,
	}, nil
}

func (s *SystemSource) SwapMemory() (SwapSnapshot, error) {
	sw, err := mem.SwapMemory()
	if err != nil {
		return SwapSnapshot{}, err
	}
	return SwapSnapshot{
		Total:       sw.Total,
		Used:        sw.Used,
		Free:        sw.Free,
		UsedPercent: sw.UsedPercent,
	}, nil
}

func (s *SystemSource) DiskIOCounters() (DiskIOSnapshot, error) {
	counters, err := disk.IOCounters()
	if err != nil {
		return DiskIOSnapshot{}, err
	}
	var out DiskIOSnapshot
	for _, c := range counters {
		out.ReadCount += c.ReadCount
		out.WriteCount += c.WriteCount
		out.ReadBytes += c.ReadBytes
		out.WriteBytes += c.WriteBytes
		out.ReadTime += c.ReadTime
		out.WriteTime += c.WriteTime
	}
	return out, nil
}

func (s *SystemSource) NICNames() (map[string]struct{}, error) {
	ifs, err := gnet.Interfaces()
	if err != nil {
		return nil, err
	}
	names := make(map[string]struct{}, len(ifs))
	for _, nic := range ifs {
		names[nic.Name] = struct{}{}
	}
	return names, nil
}

func (s *SystemSource) NetIOCounters() (map[string]NetIOSnapshot, error) {
	counters, err := gnet.IOCounters(true)
	if err != nil {
		return nil, err
	}
	out := make(map[string]NetIOSnapshot, len(counters))
	for _, c := range counters {
		out[c.Name] = NetIOSnapshot{
			BytesSent:   c.BytesSent,
			BytesRecv:   c.BytesRecv,
			PacketsSent: c.PacketsSent,
			PacketsRecv: c.PacketsRecv,
			ErrIn:       c.Errin,
			ErrOut:      c.Errout,
			DropIn:      c.Dropin,
			DropOut:     c.Dropout,
		}
	}
	return out, nil
}

func (s *SystemSource) Processes() ([]ProcInfo, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}
	infos := make([]ProcInfo, 0, len(procs))
	alive := make(map[int32]struct{}, len(procs))
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			// vanished mid-enumeration
			continue
		}
		alive[p.Pid] = struct{}{}
		infos = append(infos, ProcInfo{PID: p.Pid, Name: name})
	}
	// drop handles whose PID no longer exists; a later occupant of the same
	// PID is a different process
	for pid := range s.procs {
		if _, ok := alive[pid]; !ok {
			delete(s.procs, pid)
		}
	}
	return infos, nil
}

func (s *SystemSource) ProcessStats(pid int32) (ProcSnapshot, error) {
	fresh, err := process.NewProcess(pid)
	if err != nil {
		delete(s.procs, pid)
		return ProcSnapshot{}, ErrProcGone
	}
	created, err := fresh.CreateTime()
	if err != nil {
		delete(s.procs, pid)
		return ProcSnapshot{}, ErrProcGone
	}
	h, ok := s.procs[pid]
	if !ok || h.created != created {
		// first sight of this PID, or the PID was reused by a new process
		// since the previous poll: the old handle's CPU baseline belongs to
		// the exited process and must not carry over
		h = &procHandle{p: fresh, created: created}
		s.procs[pid] = h
	}
	p := h.p

	io, err := p.IOCounters()
	if err != nil {
		delete(s.procs, pid)
		return ProcSnapshot{}, ErrProcGone
	}
	memInfo, err := p.MemoryInfo()
	if err != nil {
		delete(s.procs, pid)
		return ProcSnapshot{}, ErrProcGone
	}
	memPct, err := p.MemoryPercent()
	if err != nil {
		delete(s.procs, pid)
		return ProcSnapshot{}, ErrProcGone
	}
	cpuPct, err := p.CPUPercent()
	if err != nil {
		delete(s.procs, pid)
		return ProcSnapshot{}, ErrProcGone
	}

	return ProcSnapshot{
		IOReadCount:  io.ReadCount,
		IOWriteCount: io.WriteCount,
		IOReadBytes:  io.ReadBytes,
		IOWriteBytes: io.WriteBytes,
		RSS:          memInfo.RSS,
		MemPercent:   float64(memPct),
		CPUPercent:   cpuPct,
	}, nil
}
