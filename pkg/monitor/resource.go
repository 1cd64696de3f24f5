package monitor

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/hostwatch/resmon/pkg/system/stat"
	"github.com/hostwatch/resmon/pkg/system/util"
	"github.com/hostwatch/resmon/pkg/types"
)

// ResourceMonitor samples system-wide CPU, memory, swap and disk counters,
// one row per poll. Disk columns are deltas against the snapshot taken on
// the immediately preceding poll.
type ResourceMonitor struct {
	src    stat.Source
	sink   *Sink
	ncores int
	start  int64
	prev   stat.DiskIOSnapshot
	now    func() time.Time
}

// NewResourceMonitor opens the sink, writes the header row and captures the
// initial disk snapshot. An empty outfile writes to standard output.
func NewResourceMonitor(src stat.Source, outfile string, flush bool) (*ResourceMonitor, error) {
	ncores, err := src.CPUCounts()
	if err != nil {
		return nil, fmt.Errorf("resource monitor: cpu count: %w", err)
	}
	prev, err := src.DiskIOCounters()
	if err != nil {
		return nil, fmt.Errorf("resource monitor: disk counters: %w", err)
	}
	sink, err := NewSink(outfile, flush)
	if err != nil {
		return nil, fmt.Errorf("resource monitor: %w", err)
	}

	m := &ResourceMonitor{
		src:    src,
		sink:   sink,
		ncores: ncores,
		prev:   prev,
		now:    time.Now,
	}
	m.start = m.now().Unix()
	if err := sink.WriteRow(m.header()...); err != nil {
		sink.Close()
		return nil, fmt.Errorf("resource monitor: write header: %w", err)
	}
	slog.Info("resource monitor started", "cores", ncores)
	return m, nil
}

func (m *ResourceMonitor) header() []string {
	fields := []string{"Timestamp", "Uptime", "NCPU", "%CPU"}
	for i := 0; i < m.ncores; i++ {
		fields = append(fields, fmt.Sprintf("%%CPU%d", i))
	}
	return append(fields,
		"%MEM", "mem.total.MB", "mem.used.MB", "mem.avail.MB", "mem.free.MB",
		"%SWAP", "swap.total.MB", "swap.used.MB", "swap.free.MB",
		"io.read", "io.write", "io.read.MB", "io.write.MB", "io.read.ms", "io.write.ms")
}

// Poll writes one row. The previous disk snapshot is replaced only after the
// row was written.
func (m *ResourceMonitor) Poll() error {
	ts := m.now().Unix()
	uptime := ts - m.start

	totalPct, err := m.src.CPUPercent()
	if err != nil {
		return fmt.Errorf("resource monitor: cpu percent: %w", err)
	}
	perPct, err := m.src.PerCPUPercent()
	if err != nil {
		return fmt.Errorf("resource monitor: per-cpu percent: %w", err)
	}
	vm, err := m.src.VirtualMemory()
	if err != nil {
		return fmt.Errorf("resource monitor: virtual memory: %w", err)
	}
	sw, err := m.src.SwapMemory()
	if err != nil {
		return fmt.Errorf("resource monitor: swap memory: %w", err)
	}
	dk, err := m.src.DiskIOCounters()
	if err != nil {
		return fmt.Errorf("resource monitor: disk counters: %w", err)
	}

	fields := make([]string, 0, 19+m.ncores)
	// The aggregate column is the whole-system percentage scaled by core
	// count, not the sum of the per-core columns; the two diverge when the
	// sampling windows differ.
	fields = append(fields, i64(ts), i64(uptime), strconv.Itoa(m.ncores),
		util.FmtFloat(totalPct*float64(m.ncores)))
	for _, pct := range perPct {
		fields = append(fields, util.FmtFloat(pct))
	}
	fields = append(fields,
		util.FmtFloat(vm.UsedPercent),
		u64(types.Bytes(vm.Total).MiB()),
		u64(types.Bytes(vm.Used).MiB()),
		u64(types.Bytes(vm.Available).MiB()),
		u64(types.Bytes(vm.Free).MiB()),
		util.FmtFloat(sw.UsedPercent),
		u64(types.Bytes(sw.Total).MiB()),
		u64(types.Bytes(sw.Used).MiB()),
		u64(types.Bytes(sw.Free).MiB()),
		u64(util.DeltaU64(dk.ReadCount, m.prev.ReadCount)),
		u64(util.DeltaU64(dk.WriteCount, m.prev.WriteCount)),
		u64(types.Bytes(util.DeltaU64(dk.ReadBytes, m.prev.ReadBytes)).MiB()),
		u64(types.Bytes(util.DeltaU64(dk.WriteBytes, m.prev.WriteBytes)).MiB()),
		u64(util.DeltaU64(dk.ReadTime, m.prev.ReadTime)),
		u64(util.DeltaU64(dk.WriteTime, m.prev.WriteTime)))

	if err := m.sink.WriteRow(fields...); err != nil {
		return fmt.Errorf("resource monitor: write row: %w", err)
	}
	m.prev = dk
	return nil
}

// Close releases the sink.
func (m *ResourceMonitor) Close() error {
	err := m.sink.Close()
	slog.Info("resource monitor closed")
	return err
}
