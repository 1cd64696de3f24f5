package monitor

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/hostwatch/resmon/pkg/system/stat"
	"github.com/hostwatch/resmon/pkg/system/util"
	"github.com/hostwatch/resmon/pkg/types"
)

var netHeader = []string{
	"Timestamp", "Uptime", "NIC",
	"sent.MB", "recv.MB", "sent.pkts", "recv.pkts",
	"err.in", "err.out", "drop.in", "drop.out",
}

// NetworkMonitor samples per-interface traffic counters. Each monitored
// interface owns an independent sink and an independent previous snapshot;
// interfaces never share state.
type NetworkMonitor struct {
	src   stat.Source
	nics  []string // monitored set, sorted, fixed for the lifetime
	sinks map[string]*Sink
	prev  map[string]stat.NetIOSnapshot
	start int64
	now   func() time.Time
}

// NewNetworkMonitor resolves the requested interface names against the ones
// the source reports as existing; unknown names are silently dropped. It
// opens one sink per retained interface (pattern is a fmt verb template,
// e.g. "netstat.%s.csv"), writes headers, then polls once so the first data
// row is a near-zero baseline rather than cumulative-since-boot counters.
// Returns ErrNoNIC when no requested interface exists.
func NewNetworkMonitor(src stat.Source, pattern string, nics []string, flush bool) (*NetworkMonitor, error) {
	known, err := src.NICNames()
	if err != nil {
		return nil, fmt.Errorf("nic monitor: interfaces: %w", err)
	}
	seen := make(map[string]struct{}, len(nics))
	var kept []string
	for _, nic := range nics {
		if _, ok := known[nic]; !ok {
			continue
		}
		if _, dup := seen[nic]; dup {
			continue
		}
		seen[nic] = struct{}{}
		kept = append(kept, nic)
	}
	if len(kept) == 0 {
		return nil, ErrNoNIC
	}
	sort.Strings(kept)

	sinks := make(map[string]*Sink, len(kept))
	closeAll := func() {
		for _, s := range sinks {
			s.Close()
		}
	}
	for _, nic := range kept {
		sink, err := NewSink(fmt.Sprintf(pattern, nic), flush)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("nic monitor: open sink for %s: %w", nic, err)
		}
		sinks[nic] = sink
		if err := sink.WriteRow(netHeader...); err != nil {
			closeAll()
			return nil, fmt.Errorf("nic monitor: write header for %s: %w", nic, err)
		}
	}

	counters, err := src.NetIOCounters()
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("nic monitor: io counters: %w", err)
	}
	prev := make(map[string]stat.NetIOSnapshot, len(kept))
	for _, nic := range kept {
		prev[nic] = counters[nic]
	}

	m := &NetworkMonitor{
		src:   src,
		nics:  kept,
		sinks: sinks,
		prev:  prev,
		now:   time.Now,
	}
	m.start = m.now().Unix()
	slog.Info("nic monitor started", "nics", kept)
	if err := m.Poll(); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

// Poll writes one row per monitored interface, each delta computed against
// that interface's own previous snapshot. The previous mapping is replaced
// as a whole only after every row was written. An interface missing from a
// reading (driver reload, hot-unplug) keeps its last real snapshot, so a
// reappearance is diffed against that snapshot and not against zero.
func (m *NetworkMonitor) Poll() error {
	ts := m.now().Unix()
	uptime := ts - m.start

	counters, err := m.src.NetIOCounters()
	if err != nil {
		return fmt.Errorf("nic monitor: io counters: %w", err)
	}
	for _, nic := range m.nics {
		curr := counters[nic]
		prev := m.prev[nic]
		row := []string{
			i64(ts), i64(uptime), nic,
			u64(types.Bytes(util.DeltaU64(curr.BytesSent, prev.BytesSent)).MiB()),
			u64(types.Bytes(util.DeltaU64(curr.BytesRecv, prev.BytesRecv)).MiB()),
			u64(util.DeltaU64(curr.PacketsSent, prev.PacketsSent)),
			u64(util.DeltaU64(curr.PacketsRecv, prev.PacketsRecv)),
			u64(util.DeltaU64(curr.ErrIn, prev.ErrIn)),
			u64(util.DeltaU64(curr.ErrOut, prev.ErrOut)),
			u64(util.DeltaU64(curr.DropIn, prev.DropIn)),
			u64(util.DeltaU64(curr.DropOut, prev.DropOut)),
		}
		if err := m.sinks[nic].WriteRow(row...); err != nil {
			return fmt.Errorf("nic monitor: write row for %s: %w", nic, err)
		}
	}
	next := make(map[string]stat.NetIOSnapshot, len(m.nics))
	for _, nic := range m.nics {
		if curr, ok := counters[nic]; ok {
			next[nic] = curr
		} else {
			next[nic] = m.prev[nic]
		}
	}
	m.prev = next
	return nil
}

// Close releases every interface sink.
func (m *NetworkMonitor) Close() error {
	var err error
	for _, nic := range m.nics {
		if cerr := m.sinks[nic].Close(); err == nil {
			err = cerr
		}
	}
	slog.Info("nic monitor closed")
	return err
}
