package monitor

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hostwatch/resmon/pkg/system/stat"
	"github.com/hostwatch/resmon/pkg/system/util"
	"github.com/hostwatch/resmon/pkg/types"
)

// aggMetrics lists the aggregate columns in lexicographic order; the header
// and every row emit them in exactly this order.
var aggMetrics = []string{
	"%CPU", "%MEM",
	"io.read", "io.read.MB", "io.write", "io.write.MB",
	"mem.rss.MB",
}

// MatchSpec selects the process group: an explicit PID set plus lowercase
// name-substring keywords. Static for the monitor's lifetime.
//
// Keyword matching is intentionally coarse: substring on the lowercased
// process name, no exact-match mode. Descendants of a matched process are
// not discovered; only PIDs and keywords select membership.
type MatchSpec struct {
	PIDs     map[int32]struct{}
	Keywords []string
}

// NewMatchSpec builds a MatchSpec; keywords are lowercased and blanks dropped.
func NewMatchSpec(pids []int32, keywords []string) MatchSpec {
	set := make(map[int32]struct{}, len(pids))
	for _, pid := range pids {
		set[pid] = struct{}{}
	}
	kws := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			kws = append(kws, k)
		}
	}
	return MatchSpec{PIDs: set, Keywords: kws}
}

// Empty reports whether the spec can never match anything.
func (s MatchSpec) Empty() bool { return len(s.PIDs) == 0 && len(s.Keywords) == 0 }

// Matches reports whether a process belongs to the group.
func (s MatchSpec) Matches(pid int32, name string) bool {
	if _, ok := s.PIDs[pid]; ok {
		return true
	}
	lower := strings.ToLower(name)
	for _, k := range s.Keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// ProcessGroupMonitor aggregates resource usage over a dynamically matched
// set of processes into one summed row per poll.
type ProcessGroupMonitor struct {
	src   stat.Source
	sink  *Sink
	spec  MatchSpec
	start int64
	now   func() time.Time
}

// NewProcessGroupMonitor opens the sink, writes the header and performs the
// initial poll. An empty outfile writes to standard output.
func NewProcessGroupMonitor(src stat.Source, spec MatchSpec, outfile string, flush bool) (*ProcessGroupMonitor, error) {
	sink, err := NewSink(outfile, flush)
	if err != nil {
		return nil, fmt.Errorf("process set monitor: %w", err)
	}
	header := append([]string{"Timestamp", "Uptime"}, aggMetrics...)
	if err := sink.WriteRow(header...); err != nil {
		sink.Close()
		return nil, fmt.Errorf("process set monitor: write header: %w", err)
	}

	m := &ProcessGroupMonitor{
		src:  src,
		sink: sink,
		spec: spec,
		now:  time.Now,
	}
	m.start = m.now().Unix()
	slog.Info("process set monitor started", "pids", len(spec.PIDs), "keywords", len(spec.Keywords))
	if err := m.Poll(); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

// Poll enumerates running processes, sums the usage of every matched process
// into a fresh aggregate row and writes it. A process matched by both rules
// contributes once. Processes that vanish or deny access between enumeration
// and the metric read are skipped silently; only enumeration and sink
// failures surface.
func (m *ProcessGroupMonitor) Poll() error {
	ts := m.now().Unix()
	uptime := ts - m.start

	// Both the visited set and the aggregate row are scoped to this poll:
	// OS PIDs may be reused after a process exits, so no identity survives
	// across polls.
	visited := make(map[int32]struct{})
	agg := make(map[string]float64, len(aggMetrics))

	procs, err := m.src.Processes()
	if err != nil {
		return fmt.Errorf("process set monitor: enumerate: %w", err)
	}
	for _, p := range procs {
		if !m.spec.Matches(p.PID, p.Name) {
			continue
		}
		if _, seen := visited[p.PID]; seen {
			continue
		}
		visited[p.PID] = struct{}{}

		ps, err := m.src.ProcessStats(p.PID)
		if err != nil {
			// exited or access denied between enumeration and read
			continue
		}
		agg["io.read"] += float64(ps.IOReadCount)
		agg["io.write"] += float64(ps.IOWriteCount)
		agg["io.read.MB"] += float64(types.Bytes(ps.IOReadBytes).MiB())
		agg["io.write.MB"] += float64(types.Bytes(ps.IOWriteBytes).MiB())
		agg["mem.rss.MB"] += float64(types.Bytes(ps.RSS).MiB())
		agg["%MEM"] += ps.MemPercent
		agg["%CPU"] += ps.CPUPercent
	}

	fields := make([]string, 0, 2+len(aggMetrics))
	fields = append(fields, i64(ts), i64(uptime))
	for _, name := range aggMetrics {
		fields = append(fields, util.FmtFloat(agg[name]))
	}
	if err := m.sink.WriteRow(fields...); err != nil {
		return fmt.Errorf("process set monitor: write row: %w", err)
	}
	return nil
}

// Close releases the sink.
func (m *ProcessGroupMonitor) Close() error {
	err := m.sink.Close()
	slog.Info("process set monitor closed")
	return err
}
