package monitor

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hostwatch/resmon/pkg/system/stat"
)

// fakeSource scripts Source readings. Sequenced fields (disk, net) pop one
// snapshot per call and keep returning the last one once exhausted.
type fakeSource struct {
	ncores int
	cpu    float64
	percpu []float64
	vm     stat.MemSnapshot
	swap   stat.SwapSnapshot
	disk   []stat.DiskIOSnapshot
	nics   map[string]struct{}
	net    []map[string]stat.NetIOSnapshot
	procs  []stat.ProcInfo
	stats  map[int32]stat.ProcSnapshot
	gone   map[int32]bool

	statCalls map[int32]int
}

func (f *fakeSource) CPUCounts() (int, error) { return f.ncores, nil }

func (f *fakeSource) CPUPercent() (float64, error) { return f.cpu, nil }

func (f *fakeSource) PerCPUPercent() ([]float64, error) { return f.percpu, nil }

func (f *fakeSource) VirtualMemory() (stat.MemSnapshot, error) { return f.vm, nil }
func (f *fakeSource) SwapMemory() (stat.SwapSnapshot, error)   { return f.swap, nil }

func (f *fakeSource) DiskIOCounters() (stat.DiskIOSnapshot, error) {
	if len(f.disk) == 0 {
		return stat.DiskIOSnapshot{}, nil
	}
	d := f.disk[0]
	if len(f.disk) > 1 {
		f.disk = f.disk[1:]
	}
	return d, nil
}

func (f *fakeSource) NICNames() (map[string]struct{}, error) { return f.nics, nil }

func (f *fakeSource) NetIOCounters() (map[string]stat.NetIOSnapshot, error) {
	if len(f.net) == 0 {
		return map[string]stat.NetIOSnapshot{}, nil
	}
	n := f.net[0]
	if len(f.net) > 1 {
		f.net = f.net[1:]
	}
	return n, nil
}

func (f *fakeSource) Processes() ([]stat.ProcInfo, error) { return f.procs, nil }

func (f *fakeSource) ProcessStats(pid int32) (stat.ProcSnapshot, error) {
	if f.statCalls != nil {
		f.statCalls[pid]++
	}
	if f.gone[pid] {
		return stat.ProcSnapshot{}, stat.ErrProcGone
	}
	return f.stats[pid], nil
}

// readRows parses a sink file back into per-line field slices.
func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	rows := make([][]string, len(lines))
	for i, l := range lines {
		rows[i] = strings.Split(l, ", ")
	}
	return rows
}
