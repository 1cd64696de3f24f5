package util

import (
	"fmt"
	"strconv"
	"strings"
)

// DeltaU64 returns now-prev for a cumulative counter, clamped to zero when
// the counter decreased (wrap, reset, or prev unset). Negative deltas never
// pass through to the output rows.
func DeltaU64(now, prev uint64) uint64 {
	if now >= prev {
		return now - prev
	}
	// counter wrapped or prev unset
	return 0
}

// FmtFloat renders a float with the shortest representation that round-trips,
// so integral aggregates print without a trailing ".0".
func FmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParsePIDs parses PID arguments. Each element is either a single PID ("1234")
// or an inclusive range ("30000..30032").
func ParsePIDs(args []string) ([]int32, error) {
	var pids []int32
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}
		lo, hi, ok := strings.Cut(arg, "..")
		if !ok {
			v, err := strconv.ParseInt(arg, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("parse pid %q: %w", arg, err)
			}
			pids = append(pids, int32(v))
			continue
		}
		from, err := strconv.ParseInt(lo, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("parse pid range %q: %w", arg, err)
		}
		to, err := strconv.ParseInt(hi, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("parse pid range %q: %w", arg, err)
		}
		if to < from {
			return nil, fmt.Errorf("parse pid range %q: upper bound below lower", arg)
		}
		for v := from; v <= to; v++ {
			pids = append(pids, int32(v))
		}
	}
	return pids, nil
}
