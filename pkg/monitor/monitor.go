// Package monitor implements the three samplers of the telemetry loop:
// system-wide resources, per-NIC traffic, and an aggregated process group.
// Each monitor owns its sink(s) and its retained previous snapshot; state is
// mutated only by that monitor's own Poll, never shared across monitors.
package monitor

import "strconv"

// Monitor is one pollable telemetry stream.
type Monitor interface {
	// Poll captures one sample, computes deltas against the previous
	// snapshot, and writes one row per output stream.
	Poll() error

	// Close releases the monitor's sinks. Idempotent.
	Close() error
}

func i64(v int64) string { return strconv.FormatInt(v, 10) }

func u64(v uint64) string { return strconv.FormatUint(v, 10) }
