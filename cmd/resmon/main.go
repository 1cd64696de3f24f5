//go:build linux

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hostwatch/resmon/pkg/monitor"
	"github.com/hostwatch/resmon/pkg/sched"
	"github.com/hostwatch/resmon/pkg/system/stat"
	"github.com/hostwatch/resmon/pkg/system/util"
	"github.com/hostwatch/resmon/pkg/types"
)

const nicFilePattern = "netstat.%s.csv"

type opts struct {
	psPIDs    []string
	psNames   []string
	psOutfile string
	nics      []string
	outfile   string
	flush     bool
	delay     int
}

func main() {
	var o opts

	root := &cobra.Command{
		Use:   "resmon",
		Short: "Periodic host resource monitor",
		Long: `resmon samples system-wide CPU/memory/swap/disk counters, per-NIC traffic
and the aggregated usage of a matched process set at a fixed cadence,
writing each stream as comma-separated rows.

Examples:
  resmon --flush --delay 2
  resmon --nic eth0 --nic lo --outfile res.csv
  resmon --ps-pids 1234,30000..30032 --ps-names nginx --ps-outfile web.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), o, cmd.Flags().Changed("nic"))
		},
	}

	root.Flags().StringSliceVar(&o.psPIDs, "ps-pids", nil, "PIDs to include in the process set (N or N..M)")
	root.Flags().StringSliceVar(&o.psNames, "ps-names", nil, "name keywords to include in the process set (case-insensitive substring)")
	root.Flags().StringVar(&o.psOutfile, "ps-outfile", "resprofile.csv", "output file for the process set monitor")
	root.Flags().StringSliceVar(&o.nics, "nic", nil, "network interface names to monitor")
	root.Flags().StringVar(&o.outfile, "outfile", "", "output file for the resource monitor (default stdout)")
	root.Flags().BoolVar(&o.flush, "flush", false, "flush output after each line")
	root.Flags().IntVar(&o.delay, "delay", 5, "delay in seconds between each poll")

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, o opts, nicMon bool) error {
	if o.delay <= 0 {
		return fmt.Errorf("delay must be > 0")
	}
	pids, err := util.ParsePIDs(o.psPIDs)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	chprio(-20)

	src := stat.NewSystemSource()
	if vm, err := src.VirtualMemory(); err == nil {
		slog.Info("host memory", "total", types.Bytes(vm.Total).Humanized())
	}

	s := sched.New(time.Now(), time.Duration(o.delay)*time.Second)

	// Every constructed monitor goes into this slice immediately, so the
	// deferred cleanup closes whatever is open even when an interrupt or a
	// construction error arrives mid-startup. Close is idempotent.
	var monitors []monitor.Monitor
	defer func() {
		for _, m := range monitors {
			m.Close()
		}
	}()

	rm, err := monitor.NewResourceMonitor(src, o.outfile, o.flush)
	if err != nil {
		return err
	}
	monitors = append(monitors, rm)
	s.Register(sched.PriorityResource, "resource", rm.Poll)

	if nicMon {
		nm, err := monitor.NewNetworkMonitor(src, nicFilePattern, o.nics, o.flush)
		if err != nil {
			return err
		}
		monitors = append(monitors, nm)
		s.Register(sched.PriorityNetwork, "network", nm.Poll)
	}

	if spec := monitor.NewMatchSpec(pids, o.psNames); !spec.Empty() {
		pm, err := monitor.NewProcessGroupMonitor(src, spec, o.psOutfile, o.flush)
		if err != nil {
			return err
		}
		monitors = append(monitors, pm)
		s.Register(sched.PriorityProcessGroup, "process set", pm.Poll)
	}

	err = s.Run(ctx)
	if errors.Is(err, context.Canceled) {
		fmt.Println("Monitoring interrupted. Exiting.")
		return nil
	}
	return err
}

// chprio adjusts the sampler's own scheduling priority. Lack of permission
// is only a warning.
func chprio(prio int) {
	if err := syscall.Setpriority(syscall.PRIO_PROCESS, 0, prio); err != nil {
		slog.Warn("failed to elevate priority", "err", err)
	}
}
