// Package sched drives the monitors on a shared, drift-free cadence anchored
// to a fixed start time. It is a single-threaded control loop over an
// ordered queue of (fire time, priority, monitor) events; polls never run
// concurrently.
package sched

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Tie-break priorities for events sharing a fire time; lower runs first.
// The process group poll runs before traffic and resources because it is
// the most sensitive to being delayed by the others.
const (
	PriorityProcessGroup = 0
	PriorityNetwork      = 1
	PriorityResource     = 2
)

type entry struct {
	priority int
	name     string
	poll     func() error
}

type event struct {
	at       time.Time
	priority int
	name     string
	poll     func() error
}

// Scheduler fires every registered monitor once per tick, at the absolute
// time start + i*delay for increasing tick i. An overrunning poll delays
// later events of the same tick (events run late, never dropped) but never
// shifts the anchored schedule of subsequent ticks.
type Scheduler struct {
	start   time.Time
	delay   time.Duration
	entries []entry
	queue   []event
	now     func() time.Time
}

// New returns a scheduler anchored at start with a fixed delay between ticks.
func New(start time.Time, delay time.Duration) *Scheduler {
	return &Scheduler{start: start, delay: delay, now: time.Now}
}

// Register adds a monitor poll with its fixed tie-break priority.
func (s *Scheduler) Register(priority int, name string, poll func() error) {
	s.entries = append(s.entries, entry{priority: priority, name: name, poll: poll})
}

// FireTime returns the absolute fire time of tick i: start + i*delay, never
// lastFire + delay.
func (s *Scheduler) FireTime(i int64) time.Time {
	return s.start.Add(time.Duration(i) * s.delay)
}

// Run enqueues and drains one tick's events at a time, indefinitely, until
// ctx is cancelled or a poll returns an error. Cancellation is observed
// between events, not within a running poll.
func (s *Scheduler) Run(ctx context.Context) error {
	for i := int64(1); ; i++ {
		at := s.FireTime(i)
		for _, e := range s.entries {
			s.push(event{at: at, priority: e.priority, name: e.name, poll: e.poll})
		}
		if err := s.drain(ctx); err != nil {
			return err
		}
	}
}

// push inserts an event keeping the queue ordered by (fire time, priority).
func (s *Scheduler) push(ev event) {
	idx := sort.Search(len(s.queue), func(i int) bool {
		q := s.queue[i]
		if !q.at.Equal(ev.at) {
			return q.at.After(ev.at)
		}
		return q.priority > ev.priority
	})
	s.queue = append(s.queue, event{})
	copy(s.queue[idx+1:], s.queue[idx:])
	s.queue[idx] = ev
}

func (s *Scheduler) drain(ctx context.Context) error {
	for len(s.queue) > 0 {
		ev := s.queue[0]
		s.queue = s.queue[1:]
		if err := s.sleepUntil(ctx, ev.at); err != nil {
			return err
		}
		if err := ev.poll(); err != nil {
			return fmt.Errorf("sched: %s: %w", ev.name, err)
		}
	}
	return nil
}

func (s *Scheduler) sleepUntil(ctx context.Context, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d := at.Sub(s.now())
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
