// Package reconcile runs the fixed-interval background sweeps that
// apply deadline-based transitions: cooldown expiry, disconnect-grace
// expiry, countdown completion and admission ejects. Deadlines are
// absolute instants evaluated lazily on each tick; there are no
// per-event timers, so cancelling a pending transition is just clearing
// its deadline field.
package reconcile

import (
	"context"
	"log"
	"time"
)

// SweepFunc applies one reconciliation pass and returns how many
// transitions it performed.
type SweepFunc func(now time.Time) int

// Sweeper drives one SweepFunc on a fixed tick.
type Sweeper struct {
	name     string
	interval time.Duration
	sweep    SweepFunc
	now      func() time.Time
}

// NewSweeper creates a sweeper. The interval must be positive.
func NewSweeper(name string, interval time.Duration, sweep SweepFunc) *Sweeper {
	if interval <= 0 {
		interval = time.Second
	}
	return &Sweeper{
		name:     name,
		interval: interval,
		sweep:    sweep,
		now:      time.Now,
	}
}

// Run ticks until the context is cancelled. Returns nil on cancellation
// so it composes with an error group shutdown.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.sweep(s.now()); n > 0 {
				log.Printf("%s sweep applied %d transitions", s.name, n)
			}
		}
	}
}

// Tick runs one pass immediately, outside the ticker. Used by tests and
// by callers that want expiry applied before reading state.
func (s *Sweeper) Tick() int {
	return s.sweep(s.now())
}
