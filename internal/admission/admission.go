// Package admission controls whether new players may enter the survival
// mode. When the gate closes, players already inside get a grace window
// before being ejected by the admission sweep; reopening the gate before
// a player's deadline cancels the eject.
package admission

import (
	"sync"
	"time"

	"github.com/nyaacat/kedama-survivors/internal/platform/errors"
	"github.com/nyaacat/kedama-survivors/internal/state"
)

// Gate is the admission switch. One instance per registry.
type Gate struct {
	mu sync.Mutex

	reg   *state.Registry
	delay time.Duration
	now   func() time.Time

	open    bool
	ejectAt map[string]time.Time
}

// NewGate creates an open gate over the registry.
func NewGate(reg *state.Registry, delay time.Duration) *Gate {
	return &Gate{
		reg:     reg,
		delay:   delay,
		now:     time.Now,
		open:    true,
		ejectAt: map[string]time.Time{},
	}
}

// IsOpen reports whether new players are admitted.
func (g *Gate) IsOpen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open
}

// Admit checks whether a player may enter. Closed gates reject everyone,
// including returning players; a player already pending eject gets
// their deadline in the rejection metadata.
func (g *Gate) Admit(playerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if playerID == "" {
		return errors.New(errors.CodeSessionEmptyPlayerID, "player id is required")
	}
	if !g.open {
		if deadline, pending := g.ejectAt[playerID]; pending {
			return errors.WithMetadata(errors.CodeAdmissionDisabled, "admission is disabled", map[string]string{
				"eject_at": deadline.UTC().Format(time.RFC3339),
			})
		}
		return errors.New(errors.CodeAdmissionDisabled, "admission is disabled")
	}
	return nil
}

// Close shuts the gate and starts the eject grace window for the given
// players. Players already pending keep their original deadline.
func (g *Gate) Close(playerIDs []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.open = false
	deadline := g.now().Add(g.delay)
	for _, pid := range playerIDs {
		if _, pending := g.ejectAt[pid]; pending {
			continue
		}
		s, ok := g.reg.Session(pid)
		if !ok {
			continue
		}
		s.BeginGraceEject()
		g.ejectAt[pid] = deadline
	}
}

// Open reopens the gate and cancels every pending eject. Players with a
// live run resume it; everyone else returns to the lobby.
func (g *Gate) Open() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.open = true
	for pid := range g.ejectAt {
		delete(g.ejectAt, pid)
		s, ok := g.reg.Session(pid)
		if !ok {
			continue
		}
		if _, inRun := g.reg.RunOf(pid); inRun {
			s.CancelGraceEject()
			continue
		}
		s.EndRun()
	}
}

// PendingEjects returns the number of players awaiting eject.
func (g *Gate) PendingEjects() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.ejectAt)
}

// SweepEjects finalizes ejects whose deadline passed and returns how
// many players were ejected.
func (g *Gate) SweepEjects(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	ejected := 0
	for pid, deadline := range g.ejectAt {
		if now.Before(deadline) {
			continue
		}
		delete(g.ejectAt, pid)
		if err := g.reg.EjectPlayer(pid); err != nil {
			continue
		}
		ejected++
	}
	return ejected
}
