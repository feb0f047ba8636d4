package state

import (
	"time"

	"github.com/nyaacat/kedama-survivors/internal/run"
	"github.com/nyaacat/kedama-survivors/internal/session"
)

// SweepCooldowns moves players whose cooldown deadline passed back to
// the lobby and returns how many transitioned. Candidates whose mode
// changed underneath are dropped from tracking without effect.
func (r *Registry) SweepCooldowns(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	released := 0
	for pid := range r.cooldown {
		s, ok := r.sessions[pid]
		if !ok || s.Mode() != session.ModeCooldown {
			delete(r.cooldown, pid)
			continue
		}
		if s.IsOnCooldown(now) {
			continue
		}
		if s.FinishCooldown() {
			released++
		}
		delete(r.cooldown, pid)
	}
	return released
}

// SweepDisconnects expires players whose disconnect grace ran out.
// Expiry counts as a soft death: the player drops to cooldown, leaves
// their run and team, and the run ends in a wipe when nobody
// recoverable is left. Grace expiry is always processed before the wipe
// evaluation so a single sweep sees its own effects.
func (r *Registry) SweepDisconnects(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	expired := 0
	for pid := range r.disconnected {
		s, ok := r.sessions[pid]
		if !ok || s.Mode() != session.ModeDisconnected {
			delete(r.disconnected, pid)
			continue
		}
		if s.IsWithinGrace(now, r.rules.DisconnectGrace) {
			continue
		}
		delete(r.disconnected, pid)
		expired++

		rn, inRun := r.runOfLocked(pid)
		if inRun {
			rn.MarkDead(pid)
		}
		delete(r.playerToRun, pid)
		r.lifetimeLocked(pid).AddDeaths(1)
		if s.LeaveRun(now.Add(r.rules.DeathCooldown)) {
			r.cooldown[pid] = struct{}{}
		}

		t, inTeam := r.teamOfLocked(pid)
		if inTeam {
			t.PurgeExpiredDisconnects(now, r.rules.DisconnectGrace)
		}
		r.detachFromTeamLocked(pid)

		if inRun && rn.IsActive() {
			if rn.AliveCount() == 0 || (inTeam && t.IsWiped(rn.AliveSet(), now, r.rules.DisconnectGrace)) {
				r.endRunLocked(rn, run.EndReasonWipe)
			}
		}
	}
	return expired
}

// SweepCountdowns starts runs for teams whose countdown deadline
// passed. A countdown that can no longer start (team gone, nobody left
// in countdown mode) is cancelled instead. Returns the number of runs
// started.
func (r *Registry) SweepCountdowns(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	started := 0
	for teamID, deadline := range r.countdowns {
		if now.Before(deadline) {
			continue
		}
		delete(r.countdowns, teamID)
		t, ok := r.teams[teamID]
		if !ok {
			continue
		}
		if _, err := r.startRunLocked(teamID); err != nil {
			for _, pid := range t.Members() {
				if s, ok := r.sessions[pid]; ok {
					s.CancelCountdown()
				}
			}
			t.ClearReady()
			continue
		}
		started++
	}
	return started
}
