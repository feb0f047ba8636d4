package state

import (
	"github.com/nyaacat/kedama-survivors/internal/gameconfig"
	"github.com/nyaacat/kedama-survivors/internal/platform/errors"
	"github.com/nyaacat/kedama-survivors/internal/run"
	"github.com/nyaacat/kedama-survivors/internal/session"
)

// StartRun creates and activates a run for a team whose countdown
// completed. Participants are the members still in countdown mode;
// members who dropped out during the countdown simply never enter.
func (r *Registry) StartRun(teamID string) (*run.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startRunLocked(teamID)
}

func (r *Registry) startRunLocked(teamID string) (*run.Run, error) {
	t, ok := r.teams[teamID]
	if !ok {
		return nil, errNotFound("team", teamID)
	}
	if len(r.arenas) == 0 {
		return nil, errors.New(errors.CodeRunNoArenas, "no arenas configured")
	}
	if t.RunID() != "" {
		return nil, errors.New(errors.CodeTeamBoundToRun, "team is already in a run")
	}

	var participants []string
	for _, pid := range t.Members() {
		s, ok := r.sessions[pid]
		if !ok {
			continue
		}
		if s.Mode() == session.ModeCountdown {
			participants = append(participants, pid)
		}
	}
	if len(participants) == 0 {
		return nil, errors.New(errors.CodeRunNoSurvivors, "no members ready to enter")
	}

	runID, err := r.newID()
	if err != nil {
		return nil, errors.Wrap(errors.CodeUnknown, "generate run id", err)
	}
	arena := r.arenas[r.rng.Intn(len(r.arenas))]
	rn := run.New(runID, teamID, arena.Name, participants, arena.SpawnPoints, r.now())

	r.runs[runID] = rn
	r.teamToRun[teamID] = runID
	t.SetRunID(runID)
	delete(r.countdowns, teamID)
	for _, pid := range participants {
		r.playerToRun[pid] = runID
		if s, ok := r.sessions[pid]; ok {
			s.EnterRun(runID)
		}
		r.lifetimeLocked(pid).RecordRunStart(r.now())
	}
	rn.Activate()
	return rn, nil
}

// EndRun ends a run for the given reason and releases every participant.
// Only the first end for a run has effect.
func (r *Registry) EndRun(runID string, reason run.EndReason) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rn, ok := r.runs[runID]
	if !ok {
		return errNotFound("run", runID)
	}
	r.endRunLocked(rn, reason)
	return nil
}

func (r *Registry) endRunLocked(rn *run.Run, reason run.EndReason) {
	now := r.now()
	if !rn.BeginEnd(reason, now) {
		return
	}
	duration := rn.Elapsed(now)
	summary := rn.Summarize()
	completed := reason == run.EndReasonNormal

	for _, pid := range rn.Participants() {
		delete(r.playerToRun, pid)
		delete(r.disconnected, pid)
		s, ok := r.sessions[pid]
		if ok {
			if completed {
				s.EndRun()
			} else if s.LeaveRun(now.Add(r.rules.DeathCooldown)) {
				r.cooldown[pid] = struct{}{}
			}
		}
		r.lifetimeLocked(pid).RecordRunEnd(duration, summary.Wave, completed)
	}

	if t, ok := r.teams[rn.TeamID()]; ok {
		t.ResetForNewRun()
	}
	delete(r.teamToRun, rn.TeamID())
	rn.ClearEnemies()
}

// CompleteRun moves an ended run to its terminal status once reward and
// persistence collaborators consumed its summary.
func (r *Registry) CompleteRun(runID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rn, ok := r.runs[runID]
	if !ok {
		return errNotFound("run", runID)
	}
	if !rn.Complete() {
		return errors.New(errors.CodeRunNotActive, "run is not ending")
	}
	return nil
}

// RemoveRun drops a completed run from the registry once its final
// state has been consumed by persistence.
func (r *Registry) RemoveRun(runID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rn, ok := r.runs[runID]
	if !ok {
		return errNotFound("run", runID)
	}
	if rn.Status() != run.StatusCompleted {
		return errors.New(errors.CodeRunNotActive, "run has not completed")
	}
	delete(r.runs, runID)
	return nil
}

// HandleDeath applies a player death: the run records it, the session
// drops to cooldown and the run ends in a wipe when nobody is left
// alive.
func (r *Registry) HandleDeath(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rn, ok := r.runOfLocked(playerID)
	if !ok {
		return errors.New(errors.CodeSessionNotInRun, "player is not in a run")
	}
	if !rn.MarkDead(playerID) {
		return nil
	}
	r.lifetimeLocked(playerID).AddDeaths(1)
	delete(r.playerToRun, playerID)
	if s, ok := r.sessions[playerID]; ok {
		if s.LeaveRun(r.now().Add(r.rules.DeathCooldown)) {
			r.cooldown[playerID] = struct{}{}
		}
	}
	if rn.AliveCount() == 0 {
		r.endRunLocked(rn, run.EndReasonWipe)
	}
	return nil
}

// Respawn returns a dead participant to their still-active run with a
// short invulnerability shield. The death cooldown must have lapsed.
func (r *Registry) Respawn(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[playerID]
	if !ok {
		return errNotFound("player", playerID)
	}
	t, ok := r.teamOfLocked(playerID)
	if !ok {
		return errors.New(errors.CodeTeamNotInTeam, "player is not in a team")
	}
	runID, ok := r.teamToRun[t.TeamID()]
	if !ok {
		return errors.New(errors.CodeSessionNotInRun, "team has no active run")
	}
	rn := r.runs[runID]
	if rn == nil || !rn.IsActive() {
		return errors.New(errors.CodeRunNotActive, "run is not active")
	}
	if s.IsOnCooldown(r.now()) {
		return errors.New(errors.CodeSessionOnCooldown, "player is on cooldown")
	}
	if !rn.MarkAlive(playerID) {
		return errors.New(errors.CodeSessionNotInRun, "player never entered this run")
	}
	if !s.RejoinRun(runID) {
		return errors.New(errors.CodeSessionInRun, "player cannot rejoin from the current mode")
	}
	delete(r.cooldown, playerID)
	r.playerToRun[playerID] = runID
	s.SetInvulnerableUntil(r.now().Add(r.rules.RespawnShield))
	return nil
}

// QuitRun handles a voluntary mid-run quit. Quitting counts as a death
// for penalty purposes and can wipe the team.
func (r *Registry) QuitRun(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rn, ok := r.runOfLocked(playerID)
	if !ok {
		return errors.New(errors.CodeSessionNotInRun, "player is not in a run")
	}
	if rn.MarkDead(playerID) {
		r.lifetimeLocked(playerID).AddDeaths(1)
	}
	delete(r.playerToRun, playerID)
	delete(r.disconnected, playerID)
	if s, ok := r.sessions[playerID]; ok {
		if s.LeaveRun(r.now().Add(r.rules.QuitCooldown)) {
			r.cooldown[playerID] = struct{}{}
		}
	}
	if t, ok := r.teams[rn.TeamID()]; ok {
		t.MarkReconnected(playerID)
	}
	if rn.AliveCount() == 0 {
		r.endRunLocked(rn, run.EndReasonWipe)
	}
	return nil
}

// HandleDisconnect records a network drop. An in-run player enters the
// grace window; a countdown is cancelled for the whole team; a ready
// player simply backs out.
func (r *Registry) HandleDisconnect(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[playerID]
	if !ok {
		return
	}
	switch s.Mode() {
	case session.ModeInRun:
		if s.MarkDisconnected(r.now()) {
			r.disconnected[playerID] = struct{}{}
			if t, ok := r.teamOfLocked(playerID); ok {
				t.MarkDisconnected(playerID, r.now())
			}
		}
	case session.ModeCountdown:
		if t, ok := r.teamOfLocked(playerID); ok {
			r.cancelCountdownLocked(t)
			t.SetReady(playerID, false)
		}
		s.ClearReady()
	case session.ModeReady:
		s.ClearReady()
		if t, ok := r.teamOfLocked(playerID); ok {
			t.SetReady(playerID, false)
		}
	}
}

// HandleReconnect restores a player who returned within grace. A player
// whose run ended while they were away falls back to the lobby.
func (r *Registry) HandleReconnect(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[playerID]
	if !ok || s.Mode() != session.ModeDisconnected {
		return
	}
	delete(r.disconnected, playerID)
	if t, ok := r.teamOfLocked(playerID); ok {
		t.MarkReconnected(playerID)
	}
	if _, ok := r.runOfLocked(playerID); !ok {
		// Stale run reference: recover to the lobby.
		s.EndRun()
		return
	}
	s.Reconnect()
}

// RecordKill credits a kill to a player and their run.
func (r *Registry) RecordKill(playerID string, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rn, ok := r.runOfLocked(playerID); ok {
		rn.AddKills(count)
	}
	r.lifetimeLocked(playerID).AddKills(count)
}

// RecordCoins credits coins to a player and their run.
func (r *Registry) RecordCoins(playerID string, amount int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rn, ok := r.runOfLocked(playerID); ok {
		rn.AddCoins(amount)
	}
	if s, ok := r.sessions[playerID]; ok {
		s.AddCoinsEarned(amount)
	}
	r.lifetimeLocked(playerID).AddCoins(amount)
}

// RecordXP credits collected XP to a player and their run.
func (r *Registry) RecordXP(playerID string, amount int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rn, ok := r.runOfLocked(playerID); ok {
		rn.AddXP(amount)
	}
	r.lifetimeLocked(playerID).AddXP(amount)
}

// RecordWave records the wave a run has reached.
func (r *Registry) RecordWave(runID string, wave int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rn, ok := r.runs[runID]; ok {
		rn.AdvanceWave(wave)
	}
}

// Arenas returns the configured arena catalog.
func (r *Registry) Arenas() []gameconfig.Arena {
	return r.arenas
}

// detachFromRunLocked pulls a player out of their run without a
// penalty, for admin resets and ejects.
func (r *Registry) detachFromRunLocked(playerID string) {
	rn, ok := r.runOfLocked(playerID)
	delete(r.playerToRun, playerID)
	if !ok {
		return
	}
	rn.RemoveParticipant(playerID)
	if rn.AliveCount() == 0 && rn.IsActive() {
		r.endRunLocked(rn, run.EndReasonForced)
	}
}
