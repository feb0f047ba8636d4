package session

import "time"

// Transitions are guarded by the mode read under the session lock. A
// guard that no longer holds is reported as false, never as an error: a
// background sweep may have legitimately moved the session first, and the
// caller's intent is already satisfied or moot.

// MarkReady moves LOBBY -> READY. The registry checks team membership and
// pre-run setup before calling; this guard only covers the mode.
func (s *Session) MarkReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ModeLobby {
		return false
	}
	s.mode = ModeReady
	s.ready = true
	return true
}

// ClearReady moves READY -> LOBBY and drops the readiness flag.
func (s *Session) ClearReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ModeReady {
		s.ready = false
		return false
	}
	s.mode = ModeLobby
	s.ready = false
	return true
}

// BeginCountdown moves LOBBY/READY -> COUNTDOWN. The readiness flag is
// deliberately kept, so a cancelled countdown can restore READY.
func (s *Session) BeginCountdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ModeLobby && s.mode != ModeReady {
		return false
	}
	s.mode = ModeCountdown
	return true
}

// CancelCountdown moves COUNTDOWN back to READY when the player is still
// flagged ready, otherwise to LOBBY.
func (s *Session) CancelCountdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ModeCountdown {
		return false
	}
	if s.ready {
		s.mode = ModeReady
	} else {
		s.mode = ModeLobby
	}
	return true
}

// EnterRun moves COUNTDOWN -> IN_RUN and binds the run reference. The
// readiness flag is consumed: a player is no longer "ready" once running.
func (s *Session) EnterRun(runID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ModeCountdown {
		return false
	}
	s.mode = ModeInRun
	s.runID = runID
	s.ready = false
	return true
}

// RejoinRun moves COOLDOWN/LOBBY -> IN_RUN for a player re-entering a
// still-live run after death. Clears any remaining cooldown.
func (s *Session) RejoinRun(runID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ModeCooldown && s.mode != ModeLobby {
		return false
	}
	s.mode = ModeInRun
	s.runID = runID
	s.ready = false
	s.cooldownUntil = time.Time{}
	return true
}

// LeaveRun moves IN_RUN/DISCONNECTED/GRACE_EJECT -> COOLDOWN, applies the
// run-state reset and stamps the cooldown deadline. Used for death,
// voluntary quit, grace expiry and eject.
func (s *Session) LeaveRun(cooldownUntil time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.mode {
	case ModeInRun, ModeDisconnected, ModeGraceEject:
	default:
		return false
	}
	s.resetRunStateLocked()
	s.mode = ModeCooldown
	s.cooldownUntil = cooldownUntil
	s.disconnectedAt = time.Time{}
	return true
}

// EndRun moves IN_RUN -> LOBBY without a cooldown, applying the run-state
// reset. Used when a run ends normally.
func (s *Session) EndRun() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.mode {
	case ModeInRun, ModeDisconnected, ModeGraceEject:
	default:
		return false
	}
	s.resetRunStateLocked()
	s.mode = ModeLobby
	s.disconnectedAt = time.Time{}
	return true
}

// MarkDisconnected moves IN_RUN -> DISCONNECTED and records the drop
// instant. The run reference is kept: the player remains a participant
// until grace expires or they reconnect.
func (s *Session) MarkDisconnected(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ModeInRun {
		return false
	}
	s.mode = ModeDisconnected
	s.disconnectedAt = now
	return true
}

// Reconnect moves DISCONNECTED -> IN_RUN before grace expiry.
func (s *Session) Reconnect() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ModeDisconnected {
		return false
	}
	s.mode = ModeInRun
	s.disconnectedAt = time.Time{}
	return true
}

// FinishCooldown moves COOLDOWN -> LOBBY and clears the deadline.
func (s *Session) FinishCooldown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ModeCooldown {
		return false
	}
	s.mode = ModeLobby
	s.cooldownUntil = time.Time{}
	return true
}

// BeginGraceEject moves any mode to GRACE_EJECT. Used when global
// admission is disabled; the session stays there until ejected or until
// admission is re-enabled.
func (s *Session) BeginGraceEject() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = ModeGraceEject
}

// CancelGraceEject restores GRACE_EJECT -> IN_RUN when admission is
// re-enabled before the eject deadline.
func (s *Session) CancelGraceEject() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ModeGraceEject {
		return false
	}
	s.mode = ModeInRun
	return true
}

// ResetRunState clears run-scoped fields (equipment, XP, run reference,
// readiness) while preserving identity, cooldown, and perma-score.
// Called on death and on run end.
func (s *Session) ResetRunState() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetRunStateLocked()
}

func (s *Session) resetRunStateLocked() {
	s.progress = Progress{XPRequired: defaultXPRequired, RunLevel: 1}
	s.equipment = Equipment{}
	s.upgradeDeadline = time.Time{}
	s.coinsEarned = 0
	s.runID = ""
	s.ready = false
}

// ResetAll restores the session to its freshly-created state, keeping
// only the identity. Used for admin kicks and full resets.
func (s *Session) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetRunStateLocked()
	s.mode = ModeLobby
	s.teamID = ""
	s.cooldownUntil = time.Time{}
	s.disconnectedAt = time.Time{}
	s.invulnerableUntil = time.Time{}
}
