package session

import (
	"sync"
	"time"
)

// Equipment tracks the weapon and helmet a player carries during a run.
// Group/level resolution against item templates is owned by an external
// collaborator; this core only stores the references and max flags.
type Equipment struct {
	WeaponGroup string
	WeaponLevel int
	WeaponAtMax bool
	HelmetGroup string
	HelmetLevel int
	HelmetAtMax bool
}

// Progress tracks run-scoped XP and upgrade bookkeeping.
type Progress struct {
	XPProgress     int
	XPHeld         int
	XPRequired     int
	UpgradePending bool
	OverflowXP     int
	RunLevel       int
}

// Snapshot is a point-in-time copy of a session's observable state, used
// for admin reporting and persistence collaborators.
type Snapshot struct {
	PlayerID          string
	Name              string
	Mode              Mode
	TeamID            string
	RunID             string
	Ready             bool
	CooldownUntil     time.Time
	DisconnectedAt    time.Time
	InvulnerableUntil time.Time
	UpgradeDeadline   time.Time
	Equipment         Equipment
	Progress          Progress
	PermaScore        int
	CoinsEarned       int
}

const defaultXPRequired = 100

// Session is the per-player aggregate. Safe for concurrent use; every
// method takes the session lock.
type Session struct {
	mu sync.Mutex

	playerID string
	name     string

	mode   Mode
	teamID string
	runID  string
	ready  bool

	cooldownUntil     time.Time
	disconnectedAt    time.Time
	invulnerableUntil time.Time
	upgradeDeadline   time.Time

	equipment Equipment
	progress  Progress

	permaScore  int
	coinsEarned int
}

// New creates a session in the lobby state.
func New(playerID, name string) *Session {
	return &Session{
		playerID: playerID,
		name:     name,
		mode:     ModeLobby,
		progress: Progress{XPRequired: defaultXPRequired, RunLevel: 1},
	}
}

// PlayerID returns the stable player identifier.
func (s *Session) PlayerID() string { return s.playerID }

// Name returns the current display name.
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// SetName updates the display name.
func (s *Session) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

// Mode returns the current lifecycle mode.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// TeamID returns the current team reference, or "" when none.
func (s *Session) TeamID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.teamID
}

// SetTeamID sets or clears the team reference.
func (s *Session) SetTeamID(teamID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teamID = teamID
}

// RunID returns the current run reference, or "" when none.
func (s *Session) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// Ready reports whether the player has marked ready.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// SetReady sets the readiness flag. Meaningful only in the lobby.
func (s *Session) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// CooldownUntil returns the cooldown deadline; zero means no cooldown pending.
func (s *Session) CooldownUntil() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cooldownUntil
}

// DisconnectedAt returns the disconnect instant; zero means connected.
func (s *Session) DisconnectedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disconnectedAt
}

// IsOnCooldown reports whether the cooldown deadline is still in the future.
func (s *Session) IsOnCooldown(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cooldownUntil.After(now)
}

// IsInvulnerable reports whether respawn invulnerability is still active.
func (s *Session) IsInvulnerable(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invulnerableUntil.After(now)
}

// IsWithinGrace reports whether a disconnected player is still inside the
// disconnect grace window.
func (s *Session) IsWithinGrace(now time.Time, grace time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disconnectedAt.IsZero() {
		return false
	}
	return now.Sub(s.disconnectedAt) < grace
}

// SetInvulnerableUntil grants invulnerability until the given instant.
func (s *Session) SetInvulnerableUntil(until time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invulnerableUntil = until
}

// UpgradeDeadline returns the pending upgrade deadline; zero means none.
func (s *Session) UpgradeDeadline() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upgradeDeadline
}

// SetUpgradeDeadline sets or clears (zero time) the upgrade deadline.
func (s *Session) SetUpgradeDeadline(deadline time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upgradeDeadline = deadline
}

// Equipment returns a copy of the current equipment references.
func (s *Session) Equipment() Equipment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.equipment
}

// SetEquipment replaces the equipment references. Owned by the reward
// collaborator; the core only resets these on death or run end.
func (s *Session) SetEquipment(eq Equipment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.equipment = eq
}

// Progress returns a copy of the run-scoped XP bookkeeping.
func (s *Session) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// SetProgress replaces the run-scoped XP bookkeeping.
func (s *Session) SetProgress(p Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = p
}

// PlayerLevel is the player's effective level derived from equipment.
func (s *Session) PlayerLevel() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.equipment.WeaponLevel + s.equipment.HelmetLevel
}

// AtMaxLevel reports whether both weapon and helmet are at max level.
func (s *Session) AtMaxLevel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.equipment.WeaponAtMax && s.equipment.HelmetAtMax
}

// PermaScore returns the persistent score that survives run resets.
func (s *Session) PermaScore() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permaScore
}

// AddPermaScore accumulates persistent score.
func (s *Session) AddPermaScore(amount int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permaScore += amount
}

// CoinsEarned returns coins collected during the current run.
func (s *Session) CoinsEarned() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coinsEarned
}

// AddCoinsEarned accumulates coins for the current run.
func (s *Session) AddCoinsEarned(amount int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coinsEarned += amount
}

// Snapshot copies the observable state under one lock acquisition.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		PlayerID:          s.playerID,
		Name:              s.name,
		Mode:              s.mode,
		TeamID:            s.teamID,
		RunID:             s.runID,
		Ready:             s.ready,
		CooldownUntil:     s.cooldownUntil,
		DisconnectedAt:    s.disconnectedAt,
		InvulnerableUntil: s.invulnerableUntil,
		UpgradeDeadline:   s.upgradeDeadline,
		Equipment:         s.equipment,
		Progress:          s.progress,
		PermaScore:        s.permaScore,
		CoinsEarned:       s.coinsEarned,
	}
}
