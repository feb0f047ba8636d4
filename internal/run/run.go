// Package run holds the lifetime of a single expedition: who started it,
// who is still alive, per-player death counts and the monotonic score
// counters accumulated while it lasts. The aggregate tracks ids only and
// guards itself with one mutex.
package run

import (
	"math/rand"
	"sync"
	"time"
)

// Status is the run lifecycle phase. It only ever moves forward.
type Status int

const (
	StatusStarting Status = iota
	StatusActive
	StatusEnding
	StatusCompleted
)

var statusLabels = map[Status]string{
	StatusStarting:  "STARTING",
	StatusActive:    "ACTIVE",
	StatusEnding:    "ENDING",
	StatusCompleted: "COMPLETED",
}

func (s Status) String() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return "UNKNOWN"
}

// EndReason records why a run ended.
type EndReason int

const (
	EndReasonNormal EndReason = iota
	EndReasonWipe
	EndReasonDeath
	EndReasonForced
	EndReasonDisconnect
)

var endReasonLabels = map[EndReason]string{
	EndReasonNormal:     "NORMAL",
	EndReasonWipe:       "WIPE",
	EndReasonDeath:      "DEATH",
	EndReasonForced:     "FORCED",
	EndReasonDisconnect: "DISCONNECT",
}

func (r EndReason) String() string {
	if label, ok := endReasonLabels[r]; ok {
		return label
	}
	return "UNKNOWN"
}

// SpawnPoint is a position inside an arena.
type SpawnPoint struct {
	X float64
	Y float64
	Z float64
}

// Run is the expedition aggregate. The participant set is fixed at start
// plus explicit rejoins; the alive set is always a subset of it.
type Run struct {
	mu sync.Mutex

	runID     string
	teamID    string
	arena     string
	startedAt time.Time

	status    Status
	endReason EndReason
	endedAt   time.Time

	participants map[string]struct{}
	alive        map[string]struct{}
	deathCounts  map[string]int

	spawnPoints []SpawnPoint
	nextSpawn   int

	activeEnemies map[string]struct{}

	kills       int
	coinsEarned int
	xpCollected int
	wave        int
}

// New creates a run in StatusStarting with every founding participant
// alive.
func New(runID, teamID, arena string, participants []string, spawnPoints []SpawnPoint, startedAt time.Time) *Run {
	r := &Run{
		runID:         runID,
		teamID:        teamID,
		arena:         arena,
		startedAt:     startedAt,
		status:        StatusStarting,
		participants:  make(map[string]struct{}, len(participants)),
		alive:         make(map[string]struct{}, len(participants)),
		deathCounts:   map[string]int{},
		spawnPoints:   spawnPoints,
		activeEnemies: map[string]struct{}{},
	}
	for _, id := range participants {
		r.participants[id] = struct{}{}
		r.alive[id] = struct{}{}
	}
	return r
}

// RunID returns the unique run identifier.
func (r *Run) RunID() string { return r.runID }

// TeamID returns the owning team.
func (r *Run) TeamID() string { return r.teamID }

// Arena returns the arena name the run plays in.
func (r *Run) Arena() string { return r.arena }

// StartedAt returns the start instant.
func (r *Run) StartedAt() time.Time { return r.startedAt }

// Status returns the current lifecycle phase.
func (r *Run) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Activate moves the run from StatusStarting to StatusActive. Reports
// false from any other phase.
func (r *Run) Activate() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != StatusStarting {
		return false
	}
	r.status = StatusActive
	return true
}

// IsActive reports whether the run accepts gameplay mutations.
func (r *Run) IsActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status == StatusActive
}

// BeginEnd moves the run to StatusEnding and records the reason. The
// first caller wins; later calls report false and keep the original
// reason.
func (r *Run) BeginEnd(reason EndReason, at time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == StatusEnding || r.status == StatusCompleted {
		return false
	}
	r.status = StatusEnding
	r.endReason = reason
	r.endedAt = at
	return true
}

// Complete moves the run from StatusEnding to StatusCompleted.
func (r *Run) Complete() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != StatusEnding {
		return false
	}
	r.status = StatusCompleted
	return true
}

// EndReason returns the recorded reason; meaningful only once the run
// reached StatusEnding.
func (r *Run) EndReason() EndReason {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.endReason
}

// EndedAt returns the instant BeginEnd was accepted, zero before that.
func (r *Run) EndedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.endedAt
}

// Elapsed returns the run duration so far, or the final duration once
// ended. Always computed from instants, never accumulated.
func (r *Run) Elapsed(now time.Time) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.endedAt.IsZero() {
		return r.endedAt.Sub(r.startedAt)
	}
	return now.Sub(r.startedAt)
}

// IsParticipant reports whether the player belongs to the run.
func (r *Run) IsParticipant(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.participants[playerID]
	return ok
}

// Participants returns a copy of the participant set.
func (r *Run) Participants() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.participants))
	for id := range r.participants {
		out = append(out, id)
	}
	return out
}

// AddParticipant admits a late joiner as a live participant. Reports
// false when already a participant.
func (r *Run) AddParticipant(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.participants[playerID]; ok {
		return false
	}
	r.participants[playerID] = struct{}{}
	r.alive[playerID] = struct{}{}
	return true
}

// RemoveParticipant removes the player from both the participant and
// alive sets. The historical death counter stays. Removal is final for
// the run; reports false when not a participant.
func (r *Run) RemoveParticipant(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.participants[playerID]; !ok {
		return false
	}
	delete(r.participants, playerID)
	delete(r.alive, playerID)
	return true
}

// IsAlive reports whether the player is a live participant.
func (r *Run) IsAlive(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.alive[playerID]
	return ok
}

// AliveSet returns a copy of the alive set keyed by player id.
func (r *Run) AliveSet() map[string]struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]struct{}, len(r.alive))
	for id := range r.alive {
		out[id] = struct{}{}
	}
	return out
}

// AliveCount returns the number of live participants.
func (r *Run) AliveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.alive)
}

// MarkDead increments the player's death count and removes them from
// the alive set. The count moves on every call for a participant, dead
// or alive; the return reports whether aliveness changed.
func (r *Run) MarkDead(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.participants[playerID]; !ok {
		return false
	}
	r.deathCounts[playerID]++
	if _, ok := r.alive[playerID]; !ok {
		return false
	}
	delete(r.alive, playerID)
	return true
}

// MarkAlive returns a participant to the alive set, for respawns and
// rejoins. Reports false for non-participants.
func (r *Run) MarkAlive(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.participants[playerID]; !ok {
		return false
	}
	r.alive[playerID] = struct{}{}
	return true
}

// DeathCount returns the number of deaths recorded for the player.
func (r *Run) DeathCount(playerID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deathCounts[playerID]
}

// NextSpawnPoint hands out spawn points round-robin so a whole team
// spreads out on entry. Reports false when the arena has none.
func (r *Run) NextSpawnPoint() (SpawnPoint, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.spawnPoints) == 0 {
		return SpawnPoint{}, false
	}
	p := r.spawnPoints[r.nextSpawn%len(r.spawnPoints)]
	r.nextSpawn++
	return p, true
}

// RandomSpawnPoint picks a uniformly random spawn point, used for
// respawns. Reports false when the arena has none.
func (r *Run) RandomSpawnPoint(rng *rand.Rand) (SpawnPoint, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.spawnPoints) == 0 {
		return SpawnPoint{}, false
	}
	return r.spawnPoints[rng.Intn(len(r.spawnPoints))], true
}

// TrackEnemy records a live enemy entity id.
func (r *Run) TrackEnemy(entityID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activeEnemies[entityID] = struct{}{}
}

// UntrackEnemy removes an enemy entity id. No-op when absent.
func (r *Run) UntrackEnemy(entityID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.activeEnemies, entityID)
}

// ActiveEnemies returns a copy of the tracked enemy ids.
func (r *Run) ActiveEnemies() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.activeEnemies))
	for id := range r.activeEnemies {
		out = append(out, id)
	}
	return out
}

// ClearEnemies empties the enemy tracking set, used during teardown.
func (r *Run) ClearEnemies() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activeEnemies = map[string]struct{}{}
}

// AddKills increments the kill counter. Negative deltas are ignored.
func (r *Run) AddKills(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n > 0 {
		r.kills += n
	}
}

// AddCoins increments the coin counter. Negative deltas are ignored.
func (r *Run) AddCoins(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n > 0 {
		r.coinsEarned += n
	}
}

// AddXP increments the collected-XP counter. Negative deltas are ignored.
func (r *Run) AddXP(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n > 0 {
		r.xpCollected += n
	}
}

// AdvanceWave records the highest wave reached. Lower values are ignored.
func (r *Run) AdvanceWave(wave int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if wave > r.wave {
		r.wave = wave
	}
}

// Summary is a point-in-time copy of the run's aggregate counters.
type Summary struct {
	RunID       string
	TeamID      string
	Arena       string
	Status      Status
	EndReason   EndReason
	StartedAt   time.Time
	EndedAt     time.Time
	Players     int
	Kills       int
	CoinsEarned int
	XPCollected int
	Wave        int
	DeathCounts map[string]int
}

// Summarize returns a detached copy of the current counters.
func (r *Run) Summarize() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	deaths := make(map[string]int, len(r.deathCounts))
	for id, n := range r.deathCounts {
		deaths[id] = n
	}
	return Summary{
		RunID:       r.runID,
		TeamID:      r.teamID,
		Arena:       r.arena,
		Status:      r.status,
		EndReason:   r.endReason,
		StartedAt:   r.startedAt,
		EndedAt:     r.endedAt,
		Players:     len(r.participants),
		Kills:       r.kills,
		CoinsEarned: r.coinsEarned,
		XPCollected: r.xpCollected,
		Wave:        r.wave,
		DeathCounts: deaths,
	}
}
