// Package state owns every session, team and run instance plus the
// derived indices between them. All cross-aggregate operations go
// through the Registry; aggregates never reach back into it. The
// registry lock guards only the maps and indices, each aggregate guards
// itself.
package state

import (
	"math/rand"
	"sync"
	"time"

	"github.com/nyaacat/kedama-survivors/internal/gameconfig"
	"github.com/nyaacat/kedama-survivors/internal/party"
	"github.com/nyaacat/kedama-survivors/internal/platform/id"
	"github.com/nyaacat/kedama-survivors/internal/run"
	"github.com/nyaacat/kedama-survivors/internal/session"
	"github.com/nyaacat/kedama-survivors/internal/stats"
)

// Registry is the authoritative in-memory owner of coordination state.
// Construct one per process with New; tests construct isolated
// instances with their own clocks.
type Registry struct {
	mu sync.Mutex

	rules  gameconfig.Rules
	arenas []gameconfig.Arena

	now           func() time.Time
	newID         func() (string, error)
	rng           *rand.Rand
	setupComplete func(playerID string) bool

	sessions map[string]*session.Session
	teams    map[string]*party.Team
	runs     map[string]*run.Run
	lifetime map[string]*stats.Lifetime

	playerToTeam map[string]string
	playerToRun  map[string]string
	teamToRun    map[string]string
	teamByName   map[string]string

	disconnected map[string]struct{}
	cooldown     map[string]struct{}
	countdowns   map[string]time.Time
}

// New creates an empty registry with production defaults. The clock,
// id generator, rng and setup predicate are fields so tests can swap
// them.
func New(rules gameconfig.Rules, arenas []gameconfig.Arena) *Registry {
	return &Registry{
		rules:         rules,
		arenas:        arenas,
		now:           time.Now,
		newID:         id.NewID,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		setupComplete: func(string) bool { return true },
		sessions:      map[string]*session.Session{},
		teams:         map[string]*party.Team{},
		runs:          map[string]*run.Run{},
		lifetime:      map[string]*stats.Lifetime{},
		playerToTeam:  map[string]string{},
		playerToRun:   map[string]string{},
		teamToRun:     map[string]string{},
		teamByName:    map[string]string{},
		disconnected:  map[string]struct{}{},
		cooldown:      map[string]struct{}{},
		countdowns:    map[string]time.Time{},
	}
}

// GetOrCreateSession returns the session for a player, creating one in
// the lobby on first contact. The empty id is the only fatal input.
func (r *Registry) GetOrCreateSession(playerID, name string) (*session.Session, error) {
	if playerID == "" {
		return nil, errEmptyPlayerID()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[playerID]; ok {
		if name != "" {
			s.SetName(name)
		}
		return s, nil
	}
	s := session.New(playerID, name)
	r.sessions[playerID] = s
	return s, nil
}

// Session returns a session by id, or false when the player has never
// been seen.
func (r *Registry) Session(playerID string) (*session.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[playerID]
	return s, ok
}

// Lifetime returns the player's lifetime record, creating an empty one
// on first access.
func (r *Registry) Lifetime(playerID string) *stats.Lifetime {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lifetimeLocked(playerID)
}

func (r *Registry) lifetimeLocked(playerID string) *stats.Lifetime {
	if l, ok := r.lifetime[playerID]; ok {
		return l
	}
	l := stats.NewLifetime(playerID, r.now())
	r.lifetime[playerID] = l
	return l
}

// Team returns a team by id.
func (r *Registry) Team(teamID string) (*party.Team, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teams[teamID]
	return t, ok
}

// TeamByName resolves a team by its display name, case-insensitively.
func (r *Registry) TeamByName(name string) (*party.Team, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	teamID, ok := r.teamByName[normalizeTeamName(name)]
	if !ok {
		return nil, false
	}
	t, ok := r.teams[teamID]
	return t, ok
}

// TeamOf returns the team a player belongs to.
func (r *Registry) TeamOf(playerID string) (*party.Team, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.teamOfLocked(playerID)
}

func (r *Registry) teamOfLocked(playerID string) (*party.Team, bool) {
	teamID, ok := r.playerToTeam[playerID]
	if !ok {
		return nil, false
	}
	t, ok := r.teams[teamID]
	return t, ok
}

// Run returns a run by id.
func (r *Registry) Run(runID string) (*run.Run, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rn, ok := r.runs[runID]
	return rn, ok
}

// RunOf returns the run a player is bound to.
func (r *Registry) RunOf(playerID string) (*run.Run, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runOfLocked(playerID)
}

func (r *Registry) runOfLocked(playerID string) (*run.Run, bool) {
	runID, ok := r.playerToRun[playerID]
	if !ok {
		return nil, false
	}
	rn, ok := r.runs[runID]
	return rn, ok
}

// RunOfTeam returns the run a team is bound to.
func (r *Registry) RunOfTeam(teamID string) (*run.Run, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	runID, ok := r.teamToRun[teamID]
	if !ok {
		return nil, false
	}
	rn, ok := r.runs[runID]
	return rn, ok
}

// Counts reports the aggregate totals used by admin status commands.
type Counts struct {
	Sessions     int
	Teams        int
	ActiveRuns   int
	InRunPlayers int
	Disconnected int
	OnCooldown   int
}

// Count returns a point-in-time view of the registry totals.
func (r *Registry) Count() Counts {
	r.mu.Lock()
	defer r.mu.Unlock()
	active := 0
	for _, rn := range r.runs {
		if rn.IsActive() {
			active++
		}
	}
	return Counts{
		Sessions:     len(r.sessions),
		Teams:        len(r.teams),
		ActiveRuns:   active,
		InRunPlayers: len(r.playerToRun),
		Disconnected: len(r.disconnected),
		OnCooldown:   len(r.cooldown),
	}
}

// EndedRuns returns runs that reached ENDING and await persistence.
// The consumer completes and removes them once their summary is saved.
func (r *Registry) EndedRuns() []*run.Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*run.Run
	for _, rn := range r.runs {
		if rn.Status() == run.StatusEnding {
			out = append(out, rn)
		}
	}
	return out
}

// DisconnectedPlayers returns the tracked candidate set for the
// disconnect sweep.
func (r *Registry) DisconnectedPlayers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.disconnected))
	for pid := range r.disconnected {
		out = append(out, pid)
	}
	return out
}

// CooldownPlayers returns the tracked candidate set for the cooldown
// sweep.
func (r *Registry) CooldownPlayers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.cooldown))
	for pid := range r.cooldown {
		out = append(out, pid)
	}
	return out
}

// ResetPlayer performs the full admin reset: detach from team and run,
// clear every session field except identity and stop tracking the
// player.
func (r *Registry) ResetPlayer(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[playerID]
	if !ok {
		return errNotFound("player", playerID)
	}
	r.detachFromRunLocked(playerID)
	r.detachFromTeamLocked(playerID)
	s.ResetAll()
	delete(r.disconnected, playerID)
	delete(r.cooldown, playerID)
	return nil
}

// EjectPlayer finalizes a grace eject: the player is pulled out of any
// run and team and the session returns to defaults. Used by the
// admission sweep once the eject deadline passes.
func (r *Registry) EjectPlayer(playerID string) error {
	return r.ResetPlayer(playerID)
}
