// Package stats accumulates a player's lifetime record across runs.
// Every counter is monotonic; totals only ever grow and bests only ever
// improve.
package stats

import (
	"sync"
	"time"
)

// Lifetime is a single player's aggregate record.
type Lifetime struct {
	mu sync.Mutex

	playerID string

	runsStarted   int
	runsCompleted int
	deaths        int
	kills         int
	coinsEarned   int
	xpCollected   int

	bestWave    int
	longestRun  time.Duration
	playtime    time.Duration
	lastRunAt   time.Time
	firstSeenAt time.Time
}

// NewLifetime creates an empty record for a player.
func NewLifetime(playerID string, firstSeen time.Time) *Lifetime {
	return &Lifetime{playerID: playerID, firstSeenAt: firstSeen}
}

// PlayerID returns the owning player.
func (l *Lifetime) PlayerID() string { return l.playerID }

// RecordRunStart counts a run entry.
func (l *Lifetime) RecordRunStart(at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runsStarted++
	l.lastRunAt = at
}

// RecordRunEnd folds a finished run into the record. Completed marks a
// run that reached its objective rather than ending in a wipe.
func (l *Lifetime) RecordRunEnd(duration time.Duration, wave int, completed bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if completed {
		l.runsCompleted++
	}
	if duration > 0 {
		l.playtime += duration
	}
	if duration > l.longestRun {
		l.longestRun = duration
	}
	if wave > l.bestWave {
		l.bestWave = wave
	}
}

// AddDeaths increments the death total. Negative deltas are ignored.
func (l *Lifetime) AddDeaths(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n > 0 {
		l.deaths += n
	}
}

// AddKills increments the kill total. Negative deltas are ignored.
func (l *Lifetime) AddKills(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n > 0 {
		l.kills += n
	}
}

// AddCoins increments the coin total. Negative deltas are ignored.
func (l *Lifetime) AddCoins(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n > 0 {
		l.coinsEarned += n
	}
}

// AddXP increments the XP total. Negative deltas are ignored.
func (l *Lifetime) AddXP(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n > 0 {
		l.xpCollected += n
	}
}

// Snapshot is a detached copy of a lifetime record.
type Snapshot struct {
	PlayerID      string
	RunsStarted   int
	RunsCompleted int
	Deaths        int
	Kills         int
	CoinsEarned   int
	XPCollected   int
	BestWave      int
	LongestRun    time.Duration
	Playtime      time.Duration
	LastRunAt     time.Time
	FirstSeenAt   time.Time
}

// Snapshot returns a copy of the current totals.
func (l *Lifetime) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot{
		PlayerID:      l.playerID,
		RunsStarted:   l.runsStarted,
		RunsCompleted: l.runsCompleted,
		Deaths:        l.deaths,
		Kills:         l.kills,
		CoinsEarned:   l.coinsEarned,
		XPCollected:   l.xpCollected,
		BestWave:      l.bestWave,
		LongestRun:    l.longestRun,
		Playtime:      l.playtime,
		LastRunAt:     l.lastRunAt,
		FirstSeenAt:   l.firstSeenAt,
	}
}

// Restore overwrites the totals from a persisted snapshot, used when a
// player profile loads from storage.
func (l *Lifetime) Restore(s Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runsStarted = s.RunsStarted
	l.runsCompleted = s.RunsCompleted
	l.deaths = s.Deaths
	l.kills = s.Kills
	l.coinsEarned = s.CoinsEarned
	l.xpCollected = s.XPCollected
	l.bestWave = s.BestWave
	l.longestRun = s.LongestRun
	l.playtime = s.Playtime
	l.lastRunAt = s.LastRunAt
	if !s.FirstSeenAt.IsZero() {
		l.firstSeenAt = s.FirstSeenAt
	}
}
