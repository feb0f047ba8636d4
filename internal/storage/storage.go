// Package storage defines persistence contracts for coordinator state.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
)

// PlayerProfile stores the durable part of a player: identity,
// permanent score and lifetime totals. Session state is never persisted.
type PlayerProfile struct {
	PlayerID      string
	Name          string
	PermaScore    int
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
	UpdatedAt     time.Time
}

// RunSummary stores the final record of one finished run.
type RunSummary struct {
	RunID       string
	TeamID      string
	TeamName    string
	Arena       string
	EndReason   string
	Players     int
	Kills       int
	CoinsEarned int
	XPCollected int
	Wave        int
	StartedAt   time.Time
	EndedAt     time.Time
}

// PlayerStore persists player profiles.
type PlayerStore interface {
	SavePlayerProfile(ctx context.Context, profile PlayerProfile) error
	GetPlayerProfile(ctx context.Context, playerID string) (PlayerProfile, error)
}

// RunStore persists finished run summaries.
type RunStore interface {
	SaveRunSummary(ctx context.Context, summary RunSummary) error
	ListRunSummaries(ctx context.Context, orderBy string, limit int) ([]RunSummary, error)
}

// Store is the combined persistence surface the coordinator uses.
type Store interface {
	PlayerStore
	RunStore
	Close() error
}
