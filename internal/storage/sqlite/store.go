// Package sqlite provides a SQLite-backed coordinator storage
// implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/nyaacat/kedama-survivors/internal/platform/grpc/pagination"
	sqlitemigrate "github.com/nyaacat/kedama-survivors/internal/platform/storage/sqlitemigrate"
	"github.com/nyaacat/kedama-survivors/internal/storage"
	"github.com/nyaacat/kedama-survivors/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists coordinator state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	if value.IsZero() {
		return 0
	}
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	if value == 0 {
		return time.Time{}
	}
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite coordinator store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SavePlayerProfile upserts one player profile record.
func (s *Store) SavePlayerProfile(ctx context.Context, profile storage.PlayerProfile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	playerID := strings.TrimSpace(profile.PlayerID)
	if playerID == "" {
		return fmt.Errorf("player id is required")
	}
	updatedAt := profile.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO player_profiles (
    player_id, name, perma_score,
    runs_started, runs_completed, deaths, kills, coins_earned, xp_collected,
    best_wave, longest_run_ms, playtime_ms, last_run_at, first_seen_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(player_id) DO UPDATE SET
    name = excluded.name,
    perma_score = excluded.perma_score,
    runs_started = excluded.runs_started,
    runs_completed = excluded.runs_completed,
    deaths = excluded.deaths,
    kills = excluded.kills,
    coins_earned = excluded.coins_earned,
    xp_collected = excluded.xp_collected,
    best_wave = excluded.best_wave,
    longest_run_ms = excluded.longest_run_ms,
    playtime_ms = excluded.playtime_ms,
    last_run_at = excluded.last_run_at,
    updated_at = excluded.updated_at
`,
		playerID,
		strings.TrimSpace(profile.Name),
		profile.PermaScore,
		profile.RunsStarted,
		profile.RunsCompleted,
		profile.Deaths,
		profile.Kills,
		profile.CoinsEarned,
		profile.XPCollected,
		profile.BestWave,
		profile.LongestRun.Milliseconds(),
		profile.Playtime.Milliseconds(),
		toMillis(profile.LastRunAt),
		toMillis(profile.FirstSeenAt),
		toMillis(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("save player profile: %w", err)
	}
	return nil
}

// GetPlayerProfile loads one player profile record.
func (s *Store) GetPlayerProfile(ctx context.Context, playerID string) (storage.PlayerProfile, error) {
	if err := ctx.Err(); err != nil {
		return storage.PlayerProfile{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.PlayerProfile{}, fmt.Errorf("storage is not configured")
	}
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return storage.PlayerProfile{}, fmt.Errorf("player id is required")
	}
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT player_id, name, perma_score,
    runs_started, runs_completed, deaths, kills, coins_earned, xp_collected,
    best_wave, longest_run_ms, playtime_ms, last_run_at, first_seen_at, updated_at
FROM player_profiles WHERE player_id = ?
`, playerID)
	var (
		profile                           storage.PlayerProfile
		longestMS, playtimeMS             int64
		lastRunAt, firstSeenAt, updatedAt int64
	)
	err := row.Scan(
		&profile.PlayerID,
		&profile.Name,
		&profile.PermaScore,
		&profile.RunsStarted,
		&profile.RunsCompleted,
		&profile.Deaths,
		&profile.Kills,
		&profile.CoinsEarned,
		&profile.XPCollected,
		&profile.BestWave,
		&longestMS,
		&playtimeMS,
		&lastRunAt,
		&firstSeenAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.PlayerProfile{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.PlayerProfile{}, fmt.Errorf("get player profile: %w", err)
	}
	profile.LongestRun = time.Duration(longestMS) * time.Millisecond
	profile.Playtime = time.Duration(playtimeMS) * time.Millisecond
	profile.LastRunAt = fromMillis(lastRunAt)
	profile.FirstSeenAt = fromMillis(firstSeenAt)
	profile.UpdatedAt = fromMillis(updatedAt)
	return profile, nil
}

// SaveRunSummary inserts one finished run record.
func (s *Store) SaveRunSummary(ctx context.Context, summary storage.RunSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	runID := strings.TrimSpace(summary.RunID)
	if runID == "" {
		return fmt.Errorf("run id is required")
	}
	if strings.TrimSpace(summary.TeamID) == "" {
		return fmt.Errorf("team id is required")
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT OR REPLACE INTO run_summaries (
    run_id, team_id, team_name, arena, end_reason,
    players, kills, coins_earned, xp_collected, wave, started_at, ended_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		runID,
		summary.TeamID,
		strings.TrimSpace(summary.TeamName),
		strings.TrimSpace(summary.Arena),
		summary.EndReason,
		summary.Players,
		summary.Kills,
		summary.CoinsEarned,
		summary.XPCollected,
		summary.Wave,
		toMillis(summary.StartedAt),
		toMillis(summary.EndedAt),
	)
	if err != nil {
		return fmt.Errorf("save run summary: %w", err)
	}
	return nil
}

// ListRunSummaries returns finished runs ordered by the requested
// column, newest ended first by default.
func (s *Store) ListRunSummaries(ctx context.Context, orderBy string, limit int) ([]storage.RunSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	order, err := pagination.NormalizeOrderBy(orderBy, pagination.OrderByConfig{
		Default: "ended_at DESC",
		Allowed: []string{"ended_at DESC", "wave DESC", "kills DESC"},
	})
	if err != nil {
		return nil, err
	}
	limit = pagination.ClampPageSize(int32(limit), pagination.PageSizeConfig{
		Default: 50,
		Max:     500,
	})
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT run_id, team_id, team_name, arena, end_reason,
    players, kills, coins_earned, xp_collected, wave, started_at, ended_at
FROM run_summaries ORDER BY `+order+` LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list run summaries: %w", err)
	}
	defer rows.Close()
	var out []storage.RunSummary
	for rows.Next() {
		var (
			summary            storage.RunSummary
			startedAt, endedAt int64
		)
		if err := rows.Scan(
			&summary.RunID,
			&summary.TeamID,
			&summary.TeamName,
			&summary.Arena,
			&summary.EndReason,
			&summary.Players,
			&summary.Kills,
			&summary.CoinsEarned,
			&summary.XPCollected,
			&summary.Wave,
			&startedAt,
			&endedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run summary: %w", err)
		}
		summary.StartedAt = fromMillis(startedAt)
		summary.EndedAt = fromMillis(endedAt)
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run summaries: %w", err)
	}
	return out, nil
}
