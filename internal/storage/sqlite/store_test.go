package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nyaacat/kedama-survivors/internal/storage"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "coordinator.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestPlayerProfileRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	input := storage.PlayerProfile{
		PlayerID:      "alice",
		Name:          "Alice",
		PermaScore:    120,
		RunsStarted:   4,
		RunsCompleted: 2,
		Deaths:        7,
		Kills:         90,
		CoinsEarned:   450,
		XPCollected:   2100,
		BestWave:      11,
		LongestRun:    22 * time.Minute,
		Playtime:      70 * time.Minute,
		LastRunAt:     now,
		FirstSeenAt:   now.Add(-24 * time.Hour),
		UpdatedAt:     now,
	}
	if err := store.SavePlayerProfile(context.Background(), input); err != nil {
		t.Fatalf("save player profile: %v", err)
	}

	got, err := store.GetPlayerProfile(context.Background(), "alice")
	if err != nil {
		t.Fatalf("get player profile: %v", err)
	}
	if got.PermaScore != input.PermaScore {
		t.Fatalf("perma_score = %d, want %d", got.PermaScore, input.PermaScore)
	}
	if got.BestWave != input.BestWave {
		t.Fatalf("best_wave = %d, want %d", got.BestWave, input.BestWave)
	}
	if got.LongestRun != input.LongestRun {
		t.Fatalf("longest_run = %s, want %s", got.LongestRun, input.LongestRun)
	}
	if !got.LastRunAt.Equal(input.LastRunAt) {
		t.Fatalf("last_run_at = %s, want %s", got.LastRunAt, input.LastRunAt)
	}
}

func TestSavePlayerProfileUpserts(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	first := storage.PlayerProfile{PlayerID: "alice", Name: "Alice", Kills: 10}
	if err := store.SavePlayerProfile(context.Background(), first); err != nil {
		t.Fatalf("save: %v", err)
	}
	first.Kills = 25
	if err := store.SavePlayerProfile(context.Background(), first); err != nil {
		t.Fatalf("save again: %v", err)
	}
	got, err := store.GetPlayerProfile(context.Background(), "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Kills != 25 {
		t.Fatalf("kills = %d, want 25", got.Kills)
	}
}

func TestGetPlayerProfileNotFound(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if _, err := store.GetPlayerProfile(context.Background(), "ghost"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRunSummariesNewestFirst(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-1", "run-2", "run-3"} {
		summary := storage.RunSummary{
			RunID:     id,
			TeamID:    "team-1",
			TeamName:  "Night Shift",
			Arena:     "caverns",
			EndReason: "WIPE",
			Players:   2,
			Wave:      i + 1,
			StartedAt: base.Add(time.Duration(i) * time.Hour),
			EndedAt:   base.Add(time.Duration(i)*time.Hour + 20*time.Minute),
		}
		if err := store.SaveRunSummary(context.Background(), summary); err != nil {
			t.Fatalf("save run summary %s: %v", id, err)
		}
	}

	got, err := store.ListRunSummaries(context.Background(), "", 2)
	if err != nil {
		t.Fatalf("list run summaries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(got))
	}
	if got[0].RunID != "run-3" || got[1].RunID != "run-2" {
		t.Fatalf("expected newest first, got %s then %s", got[0].RunID, got[1].RunID)
	}

	byWave, err := store.ListRunSummaries(context.Background(), "wave DESC", 1)
	if err != nil {
		t.Fatalf("list by wave: %v", err)
	}
	if len(byWave) != 1 || byWave[0].Wave != 3 {
		t.Fatalf("expected the deepest wave first, got %+v", byWave)
	}

	if _, err := store.ListRunSummaries(context.Background(), "players; DROP TABLE run_summaries", 1); err == nil {
		t.Fatal("expected rejection of an unlisted order_by")
	}
}

func TestSaveRunSummaryRequiresIDs(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if err := store.SaveRunSummary(context.Background(), storage.RunSummary{TeamID: "t"}); err == nil {
		t.Fatal("expected missing run id error")
	}
	if err := store.SaveRunSummary(context.Background(), storage.RunSummary{RunID: "r"}); err == nil {
		t.Fatal("expected missing team id error")
	}
}
