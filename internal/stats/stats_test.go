package stats

import (
	"testing"
	"time"
)

var base = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func TestLifetimeAccumulates(t *testing.T) {
	l := NewLifetime("alice", base)

	l.RecordRunStart(base)
	l.AddKills(12)
	l.AddCoins(40)
	l.AddXP(300)
	l.AddDeaths(1)
	l.RecordRunEnd(10*time.Minute, 8, false)

	l.RecordRunStart(base.Add(time.Hour))
	l.AddKills(5)
	l.RecordRunEnd(25*time.Minute, 6, true)

	s := l.Snapshot()
	if s.RunsStarted != 2 || s.RunsCompleted != 1 {
		t.Fatalf("expected 2 started / 1 completed, got %d/%d", s.RunsStarted, s.RunsCompleted)
	}
	if s.Kills != 17 {
		t.Fatalf("expected 17 kills, got %d", s.Kills)
	}
	if s.BestWave != 8 {
		t.Fatalf("best wave must not regress, got %d", s.BestWave)
	}
	if s.LongestRun != 25*time.Minute {
		t.Fatalf("expected longest run 25m, got %s", s.LongestRun)
	}
	if s.Playtime != 35*time.Minute {
		t.Fatalf("expected 35m playtime, got %s", s.Playtime)
	}
	if !s.LastRunAt.Equal(base.Add(time.Hour)) {
		t.Fatalf("unexpected last run instant %s", s.LastRunAt)
	}
}

func TestLifetimeIgnoresNegativeDeltas(t *testing.T) {
	l := NewLifetime("alice", base)
	l.AddKills(-3)
	l.AddCoins(-1)
	l.AddXP(-10)
	l.AddDeaths(-2)
	l.RecordRunEnd(-time.Minute, -1, false)

	s := l.Snapshot()
	if s.Kills != 0 || s.CoinsEarned != 0 || s.XPCollected != 0 || s.Deaths != 0 {
		t.Fatalf("negative deltas must be ignored: %+v", s)
	}
	if s.Playtime != 0 || s.BestWave != 0 {
		t.Fatalf("negative run end must be ignored: %+v", s)
	}
}

func TestRestoreKeepsFirstSeenWhenMissing(t *testing.T) {
	l := NewLifetime("alice", base)
	l.Restore(Snapshot{Kills: 9, BestWave: 3})

	s := l.Snapshot()
	if s.Kills != 9 || s.BestWave != 3 {
		t.Fatalf("restore did not apply: %+v", s)
	}
	if !s.FirstSeenAt.Equal(base) {
		t.Fatalf("zero FirstSeenAt must not clobber the original, got %s", s.FirstSeenAt)
	}
}
