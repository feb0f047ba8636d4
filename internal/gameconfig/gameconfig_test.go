package gameconfig

import (
	"testing"
	"time"
)

func TestParseRulesDefaults(t *testing.T) {
	rules, err := ParseRules()
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}
	if rules.MaxTeamSize != 4 {
		t.Fatalf("expected default team size 4, got %d", rules.MaxTeamSize)
	}
	if rules.DisconnectGrace != 2*time.Minute {
		t.Fatalf("expected 2m disconnect grace, got %s", rules.DisconnectGrace)
	}
	if rules.SweepInterval != time.Second {
		t.Fatalf("expected 1s sweep interval, got %s", rules.SweepInterval)
	}
}

func TestParseRulesOverride(t *testing.T) {
	t.Setenv("KEDAMA_SURVIVORS_MAX_TEAM_SIZE", "6")
	t.Setenv("KEDAMA_SURVIVORS_DEATH_COOLDOWN", "90s")

	rules, err := ParseRules()
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}
	if rules.MaxTeamSize != 6 {
		t.Fatalf("expected team size 6, got %d", rules.MaxTeamSize)
	}
	if rules.DeathCooldown != 90*time.Second {
		t.Fatalf("expected 90s death cooldown, got %s", rules.DeathCooldown)
	}
}

func TestDefaultArenasHaveSpawnPoints(t *testing.T) {
	for _, arena := range DefaultArenas() {
		if arena.Name == "" {
			t.Fatal("arena without a name")
		}
		if len(arena.SpawnPoints) == 0 {
			t.Fatalf("arena %q has no spawn points", arena.Name)
		}
	}
}
