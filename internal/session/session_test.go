package session

import (
	"testing"
	"time"
)

func TestNewSessionStartsInLobby(t *testing.T) {
	s := New("p1", "Alice")

	if s.Mode() != ModeLobby {
		t.Fatalf("expected lobby mode, got %v", s.Mode())
	}
	if s.Ready() {
		t.Fatal("expected not ready")
	}
	if s.Progress().XPRequired != defaultXPRequired {
		t.Fatalf("expected default xp required, got %d", s.Progress().XPRequired)
	}
	if s.Progress().RunLevel != 1 {
		t.Fatalf("expected run level 1, got %d", s.Progress().RunLevel)
	}
}

func TestMarkReadyRequiresLobby(t *testing.T) {
	s := New("p1", "Alice")

	if !s.MarkReady() {
		t.Fatal("expected ready transition from lobby")
	}
	if s.Mode() != ModeReady || !s.Ready() {
		t.Fatalf("expected ready mode with flag, got %v ready=%v", s.Mode(), s.Ready())
	}
	// A second attempt is a no-op, not an error.
	if s.MarkReady() {
		t.Fatal("expected repeated ready transition to report false")
	}
}

func TestCountdownKeepsReadyFlag(t *testing.T) {
	s := New("p1", "Alice")
	s.MarkReady()

	if !s.BeginCountdown() {
		t.Fatal("expected countdown transition from ready")
	}
	if !s.Ready() {
		t.Fatal("expected readiness to survive countdown start")
	}
	if !s.CancelCountdown() {
		t.Fatal("expected countdown cancel")
	}
	if s.Mode() != ModeReady {
		t.Fatalf("expected cancel to restore ready mode, got %v", s.Mode())
	}
}

func TestCancelCountdownWithoutReadyFallsToLobby(t *testing.T) {
	s := New("p1", "Alice")
	s.BeginCountdown()
	s.SetReady(false)

	if !s.CancelCountdown() {
		t.Fatal("expected countdown cancel")
	}
	if s.Mode() != ModeLobby {
		t.Fatalf("expected lobby after cancel, got %v", s.Mode())
	}
}

func TestEnterRunBindsRunAndConsumesReady(t *testing.T) {
	s := New("p1", "Alice")
	s.MarkReady()
	s.BeginCountdown()

	if !s.EnterRun("run1") {
		t.Fatal("expected run entry from countdown")
	}
	if s.Mode() != ModeInRun || s.RunID() != "run1" {
		t.Fatalf("expected in-run with run1, got %v %q", s.Mode(), s.RunID())
	}
	if s.Ready() {
		t.Fatal("expected readiness to be consumed on run entry")
	}
}

func TestLeaveRunResetsRunStateAndStartsCooldown(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := New("p1", "Alice")
	s.MarkReady()
	s.BeginCountdown()
	s.EnterRun("run1")
	s.SetEquipment(Equipment{WeaponGroup: "bow", WeaponLevel: 3})
	s.AddCoinsEarned(25)
	s.AddPermaScore(100)

	until := now.Add(time.Minute)
	if !s.LeaveRun(until) {
		t.Fatal("expected leave transition from in-run")
	}
	if s.Mode() != ModeCooldown {
		t.Fatalf("expected cooldown, got %v", s.Mode())
	}
	if s.RunID() != "" {
		t.Fatalf("expected run reference cleared, got %q", s.RunID())
	}
	if got := s.Equipment(); got != (Equipment{}) {
		t.Fatalf("expected equipment reset, got %+v", got)
	}
	if s.CoinsEarned() != 0 {
		t.Fatalf("expected coins reset, got %d", s.CoinsEarned())
	}
	if s.PermaScore() != 100 {
		t.Fatalf("expected perma score preserved, got %d", s.PermaScore())
	}
	if !s.IsOnCooldown(now) {
		t.Fatal("expected on cooldown")
	}
	if s.IsOnCooldown(until.Add(time.Second)) {
		t.Fatal("expected cooldown over after deadline")
	}
}

func TestDisconnectKeepsRunReference(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := New("p1", "Alice")
	s.MarkReady()
	s.BeginCountdown()
	s.EnterRun("run1")

	if !s.MarkDisconnected(now) {
		t.Fatal("expected disconnect transition from in-run")
	}
	if s.RunID() != "run1" {
		t.Fatalf("expected run reference kept during grace, got %q", s.RunID())
	}
	if !s.IsWithinGrace(now.Add(4*time.Second), 5*time.Second) {
		t.Fatal("expected within grace before expiry")
	}
	if s.IsWithinGrace(now.Add(6*time.Second), 5*time.Second) {
		t.Fatal("expected outside grace after expiry")
	}

	if !s.Reconnect() {
		t.Fatal("expected reconnect transition")
	}
	if s.Mode() != ModeInRun {
		t.Fatalf("expected in-run after reconnect, got %v", s.Mode())
	}
	if !s.DisconnectedAt().IsZero() {
		t.Fatal("expected disconnect instant cleared on reconnect")
	}
}

func TestFinishCooldownClearsDeadline(t *testing.T) {
	s := New("p1", "Alice")
	s.MarkReady()
	s.BeginCountdown()
	s.EnterRun("run1")
	s.LeaveRun(time.Date(2026, 3, 1, 12, 1, 0, 0, time.UTC))

	if !s.FinishCooldown() {
		t.Fatal("expected cooldown finish")
	}
	if s.Mode() != ModeLobby {
		t.Fatalf("expected lobby, got %v", s.Mode())
	}
	if !s.CooldownUntil().IsZero() {
		t.Fatal("expected cooldown deadline cleared")
	}
	// A sweep running twice must not trip over the already-finished session.
	if s.FinishCooldown() {
		t.Fatal("expected repeated finish to report false")
	}
}

func TestGraceEjectRoundTrip(t *testing.T) {
	s := New("p1", "Alice")
	s.MarkReady()
	s.BeginCountdown()
	s.EnterRun("run1")

	s.BeginGraceEject()
	if s.Mode() != ModeGraceEject {
		t.Fatalf("expected grace-eject, got %v", s.Mode())
	}
	if !s.CancelGraceEject() {
		t.Fatal("expected eject cancel")
	}
	if s.Mode() != ModeInRun {
		t.Fatalf("expected in-run restored, got %v", s.Mode())
	}
}

func TestResetAllPreservesIdentityOnly(t *testing.T) {
	s := New("p1", "Alice")
	s.SetTeamID("t1")
	s.MarkReady()
	s.BeginCountdown()
	s.EnterRun("run1")
	s.AddPermaScore(50)

	s.ResetAll()

	if s.PlayerID() != "p1" || s.Name() != "Alice" {
		t.Fatal("expected identity preserved")
	}
	if s.Mode() != ModeLobby || s.TeamID() != "" || s.RunID() != "" {
		t.Fatalf("expected clean lobby state, got %v team=%q run=%q", s.Mode(), s.TeamID(), s.RunID())
	}
}

func TestPlayerLevelDerivedFromEquipment(t *testing.T) {
	s := New("p1", "Alice")
	s.SetEquipment(Equipment{WeaponLevel: 3, HelmetLevel: 2})

	if s.PlayerLevel() != 5 {
		t.Fatalf("expected level 5, got %d", s.PlayerLevel())
	}
	if s.AtMaxLevel() {
		t.Fatal("expected not at max")
	}
	s.SetEquipment(Equipment{WeaponAtMax: true, HelmetAtMax: true})
	if !s.AtMaxLevel() {
		t.Fatal("expected at max")
	}
}

func TestModeLabels(t *testing.T) {
	for _, mode := range []Mode{ModeLobby, ModeReady, ModeCountdown, ModeInRun, ModeCooldown, ModeGraceEject, ModeDisconnected} {
		if ModeFromLabel(mode.String()) != mode {
			t.Fatalf("label round trip failed for %v", mode)
		}
	}
	if ModeFromLabel("bogus") != ModeLobby {
		t.Fatal("expected unknown label to map to lobby")
	}
}
