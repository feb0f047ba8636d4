package admission

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/nyaacat/kedama-survivors/internal/gameconfig"
	"github.com/nyaacat/kedama-survivors/internal/platform/errors"
	"github.com/nyaacat/kedama-survivors/internal/session"
	"github.com/nyaacat/kedama-survivors/internal/state"
)

func newRegistry(t *testing.T) *state.Registry {
	t.Helper()
	rules := gameconfig.Rules{
		MaxTeamSize:     4,
		DeathCooldown:   5 * time.Second,
		QuitCooldown:    3 * time.Second,
		DisconnectGrace: 10 * time.Second,
		InviteExpiry:    time.Minute,
		CountdownDelay:  5 * time.Second,
		GraceEjectDelay: 10 * time.Second,
		RespawnShield:   3 * time.Second,
		SweepInterval:   time.Second,
	}
	return state.New(rules, gameconfig.DefaultArenas())
}

func TestClosedGateRejectsAdmission(t *testing.T) {
	reg := newRegistry(t)
	gate := NewGate(reg, 10*time.Second)

	if err := gate.Admit("alice"); err != nil {
		t.Fatalf("open gate must admit, got %v", err)
	}
	if err := gate.Admit(""); !errors.IsCode(err, errors.CodeSessionEmptyPlayerID) {
		t.Fatalf("expected empty-id rejection, got %v", err)
	}

	if _, err := reg.GetOrCreateSession("alice", "Alice"); err != nil {
		t.Fatalf("GetOrCreateSession: %v", err)
	}
	gate.Close([]string{"alice"})
	if err := gate.Admit("bob"); !errors.IsCode(err, errors.CodeAdmissionDisabled) {
		t.Fatalf("expected admission-disabled, got %v", err)
	}
	err := gate.Admit("alice")
	if !errors.IsCode(err, errors.CodeAdmissionDisabled) {
		t.Fatalf("expected admission-disabled, got %v", err)
	}
	var domainErr *errors.Error
	if !stderrors.As(err, &domainErr) || domainErr.Metadata["eject_at"] == "" {
		t.Fatalf("expected the pending eject deadline in metadata, got %+v", err)
	}
}

func TestCloseStartsEjectAndSweepFinalizes(t *testing.T) {
	reg := newRegistry(t)
	gate := NewGate(reg, 10*time.Second)
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	gate.now = func() time.Time { return base }

	s, err := reg.GetOrCreateSession("alice", "Alice")
	if err != nil {
		t.Fatalf("GetOrCreateSession: %v", err)
	}
	gate.Close([]string{"alice", "ghost"})

	if s.Mode() != session.ModeGraceEject {
		t.Fatalf("expected GRACE_EJECT, got %s", s.Mode())
	}
	if gate.PendingEjects() != 1 {
		t.Fatalf("unknown players must not be tracked, got %d pending", gate.PendingEjects())
	}

	if ejected := gate.SweepEjects(base.Add(5 * time.Second)); ejected != 0 {
		t.Fatalf("sweep inside the window must eject nobody, got %d", ejected)
	}
	if ejected := gate.SweepEjects(base.Add(11 * time.Second)); ejected != 1 {
		t.Fatalf("expected 1 eject, got %d", ejected)
	}
	if s.Mode() != session.ModeLobby {
		t.Fatalf("ejected player should reset to LOBBY, got %s", s.Mode())
	}
	if gate.PendingEjects() != 0 {
		t.Fatalf("expected no pending ejects, got %d", gate.PendingEjects())
	}
}

func TestReopenCancelsPendingEjects(t *testing.T) {
	reg := newRegistry(t)
	gate := NewGate(reg, 10*time.Second)

	s, err := reg.GetOrCreateSession("alice", "Alice")
	if err != nil {
		t.Fatalf("GetOrCreateSession: %v", err)
	}
	gate.Close([]string{"alice"})
	gate.Open()

	if !gate.IsOpen() {
		t.Fatal("expected open gate")
	}
	if gate.PendingEjects() != 0 {
		t.Fatal("reopening must clear pending ejects")
	}
	if s.Mode() != session.ModeLobby {
		t.Fatalf("cancelled eject should return to LOBBY, got %s", s.Mode())
	}
}

func TestReopenResumesRunForInRunPlayer(t *testing.T) {
	reg := newRegistry(t)
	gate := NewGate(reg, 10*time.Second)

	if _, err := reg.GetOrCreateSession("alice", "Alice"); err != nil {
		t.Fatalf("GetOrCreateSession: %v", err)
	}
	if _, err := reg.CreateTeam("alice", "Night Shift"); err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}
	if err := reg.SetReady("alice", true); err != nil {
		t.Fatalf("SetReady: %v", err)
	}
	if started := reg.SweepCountdowns(time.Now().Add(time.Minute)); started != 1 {
		t.Fatalf("expected 1 run started, got %d", started)
	}

	gate.Close([]string{"alice"})
	gate.Open()

	s, _ := reg.Session("alice")
	if s.Mode() != session.ModeInRun {
		t.Fatalf("in-run player should resume the run, got %s", s.Mode())
	}
}
