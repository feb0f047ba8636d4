package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	platformgrpc "github.com/nyaacat/kedama-survivors/internal/platform/grpc"
	"github.com/nyaacat/kedama-survivors/internal/platform/timeouts"
	"github.com/nyaacat/kedama-survivors/internal/run"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	t.Setenv("KEDAMA_SURVIVORS_DB_PATH", filepath.Join(t.TempDir(), "coordinator.db"))
	t.Setenv("KEDAMA_SURVIVORS_SWEEP_INTERVAL", "10ms")
	srv, err := NewWithAddr("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewWithAddr: %v", err)
	}
	return srv
}

func TestServeUntilCancelled(t *testing.T) {
	srv := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx)
	}()

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer dialCancel()
	conn, err := platformgrpc.DialWithHealth(dialCtx, nil, srv.Addr(), timeouts.GRPCDial, nil, platformgrpc.DefaultClientDialOptions()...)
	if err != nil {
		t.Fatalf("dial with health: %v", err)
	}
	_ = conn.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop after cancellation")
	}
}

func TestFinalizeEndedRunsPersists(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	reg := srv.Registry()

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
	rn, ok := reg.RunOf("alice")
	if !ok {
		t.Fatal("expected alice bound to a run")
	}
	reg.RecordKill("alice", 3)
	reg.RecordWave(rn.RunID(), 5)
	if err := reg.EndRun(rn.RunID(), run.EndReasonNormal); err != nil {
		t.Fatalf("EndRun: %v", err)
	}

	if finalized := srv.finalizeEndedRuns(time.Now()); finalized != 1 {
		t.Fatalf("expected 1 finalized run, got %d", finalized)
	}
	if _, ok := reg.Run(rn.RunID()); ok {
		t.Fatal("finalized run must leave the registry")
	}

	summaries, err := srv.store.ListRunSummaries(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("list run summaries: %v", err)
	}
	if len(summaries) != 1 || summaries[0].RunID != rn.RunID() {
		t.Fatalf("expected the finalized run persisted, got %+v", summaries)
	}
	if summaries[0].Kills != 3 || summaries[0].Wave != 5 {
		t.Fatalf("unexpected persisted counters: %+v", summaries[0])
	}

	profile, err := srv.store.GetPlayerProfile(context.Background(), "alice")
	if err != nil {
		t.Fatalf("get player profile: %v", err)
	}
	if profile.RunsCompleted != 1 || profile.Kills != 3 {
		t.Fatalf("unexpected persisted profile: %+v", profile)
	}
	if profile.Name != "Alice" {
		t.Fatalf("profile name = %q, want Alice", profile.Name)
	}
}
