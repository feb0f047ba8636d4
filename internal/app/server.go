// Package app wires the coordinator runtime: registry, admission gate,
// storage, background sweeps and the gRPC lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nyaacat/kedama-survivors/internal/admission"
	"github.com/nyaacat/kedama-survivors/internal/gameconfig"
	"github.com/nyaacat/kedama-survivors/internal/platform/config"
	"github.com/nyaacat/kedama-survivors/internal/platform/timeouts"
	"github.com/nyaacat/kedama-survivors/internal/reconcile"
	"github.com/nyaacat/kedama-survivors/internal/state"
	"github.com/nyaacat/kedama-survivors/internal/storage"
	coordsqlite "github.com/nyaacat/kedama-survivors/internal/storage/sqlite"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

type serverEnv struct {
	DBPath string `env:"KEDAMA_SURVIVORS_DB_PATH"`
}

func loadServerEnv() serverEnv {
	var cfg serverEnv
	_ = config.ParseEnv(&cfg)
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", "coordinator.db")
	}
	return cfg
}

// Server hosts the coordinator runtime and gRPC health surface.
type Server struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	store      storage.Store

	registry *state.Registry
	gate     *admission.Gate
	sweepers []*reconcile.Sweeper
}

// New creates a configured coordinator server listening on the provided
// port.
func New(port int) (*Server, error) {
	return NewWithAddr(fmt.Sprintf(":%d", port))
}

// NewWithAddr creates a configured coordinator server for the provided
// address.
func NewWithAddr(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	rules, err := gameconfig.ParseRules()
	if err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("parse game rules: %w", err)
	}

	env := loadServerEnv()
	store, err := openCoordinatorStore(env.DBPath)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	registry := state.New(rules, gameconfig.DefaultArenas())
	gate := admission.NewGate(registry, rules.GraceEjectDelay)

	srv := &Server{
		listener:   listener,
		grpcServer: grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler())),
		health:     health.NewServer(),
		store:      store,
		registry:   registry,
		gate:       gate,
	}
	srv.sweepers = []*reconcile.Sweeper{
		reconcile.NewSweeper("cooldown", rules.SweepInterval, registry.SweepCooldowns),
		reconcile.NewSweeper("disconnect", rules.SweepInterval, registry.SweepDisconnects),
		reconcile.NewSweeper("countdown", rules.SweepInterval, registry.SweepCountdowns),
		reconcile.NewSweeper("eject", rules.SweepInterval, gate.SweepEjects),
		reconcile.NewSweeper("finalize", rules.SweepInterval, srv.finalizeEndedRuns),
	}

	grpc_health_v1.RegisterHealthServer(srv.grpcServer, srv.health)
	srv.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	return srv, nil
}

func openCoordinatorStore(path string) (*coordsqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := coordsqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open coordinator store: %w", err)
	}
	return store, nil
}

// Registry returns the authoritative state registry.
func (s *Server) Registry() *state.Registry {
	return s.registry
}

// Gate returns the admission gate.
func (s *Server) Gate() *admission.Gate {
	return s.gate
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// finalizeEndedRuns persists summaries and player profiles for runs
// that finished since the last pass, then retires them from the
// registry.
func (s *Server) finalizeEndedRuns(now time.Time) int {
	finalized := 0
	for _, rn := range s.registry.EndedRuns() {
		summary := rn.Summarize()
		record := storage.RunSummary{
			RunID:       summary.RunID,
			TeamID:      summary.TeamID,
			Arena:       summary.Arena,
			EndReason:   summary.EndReason.String(),
			Players:     summary.Players,
			Kills:       summary.Kills,
			CoinsEarned: summary.CoinsEarned,
			XPCollected: summary.XPCollected,
			Wave:        summary.Wave,
			StartedAt:   summary.StartedAt,
			EndedAt:     summary.EndedAt,
		}
		if t, ok := s.registry.Team(summary.TeamID); ok {
			record.TeamName = t.Name()
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeouts.Persist)
		err := s.store.SaveRunSummary(ctx, record)
		if err == nil {
			for _, pid := range rn.Participants() {
				if perr := s.store.SavePlayerProfile(ctx, s.playerProfile(pid)); perr != nil {
					log.Printf("persist profile %s: %v", pid, perr)
				}
			}
		}
		cancel()
		if err != nil {
			log.Printf("persist run %s: %v", summary.RunID, err)
			continue
		}
		if err := s.registry.CompleteRun(summary.RunID); err != nil {
			continue
		}
		if err := s.registry.RemoveRun(summary.RunID); err != nil {
			continue
		}
		finalized++
	}
	return finalized
}

func (s *Server) playerProfile(playerID string) storage.PlayerProfile {
	snap := s.registry.Lifetime(playerID).Snapshot()
	profile := storage.PlayerProfile{
		PlayerID:      playerID,
		RunsStarted:   snap.RunsStarted,
		RunsCompleted: snap.RunsCompleted,
		Deaths:        snap.Deaths,
		Kills:         snap.Kills,
		CoinsEarned:   snap.CoinsEarned,
		XPCollected:   snap.XPCollected,
		BestWave:      snap.BestWave,
		LongestRun:    snap.LongestRun,
		Playtime:      snap.Playtime,
		LastRunAt:     snap.LastRunAt,
		FirstSeenAt:   snap.FirstSeenAt,
	}
	if sess, ok := s.registry.Session(playerID); ok {
		profile.Name = sess.Name()
		profile.PermaScore = sess.PermaScore()
	}
	return profile
}

// Run creates and serves a coordinator server until context
// cancellation.
func Run(ctx context.Context, port int) error {
	server, err := New(port)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the gRPC server and the background sweeps until context
// cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("coordinator listening at %v", s.listener.Addr())

	sweepCtx, stopSweeps := context.WithCancel(ctx)
	defer stopSweeps()
	group, groupCtx := errgroup.WithContext(sweepCtx)
	for _, sw := range s.sweepers {
		sw := sw
		group.Go(func() error {
			return sw.Run(groupCtx)
		})
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	var err error
	select {
	case <-ctx.Done():
		if s.health != nil {
			s.health.Shutdown()
		}
		s.grpcServer.GracefulStop()
		err = <-serveErr
		if err != nil && errors.Is(err, grpc.ErrServerStopped) {
			err = nil
		}
	case err = <-serveErr:
		if err != nil && errors.Is(err, grpc.ErrServerStopped) {
			err = nil
		}
	}
	stopSweeps()
	if werr := group.Wait(); err == nil {
		err = werr
	}
	return err
}

// Close releases the server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}
}
