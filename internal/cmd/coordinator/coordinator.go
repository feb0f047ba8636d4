// Package coordinator parses coordinator flags and launches the service.
package coordinator

import (
	"context"
	"flag"

	"github.com/nyaacat/kedama-survivors/internal/app"
	entrypoint "github.com/nyaacat/kedama-survivors/internal/platform/cmd"
)

// Config holds coordinator command configuration.
type Config struct {
	Port int `env:"KEDAMA_SURVIVORS_PORT" envDefault:"8080"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The coordinator gRPC server port")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the coordinator service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceCoordinator, func(context.Context) error {
		return app.Run(ctx, cfg.Port)
	})
}
