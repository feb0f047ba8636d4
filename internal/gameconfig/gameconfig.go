// Package gameconfig holds the tunable rules of the survival mode:
// lifecycle durations, team limits and the arena catalog. Values load
// from the environment with sensible defaults so a bare process is
// playable.
package gameconfig

import (
	"time"

	"github.com/nyaacat/kedama-survivors/internal/platform/config"
	"github.com/nyaacat/kedama-survivors/internal/run"
)

// Rules are the lifecycle tunables. All deadlines derived from them are
// absolute instants; nothing counts down.
type Rules struct {
	MaxTeamSize int `env:"KEDAMA_SURVIVORS_MAX_TEAM_SIZE" envDefault:"4"`

	DeathCooldown   time.Duration `env:"KEDAMA_SURVIVORS_DEATH_COOLDOWN" envDefault:"60s"`
	QuitCooldown    time.Duration `env:"KEDAMA_SURVIVORS_QUIT_COOLDOWN" envDefault:"30s"`
	DisconnectGrace time.Duration `env:"KEDAMA_SURVIVORS_DISCONNECT_GRACE" envDefault:"120s"`
	InviteExpiry    time.Duration `env:"KEDAMA_SURVIVORS_INVITE_EXPIRY" envDefault:"60s"`
	CountdownDelay  time.Duration `env:"KEDAMA_SURVIVORS_COUNTDOWN_DELAY" envDefault:"5s"`
	GraceEjectDelay time.Duration `env:"KEDAMA_SURVIVORS_GRACE_EJECT_DELAY" envDefault:"10s"`
	RespawnShield   time.Duration `env:"KEDAMA_SURVIVORS_RESPAWN_SHIELD" envDefault:"3s"`
	UpgradeWindow   time.Duration `env:"KEDAMA_SURVIVORS_UPGRADE_WINDOW" envDefault:"30s"`

	SweepInterval time.Duration `env:"KEDAMA_SURVIVORS_SWEEP_INTERVAL" envDefault:"1s"`
}

// Arena is a playable map with its spawn positions.
type Arena struct {
	Name        string
	SpawnPoints []run.SpawnPoint
}

// ParseRules loads Rules from the environment.
func ParseRules() (Rules, error) {
	var r Rules
	if err := config.ParseEnv(&r); err != nil {
		return Rules{}, err
	}
	return r, nil
}

// DefaultArenas is the built-in arena catalog used when no external
// catalog is supplied.
func DefaultArenas() []Arena {
	return []Arena{
		{
			Name: "caverns",
			SpawnPoints: []run.SpawnPoint{
				{X: 12, Y: 64, Z: -8},
				{X: -20, Y: 64, Z: 14},
				{X: 4, Y: 65, Z: 30},
				{X: -6, Y: 63, Z: -26},
			},
		},
		{
			Name: "frostpeak",
			SpawnPoints: []run.SpawnPoint{
				{X: 110, Y: 92, Z: 40},
				{X: 96, Y: 90, Z: 18},
				{X: 128, Y: 91, Z: 27},
			},
		},
		{
			Name: "sunken-keep",
			SpawnPoints: []run.SpawnPoint{
				{X: -300, Y: 40, Z: 200},
				{X: -288, Y: 41, Z: 214},
			},
		},
	}
}
