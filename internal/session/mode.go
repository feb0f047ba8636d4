package session

import "strings"

// Mode describes the lifecycle state of a player session.
type Mode int

const (
	// ModeLobby indicates the player is in the preparation area, not queued.
	ModeLobby Mode = iota
	// ModeReady indicates the player has marked ready and waits for the team.
	ModeReady
	// ModeCountdown indicates the team countdown is in progress.
	ModeCountdown
	// ModeInRun indicates the player is actively in a run.
	ModeInRun
	// ModeCooldown indicates the player died or quit and waits out a cooldown.
	ModeCooldown
	// ModeGraceEject indicates global admission was disabled and the player
	// is being ejected after a grace window.
	ModeGraceEject
	// ModeDisconnected indicates the player dropped during a run and is
	// within (or past) the disconnect grace period.
	ModeDisconnected
)

// String returns the label for a mode.
func (m Mode) String() string {
	switch m {
	case ModeLobby:
		return "LOBBY"
	case ModeReady:
		return "READY"
	case ModeCountdown:
		return "COUNTDOWN"
	case ModeInRun:
		return "IN_RUN"
	case ModeCooldown:
		return "COOLDOWN"
	case ModeGraceEject:
		return "GRACE_EJECT"
	case ModeDisconnected:
		return "DISCONNECTED"
	default:
		return "UNSPECIFIED"
	}
}

// ModeFromLabel converts a mode label to a Mode value. Unknown labels map
// to ModeLobby, the state every session starts in.
func ModeFromLabel(label string) Mode {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "READY":
		return ModeReady
	case "COUNTDOWN":
		return ModeCountdown
	case "IN_RUN":
		return ModeInRun
	case "COOLDOWN":
		return ModeCooldown
	case "GRACE_EJECT":
		return ModeGraceEject
	case "DISCONNECTED":
		return ModeDisconnected
	default:
		return ModeLobby
	}
}
