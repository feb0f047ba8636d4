// Package errors provides structured error handling with typed rejection codes.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Session errors
	CodeSessionEmptyPlayerID   Code = "SESSION_EMPTY_PLAYER_ID"
	CodeSessionNotInLobby      Code = "SESSION_NOT_IN_LOBBY"
	CodeSessionOnCooldown      Code = "SESSION_ON_COOLDOWN"
	CodeSessionInRun           Code = "SESSION_IN_RUN"
	CodeSessionNotInRun        Code = "SESSION_NOT_IN_RUN"
	CodeSessionSetupIncomplete Code = "SESSION_SETUP_INCOMPLETE"

	// Team errors
	CodeTeamNameEmpty      Code = "TEAM_NAME_EMPTY"
	CodeTeamNameTaken      Code = "TEAM_NAME_TAKEN"
	CodeTeamAlreadyInTeam  Code = "TEAM_ALREADY_IN_TEAM"
	CodeTeamNotInTeam      Code = "TEAM_NOT_IN_TEAM"
	CodeTeamNotLeader      Code = "TEAM_NOT_LEADER"
	CodeTeamFull           Code = "TEAM_FULL"
	CodeTeamNoInvite       Code = "TEAM_NO_INVITE"
	CodeTeamSelfInvite     Code = "TEAM_SELF_INVITE"
	CodeTeamSelfKick       Code = "TEAM_SELF_KICK"
	CodeTeamMemberNotFound Code = "TEAM_MEMBER_NOT_FOUND"
	CodeTeamBoundToRun     Code = "TEAM_BOUND_TO_RUN"

	// Run errors
	CodeRunNotActive   Code = "RUN_NOT_ACTIVE"
	CodeRunNoArenas    Code = "RUN_NO_ARENAS"
	CodeRunNoSurvivors Code = "RUN_NO_SURVIVORS"

	// Admission errors
	CodeAdmissionDisabled Code = "ADMISSION_DISABLED"

	// Lookup errors
	CodeNotFound Code = "NOT_FOUND"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeSessionEmptyPlayerID,
		CodeTeamNameEmpty,
		CodeTeamSelfInvite,
		CodeTeamSelfKick:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeSessionNotInLobby,
		CodeSessionOnCooldown,
		CodeSessionInRun,
		CodeSessionNotInRun,
		CodeSessionSetupIncomplete,
		CodeTeamNameTaken,
		CodeTeamAlreadyInTeam,
		CodeTeamNotInTeam,
		CodeTeamNotLeader,
		CodeTeamFull,
		CodeTeamNoInvite,
		CodeTeamBoundToRun,
		CodeRunNotActive,
		CodeRunNoArenas,
		CodeRunNoSurvivors,
		CodeAdmissionDisabled:
		return codes.FailedPrecondition

	// NotFound - resource doesn't exist
	case CodeNotFound,
		CodeTeamMemberNotFound:
		return codes.NotFound

	default:
		return codes.Internal
	}
}
