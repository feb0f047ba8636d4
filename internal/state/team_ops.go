package state

import (
	"strings"

	"github.com/nyaacat/kedama-survivors/internal/party"
	"github.com/nyaacat/kedama-survivors/internal/platform/errors"
	"github.com/nyaacat/kedama-survivors/internal/session"
)

func normalizeTeamName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func errEmptyPlayerID() error {
	return errors.New(errors.CodeSessionEmptyPlayerID, "player id is required")
}

func errNotFound(kind, id string) error {
	return errors.WithMetadata(errors.CodeNotFound, kind+" not found", map[string]string{"id": id})
}

// CreateTeam creates a team led by the given player. The player must be
// in the lobby and teamless, and the name must be unique among active
// teams.
func (r *Registry) CreateTeam(playerID, name string) (*party.Team, error) {
	if normalizeTeamName(name) == "" {
		return nil, errors.New(errors.CodeTeamNameEmpty, "team name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[playerID]
	if !ok {
		return nil, errNotFound("player", playerID)
	}
	if _, ok := r.playerToTeam[playerID]; ok {
		return nil, errors.New(errors.CodeTeamAlreadyInTeam, "player already belongs to a team")
	}
	if s.Mode() != session.ModeLobby {
		return nil, errors.New(errors.CodeSessionNotInLobby, "teams can only be created from the lobby")
	}
	key := normalizeTeamName(name)
	if _, ok := r.teamByName[key]; ok {
		return nil, errors.WithMetadata(errors.CodeTeamNameTaken, "team name already in use", map[string]string{"name": name})
	}
	teamID, err := r.newID()
	if err != nil {
		return nil, errors.Wrap(errors.CodeUnknown, "generate team id", err)
	}
	t := party.New(teamID, name, playerID, r.now())
	r.teams[teamID] = t
	r.teamByName[key] = teamID
	r.playerToTeam[playerID] = teamID
	s.SetTeamID(teamID)
	return t, nil
}

// Invite records a pending invite from the team leader to another
// player. Invites expire lazily after the configured window.
func (r *Registry) Invite(leaderID, inviteeID string) error {
	if leaderID == inviteeID {
		return errors.New(errors.CodeTeamSelfInvite, "cannot invite yourself")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teamOfLocked(leaderID)
	if !ok {
		return errors.New(errors.CodeTeamNotInTeam, "player is not in a team")
	}
	if !t.IsLeader(leaderID) {
		return errors.New(errors.CodeTeamNotLeader, "only the leader can invite")
	}
	if _, ok := r.playerToTeam[inviteeID]; ok {
		return errors.New(errors.CodeTeamAlreadyInTeam, "invitee already belongs to a team")
	}
	if t.MemberCount() >= r.rules.MaxTeamSize {
		return errors.New(errors.CodeTeamFull, "team is full")
	}
	if t.RunID() != "" {
		return errors.New(errors.CodeTeamBoundToRun, "team is in a run")
	}
	t.AddInvite(inviteeID, r.now().Add(r.rules.InviteExpiry))
	return nil
}

// AcceptInvite joins the invitee to the team behind a valid invite.
func (r *Registry) AcceptInvite(playerID, teamID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[playerID]
	if !ok {
		return errNotFound("player", playerID)
	}
	t, ok := r.teams[teamID]
	if !ok {
		return errNotFound("team", teamID)
	}
	if _, ok := r.playerToTeam[playerID]; ok {
		return errors.New(errors.CodeTeamAlreadyInTeam, "player already belongs to a team")
	}
	if !t.HasInvite(playerID, r.now()) {
		return errors.New(errors.CodeTeamNoInvite, "no pending invite")
	}
	if t.MemberCount() >= r.rules.MaxTeamSize {
		return errors.New(errors.CodeTeamFull, "team is full")
	}
	if t.RunID() != "" {
		return errors.New(errors.CodeTeamBoundToRun, "team is in a run")
	}
	t.RemoveInvite(playerID)
	t.AddMember(playerID)
	r.playerToTeam[playerID] = teamID
	s.SetTeamID(teamID)
	return nil
}

// DeclineInvite drops a pending invite. Declining an absent invite is a
// no-op.
func (r *Registry) DeclineInvite(playerID, teamID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teams[teamID]
	if !ok {
		return errNotFound("team", teamID)
	}
	t.RemoveInvite(playerID)
	return nil
}

// LeaveTeam removes the player from their team. A departing leader
// hands off automatically and a team left empty disbands.
func (r *Registry) LeaveTeam(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.teamOfLocked(playerID); !ok {
		return errors.New(errors.CodeTeamNotInTeam, "player is not in a team")
	}
	r.detachFromTeamLocked(playerID)
	return nil
}

// KickMember removes another member from the leader's team.
func (r *Registry) KickMember(leaderID, targetID string) error {
	if leaderID == targetID {
		return errors.New(errors.CodeTeamSelfKick, "cannot kick yourself")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teamOfLocked(leaderID)
	if !ok {
		return errors.New(errors.CodeTeamNotInTeam, "player is not in a team")
	}
	if !t.IsLeader(leaderID) {
		return errors.New(errors.CodeTeamNotLeader, "only the leader can kick")
	}
	if !t.IsMember(targetID) {
		return errors.New(errors.CodeTeamMemberNotFound, "target is not a member")
	}
	r.detachFromTeamLocked(targetID)
	return nil
}

// DisbandTeam removes the leader's team and frees every member.
func (r *Registry) DisbandTeam(leaderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teamOfLocked(leaderID)
	if !ok {
		return errors.New(errors.CodeTeamNotInTeam, "player is not in a team")
	}
	if !t.IsLeader(leaderID) {
		return errors.New(errors.CodeTeamNotLeader, "only the leader can disband")
	}
	r.removeTeamLocked(t)
	return nil
}

// TransferLeadership hands the leader's role to another member.
func (r *Registry) TransferLeadership(leaderID, targetID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teamOfLocked(leaderID)
	if !ok {
		return errors.New(errors.CodeTeamNotInTeam, "player is not in a team")
	}
	if !t.IsLeader(leaderID) {
		return errors.New(errors.CodeTeamNotLeader, "only the leader can transfer leadership")
	}
	if !t.TransferLeadership(targetID) {
		return errors.New(errors.CodeTeamMemberNotFound, "target is not a member")
	}
	return nil
}

// SetReady toggles a team member's readiness. Going ready requires the
// lobby mode and completed pre-run setup; when the whole team is ready
// the countdown begins.
func (r *Registry) SetReady(playerID string, ready bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[playerID]
	if !ok {
		return errNotFound("player", playerID)
	}
	t, ok := r.teamOfLocked(playerID)
	if !ok {
		return errors.New(errors.CodeTeamNotInTeam, "player is not in a team")
	}
	if !ready {
		s.ClearReady()
		t.SetReady(playerID, false)
		if _, counting := r.countdowns[t.TeamID()]; counting {
			r.cancelCountdownLocked(t)
		}
		return nil
	}
	if s.IsOnCooldown(r.now()) {
		return errors.New(errors.CodeSessionOnCooldown, "player is on cooldown")
	}
	if s.Mode() == session.ModeCooldown {
		s.FinishCooldown()
		delete(r.cooldown, playerID)
	}
	if !r.setupComplete(playerID) {
		return errors.New(errors.CodeSessionSetupIncomplete, "pre-run setup is not complete")
	}
	if !s.MarkReady() {
		return errors.New(errors.CodeSessionNotInLobby, "ready is only available in the lobby")
	}
	t.SetReady(playerID, true)
	if t.IsAllReady() {
		r.beginCountdownLocked(t)
	}
	return nil
}

// beginCountdownLocked arms the team countdown deadline and moves every
// member into the countdown mode.
func (r *Registry) beginCountdownLocked(t *party.Team) {
	r.countdowns[t.TeamID()] = r.now().Add(r.rules.CountdownDelay)
	for _, pid := range t.Members() {
		if s, ok := r.sessions[pid]; ok {
			s.BeginCountdown()
		}
	}
}

// cancelCountdownLocked disarms the deadline and returns members to
// their pre-countdown mode.
func (r *Registry) cancelCountdownLocked(t *party.Team) {
	delete(r.countdowns, t.TeamID())
	for _, pid := range t.Members() {
		if s, ok := r.sessions[pid]; ok {
			s.CancelCountdown()
		}
	}
}

// detachFromTeamLocked removes the player from their team and repairs
// leadership, countdown and lifecycle fallout. Safe to call for players
// without a team.
func (r *Registry) detachFromTeamLocked(playerID string) {
	t, ok := r.teamOfLocked(playerID)
	if !ok {
		delete(r.playerToTeam, playerID)
		if s, ok := r.sessions[playerID]; ok {
			s.SetTeamID("")
		}
		return
	}
	if _, counting := r.countdowns[t.TeamID()]; counting {
		r.cancelCountdownLocked(t)
	}
	wasLeader := t.IsLeader(playerID)
	t.RemoveMember(playerID)
	delete(r.playerToTeam, playerID)
	if s, ok := r.sessions[playerID]; ok {
		s.SetTeamID("")
		s.ClearReady()
	}
	if t.IsEmpty() {
		r.removeTeamLocked(t)
		return
	}
	if wasLeader {
		t.AutoSelectLeader()
	}
}

// removeTeamLocked disbands a team: every member is detached, any bound
// run keeps running until its own end path fires, and the indices drop
// the team.
func (r *Registry) removeTeamLocked(t *party.Team) {
	delete(r.countdowns, t.TeamID())
	for _, pid := range t.Members() {
		delete(r.playerToTeam, pid)
		if s, ok := r.sessions[pid]; ok {
			s.SetTeamID("")
			s.ClearReady()
		}
	}
	delete(r.teamByName, normalizeTeamName(t.Name()))
	delete(r.teamToRun, t.TeamID())
	delete(r.teams, t.TeamID())
}
