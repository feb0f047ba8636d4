package party

import (
	"sync"
	"time"
)

// Team is the party aggregate. Safe for concurrent use; every method
// takes the team lock. A snapshot returned by an accessor is a copy and
// may be stale after any subsequent mutation.
type Team struct {
	mu sync.Mutex

	teamID    string
	name      string
	leaderID  string
	createdAt time.Time

	members             map[string]struct{}
	readyMembers        map[string]struct{}
	disconnectedMembers map[string]time.Time
	pendingInvites      map[string]time.Time

	runID string
}

// New creates a team with the leader as its only member.
func New(teamID, name, leaderID string, createdAt time.Time) *Team {
	return &Team{
		teamID:              teamID,
		name:                name,
		leaderID:            leaderID,
		createdAt:           createdAt,
		members:             map[string]struct{}{leaderID: {}},
		readyMembers:        map[string]struct{}{},
		disconnectedMembers: map[string]time.Time{},
		pendingInvites:      map[string]time.Time{},
	}
}

// TeamID returns the unique team identifier.
func (t *Team) TeamID() string { return t.teamID }

// Name returns the display name.
func (t *Team) Name() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.name
}

// SetName updates the display name. Uniqueness is enforced by the registry.
func (t *Team) SetName(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.name = name
}

// CreatedAt returns the creation instant.
func (t *Team) CreatedAt() time.Time { return t.createdAt }

// RunID returns the bound run reference, or "" when none.
func (t *Team) RunID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runID
}

// SetRunID sets or clears the bound run reference.
func (t *Team) SetRunID(runID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runID = runID
}

// AddMember adds a player. Reports false when already a member.
func (t *Team) AddMember(playerID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.members[playerID]; ok {
		return false
	}
	t.members[playerID] = struct{}{}
	return true
}

// RemoveMember removes a player from every team collection. Reports
// false when the player was not a member. Leadership reassignment is the
// caller's responsibility.
func (t *Team) RemoveMember(playerID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.readyMembers, playerID)
	delete(t.disconnectedMembers, playerID)
	if _, ok := t.members[playerID]; !ok {
		return false
	}
	delete(t.members, playerID)
	return true
}

// IsMember reports membership.
func (t *Team) IsMember(playerID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.members[playerID]
	return ok
}

// Members returns a copy of the membership set.
func (t *Team) Members() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.members))
	for id := range t.members {
		out = append(out, id)
	}
	return out
}

// MemberCount returns the number of members.
func (t *Team) MemberCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.members)
}

// IsEmpty reports whether the team has no members left. An empty team
// never persists; the registry disbands it.
func (t *Team) IsEmpty() bool {
	return t.MemberCount() == 0
}

// SetReady adds or removes a member from the ready set.
func (t *Team) SetReady(playerID string, ready bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ready {
		if _, ok := t.members[playerID]; ok {
			t.readyMembers[playerID] = struct{}{}
		}
		return
	}
	delete(t.readyMembers, playerID)
}

// IsReady reports whether a member is in the ready set.
func (t *Team) IsReady(playerID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.readyMembers[playerID]
	return ok
}

// IsAllReady reports whether every member is ready. True for a singleton
// team whose only member is ready. Polled by the registry after every
// readiness change; the team itself never pushes events.
func (t *Team) IsAllReady() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.members) == 0 {
		return false
	}
	for id := range t.members {
		if _, ok := t.readyMembers[id]; !ok {
			return false
		}
	}
	return true
}

// ReadyCount returns the number of ready members.
func (t *Team) ReadyCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.readyMembers)
}

// ClearReady empties the ready set.
func (t *Team) ClearReady() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.readyMembers = map[string]struct{}{}
}

// MarkDisconnected records a member's disconnect instant. Idempotent:
// an already-tracked member keeps its original instant.
func (t *Team) MarkDisconnected(playerID string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.members[playerID]; !ok {
		return
	}
	if _, ok := t.disconnectedMembers[playerID]; ok {
		return
	}
	t.disconnectedMembers[playerID] = at
}

// MarkReconnected clears a member's disconnect tracking. Idempotent.
func (t *Team) MarkReconnected(playerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.disconnectedMembers, playerID)
}

// IsDisconnected reports whether a member is tracked as disconnected.
func (t *Team) IsDisconnected(playerID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.disconnectedMembers[playerID]
	return ok
}

// DisconnectedMembers returns a copy of the tracked member ids.
func (t *Team) DisconnectedMembers() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.disconnectedMembers))
	for id := range t.disconnectedMembers {
		out = append(out, id)
	}
	return out
}

// ConnectedCount returns the number of members not tracked as disconnected.
func (t *Team) ConnectedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.members) - len(t.disconnectedMembers)
}

// PurgeExpiredDisconnects removes members whose disconnect grace has
// elapsed from every team collection and returns the removed ids. This
// is how a team shrinks due to abandonment.
func (t *Team) PurgeExpiredDisconnects(now time.Time, grace time.Duration) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var expired []string
	for id, at := range t.disconnectedMembers {
		if now.Sub(at) > grace {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(t.disconnectedMembers, id)
		delete(t.members, id)
		delete(t.readyMembers, id)
	}
	if _, ok := t.members[t.leaderID]; !ok {
		t.autoSelectLeaderLocked()
	}
	return expired
}

// AddInvite records a pending invite with an absolute expiry.
func (t *Team) AddInvite(playerID string, expiry time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pendingInvites[playerID] = expiry
}

// HasInvite reports whether a valid invite exists for the player. An
// expired invite is removed on access; the boundary instant itself counts
// as expired. No background sweep is needed because invites are only
// meaningful at the point of use.
func (t *Team) HasInvite(playerID string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	expiry, ok := t.pendingInvites[playerID]
	if !ok {
		return false
	}
	if !now.Before(expiry) {
		delete(t.pendingInvites, playerID)
		return false
	}
	return true
}

// RemoveInvite drops a pending invite. No-op when absent.
func (t *Team) RemoveInvite(playerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pendingInvites, playerID)
}

// PendingInvites returns the invitees with unexpired invites, purging
// expired ones.
func (t *Team) PendingInvites(now time.Time) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.pendingInvites))
	for id, expiry := range t.pendingInvites {
		if !now.Before(expiry) {
			delete(t.pendingInvites, id)
			continue
		}
		out = append(out, id)
	}
	return out
}

// IsWiped reports whether no member is alive-and-recoverable: every
// member is either absent from aliveSet or disconnected longer than the
// grace period. Pure; safe to call speculatively from multiple paths.
func (t *Team) IsWiped(aliveSet map[string]struct{}, now time.Time, grace time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id := range t.members {
		if _, alive := aliveSet[id]; !alive {
			continue
		}
		at, disconnected := t.disconnectedMembers[id]
		if !disconnected || now.Sub(at) < grace {
			return false
		}
	}
	return true
}

// LeaderID returns the current leader.
func (t *Team) LeaderID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.leaderID
}

// IsLeader reports whether the player is the current leader.
func (t *Team) IsLeader(playerID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.leaderID == playerID
}

// TransferLeadership hands leadership to another member. Reports false
// with no mutation when the target is not a member.
func (t *Team) TransferLeadership(newLeaderID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.members[newLeaderID]; !ok {
		return false
	}
	t.leaderID = newLeaderID
	return true
}

// AutoSelectLeader picks a new leader, preferring a connected member and
// falling back to any remaining member. Returns "" only when the team is
// empty.
func (t *Team) AutoSelectLeader() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.autoSelectLeaderLocked()
}

func (t *Team) autoSelectLeaderLocked() string {
	if len(t.members) == 0 {
		t.leaderID = ""
		return ""
	}
	for id := range t.members {
		if _, disconnected := t.disconnectedMembers[id]; !disconnected {
			t.leaderID = id
			return id
		}
	}
	for id := range t.members {
		t.leaderID = id
		return id
	}
	return ""
}

// ResetForNewRun clears run-scoped team state: readiness, disconnect
// tracking and the bound run reference.
func (t *Team) ResetForNewRun() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.readyMembers = map[string]struct{}{}
	t.disconnectedMembers = map[string]time.Time{}
	t.runID = ""
}
