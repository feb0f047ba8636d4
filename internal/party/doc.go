// Package party defines the team aggregate: membership, per-member
// readiness, pending invites with lazy expiry, disconnect tracking, and
// leadership.
//
// A Team holds player identifiers only, never session objects; all
// cross-aggregate coordination happens in the state registry. Collections
// are guarded by one mutex per team, and every mutation is idempotent so
// foreground events and reconciler sweeps can interleave without a
// cross-field transaction.
package party
