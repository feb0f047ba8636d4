// Package session defines the per-player state machine for the
// lobby/ready/countdown/run/cooldown lifecycle.
//
// A Session is owned by the state registry and mutated both by
// foreground player events and by background reconciler sweeps, so every
// accessor and transition takes the aggregate's lock. Transitions are
// guarded by the mode read under that lock: a transition whose guard no
// longer holds reports false and leaves the session untouched rather
// than failing, because a concurrent sweep may legitimately have moved
// the session first.
//
// All deadlines (cooldown, disconnect, invulnerability, upgrade) are
// absolute instants compared against a caller-supplied "now"; clearing a
// deadline cancels the pending transition with no timer bookkeeping.
package session
