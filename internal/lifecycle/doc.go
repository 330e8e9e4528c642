// Package lifecycle creates a private voice room when a member enters a
// community's spawner channel and deletes rooms once they are empty.
//
// # Provisioning
//
// HandleJoin reacts to voice-state changes. Entering the spawner is gated by
// the create_channel cooldown. A throttled member gets a private notice and
// is disconnected from the spawner. An allowed member gets a new room under
// the community category, owner grants on it, and is moved in. Platform
// failures are logged and never retried.
//
// # Reaping
//
// Run sweeps every configured category on a fixed interval. Voice children
// other than the spawner with no occupants are deleted. A room is skipped
// while its creator is still being moved in. Each deletion is independent:
// one failure does not stop the sweep.
package lifecycle
