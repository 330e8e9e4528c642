// Package access implements the owner-gated operations on provisioned rooms.
//
// # Ownership
//
// Nothing in this package remembers who owns a room. A room "owner" is any
// member holding the owner grant (manage + move members) on the channel, as
// reported live by the platform. The creator receives it when the room is
// provisioned and any occupant may take it with Claim.
//
// # Flow
//
// Every operation starts with Locate, which resolves the caller's current
// voice channel and checks that it is a provisioned room of a configured
// community. Input is validated before any platform call, so a
// *ValidationError never leaves partial state behind.
//
// Kicks run in two phases. KickCandidates lists who may be removed and
// ExecuteKick re-checks the caller's capability and the target's presence
// before disconnecting.
package access
