// Package setup provisions a community for temporary voice rooms and keeps
// its control panel posted.
//
// Initialize creates the category, the spawner, and the interface channel,
// stores the resulting configuration, and posts the panel. It is idempotent:
// a configured community is left untouched. Resend reposts the panel for a
// configured community.
//
// Commands exposes both operations as prefix chat commands.
package setup
