// Package discord implements platform.Platform over a discordgo session.
//
// Reads prefer the session state cache, which the gateway keeps current for
// guilds, channels, members, and voice states. Writes go through the REST
// API with the caller's context attached.
package discord
