// Package bot wires the tempvoice components to a Discord gateway session.
//
// # Overview
//
// New builds every component from configuration: the config store and its
// backend, the cooldown limiter, the access engine, the lifecycle manager,
// the interaction router, and the setup commands. Run opens the session,
// starts the reaper and the optional health/metrics server, and blocks until
// the context is canceled.
//
// # Events
//
// Discord events are translated into platform-neutral values before they
// reach a component:
//
//   - VOICE_STATE_UPDATE → lifecycle.VoiceStateEvent
//   - INTERACTION_CREATE → interaction.Interaction, answered from interaction.Response
//   - MESSAGE_CREATE → setup.Message
//
// Each event is handled on its own goroutine and tagged with an event_id in
// the logs.
//
// # HTTP Endpoints
//
// When metrics are enabled the bot serves:
//
//   - GET /health → 200 while the process is up
//   - GET /health/ready → 200 once the gateway session is ready
//   - GET <metrics.path> → Prometheus exposition
package bot
