// Package config handles configuration loading for tempvoice.
//
// # Overview
//
// Configuration is loaded from a YAML file (or TOML when the path ends in
// .toml) with environment variable expansion, then overridden by TEMPVOICE_*
// variables. Unset values get defaults.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from the --config flag
//  2. Path from TEMPVOICE_CONFIG environment variable
//  3. $XDG_CONFIG_HOME/tempvoice/config.yaml
//  4. ~/.config/tempvoice/config.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	discord:
//	  token: "${DISCORD_BOT_TOKEN}"
//
// # Environment Overrides
//
// Every key can also be set directly, named after its path:
//
//	TEMPVOICE_DISCORD_TOKEN=...
//	TEMPVOICE_STORAGE_DRIVER=sqlite
//	TEMPVOICE_COOLDOWNS_CREATE_CHANNEL=30s
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	reaper:
//	  interval: "1800ms"
//	cooldowns:
//	  create_channel: "15s"
//	  button: "3s"
//	  kick: "5s"
//
// # Configuration Sections
//
//	discord:
//	  token: "${DISCORD_BOT_TOKEN}"  # required
//	  command_prefix: "+"
//	storage:
//	  driver: "json"                 # json or sqlite
//	  path: "settings.json"
//	rooms:
//	  name_template: "%s's Room"
//	logging:
//	  level: "info"                  # debug, info, warn, error
//	  format: "text"                 # text or json
//	metrics:
//	  enabled: false
//	  addr: "127.0.0.1:9090"
//	  path: "/metrics"
package config
