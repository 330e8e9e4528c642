// ABOUTME: Configuration loading and parsing for tempvoice
// ABOUTME: Supports YAML or TOML files with env var expansion, env overrides, and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/2389/tempvoice/internal/cooldown"
)

// EnvPrefix prefixes every environment override, e.g. TEMPVOICE_DISCORD_TOKEN.
const EnvPrefix = "TEMPVOICE"

// Config represents the complete tempvoice configuration.
// Leaf envconfig tags are complete variable names so envconfig never falls
// back to a bare name such as PATH or TOKEN.
type Config struct {
	Discord   DiscordConfig   `yaml:"discord" toml:"discord" envconfig:"discord"`
	Storage   StorageConfig   `yaml:"storage" toml:"storage" envconfig:"storage"`
	Reaper    ReaperConfig    `yaml:"reaper" toml:"reaper" envconfig:"reaper"`
	Cooldowns CooldownsConfig `yaml:"cooldowns" toml:"cooldowns" envconfig:"cooldowns"`
	Rooms     RoomsConfig     `yaml:"rooms" toml:"rooms" envconfig:"rooms"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging" envconfig:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics" toml:"metrics" envconfig:"metrics"`
}

// DiscordConfig holds the bot credentials and command prefix
type DiscordConfig struct {
	Token         string `yaml:"token" toml:"token" envconfig:"TEMPVOICE_DISCORD_TOKEN"`
	CommandPrefix string `yaml:"command_prefix" toml:"command_prefix" envconfig:"TEMPVOICE_DISCORD_COMMAND_PREFIX"`
}

// StorageConfig selects where community configuration is persisted
type StorageConfig struct {
	Driver string `yaml:"driver" toml:"driver" envconfig:"TEMPVOICE_STORAGE_DRIVER"` // json or sqlite
	Path   string `yaml:"path" toml:"path" envconfig:"TEMPVOICE_STORAGE_PATH"`
}

// ReaperConfig holds the empty-room sweep timing
type ReaperConfig struct {
	Interval time.Duration `yaml:"-" toml:"-" ignored:"true"`

	// Raw string value for unmarshaling
	IntervalRaw string `yaml:"interval" toml:"interval" envconfig:"TEMPVOICE_REAPER_INTERVAL"`
}

// CooldownsConfig holds the per-action cooldown windows
type CooldownsConfig struct {
	CreateChannel time.Duration `yaml:"-" toml:"-" ignored:"true"`
	Button        time.Duration `yaml:"-" toml:"-" ignored:"true"`
	Kick          time.Duration `yaml:"-" toml:"-" ignored:"true"`

	// Raw string values for unmarshaling
	CreateChannelRaw string `yaml:"create_channel" toml:"create_channel" envconfig:"TEMPVOICE_COOLDOWNS_CREATE_CHANNEL"`
	ButtonRaw        string `yaml:"button" toml:"button" envconfig:"TEMPVOICE_COOLDOWNS_BUTTON"`
	KickRaw          string `yaml:"kick" toml:"kick" envconfig:"TEMPVOICE_COOLDOWNS_KICK"`
}

// RoomsConfig controls how provisioned rooms are named
type RoomsConfig struct {
	// NameTemplate is a fmt template receiving the creator's display name
	NameTemplate string `yaml:"name_template" toml:"name_template" envconfig:"TEMPVOICE_ROOMS_NAME_TEMPLATE"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level" envconfig:"TEMPVOICE_LOGGING_LEVEL"`
	Format string `yaml:"format" toml:"format" envconfig:"TEMPVOICE_LOGGING_FORMAT"`
}

// MetricsConfig holds the health and metrics side server configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled" envconfig:"TEMPVOICE_METRICS_ENABLED"`
	Addr    string `yaml:"addr" toml:"addr" envconfig:"TEMPVOICE_METRICS_ADDR"`
	Path    string `yaml:"path" toml:"path" envconfig:"TEMPVOICE_METRICS_PATH"`
}

// Default values.
const (
	DefaultCommandPrefix = "+"
	DefaultStorageDriver = "json"
	DefaultStoragePath   = "settings.json"
	DefaultReapInterval  = "1800ms"
	DefaultNameTemplate  = "%s's Room"
	DefaultMetricsAddr   = "127.0.0.1:9090"
	DefaultMetricsPath   = "/metrics"
)

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded, then
// TEMPVOICE_* variables override file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw content
	expanded := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	return finish(&cfg)
}

// FromEnv builds a Config from defaults and TEMPVOICE_* variables only.
func FromEnv() (*Config, error) {
	return finish(&Config{})
}

// finish applies env overrides and defaults, parses durations, and validates.
func finish(cfg *Config) (*Config, error) {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}

	applyDefaults(cfg)

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills every unset field with its default
func applyDefaults(cfg *Config) {
	if cfg.Discord.CommandPrefix == "" {
		cfg.Discord.CommandPrefix = DefaultCommandPrefix
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DefaultStorageDriver
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = DefaultStoragePath
	}
	if cfg.Reaper.IntervalRaw == "" {
		cfg.Reaper.IntervalRaw = DefaultReapInterval
	}

	defaults := cooldown.DefaultWindows()
	if cfg.Cooldowns.CreateChannelRaw == "" {
		cfg.Cooldowns.CreateChannelRaw = defaults[cooldown.ActionCreateChannel].String()
	}
	if cfg.Cooldowns.ButtonRaw == "" {
		cfg.Cooldowns.ButtonRaw = defaults[cooldown.ActionButton].String()
	}
	if cfg.Cooldowns.KickRaw == "" {
		cfg.Cooldowns.KickRaw = defaults[cooldown.ActionKick].String()
	}

	if cfg.Rooms.NameTemplate == "" {
		cfg.Rooms.NameTemplate = DefaultNameTemplate
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = DefaultMetricsAddr
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return fmt.Errorf("discord.token is required")
	}

	switch c.Storage.Driver {
	case "json", "sqlite":
	default:
		return fmt.Errorf("storage.driver must be json or sqlite, got %q", c.Storage.Driver)
	}

	if c.Reaper.Interval <= 0 {
		return fmt.Errorf("reaper.interval must be positive")
	}

	if strings.Count(c.Rooms.NameTemplate, "%s") != 1 || strings.Count(c.Rooms.NameTemplate, "%") != 1 {
		return fmt.Errorf("rooms.name_template must contain exactly one %%s and no other verbs")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}

	return nil
}

// CooldownWindows returns the configured window for every throttled action.
func (c *Config) CooldownWindows() map[cooldown.Action]time.Duration {
	return map[cooldown.Action]time.Duration{
		cooldown.ActionCreateChannel: c.Cooldowns.CreateChannel,
		cooldown.ActionButton:        c.Cooldowns.Button,
		cooldown.ActionKick:          c.Cooldowns.Kick,
	}
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"reaper.interval", cfg.Reaper.IntervalRaw, &cfg.Reaper.Interval},
		{"cooldowns.create_channel", cfg.Cooldowns.CreateChannelRaw, &cfg.Cooldowns.CreateChannel},
		{"cooldowns.button", cfg.Cooldowns.ButtonRaw, &cfg.Cooldowns.Button},
		{"cooldowns.kick", cfg.Cooldowns.KickRaw, &cfg.Cooldowns.Kick},
	}

	for _, f := range fields {
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must not be negative", f.name)
		}
		*f.dst = d
	}

	return nil
}
