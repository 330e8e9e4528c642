// ABOUTME: Configuration store mapping community IDs to provisioning configuration
// ABOUTME: In-memory map is canonical; every Put writes the whole mapping through a Backend

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
)

// ErrPersist wraps a failed durable write. The in-memory state has already
// been updated when it is returned, so callers treat it as a warning.
var ErrPersist = errors.New("persisting community configs")

// ErrInvalidConfig is returned by Put for configs missing required fields.
var ErrInvalidConfig = errors.New("invalid community config")

// CommunityConfig is the provisioning configuration for one community.
// JoinChannelID and InterfaceChannelID are children of CategoryID.
type CommunityConfig struct {
	CategoryID         string `json:"categoryId"`
	JoinChannelID      string `json:"joinChannelId"`
	InterfaceChannelID string `json:"interfaceChannelId"`
	InterfaceMessageID string `json:"interfaceMessageId,omitempty"`
}

// Validate checks that every required channel reference is present.
func (c CommunityConfig) Validate() error {
	switch {
	case c.CategoryID == "":
		return fmt.Errorf("%w: categoryId is required", ErrInvalidConfig)
	case c.JoinChannelID == "":
		return fmt.Errorf("%w: joinChannelId is required", ErrInvalidConfig)
	case c.InterfaceChannelID == "":
		return fmt.Errorf("%w: interfaceChannelId is required", ErrInvalidConfig)
	}
	return nil
}

// Backend durably stores the complete mapping. Reads and writes are always
// wholesale.
type Backend interface {
	ReadAll(ctx context.Context) (map[string]CommunityConfig, error)
	WriteAll(ctx context.Context, configs map[string]CommunityConfig) error
	Close() error
}

// ConfigStore owns every CommunityConfig. It is safe for concurrent use.
type ConfigStore struct {
	mu      sync.RWMutex
	configs map[string]CommunityConfig

	// writeMu serializes update+persist so the backend never sees an older
	// snapshot after a newer one.
	writeMu sync.Mutex
	backend Backend
	logger  *slog.Logger
}

// Open creates a ConfigStore over backend and loads the persisted mapping.
// A failed load is logged and leaves the store empty; it never fails startup.
func Open(ctx context.Context, backend Backend, logger *slog.Logger) *ConfigStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ConfigStore{
		configs: make(map[string]CommunityConfig),
		backend: backend,
		logger:  logger.With("component", "store"),
	}
	if err := s.Load(ctx); err != nil {
		s.logger.Error("failed to load community configs, starting empty", "error", err)
	}
	return s
}

// Load replaces the in-memory mapping with the backend's contents. On error
// the in-memory mapping is left unchanged.
func (s *ConfigStore) Load(ctx context.Context) error {
	configs, err := s.backend.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("reading community configs: %w", err)
	}
	if configs == nil {
		configs = make(map[string]CommunityConfig)
	}

	s.mu.Lock()
	s.configs = configs
	s.mu.Unlock()

	s.logger.Info("community configs loaded", "count", len(configs))
	return nil
}

// Get returns the config for guildID.
func (s *ConfigStore) Get(guildID string) (CommunityConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.configs[guildID]
	return cfg, ok
}

// IsConfigured reports whether guildID has a config.
func (s *ConfigStore) IsConfigured(guildID string) bool {
	_, ok := s.Get(guildID)
	return ok
}

// Put replaces the config for guildID and writes the whole mapping through
// to the backend before returning. If the write fails the in-memory value
// stays in place and the returned error wraps ErrPersist.
func (s *ConfigStore) Put(ctx context.Context, guildID string, cfg CommunityConfig) error {
	if guildID == "" {
		return fmt.Errorf("%w: guild id is required", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.configs[guildID] = cfg
	snapshot := maps.Clone(s.configs)
	s.mu.Unlock()

	if err := s.backend.WriteAll(ctx, snapshot); err != nil {
		s.logger.Warn("failed to persist community configs, keeping in-memory state",
			"guild_id", guildID,
			"error", err,
		)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// snapshot returns a copy of the whole mapping.
func (s *ConfigStore) snapshot() map[string]CommunityConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.configs)
}

// GuildIDs returns every configured community, sorted.
func (s *ConfigStore) GuildIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.configs))
}

// Close releases the backend.
func (s *ConfigStore) Close() error {
	return s.backend.Close()
}
