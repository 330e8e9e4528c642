// ABOUTME: Community provisioning and control panel posting
// ABOUTME: Creates category, spawner, and interface channel, then stores their ids

package setup

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/2389/tempvoice/internal/platform"
	"github.com/2389/tempvoice/internal/store"
)

var (
	// ErrAlreadyConfigured is returned by Initialize for a configured community.
	ErrAlreadyConfigured = errors.New("community already configured")

	// ErrNotConfigured is returned by Resend for an unconfigured community.
	ErrNotConfigured = errors.New("community not configured")

	// ErrInterfaceMissing means the stored interface channel no longer exists.
	ErrInterfaceMissing = errors.New("interface channel not found")
)

// Channel names used when provisioning a community.
const (
	CategoryName  = "Temporary Voices"
	SpawnerName   = "➕ Join to Create"
	InterfaceName = "🎚️ voice-manager"
)

// ConfigStore reads and writes community configuration.
type ConfigStore interface {
	Get(guildID string) (store.CommunityConfig, bool)
	Put(ctx context.Context, guildID string, cfg store.CommunityConfig) error
}

// Service provisions communities.
type Service struct {
	configs  ConfigStore
	platform platform.Platform
	panel    platform.Panel
	logger   *slog.Logger

	// mu serializes provisioning so concurrent setups cannot both create channels.
	mu sync.Mutex
}

// NewService creates a Service that posts panel into interface channels.
func NewService(configs ConfigStore, p platform.Platform, panel platform.Panel, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		configs:  configs,
		platform: p,
		panel:    panel,
		logger:   logger.With("component", "setup"),
	}
}

// Initialize provisions guildID. On a platform failure, channels created so
// far are removed and nothing is stored.
func (s *Service) Initialize(ctx context.Context, guildID string) (store.CommunityConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg, ok := s.configs.Get(guildID); ok {
		return cfg, ErrAlreadyConfigured
	}

	logger := s.logger.With("guild_id", guildID)
	everyone := platform.Everyone(guildID)

	var created []string
	rollback := func() {
		for i := len(created) - 1; i >= 0; i-- {
			if err := s.platform.DeleteChannel(ctx, created[i]); err != nil {
				logger.Warn("failed to remove partially provisioned channel", "channel_id", created[i], "error", err)
			}
		}
	}

	category, err := s.platform.CreateCategory(ctx, guildID, platform.ChannelSpec{
		Name: CategoryName,
		Overwrites: []platform.Overwrite{
			{PrincipalID: everyone, Kind: platform.PrincipalRole, Allow: platform.PermView, Deny: platform.PermManage},
		},
	})
	if err != nil {
		return store.CommunityConfig{}, platform.Wrap("create category", err)
	}
	created = append(created, category.ID)

	spawner, err := s.platform.CreateVoiceChannel(ctx, guildID, platform.ChannelSpec{
		ParentID: category.ID,
		Name:     SpawnerName,
		Overwrites: []platform.Overwrite{
			{PrincipalID: everyone, Kind: platform.PrincipalRole, Allow: platform.PermConnect | platform.PermView},
		},
	})
	if err != nil {
		rollback()
		return store.CommunityConfig{}, platform.Wrap("create spawner", err)
	}
	created = append(created, spawner.ID)

	iface, err := s.platform.CreateTextChannel(ctx, guildID, platform.ChannelSpec{
		ParentID: category.ID,
		Name:     InterfaceName,
		Overwrites: []platform.Overwrite{
			{PrincipalID: everyone, Kind: platform.PrincipalRole, Allow: platform.PermView, Deny: platform.PermSendMessages},
		},
	})
	if err != nil {
		rollback()
		return store.CommunityConfig{}, platform.Wrap("create interface channel", err)
	}

	cfg := store.CommunityConfig{
		CategoryID:         category.ID,
		JoinChannelID:      spawner.ID,
		InterfaceChannelID: iface.ID,
	}
	s.save(ctx, logger, guildID, cfg)
	logger.Info("community provisioned",
		"category_id", cfg.CategoryID,
		"join_channel_id", cfg.JoinChannelID,
		"interface_channel_id", cfg.InterfaceChannelID,
	)

	msgID, err := s.platform.PostInterfacePanel(ctx, iface.ID, s.panel)
	if err != nil {
		return cfg, platform.Wrap("post interface panel", err)
	}
	cfg.InterfaceMessageID = msgID
	s.save(ctx, logger, guildID, cfg)

	return cfg, nil
}

// Resend reposts the control panel for guildID and records its message id.
func (s *Service) Resend(ctx context.Context, guildID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, ok := s.configs.Get(guildID)
	if !ok {
		return "", ErrNotConfigured
	}
	logger := s.logger.With("guild_id", guildID)

	if _, err := s.platform.Channel(ctx, cfg.InterfaceChannelID); err != nil {
		if errors.Is(err, platform.ErrUnknownChannel) {
			return "", ErrInterfaceMissing
		}
		return "", platform.Wrap("fetch interface channel", err)
	}

	msgID, err := s.platform.PostInterfacePanel(ctx, cfg.InterfaceChannelID, s.panel)
	if err != nil {
		return "", platform.Wrap("post interface panel", err)
	}
	cfg.InterfaceMessageID = msgID
	s.save(ctx, logger, guildID, cfg)

	logger.Info("interface panel resent", "message_id", msgID)
	return msgID, nil
}

// save stores cfg. A failed durable write is only a warning, already
// logged by the store: the in-memory copy is current.
func (s *Service) save(ctx context.Context, logger *slog.Logger, guildID string, cfg store.CommunityConfig) {
	err := s.configs.Put(ctx, guildID, cfg)
	if err != nil && !errors.Is(err, store.ErrPersist) {
		logger.Error("failed to store community config", "error", err)
	}
}
