// ABOUTME: Spawner handling that provisions one private voice room per member
// ABOUTME: Applies the create cooldown, grants owner capabilities, and moves the creator in

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"github.com/2389/tempvoice/internal/access"
	"github.com/2389/tempvoice/internal/cooldown"
	"github.com/2389/tempvoice/internal/metrics"
	"github.com/2389/tempvoice/internal/platform"
	"github.com/2389/tempvoice/internal/store"
)

// Defaults.
const (
	DefaultNameTemplate = "%s's Room"
	DefaultReapInterval = 1800 * time.Millisecond

	// PendingGrace bounds how long a new room is shielded from the reaper
	// while waiting for its creator's voice state to arrive.
	PendingGrace = 15 * time.Second
)

// ConfigSource provides community configuration to the manager and reaper.
type ConfigSource interface {
	Get(guildID string) (store.CommunityConfig, bool)
	GuildIDs() []string
}

// Limiter is the cooldown check the manager consults. Allow returns a
// *cooldown.ThrottledError while the action is cooling down.
type Limiter interface {
	Allow(subject string, action cooldown.Action) error
}

// VoiceStateEvent reports that a member's voice channel changed. ChannelID
// is the destination; empty means the member left voice.
type VoiceStateEvent struct {
	GuildID     string
	UserID      string
	ChannelID   string
	DisplayName string
}

// Manager provisions and reaps rooms.
type Manager struct {
	configs      ConfigSource
	platform     platform.Platform
	limiter      Limiter
	metrics      *metrics.Metrics
	logger       *slog.Logger
	nameTemplate string
	now          func() time.Time

	// pending maps rooms whose creator has not been seen inside yet to the
	// creator and a deadline after which the reaper may take the room.
	pendingMu sync.Mutex
	pending   map[string]pendingRoom

	sweeps singleflight.Group
}

// Option configures a Manager.
type Option func(*Manager)

// WithNameTemplate sets the fmt template used to name rooms. It receives the
// creator's display name as its single %s argument.
func WithNameTemplate(tmpl string) Option {
	return func(m *Manager) {
		if tmpl != "" {
			m.nameTemplate = tmpl
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithMetrics records provisioning and reaping on mtr.
func WithMetrics(mtr *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mtr
	}
}

// NewManager creates a Manager.
func NewManager(configs ConfigSource, p platform.Platform, limiter Limiter, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		configs:      configs,
		platform:     p,
		limiter:      limiter,
		logger:       logger.With("component", "lifecycle"),
		nameTemplate: DefaultNameTemplate,
		now:          time.Now,
		pending:      make(map[string]pendingRoom),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// HandleJoin provisions a room when ev lands in the spawner. It returns nil
// when the event is ignored or the room was created and entered, a
// *cooldown.ThrottledError when the member is still cooling down, and the
// platform error when provisioning failed. Every outcome is already logged.
// A creator's arrival in their pending room releases it to the reaper.
func (m *Manager) HandleJoin(ctx context.Context, ev VoiceStateEvent) error {
	m.observeArrival(ev)

	cfg, ok := m.configs.Get(ev.GuildID)
	if !ok || ev.ChannelID == "" || ev.ChannelID != cfg.JoinChannelID {
		return nil
	}

	logger := m.logger.With("guild_id", ev.GuildID, "user_id", ev.UserID)

	if err := m.limiter.Allow(ev.UserID, cooldown.ActionCreateChannel); err != nil {
		var throttled *cooldown.ThrottledError
		if !errors.As(err, &throttled) {
			return err
		}
		m.metrics.Throttled(string(cooldown.ActionCreateChannel))
		m.rejectThrottled(ctx, logger, ev, throttled.Remaining)
		return err
	}

	ch, err := m.platform.CreateVoiceChannel(ctx, ev.GuildID, platform.ChannelSpec{
		ParentID:   cfg.CategoryID,
		Name:       m.roomName(ctx, ev),
		Overwrites: roomOverwrites(ev.GuildID, ev.UserID),
	})
	if err != nil {
		m.metrics.RoomCreateFailed()
		logger.Error("failed to create voice room", "error", err)
		return platform.Wrap("create voice room", err)
	}
	m.metrics.RoomCreated()

	// The room stays pending until the creator's voice state for it arrives;
	// the platform's member cache can lag behind the move.
	m.markPending(ch.ID, ev.UserID)

	if err := m.platform.MoveMember(ctx, ev.GuildID, ev.UserID, ch.ID); err != nil {
		// The empty room is left for the reaper.
		m.clearPending(ch.ID)
		logger.Error("failed to move member into new room", "channel_id", ch.ID, "error", err)
		return platform.Wrap("move member into room", err)
	}

	logger.Info("voice room created", "channel_id", ch.ID, "name", ch.Name)
	return nil
}

// rejectThrottled notifies the member and takes them out of the spawner.
// Either step may fail independently.
func (m *Manager) rejectThrottled(ctx context.Context, logger *slog.Logger, ev VoiceStateEvent, remaining int) {
	logger.Debug("room creation throttled", "remaining", remaining)

	notice := fmt.Sprintf("⏳ Please wait %d seconds before creating another voice channel!", remaining)
	if err := m.platform.SendPrivateNotice(ctx, ev.UserID, notice); err != nil {
		// Members commonly have private messages disabled.
		logger.Debug("failed to send cooldown notice", "error", err)
	}
	if err := m.platform.MoveMember(ctx, ev.GuildID, ev.UserID, ""); err != nil {
		logger.Warn("failed to remove throttled member from spawner", "error", err)
	}
}

// roomName renders the room name for ev's member, capped at the platform's
// name length.
func (m *Manager) roomName(ctx context.Context, ev VoiceStateEvent) string {
	display := ev.DisplayName
	if display == "" {
		if member, err := m.platform.Member(ctx, ev.GuildID, ev.UserID); err == nil {
			display = member.DisplayName
		}
	}
	if display == "" {
		display = ev.UserID
	}

	name := fmt.Sprintf(m.nameTemplate, display)
	if utf8.RuneCountInString(name) > access.MaxNameLength {
		name = string([]rune(name)[:access.MaxNameLength])
	}
	return name
}

// roomOverwrites grants the creator owner capabilities and everyone view and
// connect.
func roomOverwrites(guildID, userID string) []platform.Overwrite {
	return []platform.Overwrite{
		{PrincipalID: userID, Kind: platform.PrincipalMember, Allow: access.OwnerGrant()},
		{PrincipalID: platform.Everyone(guildID), Kind: platform.PrincipalRole, Allow: platform.PermView | platform.PermConnect},
	}
}

type pendingRoom struct {
	creatorID string
	deadline  time.Time
}

func (m *Manager) markPending(channelID, creatorID string) {
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()
	m.pending[channelID] = pendingRoom{creatorID: creatorID, deadline: m.now().Add(PendingGrace)}
}

// observeArrival clears the pending mark once the creator is seen in the room.
func (m *Manager) observeArrival(ev VoiceStateEvent) {
	if ev.ChannelID == "" {
		return
	}
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()
	if p, ok := m.pending[ev.ChannelID]; ok && p.creatorID == ev.UserID {
		delete(m.pending, ev.ChannelID)
	}
}

func (m *Manager) clearPending(channelID string) {
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()
	delete(m.pending, channelID)
}

// isPending reports whether channelID is still shielded. Marks past their
// deadline are dropped.
func (m *Manager) isPending(channelID string) bool {
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()
	p, ok := m.pending[channelID]
	if !ok {
		return false
	}
	if !m.now().Before(p.deadline) {
		delete(m.pending, channelID)
		return false
	}
	return true
}
