// ABOUTME: Access control engine for provisioned rooms
// ABOUTME: Locates the caller's room and applies rename, limit, lock, claim, and kick

package access

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/2389/tempvoice/internal/platform"
	"github.com/2389/tempvoice/internal/store"
)

// Input bounds.
const (
	MinNameLength = 2
	MaxNameLength = 100
	MinLimit      = 0
	MaxLimit      = 99
)

// ownerGrant is what the room creator (or a claimer) holds on the room.
const ownerGrant = platform.PermManage | platform.PermMoveMembers

// OwnerGrant returns the capabilities granted to a room owner.
func OwnerGrant() platform.Permission {
	return ownerGrant
}

// ConfigSource provides community configuration.
type ConfigSource interface {
	Get(guildID string) (store.CommunityConfig, bool)
}

// Room is a provisioned channel resolved from live platform state.
type Room struct {
	GuildID string
	Channel *platform.Channel
	Config  store.CommunityConfig
}

// IsProvisioned reports whether ch is a provisioned room under cfg: a voice
// channel parented by the category that is not the spawner.
func IsProvisioned(ch *platform.Channel, cfg store.CommunityConfig) bool {
	return ch != nil &&
		ch.Kind == platform.KindVoice &&
		ch.ParentID == cfg.CategoryID &&
		ch.ID != cfg.JoinChannelID
}

// Engine applies owner-gated operations. Ownership is never stored: every
// privileged check reads the caller's live capabilities.
type Engine struct {
	configs  ConfigSource
	platform platform.Platform
	logger   *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(configs ConfigSource, p platform.Platform, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		configs:  configs,
		platform: p,
		logger:   logger.With("component", "access"),
	}
}

// Configured reports whether guildID has a stored configuration.
func (e *Engine) Configured(guildID string) bool {
	_, ok := e.configs.Get(guildID)
	return ok
}

// Locate resolves the provisioned room userID currently occupies. It always
// reads live state. Returns ErrNotInRoom when the community is unconfigured,
// the user is not in voice, or the channel is not a provisioned room.
func (e *Engine) Locate(ctx context.Context, guildID, userID string) (*Room, error) {
	cfg, ok := e.configs.Get(guildID)
	if !ok {
		return nil, ErrNotInRoom
	}

	channelID, err := e.platform.MemberChannel(ctx, guildID, userID)
	if err != nil {
		return nil, platform.Wrap("lookup member channel", err)
	}
	if channelID == "" {
		return nil, ErrNotInRoom
	}

	ch, err := e.platform.Channel(ctx, channelID)
	if err != nil {
		return nil, platform.Wrap("fetch channel", err)
	}
	if !IsProvisioned(ch, cfg) {
		return nil, ErrNotInRoom
	}

	return &Room{GuildID: guildID, Channel: ch, Config: cfg}, nil
}

// Rename sets the room's display name.
func (e *Engine) Rename(ctx context.Context, room *Room, name string) (string, error) {
	name, err := ValidateName(name)
	if err != nil {
		return "", err
	}
	if err := e.platform.EditChannelName(ctx, room.Channel.ID, name); err != nil {
		return "", platform.Wrap("rename channel", err)
	}
	e.logger.Debug("room renamed", "channel_id", room.Channel.ID, "name", name)
	return name, nil
}

// SetLimit parses raw as a participant limit and applies it. Zero means unlimited.
func (e *Engine) SetLimit(ctx context.Context, room *Room, raw string) (int, error) {
	limit, err := ParseLimit(raw)
	if err != nil {
		return 0, err
	}
	if err := e.platform.EditChannelLimit(ctx, room.Channel.ID, limit); err != nil {
		return 0, platform.Wrap("set user limit", err)
	}
	e.logger.Debug("room limit set", "channel_id", room.Channel.ID, "limit", limit)
	return limit, nil
}

// ToggleLock flips whether everyone is denied connect. It returns the new
// lock state. Unlocking clears the deny rather than granting connect.
func (e *Engine) ToggleLock(ctx context.Context, room *Room) (bool, error) {
	everyone := platform.Everyone(room.GuildID)
	ow, _ := room.Channel.Overwrite(everyone)
	ow.PrincipalID = everyone
	ow.Kind = platform.PrincipalRole

	locked := IsLocked(room.Channel, room.GuildID)
	if locked {
		ow.Deny &^= platform.PermConnect
	} else {
		ow.Allow &^= platform.PermConnect
		ow.Deny |= platform.PermConnect
	}

	if err := e.platform.EditPermissionOverwrite(ctx, room.Channel.ID, ow); err != nil {
		return locked, platform.Wrap("toggle lock", err)
	}
	e.logger.Debug("room lock toggled", "channel_id", room.Channel.ID, "locked", !locked)
	return !locked, nil
}

// Claim grants userID the owner capabilities on the room. Nobody else loses
// anything and any occupant may claim.
func (e *Engine) Claim(ctx context.Context, room *Room, userID string) error {
	ow, _ := room.Channel.Overwrite(userID)
	ow.PrincipalID = userID
	ow.Kind = platform.PrincipalMember
	ow.Allow |= ownerGrant
	ow.Deny &^= ownerGrant

	if err := e.platform.EditPermissionOverwrite(ctx, room.Channel.ID, ow); err != nil {
		return platform.Wrap("claim room", err)
	}
	e.logger.Info("room claimed", "channel_id", room.Channel.ID, "user_id", userID)
	return nil
}

// KickCandidates lists occupants other than userID, skipping bots. Returns
// ErrNoCandidates when the list would be empty.
func (e *Engine) KickCandidates(ctx context.Context, room *Room, userID string) ([]platform.Member, error) {
	occupants, err := e.platform.ListOccupants(ctx, room.GuildID, room.Channel.ID)
	if err != nil {
		return nil, platform.Wrap("list occupants", err)
	}

	candidates := make([]platform.Member, 0, len(occupants))
	for _, m := range occupants {
		if m.Bot || m.ID == userID {
			continue
		}
		candidates = append(candidates, m)
	}
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	return candidates, nil
}

// ExecuteKick disconnects targetID from the room. The caller must currently
// hold move-members on the room and the target must still be in it.
func (e *Engine) ExecuteKick(ctx context.Context, room *Room, userID, targetID string) (*platform.Member, error) {
	perms, err := e.platform.PermissionsFor(ctx, room.Channel.ID, userID)
	if err != nil {
		return nil, platform.Wrap("evaluate permissions", err)
	}
	if !perms.Has(platform.PermMoveMembers) {
		return nil, ErrNotAuthorized
	}

	current, err := e.platform.MemberChannel(ctx, room.GuildID, targetID)
	if err != nil {
		return nil, platform.Wrap("lookup target channel", err)
	}
	if current != room.Channel.ID {
		return nil, ErrTargetGone
	}

	target, err := e.platform.Member(ctx, room.GuildID, targetID)
	if err != nil {
		// The name is cosmetic; fall back to the id.
		target = &platform.Member{ID: targetID, DisplayName: targetID}
	}

	if err := e.platform.MoveMember(ctx, room.GuildID, targetID, ""); err != nil {
		return nil, platform.Wrap("disconnect member", err)
	}
	e.logger.Info("member kicked", "channel_id", room.Channel.ID, "user_id", userID, "target_id", targetID)
	return target, nil
}

// IsLocked reports whether everyone is denied connect on ch.
func IsLocked(ch *platform.Channel, guildID string) bool {
	ow, ok := ch.Overwrite(platform.Everyone(guildID))
	return ok && ow.Deny.Has(platform.PermConnect)
}

// ValidateName trims name and checks its length in characters.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if n < MinNameLength || n > MaxNameLength {
		return "", &ValidationError{
			Field:  "name",
			Reason: fmt.Sprintf("must be %d-%d characters", MinNameLength, MaxNameLength),
		}
	}
	return name, nil
}

// ParseLimit parses a participant limit in [MinLimit, MaxLimit].
func ParseLimit(raw string) (int, error) {
	limit, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || limit < MinLimit || limit > MaxLimit {
		return 0, &ValidationError{
			Field:  "limit",
			Reason: fmt.Sprintf("must be a number between %d-%d", MinLimit, MaxLimit),
		}
	}
	return limit, nil
}
