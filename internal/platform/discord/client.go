// ABOUTME: Discord implementation of the platform contract
// ABOUTME: Creates, edits, and deletes channels and moves members through a discordgo session

package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/2389/tempvoice/internal/platform"
)

// panelColor is the embed accent of the control panel.
const panelColor = 0x5865F2

// messageFetchLimit is the most messages one history request returns.
const messageFetchLimit = 100

// Client implements platform.Platform.
type Client struct {
	session *discordgo.Session
	logger  *slog.Logger
}

var _ platform.Platform = (*Client)(nil)

// New creates a Client over session. The session's state cache must be
// enabled and tracking voice states.
func New(session *discordgo.Session, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		session: session,
		logger:  logger.With("component", "discord"),
	}
}

func (c *Client) CreateCategory(ctx context.Context, guildID string, spec platform.ChannelSpec) (*platform.Channel, error) {
	return c.create(ctx, guildID, discordgo.ChannelTypeGuildCategory, spec)
}

func (c *Client) CreateVoiceChannel(ctx context.Context, guildID string, spec platform.ChannelSpec) (*platform.Channel, error) {
	return c.create(ctx, guildID, discordgo.ChannelTypeGuildVoice, spec)
}

func (c *Client) CreateTextChannel(ctx context.Context, guildID string, spec platform.ChannelSpec) (*platform.Channel, error) {
	return c.create(ctx, guildID, discordgo.ChannelTypeGuildText, spec)
}

func (c *Client) create(ctx context.Context, guildID string, kind discordgo.ChannelType, spec platform.ChannelSpec) (*platform.Channel, error) {
	ch, err := c.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 spec.Name,
		Type:                 kind,
		ParentID:             spec.ParentID,
		PermissionOverwrites: toDiscordOverwrites(spec.Overwrites),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translateError(err)
	}
	return fromDiscordChannel(ch), nil
}

func (c *Client) DeleteChannel(ctx context.Context, channelID string) error {
	_, err := c.session.ChannelDelete(channelID, discordgo.WithContext(ctx))
	err = translateError(err)
	if errors.Is(err, platform.ErrUnknownChannel) {
		return nil
	}
	return err
}

func (c *Client) Channel(ctx context.Context, channelID string) (*platform.Channel, error) {
	if ch, err := c.session.State.Channel(channelID); err == nil {
		return fromDiscordChannel(ch), nil
	}
	ch, err := c.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translateError(err)
	}
	return fromDiscordChannel(ch), nil
}

func (c *Client) ChildChannels(ctx context.Context, guildID, parentID string) ([]*platform.Channel, error) {
	channels, err := c.guildChannels(ctx, guildID)
	if err != nil {
		return nil, err
	}

	var out []*platform.Channel
	parentFound := false
	for _, ch := range channels {
		if ch.ID == parentID {
			parentFound = true
		}
		if ch.ParentID == parentID {
			out = append(out, fromDiscordChannel(ch))
		}
	}
	if !parentFound {
		return nil, platform.ErrUnknownChannel
	}
	return out, nil
}

// guildChannels returns the guild's channels from state, or from REST when
// the guild is not cached.
func (c *Client) guildChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
	if g, err := c.session.State.Guild(guildID); err == nil {
		c.session.State.RLock()
		defer c.session.State.RUnlock()
		return append([]*discordgo.Channel(nil), g.Channels...), nil
	}
	channels, err := c.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translateError(err)
	}
	return channels, nil
}

func (c *Client) MoveMember(ctx context.Context, guildID, userID, channelID string) error {
	var target *string
	if channelID != "" {
		target = &channelID
	}
	return translateError(c.session.GuildMemberMove(guildID, userID, target, discordgo.WithContext(ctx)))
}

func (c *Client) MemberChannel(ctx context.Context, guildID, userID string) (string, error) {
	vs, err := c.session.State.VoiceState(guildID, userID)
	if errors.Is(err, discordgo.ErrStateNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return vs.ChannelID, nil
}

func (c *Client) Member(ctx context.Context, guildID, userID string) (*platform.Member, error) {
	m, err := c.session.State.Member(guildID, userID)
	if err != nil {
		m, err = c.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
		if err != nil {
			return nil, translateError(err)
		}
	}
	member := fromDiscordMember(m)
	return &member, nil
}

func (c *Client) ListOccupants(ctx context.Context, guildID, channelID string) ([]platform.Member, error) {
	g, err := c.session.State.Guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("guild %s not cached: %w", guildID, err)
	}

	c.session.State.RLock()
	var userIDs []string
	for _, vs := range g.VoiceStates {
		if vs.ChannelID == channelID {
			userIDs = append(userIDs, vs.UserID)
		}
	}
	c.session.State.RUnlock()

	out := make([]platform.Member, 0, len(userIDs))
	for _, userID := range userIDs {
		member, err := c.Member(ctx, guildID, userID)
		if err != nil {
			// Still an occupant; the name is cosmetic.
			out = append(out, platform.Member{ID: userID, DisplayName: userID})
			continue
		}
		out = append(out, *member)
	}
	return out, nil
}

func (c *Client) EditChannelName(ctx context.Context, channelID, name string) error {
	_, err := c.session.ChannelEdit(channelID, &discordgo.ChannelEdit{Name: name}, discordgo.WithContext(ctx))
	return translateError(err)
}

// EditChannelLimit sends the limit directly: ChannelEdit omits a zero
// user_limit, which would make "unlimited" impossible to set.
func (c *Client) EditChannelLimit(ctx context.Context, channelID string, limit int) error {
	endpoint := discordgo.EndpointChannel(channelID)
	_, err := c.session.RequestWithBucketID("PATCH", endpoint, map[string]int{"user_limit": limit}, endpoint, discordgo.WithContext(ctx))
	return translateError(err)
}

// EditPermissionOverwrite replaces the mapped bits of one overwrite.
// Discord bits outside the platform set, such as Speak, are preserved.
func (c *Client) EditPermissionOverwrite(ctx context.Context, channelID string, ow platform.Overwrite) error {
	ch, err := c.session.State.Channel(channelID)
	if err != nil {
		// A failed lookup leaves nothing to preserve; the write reports any real failure.
		ch, _ = c.session.Channel(channelID, discordgo.WithContext(ctx))
	}
	allow, deny := mergeOverwrite(findOverwrite(ch, ow.PrincipalID), ow)
	err = c.session.ChannelPermissionSet(
		channelID,
		ow.PrincipalID,
		toDiscordPrincipal(ow.Kind),
		allow,
		deny,
		discordgo.WithContext(ctx),
	)
	return translateError(err)
}

func (c *Client) PermissionsFor(ctx context.Context, channelID, userID string) (platform.Permission, error) {
	bits, err := c.session.State.UserChannelPermissions(userID, channelID)
	if err != nil {
		bits, err = c.session.UserChannelPermissions(userID, channelID, discordgo.WithContext(ctx))
		if err != nil {
			return 0, translateError(err)
		}
	}
	return fromDiscordPermissions(bits), nil
}

func (c *Client) SendPrivateNotice(ctx context.Context, userID, text string) error {
	dm, err := c.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return translateError(err)
	}
	_, err = c.session.ChannelMessageSend(dm.ID, text, discordgo.WithContext(ctx))
	return translateError(err)
}

func (c *Client) PostInterfacePanel(ctx context.Context, channelID string, panel platform.Panel) (string, error) {
	if err := c.clearChannel(ctx, channelID); err != nil {
		return "", err
	}

	msg, err := c.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{panelEmbed(panel)},
		Components: panelComponents(panel),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", translateError(err)
	}
	return msg.ID, nil
}

// clearChannel removes the channel's recent messages. Bulk deletion rejects
// messages older than two weeks, so those are deleted one at a time.
func (c *Client) clearChannel(ctx context.Context, channelID string) error {
	msgs, err := c.session.ChannelMessages(channelID, messageFetchLimit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return translateError(err)
	}
	if len(msgs) == 0 {
		return nil
	}

	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}

	if len(ids) > 1 {
		if err := c.session.ChannelMessagesBulkDelete(channelID, ids, discordgo.WithContext(ctx)); err == nil {
			return nil
		}
	}
	for _, id := range ids {
		if err := c.session.ChannelMessageDelete(channelID, id, discordgo.WithContext(ctx)); err != nil {
			c.logger.Debug("failed to delete old panel message", "channel_id", channelID, "message_id", id, "error", err)
		}
	}
	return nil
}

func panelEmbed(panel platform.Panel) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       panel.Title,
		Description: panel.Description,
		Color:       panelColor,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	for _, f := range panel.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: true})
	}
	if panel.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: panel.Footer}
	}
	return embed
}

func panelComponents(panel platform.Panel) []discordgo.MessageComponent {
	rows := make([]discordgo.MessageComponent, 0, len(panel.Rows))
	for _, row := range panel.Rows {
		buttons := make([]discordgo.MessageComponent, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, discordgo.Button{
				Label:    b.Label,
				Style:    buttonStyle(b.Style),
				CustomID: b.ID,
			})
		}
		rows = append(rows, discordgo.ActionsRow{Components: buttons})
	}
	return rows
}

func buttonStyle(s platform.ButtonStyle) discordgo.ButtonStyle {
	switch s {
	case platform.ButtonSecondary:
		return discordgo.SecondaryButton
	case platform.ButtonSuccess:
		return discordgo.SuccessButton
	case platform.ButtonDanger:
		return discordgo.DangerButton
	default:
		return discordgo.PrimaryButton
	}
}
