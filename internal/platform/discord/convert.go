// ABOUTME: Conversions between discordgo types and platform types
// ABOUTME: Maps permission bits, channel kinds, overwrites, and REST error codes

package discord

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/2389/tempvoice/internal/platform"
)

var permissionBits = []struct {
	platform platform.Permission
	discord  int64
}{
	{platform.PermView, discordgo.PermissionViewChannel},
	{platform.PermConnect, discordgo.PermissionVoiceConnect},
	{platform.PermManage, discordgo.PermissionManageChannels},
	{platform.PermMoveMembers, discordgo.PermissionVoiceMoveMembers},
	{platform.PermSendMessages, discordgo.PermissionSendMessages},
}

func toDiscordPermissions(p platform.Permission) int64 {
	var out int64
	for _, b := range permissionBits {
		if p&b.platform != 0 {
			out |= b.discord
		}
	}
	return out
}

func fromDiscordPermissions(bits int64) platform.Permission {
	var out platform.Permission
	for _, b := range permissionBits {
		if bits&b.discord != 0 {
			out |= b.platform
		}
	}
	return out
}

// mappedPermissions covers every discord bit that has a platform equivalent.
var mappedPermissions = toDiscordPermissions(^platform.Permission(0))

// mergeOverwrite applies the mapped allow and deny sets on top of an
// existing overwrite. Bits with no platform equivalent keep their
// current value.
func mergeOverwrite(existing *discordgo.PermissionOverwrite, ow platform.Overwrite) (allow, deny int64) {
	allow = toDiscordPermissions(ow.Allow)
	deny = toDiscordPermissions(ow.Deny)
	if existing == nil {
		return allow, deny
	}
	return existing.Allow&^mappedPermissions | allow, existing.Deny&^mappedPermissions | deny
}

func findOverwrite(ch *discordgo.Channel, principalID string) *discordgo.PermissionOverwrite {
	if ch == nil {
		return nil
	}
	for _, ow := range ch.PermissionOverwrites {
		if ow.ID == principalID {
			return ow
		}
	}
	return nil
}

func toDiscordOverwrites(ows []platform.Overwrite) []*discordgo.PermissionOverwrite {
	out := make([]*discordgo.PermissionOverwrite, 0, len(ows))
	for _, ow := range ows {
		out = append(out, &discordgo.PermissionOverwrite{
			ID:    ow.PrincipalID,
			Type:  toDiscordPrincipal(ow.Kind),
			Allow: toDiscordPermissions(ow.Allow),
			Deny:  toDiscordPermissions(ow.Deny),
		})
	}
	return out
}

func toDiscordPrincipal(k platform.PrincipalKind) discordgo.PermissionOverwriteType {
	if k == platform.PrincipalMember {
		return discordgo.PermissionOverwriteTypeMember
	}
	return discordgo.PermissionOverwriteTypeRole
}

func fromDiscordChannel(ch *discordgo.Channel) *platform.Channel {
	out := &platform.Channel{
		ID:        ch.ID,
		GuildID:   ch.GuildID,
		ParentID:  ch.ParentID,
		Name:      ch.Name,
		Kind:      fromDiscordChannelType(ch.Type),
		UserLimit: ch.UserLimit,
	}
	for _, ow := range ch.PermissionOverwrites {
		kind := platform.PrincipalRole
		if ow.Type == discordgo.PermissionOverwriteTypeMember {
			kind = platform.PrincipalMember
		}
		out.Overwrites = append(out.Overwrites, platform.Overwrite{
			PrincipalID: ow.ID,
			Kind:        kind,
			Allow:       fromDiscordPermissions(ow.Allow),
			Deny:        fromDiscordPermissions(ow.Deny),
		})
	}
	return out
}

// fromDiscordChannelType maps channel types. Stage, forum, and thread
// channels have no platform kind and are never treated as rooms.
func fromDiscordChannelType(t discordgo.ChannelType) platform.ChannelKind {
	switch t {
	case discordgo.ChannelTypeGuildCategory:
		return platform.KindCategory
	case discordgo.ChannelTypeGuildVoice:
		return platform.KindVoice
	case discordgo.ChannelTypeGuildText:
		return platform.KindText
	default:
		return 0
	}
}

func fromDiscordMember(m *discordgo.Member) platform.Member {
	out := platform.Member{DisplayName: DisplayName(m)}
	if m.User != nil {
		out.ID = m.User.ID
		out.Bot = m.User.Bot
	}
	return out
}

// DisplayName returns what the community sees for m: the nickname, then the
// global display name, then the username.
func DisplayName(m *discordgo.Member) string {
	if m == nil {
		return ""
	}
	if m.Nick != "" {
		return m.Nick
	}
	if m.User == nil {
		return ""
	}
	if m.User.GlobalName != "" {
		return m.User.GlobalName
	}
	return m.User.Username
}

// translateError maps REST error codes onto platform sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Message != nil {
		switch rest.Message.Code {
		case discordgo.ErrCodeUnknownChannel:
			return fmt.Errorf("%w: %w", platform.ErrUnknownChannel, err)
		case discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownUser:
			return fmt.Errorf("%w: %w", platform.ErrUnknownMember, err)
		}
	}
	return err
}
