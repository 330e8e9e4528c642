// ABOUTME: Translation between discordgo events and platform-neutral component inputs
// ABOUTME: Builds lifecycle events, interactions, command messages, and interaction responses

package bot

import (
	"github.com/bwmarrin/discordgo"

	"github.com/2389/tempvoice/internal/interaction"
	"github.com/2389/tempvoice/internal/lifecycle"
	"github.com/2389/tempvoice/internal/platform/discord"
	"github.com/2389/tempvoice/internal/setup"
)

// intents are the gateway events the bot needs.
const intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildVoiceStates |
	discordgo.IntentsGuildMessages |
	discordgo.IntentMessageContent

// voiceStateEvent converts a voice update. It reports false for updates that
// do not change the member's channel, such as mute or deafen toggles.
func voiceStateEvent(vs *discordgo.VoiceStateUpdate) (lifecycle.VoiceStateEvent, bool) {
	if vs == nil || vs.VoiceState == nil || vs.GuildID == "" {
		return lifecycle.VoiceStateEvent{}, false
	}
	if vs.BeforeUpdate != nil && vs.BeforeUpdate.ChannelID == vs.ChannelID {
		return lifecycle.VoiceStateEvent{}, false
	}
	return lifecycle.VoiceStateEvent{
		GuildID:     vs.GuildID,
		UserID:      vs.UserID,
		ChannelID:   vs.ChannelID,
		DisplayName: discord.DisplayName(vs.Member),
	}, true
}

// toInteraction converts a guild interaction. Commands, autocompletes, and
// direct-message interactions report false.
func toInteraction(i *discordgo.InteractionCreate) (interaction.Interaction, bool) {
	if i == nil || i.Interaction == nil || i.GuildID == "" || i.Member == nil || i.Member.User == nil {
		return interaction.Interaction{}, false
	}

	in := interaction.Interaction{
		GuildID: i.GuildID,
		UserID:  i.Member.User.ID,
	}

	switch i.Type {
	case discordgo.InteractionMessageComponent:
		data := i.MessageComponentData()
		in.CustomID = data.CustomID
		switch data.ComponentType {
		case discordgo.ButtonComponent:
			in.Kind = interaction.KindButton
		case discordgo.SelectMenuComponent:
			in.Kind = interaction.KindSelect
			in.Values = data.Values
		default:
			return interaction.Interaction{}, false
		}

	case discordgo.InteractionModalSubmit:
		data := i.ModalSubmitData()
		in.Kind = interaction.KindModal
		in.CustomID = data.CustomID
		in.Fields = modalFields(data.Components)

	default:
		return interaction.Interaction{}, false
	}

	return in, true
}

// modalFields flattens submitted text inputs into id → value.
func modalFields(components []discordgo.MessageComponent) map[string]string {
	fields := make(map[string]string)
	for _, c := range components {
		var inner []discordgo.MessageComponent
		switch row := c.(type) {
		case *discordgo.ActionsRow:
			inner = row.Components
		case discordgo.ActionsRow:
			inner = row.Components
		}
		for _, ic := range inner {
			switch input := ic.(type) {
			case *discordgo.TextInput:
				fields[input.CustomID] = input.Value
			case discordgo.TextInput:
				fields[input.CustomID] = input.Value
			}
		}
	}
	return fields
}

// toResponse renders a router response. Every reply is ephemeral.
func toResponse(resp interaction.Response) *discordgo.InteractionResponse {
	switch resp.Kind {
	case interaction.ResponseModal:
		m := resp.Modal
		return &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseModal,
			Data: &discordgo.InteractionResponseData{
				CustomID: m.ID,
				Title:    m.Title,
				Components: []discordgo.MessageComponent{
					discordgo.ActionsRow{Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:    m.Input.ID,
							Label:       m.Input.Label,
							Style:       discordgo.TextInputShort,
							Placeholder: m.Input.Placeholder,
							Required:    m.Input.Required,
							MinLength:   m.Input.MinLength,
							MaxLength:   m.Input.MaxLength,
						},
					}},
				},
			},
		}

	case interaction.ResponseChoice:
		c := resp.Choice
		options := make([]discordgo.SelectMenuOption, 0, len(c.Options))
		for _, o := range c.Options {
			options = append(options, discordgo.SelectMenuOption{Label: o.Label, Value: o.Value})
		}
		return &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: resp.Content,
				Flags:   discordgo.MessageFlagsEphemeral,
				Components: []discordgo.MessageComponent{
					discordgo.ActionsRow{Components: []discordgo.MessageComponent{
						discordgo.SelectMenu{
							MenuType:    discordgo.StringSelectMenu,
							CustomID:    c.ID,
							Placeholder: c.Placeholder,
							Options:     options,
						},
					}},
				},
			},
		}

	default:
		return &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: resp.Content,
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		}
	}
}

// toMessage converts a chat message for the command handler.
func toMessage(m *discordgo.MessageCreate) (setup.Message, bool) {
	if m == nil || m.Message == nil || m.Author == nil {
		return setup.Message{}, false
	}
	return setup.Message{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		AuthorID:  m.Author.ID,
		AuthorBot: m.Author.Bot,
		Content:   m.Content,
	}, true
}
