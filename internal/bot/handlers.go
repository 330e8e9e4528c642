// ABOUTME: Discord gateway event handlers for voice, interaction, and message events
// ABOUTME: Each handler tags its work with an event id and dispatches to one component

package bot

import (
	"errors"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/2389/tempvoice/internal/cooldown"
	"github.com/2389/tempvoice/internal/interaction"
	"github.com/2389/tempvoice/internal/platform"
)

// track registers a running handler. It reports false once shutdown began.
func (b *Bot) track() bool {
	b.closeMu.Lock()
	defer b.closeMu.Unlock()
	if b.closing || b.ctx.Err() != nil {
		return false
	}
	b.inflight.Add(1)
	return true
}

func (b *Bot) eventLogger(event string) *slog.Logger {
	return b.logger.With("event", event, "event_id", uuid.NewString())
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.ready.Store(true)
	username := ""
	if r.User != nil {
		username = r.User.Username
	}
	b.logger.Info("gateway ready",
		"user", username,
		"guilds", len(r.Guilds),
		"configured", len(b.configs.GuildIDs()),
	)
}

func (b *Bot) onVoiceStateUpdate(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
	ev, ok := voiceStateEvent(vs)
	if !ok || !b.track() {
		return
	}
	defer b.inflight.Done()

	logger := b.eventLogger("voice_state_update")
	logger.Debug("voice state changed", "guild_id", ev.GuildID, "user_id", ev.UserID, "channel_id", ev.ChannelID)

	err := b.manager.HandleJoin(b.ctx, ev)
	var throttled *cooldown.ThrottledError
	switch {
	case err == nil:
	case errors.As(err, &throttled):
		logger.Debug("join throttled", "user_id", ev.UserID, "remaining", throttled.Remaining)
	default:
		logger.Log(b.ctx, joinFailureLevel(err), "handling voice join failed", "guild_id", ev.GuildID, "user_id", ev.UserID, "error", err)
	}
}

// joinFailureLevel picks the log level for a failed join. Platform
// rejections were already logged by the manager with their context.
func joinFailureLevel(err error) slog.Level {
	if platform.IsCollaboratorError(err) {
		return slog.LevelWarn
	}
	return slog.LevelError
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	in, ok := toInteraction(i)
	if !ok || !b.track() {
		return
	}
	defer b.inflight.Done()

	logger := b.eventLogger("interaction_create")
	logger.Debug("interaction received", "guild_id", in.GuildID, "user_id", in.UserID, "custom_id", in.CustomID)

	resp := b.router.Handle(b.ctx, in)
	if resp.Kind == interaction.ResponseNone {
		return
	}
	if err := s.InteractionRespond(i.Interaction, toResponse(resp), discordgo.WithContext(b.ctx)); err != nil {
		logger.Warn("responding to interaction failed", "custom_id", in.CustomID, "error", err)
	}
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	msg, ok := toMessage(m)
	if !ok || !b.track() {
		return
	}
	defer b.inflight.Done()

	reply, handled := b.commands.Handle(b.ctx, msg)
	if !handled {
		return
	}

	logger := b.eventLogger("message_create")
	logger.Info("command handled", "guild_id", msg.GuildID, "user_id", msg.AuthorID)
	b.metrics.SetConfigured(len(b.configs.GuildIDs()))

	if reply == "" {
		return
	}
	if _, err := s.ChannelMessageSendReply(m.ChannelID, reply, m.Reference(), discordgo.WithContext(b.ctx)); err != nil {
		logger.Warn("sending command reply failed", "channel_id", m.ChannelID, "error", err)
	}
}
