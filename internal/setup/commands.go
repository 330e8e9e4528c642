// ABOUTME: Prefix chat commands for provisioning and panel reposting
// ABOUTME: Maps setup service results to the replies shown in chat

package setup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/2389/tempvoice/internal/platform"
)

// DefaultPrefix starts every command.
const DefaultPrefix = "+"

// Command replies.
const (
	replyAlreadySetUp = "Temporary voice system is already set up!"
	replySetUp        = "✅ Temporary voice system has been set up successfully!"
	replySetupFailed  = "❌ Failed to set up temporary voice system. Check bot permissions!"
	replyNeedManage   = "❌ You need the \"Manage Channels\" permission to use this command!"
	replyNotSetUp     = "❌ Temporary voice system is not set up! Use `%ssetup` first."
	replyNoInterface  = "❌ Interface channel not found!"
	replyResent       = "✅ Voice manager interface has been resent!"
	replyResendFailed = "❌ Failed to resend interface. Check bot permissions!"
)

const (
	commandSetup  = "setup"
	commandResend = "resend"
)

// Message is a chat message that may carry a command.
type Message struct {
	GuildID   string
	ChannelID string
	AuthorID  string
	AuthorBot bool
	Content   string
}

// Commands parses prefix commands and runs them against a Service.
type Commands struct {
	service  *Service
	platform platform.Platform
	prefix   string
	logger   *slog.Logger
}

// NewCommands creates a command handler. An empty prefix uses DefaultPrefix.
func NewCommands(service *Service, p platform.Platform, prefix string, logger *slog.Logger) *Commands {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Commands{
		service:  service,
		platform: p,
		prefix:   prefix,
		logger:   logger.With("component", "commands"),
	}
}

// Handle runs the command in msg, if any. It returns the reply and whether
// msg was a command this handler understands.
func (c *Commands) Handle(ctx context.Context, msg Message) (string, bool) {
	if msg.AuthorBot || msg.GuildID == "" || !strings.HasPrefix(msg.Content, c.prefix) {
		return "", false
	}

	args := strings.Fields(strings.TrimPrefix(msg.Content, c.prefix))
	if len(args) == 0 {
		return "", false
	}

	switch strings.ToLower(args[0]) {
	case commandSetup:
		return c.setup(ctx, msg), true
	case commandResend:
		return c.resend(ctx, msg), true
	}
	return "", false
}

func (c *Commands) setup(ctx context.Context, msg Message) string {
	_, err := c.service.Initialize(ctx, msg.GuildID)
	switch {
	case errors.Is(err, ErrAlreadyConfigured):
		return replyAlreadySetUp
	case err != nil:
		c.logger.Error("setup failed", "guild_id", msg.GuildID, "user_id", msg.AuthorID, "error", err)
		return replySetupFailed
	}
	return replySetUp
}

func (c *Commands) resend(ctx context.Context, msg Message) string {
	perms, err := c.platform.PermissionsFor(ctx, msg.ChannelID, msg.AuthorID)
	if err != nil {
		c.logger.Warn("failed to evaluate invoker permissions", "guild_id", msg.GuildID, "user_id", msg.AuthorID, "error", err)
		return replyResendFailed
	}
	if !perms.Has(platform.PermManage) {
		return replyNeedManage
	}

	_, err = c.service.Resend(ctx, msg.GuildID)
	switch {
	case errors.Is(err, ErrNotConfigured):
		return fmt.Sprintf(replyNotSetUp, c.prefix)
	case errors.Is(err, ErrInterfaceMissing):
		return replyNoInterface
	case err != nil:
		c.logger.Error("resend failed", "guild_id", msg.GuildID, "user_id", msg.AuthorID, "error", err)
		return replyResendFailed
	}
	return replyResent
}
