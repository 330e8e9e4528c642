// ABOUTME: Dispatches panel interactions to the access engine
// ABOUTME: Applies button and kick cooldowns and maps engine errors to private replies

package interaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/2389/tempvoice/internal/access"
	"github.com/2389/tempvoice/internal/cooldown"
	"github.com/2389/tempvoice/internal/metrics"
)

// Reply texts.
const (
	msgNotInRoom      = "❌ You must be in a temporary voice channel to use this!"
	msgButtonWait     = "⏳ Please wait %d seconds before using another command!"
	msgKickWait       = "⏳ Please wait %d seconds before kicking again!"
	msgLocked         = "🔒 Channel locked!"
	msgUnlocked       = "🔒 Channel unlocked!"
	msgClaimed        = "👑 You now own this channel!"
	msgKickPrompt     = "🚫 Select a member to kick:"
	msgNoCandidates   = "❌ No members available to kick!"
	msgButtonFailed   = "❌ An error occurred while processing your request."
	msgRenamed        = "✏️ Channel renamed to: %s"
	msgBadName        = "❌ Channel name must be between %d-%d characters"
	msgLimitSet       = "👥 User limit set to %s"
	msgBadLimit       = "❌ Please enter a valid number between 0-99"
	msgUpdateFailed   = "❌ Failed to update channel settings"
	msgKicked         = "🚫 Kicked %s from the channel!"
	msgNotAuthorized  = "❌ You do not have permission to kick members!"
	msgTargetGone     = "❌ That member is no longer in this voice channel!"
	msgKickFailed     = "❌ Failed to kick member. Do I have permission?"
	msgNothingChosen  = "❌ No member was selected!"
	limitUnlimitedTxt = "unlimited"
)

// Limiter is the cooldown check the router consults.
type Limiter interface {
	Check(subject string, action cooldown.Action) cooldown.Result
}

// Router handles inbound interactions.
type Router struct {
	engine  *access.Engine
	limiter Limiter
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithMetrics records interaction outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) {
		r.metrics = m
	}
}

// NewRouter creates a Router.
func NewRouter(engine *access.Engine, limiter Limiter, logger *slog.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		engine:  engine,
		limiter: limiter,
		logger:  logger.With("component", "interaction"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle processes one interaction. Interactions for unknown ids or from
// unconfigured communities get ResponseNone.
func (r *Router) Handle(ctx context.Context, in Interaction) Response {
	if !known(in) || !r.engine.Configured(in.GuildID) {
		return Response{}
	}

	logger := r.logger.With("guild_id", in.GuildID, "user_id", in.UserID, "control", in.CustomID)

	room, err := r.engine.Locate(ctx, in.GuildID, in.UserID)
	if err != nil {
		if errors.Is(err, access.ErrNotInRoom) {
			r.record(in, metrics.OutcomeRejected)
			return message(msgNotInRoom)
		}
		logger.Warn("failed to locate room", "error", err)
		r.record(in, metrics.OutcomeFailed)
		return message(failureText(in))
	}
	logger = logger.With("channel_id", room.Channel.ID)

	var resp Response
	var outcome string
	switch in.Kind {
	case KindButton:
		resp, outcome = r.handleButton(ctx, logger, in, room)
	case KindModal:
		resp, outcome = r.handleModal(ctx, logger, in, room)
	case KindSelect:
		resp, outcome = r.handleSelect(ctx, logger, in, room)
	}
	r.record(in, outcome)
	return resp
}

func (r *Router) handleButton(ctx context.Context, logger *slog.Logger, in Interaction, room *access.Room) (Response, string) {
	if res := r.limiter.Check(in.UserID, cooldown.ActionButton); !res.Allowed {
		r.metrics.Throttled(string(cooldown.ActionButton))
		return message(fmt.Sprintf(msgButtonWait, res.Remaining)), metrics.OutcomeThrottled
	}

	switch in.CustomID {
	case ButtonRename:
		return Response{Kind: ResponseModal, Modal: renameModal()}, metrics.OutcomeOK

	case ButtonLimit:
		return Response{Kind: ResponseModal, Modal: limitModal()}, metrics.OutcomeOK

	case ButtonLock:
		locked, err := r.engine.ToggleLock(ctx, room)
		if err != nil {
			logger.Warn("failed to toggle lock", "error", err)
			return message(msgButtonFailed), metrics.OutcomeFailed
		}
		if locked {
			return message(msgLocked), metrics.OutcomeOK
		}
		return message(msgUnlocked), metrics.OutcomeOK

	case ButtonClaim:
		if err := r.engine.Claim(ctx, room, in.UserID); err != nil {
			logger.Warn("failed to claim room", "error", err)
			return message(msgButtonFailed), metrics.OutcomeFailed
		}
		return message(msgClaimed), metrics.OutcomeOK

	case ButtonKick:
		if res := r.limiter.Check(in.UserID, cooldown.ActionKick); !res.Allowed {
			r.metrics.Throttled(string(cooldown.ActionKick))
			return message(fmt.Sprintf(msgKickWait, res.Remaining)), metrics.OutcomeThrottled
		}
		candidates, err := r.engine.KickCandidates(ctx, room, in.UserID)
		switch {
		case errors.Is(err, access.ErrNoCandidates):
			return message(msgNoCandidates), metrics.OutcomeRejected
		case err != nil:
			logger.Warn("failed to list kick candidates", "error", err)
			return message(msgButtonFailed), metrics.OutcomeFailed
		}
		return Response{Kind: ResponseChoice, Content: msgKickPrompt, Choice: kickChoice(candidates)}, metrics.OutcomeOK
	}

	return Response{}, metrics.OutcomeRejected
}

func (r *Router) handleModal(ctx context.Context, logger *slog.Logger, in Interaction, room *access.Room) (Response, string) {
	switch in.CustomID {
	case ModalRename:
		name, err := r.engine.Rename(ctx, room, in.Fields[FieldName])
		switch {
		case access.IsValidation(err):
			return message(fmt.Sprintf(msgBadName, access.MinNameLength, access.MaxNameLength)), metrics.OutcomeRejected
		case err != nil:
			logger.Warn("failed to rename room", "error", err)
			return message(msgUpdateFailed), metrics.OutcomeFailed
		}
		return message(fmt.Sprintf(msgRenamed, name)), metrics.OutcomeOK

	case ModalLimit:
		limit, err := r.engine.SetLimit(ctx, room, in.Fields[FieldLimit])
		switch {
		case access.IsValidation(err):
			return message(msgBadLimit), metrics.OutcomeRejected
		case err != nil:
			logger.Warn("failed to set user limit", "error", err)
			return message(msgUpdateFailed), metrics.OutcomeFailed
		}
		shown := limitUnlimitedTxt
		if limit > 0 {
			shown = fmt.Sprint(limit)
		}
		return message(fmt.Sprintf(msgLimitSet, shown)), metrics.OutcomeOK
	}

	return Response{}, metrics.OutcomeRejected
}

func (r *Router) handleSelect(ctx context.Context, logger *slog.Logger, in Interaction, room *access.Room) (Response, string) {
	if len(in.Values) == 0 || in.Values[0] == "" {
		return message(msgNothingChosen), metrics.OutcomeRejected
	}

	target, err := r.engine.ExecuteKick(ctx, room, in.UserID, in.Values[0])
	switch {
	case errors.Is(err, access.ErrNotAuthorized):
		return message(msgNotAuthorized), metrics.OutcomeRejected
	case errors.Is(err, access.ErrTargetGone):
		return message(msgTargetGone), metrics.OutcomeRejected
	case err != nil:
		logger.Warn("failed to kick member", "target_id", in.Values[0], "error", err)
		return message(msgKickFailed), metrics.OutcomeFailed
	}
	return message(fmt.Sprintf(msgKicked, target.DisplayName)), metrics.OutcomeOK
}

func (r *Router) record(in Interaction, outcome string) {
	if outcome != "" {
		r.metrics.Interaction(in.CustomID, outcome)
	}
}

// known reports whether in targets one of our components.
func known(in Interaction) bool {
	switch in.Kind {
	case KindButton:
		switch in.CustomID {
		case ButtonRename, ButtonLimit, ButtonLock, ButtonKick, ButtonClaim:
			return true
		}
	case KindModal:
		return in.CustomID == ModalRename || in.CustomID == ModalLimit
	case KindSelect:
		return in.CustomID == SelectKick
	}
	return false
}

// failureText is the generic failure reply for the interaction's kind.
func failureText(in Interaction) string {
	switch in.Kind {
	case KindModal:
		return msgUpdateFailed
	case KindSelect:
		return msgKickFailed
	default:
		return msgButtonFailed
	}
}
