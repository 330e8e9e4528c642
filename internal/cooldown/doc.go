// Package cooldown throttles repeated user actions with a per-subject,
// per-action window.
//
// # Overview
//
// A Limiter remembers, for every (subject, action) pair, the moment the
// current window expires. Check is the only mutating entry point: it either
// reports the action as allowed and opens a new window, or reports how many
// whole seconds remain without touching the existing window.
//
//	limiter := cooldown.New(cooldown.DefaultWindows())
//	defer limiter.Close()
//
//	if res := limiter.Check(userID, cooldown.ActionKick); !res.Allowed {
//	    reply(fmt.Sprintf("Please wait %d seconds", res.Remaining))
//	}
//
// # Windows
//
// Each action has its own window. The defaults are:
//
//   - create_channel: 15s
//   - button: 3s
//   - kick: 5s
//
// Actions without a configured window use DefaultWindow (3s).
//
// # Expiry
//
// An entry whose window has elapsed is treated as absent even if its removal
// timer has not fired yet. Removal timers only keep the map small.
package cooldown
