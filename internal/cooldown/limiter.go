// ABOUTME: Thread-safe cooldown tracker keyed by subject and action kind.
// ABOUTME: Check-and-record is atomic so exactly one caller wins each window.

package cooldown

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Action identifies a throttled kind of user action.
type Action string

const (
	// ActionCreateChannel throttles provisioning from the spawner channel.
	ActionCreateChannel Action = "create_channel"
	// ActionButton throttles control-panel button presses.
	ActionButton Action = "button"
	// ActionKick throttles building the remove-participant list.
	ActionKick Action = "kick"
)

// DefaultWindow applies to actions that have no configured window.
const DefaultWindow = 3 * time.Second

// DefaultWindows returns the stock window for every known action.
func DefaultWindows() map[Action]time.Duration {
	return map[Action]time.Duration{
		ActionCreateChannel: 15 * time.Second,
		ActionButton:        3 * time.Second,
		ActionKick:          5 * time.Second,
	}
}

// ThrottledError is returned by Allow when the action is still cooling down.
type ThrottledError struct {
	Action    Action
	Remaining int // whole seconds, always >= 1
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("%s on cooldown for %ds", e.Action, e.Remaining)
}

// Result is the outcome of a Check.
type Result struct {
	Allowed   bool
	Remaining int // seconds left when not allowed
}

type key struct {
	subject string
	action  Action
}

// entry stores the window expiry and the timer that evicts it.
type entry struct {
	expiry time.Time
	timer  *time.Timer
}

// Limiter tracks cooldown windows. The zero value is not usable; call New.
type Limiter struct {
	mu      sync.Mutex
	entries map[key]*entry
	windows map[Action]time.Duration
	now     func() time.Time
	closed  bool
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New creates a Limiter with the given per-action windows. Windows that are
// missing or non-positive fall back to DefaultWindow.
func New(windows map[Action]time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		entries: make(map[key]*entry),
		windows: make(map[Action]time.Duration, len(windows)),
		now:     time.Now,
	}
	for action, d := range windows {
		if d > 0 {
			l.windows[action] = d
		}
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Window returns the cooldown window used for action.
func (l *Limiter) Window(action Action) time.Duration {
	if d, ok := l.windows[action]; ok {
		return d
	}
	return DefaultWindow
}

// Check atomically tests and records a cooldown for (subject, action).
// When allowed, a new window starts now. When throttled, the existing window
// is left untouched and Remaining holds the ceiling of the seconds left.
func (l *Limiter) Check(subject string, action Action) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	k := key{subject: subject, action: action}
	now := l.now()

	if e, ok := l.entries[k]; ok && now.Before(e.expiry) {
		return Result{Remaining: ceilSeconds(e.expiry.Sub(now))}
	}

	l.recordLocked(k, now)
	return Result{Allowed: true}
}

// Allow is Check in error form: nil when allowed, *ThrottledError otherwise.
func (l *Limiter) Allow(subject string, action Action) error {
	res := l.Check(subject, action)
	if res.Allowed {
		return nil
	}
	return &ThrottledError{Action: action, Remaining: res.Remaining}
}

// recordLocked opens a new window for k. Must be called with mu held.
func (l *Limiter) recordLocked(k key, now time.Time) {
	if old, ok := l.entries[k]; ok && old.timer != nil {
		old.timer.Stop()
	}

	window := l.Window(k.action)
	e := &entry{expiry: now.Add(window)}
	if !l.closed {
		e.timer = time.AfterFunc(window, func() {
			l.evict(k, e)
		})
	}
	l.entries[k] = e
}

// evict removes k only if it still maps to e; a newer window wins.
func (l *Limiter) evict(k key, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cur, ok := l.entries[k]; ok && cur == e {
		delete(l.entries, k)
	}
}

// Len reports how many entries are currently stored, expired or not.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Close stops all pending eviction timers. It is safe to call multiple times.
// Check keeps working after Close; entries simply stop being evicted.
func (l *Limiter) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	for _, e := range l.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
}

func ceilSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
