// ABOUTME: Periodic sweep that deletes empty provisioned rooms
// ABOUTME: Overlapping sweeps collapse into one; per-room failures never abort a sweep

package lifecycle

import (
	"context"
	"time"

	"github.com/2389/tempvoice/internal/platform"
)

// SweepResult summarizes one sweep.
type SweepResult struct {
	Deleted int
	Failed  int
}

// Run sweeps every interval until ctx is done. A non-positive interval uses
// DefaultReapInterval.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	m.logger.Info("reaper started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("reaper stopped")
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Sweep deletes every empty room of every configured community. Concurrent
// callers share the result of the sweep already in flight.
func (m *Manager) Sweep(ctx context.Context) SweepResult {
	v, _, _ := m.sweeps.Do("sweep", func() (any, error) {
		start := time.Now()
		var total SweepResult
		for _, guildID := range m.configs.GuildIDs() {
			res := m.sweepGuild(ctx, guildID)
			total.Deleted += res.Deleted
			total.Failed += res.Failed
		}
		m.metrics.ObserveSweep(time.Since(start))
		return total, nil
	})
	return v.(SweepResult)
}

func (m *Manager) sweepGuild(ctx context.Context, guildID string) SweepResult {
	var res SweepResult

	cfg, ok := m.configs.Get(guildID)
	if !ok {
		return res
	}
	logger := m.logger.With("guild_id", guildID)

	children, err := m.platform.ChildChannels(ctx, guildID, cfg.CategoryID)
	if err != nil {
		logger.Warn("failed to list category channels", "category_id", cfg.CategoryID, "error", err)
		return res
	}

	for _, ch := range children {
		if ch.Kind != platform.KindVoice || ch.ID == cfg.JoinChannelID || m.isPending(ch.ID) {
			continue
		}
		deleted, err := m.reapIfEmpty(ctx, guildID, ch)
		switch {
		case err != nil:
			res.Failed++
			m.metrics.ReapFailed()
			logger.Warn("failed to reap room", "channel_id", ch.ID, "error", err)
		case deleted:
			res.Deleted++
			m.metrics.RoomReaped()
			logger.Debug("empty room deleted", "channel_id", ch.ID, "name", ch.Name)
		}
	}
	return res
}

// reapIfEmpty deletes ch when nobody, bots included, is connected to it.
func (m *Manager) reapIfEmpty(ctx context.Context, guildID string, ch *platform.Channel) (bool, error) {
	occupants, err := m.platform.ListOccupants(ctx, guildID, ch.ID)
	if err != nil {
		return false, platform.Wrap("list occupants", err)
	}
	if len(occupants) > 0 {
		return false, nil
	}
	if err := m.platform.DeleteChannel(ctx, ch.ID); err != nil {
		return false, platform.Wrap("delete channel", err)
	}
	return true, nil
}
