// ABOUTME: Tests for the bot health endpoints, metrics route, and shutdown helpers
// ABOUTME: Builds the HTTP handler directly without connecting to Discord

package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/tempvoice/internal/config"
	"github.com/2389/tempvoice/internal/metrics"
	"github.com/2389/tempvoice/internal/platform"
	"github.com/2389/tempvoice/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestBot(t *testing.T) *Bot {
	t.Helper()
	backend := store.NewMockBackend(map[string]store.CommunityConfig{
		"g1": {CategoryID: "cat", JoinChannelID: "join", InterfaceChannelID: "iface"},
	})
	configs := store.Open(context.Background(), backend, nil)
	t.Cleanup(func() { _ = configs.Close() })

	registry := prometheus.NewRegistry()
	mtr := metrics.New(registry)
	mtr.RoomCreated()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return &Bot{
		config:   &config.Config{Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"}},
		configs:  configs,
		metrics:  mtr,
		registry: registry,
		logger:   discardLogger(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	return rec.Code, string(body)
}

func TestHealth(t *testing.T) {
	b := newTestBot(t)

	code, body := get(t, b.httpHandler(), "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK", body)
}

func TestReady(t *testing.T) {
	b := newTestBot(t)
	h := b.httpHandler()

	code, body := get(t, h, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "gateway not ready", body)

	b.ready.Store(true)
	code, body = get(t, h, "/health/ready")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready (1 communities)", body)
}

func TestMetricsRoute(t *testing.T) {
	b := newTestBot(t)

	code, body := get(t, b.httpHandler(), "/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "tempvoice_rooms_created_total 1")
}

func TestTrackStopsAfterCancel(t *testing.T) {
	b := newTestBot(t)

	require.True(t, b.track())
	b.inflight.Done()

	b.cancel()
	assert.False(t, b.track())
	assert.NoError(t, b.waitInflight(context.Background()))
}

func TestTrackDuringDrain(t *testing.T) {
	b := newTestBot(t)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				if !b.track() {
					return
				}
				b.inflight.Done()
			}
		}()
	}

	b.stopAccepting()
	require.NoError(t, b.waitInflight(context.Background()))
	assert.False(t, b.track())
	wg.Wait()
}

func TestWaitInflightTimesOut(t *testing.T) {
	b := newTestBot(t)
	require.True(t, b.track())
	defer b.inflight.Done()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, b.waitInflight(ctx), context.Canceled)
}

func TestAppendCloseError(t *testing.T) {
	var errs []error
	errs = appendCloseError(errs, "store close", nil)
	assert.Empty(t, errs)

	boom := errors.New("boom")
	errs = appendCloseError(errs, "store close", boom)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], boom)
	assert.Contains(t, errs[0].Error(), "store close")
}

func TestJoinFailureLevel(t *testing.T) {
	rejected := platform.Wrap("create voice room", errors.New("missing permissions"))
	assert.Equal(t, slog.LevelWarn, joinFailureLevel(rejected))
	assert.Equal(t, slog.LevelError, joinFailureLevel(errors.New("store closed")))
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)
}

func TestNew_WiresComponentsWithoutConnecting(t *testing.T) {
	cfg := &config.Config{
		Discord: config.DiscordConfig{Token: "test-token", CommandPrefix: "!"},
		Storage: config.StorageConfig{Driver: "json", Path: filepath.Join(t.TempDir(), "settings.json")},
		Rooms:   config.RoomsConfig{NameTemplate: "%s's Room"},
		Metrics: config.MetricsConfig{Enabled: true, Addr: "127.0.0.1:0", Path: "/metrics"},
	}

	b, err := New(cfg, discardLogger())
	require.NoError(t, err)

	assert.Equal(t, "Bot test-token", b.session.Token)
	assert.Equal(t, intents, b.session.Identify.Intents)
	require.NotNil(t, b.httpServer)
	assert.Equal(t, "127.0.0.1:0", b.httpServer.Addr)
	assert.Empty(t, b.configs.GuildIDs())

	require.NoError(t, b.Shutdown(context.Background()))
	assert.False(t, b.track(), "no events accepted after shutdown")
}

func TestNew_UnreadableSQLiteStoreStartsEmpty(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.db")
	require.NoError(t, os.WriteFile(dbPath, []byte("garbage, not a database"), 0644))

	cfg := &config.Config{
		Discord: config.DiscordConfig{Token: "test-token"},
		Storage: config.StorageConfig{Driver: "sqlite", Path: dbPath},
	}

	b, err := New(cfg, discardLogger())
	require.NoError(t, err)
	assert.Empty(t, b.configs.GuildIDs())
	require.NoError(t, b.Shutdown(context.Background()))
}
