// ABOUTME: Bot orchestrator that wires the voice components to a Discord session
// ABOUTME: Manages the gateway session, reaper loop, store, and health/metrics server lifecycle

package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/2389/tempvoice/internal/access"
	"github.com/2389/tempvoice/internal/config"
	"github.com/2389/tempvoice/internal/cooldown"
	"github.com/2389/tempvoice/internal/interaction"
	"github.com/2389/tempvoice/internal/lifecycle"
	"github.com/2389/tempvoice/internal/metrics"
	"github.com/2389/tempvoice/internal/platform/discord"
	"github.com/2389/tempvoice/internal/setup"
	"github.com/2389/tempvoice/internal/store"
)

// Bot orchestrates the tempvoice components.
// It owns the Discord session, the config store, and the optional HTTP server.
type Bot struct {
	config     *config.Config
	session    *discordgo.Session
	configs    *store.ConfigStore
	limiter    *cooldown.Limiter
	manager    *lifecycle.Manager
	router     *interaction.Router
	commands   *setup.Commands
	metrics    *metrics.Metrics
	registry   *prometheus.Registry
	httpServer *http.Server
	logger     *slog.Logger

	// ctx is the parent of every event handler; canceled on shutdown
	ctx    context.Context
	cancel context.CancelFunc

	// inflight tracks event handlers still running; closeMu orders Add
	// against the start of the drain
	inflight sync.WaitGroup
	closeMu  sync.Mutex
	closing  bool

	ready atomic.Bool
}

// New creates a Bot from cfg. It opens the config store but does not
// connect to Discord until Run is called.
func New(cfg *config.Config, logger *slog.Logger) (*Bot, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	session.Identify.Intents = intents

	backend, err := store.NewBackend(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	configs := store.Open(context.Background(), backend, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mtr := metrics.New(registry)
	mtr.SetConfigured(len(configs.GuildIDs()))

	client := discord.New(session, logger)
	limiter := cooldown.New(cfg.CooldownWindows())
	engine := access.NewEngine(configs, client, logger)
	service := setup.NewService(configs, client, interaction.ControlPanel(), logger)

	manager := lifecycle.NewManager(configs, client, limiter, logger,
		lifecycle.WithNameTemplate(cfg.Rooms.NameTemplate),
		lifecycle.WithMetrics(mtr),
	)

	ctx, cancel := context.WithCancel(context.Background())

	b := &Bot{
		config:   cfg,
		session:  session,
		configs:  configs,
		limiter:  limiter,
		manager:  manager,
		router:   interaction.NewRouter(engine, limiter, logger, interaction.WithMetrics(mtr)),
		commands: setup.NewCommands(service, client, cfg.Discord.CommandPrefix, logger),
		metrics:  mtr,
		registry: registry,
		logger:   logger.With("component", "bot"),
		ctx:      ctx,
		cancel:   cancel,
	}

	if cfg.Metrics.Enabled {
		b.httpServer = &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           b.httpHandler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	session.AddHandler(b.onReady)
	session.AddHandler(b.onVoiceStateUpdate)
	session.AddHandler(b.onInteractionCreate)
	session.AddHandler(b.onMessageCreate)

	return b, nil
}

// httpHandler builds the health and metrics routes.
func (b *Bot) httpHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", b.handleHealth)
	mux.HandleFunc("GET /health/ready", b.handleReady)
	if b.config != nil && b.config.Metrics.Path != "" {
		mux.Handle("GET "+b.config.Metrics.Path, metrics.Handler(b.registry))
	}
	return mux
}

// listen binds the HTTP side server, or returns nil when metrics are disabled.
func (b *Bot) listen() (net.Listener, error) {
	if b.httpServer == nil {
		return nil, nil
	}
	ln, err := net.Listen("tcp", b.httpServer.Addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", b.httpServer.Addr, err)
	}
	return ln, nil
}

// Run connects to Discord and blocks until ctx is canceled or a server fails.
func (b *Bot) Run(ctx context.Context) error {
	ln, err := b.listen()
	if err != nil {
		return err
	}

	if err := b.session.Open(); err != nil {
		if ln != nil {
			_ = ln.Close()
		}
		_ = b.gracefulShutdown()
		return fmt.Errorf("opening discord session: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.manager.Run(gctx, b.config.Reaper.Interval)
		return nil
	})

	if ln != nil {
		g.Go(func() error {
			b.logger.Info("HTTP server listening", "addr", ln.Addr().String())
			if err := b.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			b.logger.Info("context canceled, initiating shutdown")
		}
		return b.gracefulShutdown()
	})

	return g.Wait()
}

// gracefulShutdown performs cleanup with a timeout.
func (b *Bot) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return b.Shutdown(ctx)
}

// Shutdown closes the session, waits for in-flight events, and releases the
// limiter and store.
func (b *Bot) Shutdown(ctx context.Context) error {
	b.logger.Info("shutting down bot")
	b.stopAccepting()

	var errs []error
	if b.httpServer != nil {
		errs = appendCloseError(errs, "HTTP shutdown", b.httpServer.Shutdown(ctx))
	}
	errs = appendCloseError(errs, "session close", b.session.Close())
	errs = appendCloseError(errs, "event drain", b.waitInflight(ctx))

	b.limiter.Close()
	errs = appendCloseError(errs, "store close", b.configs.Close())

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// stopAccepting rejects new event handlers and cancels running ones.
func (b *Bot) stopAccepting() {
	b.closeMu.Lock()
	b.closing = true
	b.closeMu.Unlock()
	b.cancel()
}

// waitInflight waits for running event handlers or until ctx expires.
func (b *Bot) waitInflight(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// appendCloseError appends a labeled error if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// handleHealth returns 200 OK if the process is alive.
func (b *Bot) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK once the gateway session has received READY.
func (b *Bot) handleReady(w http.ResponseWriter, r *http.Request) {
	if !b.ready.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("gateway not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "ready (%d communities)", len(b.configs.GuildIDs()))
}
