// ABOUTME: serve and health subcommands for running and probing the bot
// ABOUTME: Loads config, prints the startup banner, and runs the bot until signaled

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/2389/tempvoice/internal/bot"
	"github.com/2389/tempvoice/internal/config"
)

const banner = `
 _                                   _
| |_ ___ _ __ ___  _ ____   _____ (_) ___ ___
| __/ _ \ '_ ' _ \| '_ \ \ / / _ \| |/ __/ _ \
| ||  __/ | | | | | |_) \ V / (_) | | (_|  __/
 \__\___|_| |_| |_| .__/ \_/ \___/|_|\___\___|
                  |_|
`

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect to Discord and manage temporary voice channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}
}

// loadConfig reads the config file, or falls back to the environment alone
// when no file exists at path.
func loadConfig(path string) (*config.Config, string, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = config.FromEnv()
		if err != nil {
			return nil, "", fmt.Errorf("loading config from environment: %w", err)
		}
		return cfg, "(environment)", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	return cfg, path, nil
}

func runServe(cmd *cobra.Command) error {
	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, source, err := loadConfig(getConfigPath())
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, v ...any) {
		logger.Debug(fmt.Sprintf(format, v...), "component", "maxprocs")
	})); err != nil {
		logger.Warn("setting GOMAXPROCS failed", "error", err)
	}

	// Startup info
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", source)
	green.Print("    ▶ ")
	fmt.Printf("Storage:   %s (%s)\n", cfg.Storage.Path, cfg.Storage.Driver)
	green.Print("    ▶ ")
	fmt.Printf("Prefix:    %s\n", cfg.Discord.CommandPrefix)
	green.Print("    ▶ ")
	fmt.Printf("Reaper:    every %s\n", cfg.Reaper.Interval)
	if cfg.Metrics.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Metrics:   http://%s%s\n", cfg.Metrics.Addr, cfg.Metrics.Path)
	} else {
		yellow.Print("    ▶ ")
		fmt.Println("Metrics:   disabled")
	}
	fmt.Println()

	logger.Info("starting tempvoice",
		"config", source,
		"storage_driver", cfg.Storage.Driver,
		"storage_path", cfg.Storage.Path,
	)

	b, err := bot.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating bot: %w", err)
	}

	return b.Run(cmd.Context())
}

func healthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check a running bot's health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(getConfigPath())
			if err != nil {
				return err
			}
			if !cfg.Metrics.Enabled {
				return fmt.Errorf("metrics server is disabled; enable metrics to expose /health")
			}

			url := fmt.Sprintf("http://%s/health", cfg.Metrics.Addr)
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
			if err != nil {
				return fmt.Errorf("creating request: %w", err)
			}

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "healthy")
			return nil
		},
	}
}
