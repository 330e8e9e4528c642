// ABOUTME: init subcommand that writes a starter configuration file
// ABOUTME: Prompts for the essentials and renders YAML with the remaining defaults

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/2389/tempvoice/internal/config"
)

// initAnswers are the values collected by the init prompts.
type initAnswers struct {
	Token         string
	CommandPrefix string
	StorageDriver string
	StoragePath   string
	LogLevel      string
	LogFormat     string
	Metrics       bool
}

func initCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a new config file interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.InOrStdin(), cmd.OutOrStdout(), getConfigPath(), force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func runInit(in io.Reader, out io.Writer, defaultPath string, force bool) error {
	reader := bufio.NewReader(in)

	fmt.Fprintln(out, "tempvoice configuration setup")
	fmt.Fprintln(out, "=============================")
	fmt.Fprintln(out)

	outputFile := prompt(reader, out, "Config file path", defaultPath)

	if _, err := os.Stat(outputFile); err == nil && !force {
		overwrite := prompt(reader, out, "File exists. Overwrite?", "no")
		if !isYes(overwrite) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	fmt.Fprintln(out, "\n--- Discord ---")
	var a initAnswers
	a.Token = prompt(reader, out, "Bot token (or ${VAR} reference)", "${DISCORD_TOKEN}")
	a.CommandPrefix = prompt(reader, out, "Command prefix", config.DefaultCommandPrefix)

	fmt.Fprintln(out, "\n--- Storage ---")
	a.StorageDriver = prompt(reader, out, "Storage driver (json/sqlite)", config.DefaultStorageDriver)
	defaultStore := filepath.Join(getDataPath(), "settings.json")
	if a.StorageDriver == "sqlite" {
		defaultStore = filepath.Join(getDataPath(), "tempvoice.db")
	}
	a.StoragePath = prompt(reader, out, "Storage path", defaultStore)

	fmt.Fprintln(out, "\n--- Logging ---")
	a.LogLevel = prompt(reader, out, "Log level (debug/info/warn/error)", "info")
	a.LogFormat = prompt(reader, out, "Log format (text/json)", "text")

	fmt.Fprintln(out, "\n--- Metrics ---")
	a.Metrics = isYes(prompt(reader, out, "Serve /health and /metrics?", "no"))

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(outputFile, []byte(renderConfig(a)), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	dataDir := filepath.Dir(a.StoragePath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	fmt.Fprintf(out, "\nConfig written to %s\n", outputFile)
	fmt.Fprintf(out, "Data directory: %s\n", dataDir)
	fmt.Fprintln(out, "\nTo start the bot:")
	fmt.Fprintf(out, "  %s serve\n", programName)

	return nil
}

// renderConfig writes the YAML config for a.
func renderConfig(a initAnswers) string {
	var cfg strings.Builder
	cfg.WriteString("# tempvoice configuration\n")
	cfg.WriteString("# Generated by tempvoice init\n\n")

	cfg.WriteString("discord:\n")
	cfg.WriteString(fmt.Sprintf("  token: %q\n", a.Token))
	cfg.WriteString(fmt.Sprintf("  command_prefix: %q\n", a.CommandPrefix))
	cfg.WriteString("\n")

	cfg.WriteString("storage:\n")
	cfg.WriteString(fmt.Sprintf("  driver: %q\n", a.StorageDriver))
	cfg.WriteString(fmt.Sprintf("  path: %q\n", a.StoragePath))
	cfg.WriteString("\n")

	cfg.WriteString("reaper:\n")
	cfg.WriteString(fmt.Sprintf("  interval: %q\n", config.DefaultReapInterval))
	cfg.WriteString("\n")

	cfg.WriteString("cooldowns:\n")
	cfg.WriteString("  create_channel: \"15s\"\n")
	cfg.WriteString("  button: \"3s\"\n")
	cfg.WriteString("  kick: \"5s\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("rooms:\n")
	cfg.WriteString(fmt.Sprintf("  name_template: %q\n", config.DefaultNameTemplate))
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: %q\n", a.LogLevel))
	cfg.WriteString(fmt.Sprintf("  format: %q\n", a.LogFormat))
	cfg.WriteString("\n")

	cfg.WriteString("metrics:\n")
	cfg.WriteString(fmt.Sprintf("  enabled: %t\n", a.Metrics))
	cfg.WriteString(fmt.Sprintf("  addr: %q\n", config.DefaultMetricsAddr))
	cfg.WriteString(fmt.Sprintf("  path: %q\n", config.DefaultMetricsPath))

	return cfg.String()
}

func isYes(s string) bool {
	s = strings.ToLower(s)
	return s == "yes" || s == "y"
}

func prompt(reader *bufio.Reader, out io.Writer, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(out, "%s [%s]: ", question, defaultVal)
	} else {
		fmt.Fprintf(out, "%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		// On EOF or error, return default
		fmt.Fprintln(out)
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
