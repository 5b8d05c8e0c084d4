// Package commands provides the semflow CLI subcommands.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/semflow/config"
)

// Register attaches all subcommands to the root command.
func Register(root *cobra.Command) {
	root.AddCommand(newRunCommand())
	root.AddCommand(newStatusCommand())
	root.AddCommand(newValidateConfigCommand())
}

// setupLogger configures the process-wide logger from the log-level flag.
func setupLogger(logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// loadConfig applies the layered loader, then an explicit --config overlay.
func loadConfig(configPath string, logger *slog.Logger) (*config.Config, error) {
	cfg, err := config.NewLoader(logger).Load()
	if err != nil {
		return nil, err
	}

	if configPath != "" {
		overlay, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", configPath, err)
		}
		cfg.Merge(overlay)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}

	return cfg, nil
}
