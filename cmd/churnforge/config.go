package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/churnforge/internal/config"
)

// resolveConfig loads --config when given, applies the environment, lets
// override copy explicitly set flags over it and fills the rest with defaults.
func resolveConfig(cmd *cobra.Command, opts *globalOptions, override func(cfg *config.Config)) (config.Config, error) {
	var cfg config.Config
	if opts.configPath != "" {
		loaded, err := config.LoadConfig(opts.configPath)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to load config: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			return config.Config{}, err
		}
		cfg = *loaded
		if opts.verbose {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Loaded config from: %s\n", opts.configPath)
		}
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return config.Config{}, err
	}
	if override != nil {
		override(&cfg)
	}

	cfg = cfg.MergeWithDefaults(config.Defaults())
	if err := cfg.Validate(); err != nil {
		return config.Config{}, &usageError{err: err}
	}
	return cfg, nil
}

// newLogger returns a text slog logger writing to w.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// cliLogLevel keeps library logs quiet unless --verbose is set.
func cliLogLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelInfo
	}
	return slog.LevelWarn
}
