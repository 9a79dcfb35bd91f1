package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jonathan/churnforge/internal/config"
	"github.com/jonathan/churnforge/internal/server"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var (
		port      int
		modelPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the prediction API server",
		Long: `Start an HTTP server exposing GET /health, POST /predict and POST /reload.

The model artifact is loaded at startup when present, otherwise on the first prediction.
Rate limits on /predict are read from CHURNFORGE_RATE_LIMIT_* environment variables.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, opts, func(cfg *config.Config) {
				if cmd.Flags().Changed("port") {
					cfg.Serve.Port = port
				}
				if cmd.Flags().Changed("model") {
					cfg.ArtifactPath = modelPath
				}
			})
			if err != nil {
				return err
			}

			srv, err := server.New(server.Config{
				Port:      cfg.Serve.Port,
				ModelPath: cfg.ArtifactPath,
				Logger:    newLogger(cmd.ErrOrStderr(), slog.LevelInfo),
				Preload:   true,
			})
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}

			return srv.Start(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&port, "port", config.DefaultPort, "Port to listen on")
	cmd.Flags().StringVar(&modelPath, "model", config.DefaultArtifactPath, "Path to the model artifact")
	return cmd
}
