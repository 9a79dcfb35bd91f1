package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/churnforge/internal/artifact"
	"github.com/jonathan/churnforge/internal/config"
	"github.com/jonathan/churnforge/internal/server"
)

func newPredictCmd(opts *globalOptions) *cobra.Command {
	var inPath, modelPath string

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Score one JSON row with the saved model",
		Long:  "Read a JSON object of raw feature values and print the churn prediction in the same shape as POST /predict.",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, opts, func(cfg *config.Config) {
				if cmd.Flags().Changed("model") {
					cfg.ArtifactPath = modelPath
				}
			})
			if err != nil {
				return err
			}

			f, err := os.Open(inPath)
			if err != nil {
				return fmt.Errorf("failed to read input file: %w", err)
			}
			defer f.Close()

			row, err := server.DecodeRow(f)
			if err != nil {
				return err
			}

			a, err := artifact.Load(cfg.ArtifactPath)
			if err != nil {
				return err
			}

			preds, proba, err := a.Pipeline.Predict(row)
			if err != nil {
				return fmt.Errorf("prediction failed: %w", err)
			}
			resp := server.PredictResponse{ChurnPred: preds[0]}
			if proba != nil {
				resp.ChurnProba = &proba[0]
			}

			jsonBytes, err := json.Marshal(resp)
			if err != nil {
				return fmt.Errorf("failed to marshal JSON: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(jsonBytes))
			return nil
		},
	}
	cmd.Flags().StringVarP(&inPath, "in", "i", "", "Path to a JSON file holding one row")
	cmd.Flags().StringVar(&modelPath, "model", config.DefaultArtifactPath, "Path to the model artifact")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}
