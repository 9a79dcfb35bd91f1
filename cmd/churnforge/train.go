package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/churnforge/internal/config"
	"github.com/jonathan/churnforge/internal/model"
	"github.com/jonathan/churnforge/internal/observability"
	"github.com/jonathan/churnforge/internal/table"
	"github.com/jonathan/churnforge/internal/tracking"
	"github.com/jonathan/churnforge/internal/training"
)

type trainOptions struct {
	data       string
	contract   string
	report     string
	modelPath  string
	trackingDB string
	dbURL      string
	experiment string
	modelType  string
	testSize   float64
	seed       int64
	maxIter    int
	noTrack    bool
}

func newTrainCmd(opts *globalOptions) *cobra.Command {
	o := &trainOptions{}

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Validate the dataset and train a churn model",
		Long: `Normalize the target, gate the dataset on the data contract, fit the preprocessing
pipeline and classifier on a stratified split, then save the model artifact and record the run.

Configuration can be loaded from a YAML file using --config. Command-line flags override config file values.
Runs are tracked in PostgreSQL when DATABASE_URL (or --db-url) is set, otherwise in a local SQLite file.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTrain(cmd, opts, o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.data, "data", config.DefaultDataPath, "Path to the raw churn CSV")
	f.StringVar(&o.contract, "contract", config.DefaultContractPath, "Path to the data contract")
	f.StringVar(&o.report, "report", config.DefaultReportPath, "Where to write the validation report")
	f.StringVar(&o.modelPath, "model", config.DefaultArtifactPath, "Where to write the model artifact")
	f.StringVar(&o.trackingDB, "tracking-db", config.DefaultTrackingDB, "SQLite file for run tracking")
	f.StringVar(&o.dbURL, "db-url", "", "PostgreSQL connection URL for run tracking (defaults to DATABASE_URL env var)")
	f.StringVar(&o.experiment, "experiment", config.DefaultExperiment, "Experiment name")
	f.StringVar(&o.modelType, "model-type", config.DefaultModel, "Classifier: logistic or majority")
	f.Float64Var(&o.testSize, "test-size", config.DefaultTestSize, "Fraction of rows held out for evaluation")
	f.Int64Var(&o.seed, "seed", config.DefaultSeed, "Random seed for the split")
	f.IntVar(&o.maxIter, "max-iter", 0, "Maximum gradient descent iterations (0 uses the model default)")
	f.BoolVar(&o.noTrack, "no-track", false, "Skip run tracking")
	return cmd
}

func runTrain(cmd *cobra.Command, opts *globalOptions, o *trainOptions) error {
	ctx := cmd.Context()
	flags := cmd.Flags()

	cfg, err := resolveConfig(cmd, opts, func(cfg *config.Config) {
		if flags.Changed("data") {
			cfg.DataPath = o.data
		}
		if flags.Changed("contract") {
			cfg.ContractPath = o.contract
		}
		if flags.Changed("report") {
			cfg.ReportPath = o.report
		}
		if flags.Changed("model") {
			cfg.ArtifactPath = o.modelPath
		}
		if flags.Changed("tracking-db") {
			cfg.TrackingDB = o.trackingDB
		}
		if flags.Changed("db-url") {
			cfg.DatabaseURL = o.dbURL
		}
		if flags.Changed("experiment") {
			cfg.Experiment = o.experiment
		}
		if flags.Changed("model-type") {
			cfg.Model.Type = o.modelType
		}
		if flags.Changed("test-size") {
			cfg.TestSize = o.testSize
		}
		if flags.Changed("seed") {
			cfg.Seed = o.seed
		}
		if flags.Changed("max-iter") {
			cfg.Model.MaxIter = o.maxIter
		}
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printer := observability.NewPrinter(out)
	logger := newLogger(cmd.ErrOrStderr(), cliLogLevel(opts.verbose))

	raw, err := table.ReadCSV(cfg.DataPath)
	if err != nil {
		return datasetError(err)
	}

	var tracker tracking.Tracker
	if !o.noTrack {
		tracker, err = tracking.Open(ctx, tracking.Config{DatabaseURL: cfg.DatabaseURL, SQLitePath: cfg.TrackingDB})
		if err != nil {
			return fmt.Errorf("failed to open run tracker: %w", err)
		}
		defer func() {
			if cerr := tracker.Close(); cerr != nil {
				logger.Warn("failed to close tracker", "error", cerr)
			}
		}()
	}

	trainOpts := training.Options{
		ContractPath: cfg.ContractPath,
		ReportPath:   cfg.ReportPath,
		ArtifactPath: cfg.ArtifactPath,
		Experiment:   cfg.Experiment,
		TestSize:     cfg.TestSize,
		Seed:         cfg.Seed,
		Model:        model.Kind(cfg.Model.Type),
		ModelOptions: model.Options{
			MaxIter:      cfg.Model.MaxIter,
			LearningRate: cfg.Model.LearningRate,
			L2:           cfg.Model.L2,
		},
		Tracker: tracker,
		Logger:  logger,
	}
	if opts.verbose {
		trainOpts.OnProgress = printer.PrintProgress
	}

	result, err := training.Train(ctx, raw, trainOpts)
	if err != nil {
		var gate *training.GateError
		if errors.As(err, &gate) {
			_, _ = fmt.Fprintf(out, "[Contract] Validation success=false. Report: %s\n", cfg.ReportPath)
			for _, e := range gate.Report.Errors {
				_, _ = fmt.Fprintf(out, "  - %s\n", e)
			}
		}
		return err
	}

	_, _ = fmt.Fprintln(out, "Training complete:")
	_, _ = fmt.Fprintf(out, "  run_id: %s\n", result.RunID)
	_, _ = fmt.Fprintf(out, "  accuracy: %.4f\n", result.Accuracy)
	_, _ = fmt.Fprintf(out, "  f1: %.4f\n", result.F1)
	_, _ = fmt.Fprintf(out, "  model_path: %s\n", result.ModelPath)
	if opts.verbose {
		printer.PrintTrainingResult(result)
	}
	return nil
}
