// Package training runs the churn training workflow: normalize the target,
// gate the data on its contract, fit the pipeline, evaluate, persist and track.
package training

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/churnforge/internal/artifact"
	"github.com/jonathan/churnforge/internal/contract"
	"github.com/jonathan/churnforge/internal/db"
	"github.com/jonathan/churnforge/internal/features"
	"github.com/jonathan/churnforge/internal/model"
	"github.com/jonathan/churnforge/internal/table"
	"github.com/jonathan/churnforge/internal/target"
	"github.com/jonathan/churnforge/internal/tracking"
)

// Stage names reported through OnProgress
const (
	StageNormalize = "normalize"
	StageContract  = "contract"
	StageValidate  = "validate"
	StageSplit     = "split"
	StageFit       = "fit"
	StageEvaluate  = "evaluate"
	StagePersist   = "persist"
	StageTrack     = "track"
)

// ProgressEvent represents a progress update during training
type ProgressEvent struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// ProgressCallback is called when training progress occurs
type ProgressCallback func(event ProgressEvent)

// Options holds configuration for a training run
type Options struct {
	ContractPath string
	ReportPath   string
	ArtifactPath string
	Experiment   string
	TestSize     float64
	Seed         int64
	Model        model.Kind
	ModelOptions model.Options
	Tracker      tracking.Tracker // optional
	Logger       *slog.Logger
	OnProgress   ProgressCallback
}

// Result summarizes a finished training run
type Result struct {
	RunID              string          `json:"run_id"`
	Accuracy           float64         `json:"accuracy"`
	F1                 float64         `json:"f1"`
	ModelPath          string          `json:"model_path"`
	ModelType          model.Kind      `json:"model_type"`
	NumericColumns     []string        `json:"numeric_columns"`
	CategoricalColumns []string        `json:"categorical_columns"`
	TrainRows          int             `json:"train_rows"`
	TestRows           int             `json:"test_rows"`
	Metrics            model.Metrics   `json:"metrics"`
	Report             contract.Report `json:"report"`
}

func (o *Options) defaults() {
	if o.Experiment == "" {
		o.Experiment = tracking.DefaultExperiment
	}
	if o.TestSize == 0 {
		o.TestSize = 0.2
	}
	if o.Model == "" {
		o.Model = model.KindLogistic
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

func (o *Options) emit(stage, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	o.Logger.Info(msg, "stage", stage)
	if o.OnProgress != nil {
		o.OnProgress(ProgressEvent{Stage: stage, Message: msg})
	}
}

// Train fits a churn model on raw and writes the artifact to opts.ArtifactPath.
// A contract violation returns *GateError before anything is fitted or written.
// Cancellation is honored between stages.
func Train(ctx context.Context, raw *table.Table, opts Options) (*Result, error) {
	opts.defaults()
	log := opts.Logger

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts.emit(StageNormalize, "normalizing %d rows", raw.NumRows())
	normalized, err := target.Normalize(raw, target.DefaultColumn)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := contract.Load(opts.ContractPath)
	if err != nil {
		return nil, err
	}
	opts.emit(StageContract, "loaded contract %s", opts.ContractPath)

	report := contract.Validate(normalized, c)
	if opts.ReportPath != "" {
		if err := contract.WriteReport(opts.ReportPath, report); err != nil {
			return nil, fmt.Errorf("failed to write validation report: %w", err)
		}
	}
	if !report.Success {
		log.Warn("data contract gate failed", "errors", len(report.Errors))
		return nil, &GateError{Report: report}
	}
	opts.emit(StageValidate, "contract satisfied: %d rows, %d columns", report.RowCount, report.ColumnCount)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	X, y, err := target.SplitXY(normalized, c.TargetColumn)
	if err != nil {
		return nil, err
	}
	trainIdx, testIdx, err := model.StratifiedSplit(y, opts.TestSize, opts.Seed)
	if err != nil {
		return nil, fmt.Errorf("failed to split data: %w", err)
	}
	opts.emit(StageSplit, "split %d train / %d test rows", len(trainIdx), len(testIdx))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bundle := features.Build(X)
	clf, err := model.New(opts.Model, opts.ModelOptions)
	if err != nil {
		return nil, err
	}
	pipeline := &model.Pipeline{Preprocessor: bundle.Preprocessor, Classifier: clf}
	if err := pipeline.Fit(X.Take(trainIdx), model.Select(y, trainIdx)); err != nil {
		return nil, fmt.Errorf("training failed: %w", err)
	}
	opts.emit(StageFit, "fitted %s on %d features", clf.Name(), bundle.Preprocessor.Width())

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	preds, _, err := pipeline.Predict(X.Take(testIdx))
	if err != nil {
		return nil, fmt.Errorf("evaluation failed: %w", err)
	}
	metrics := model.Evaluate(model.Select(y, testIdx), preds)
	opts.emit(StageEvaluate, "accuracy=%.4f f1=%.4f", metrics.Accuracy, metrics.F1)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	if opts.Tracker != nil {
		if runID, err = opts.Tracker.StartRun(ctx, opts.Experiment); err != nil {
			return nil, fmt.Errorf("failed to start tracking run: %w", err)
		}
	}

	result := &Result{
		RunID:              runID,
		Accuracy:           metrics.Accuracy,
		F1:                 metrics.F1,
		ModelPath:          opts.ArtifactPath,
		ModelType:          clf.Name(),
		NumericColumns:     bundle.NumericColumns,
		CategoricalColumns: bundle.CategoricalColumns,
		TrainRows:          len(trainIdx),
		TestRows:           len(testIdx),
		Metrics:            metrics,
		Report:             report,
	}

	if err := artifact.Save(opts.ArtifactPath, &artifact.Artifact{Pipeline: pipeline, RunID: runID, CreatedAt: time.Now().UTC()}); err != nil {
		endRun(opts, runID, db.StatusFailed)
		return nil, err
	}
	opts.emit(StagePersist, "saved model to %s", opts.ArtifactPath)

	if opts.Tracker != nil {
		if err := track(ctx, opts, result); err != nil {
			endRun(opts, runID, db.StatusFailed)
			return nil, fmt.Errorf("failed to track run: %w", err)
		}
		opts.emit(StageTrack, "logged run %s to experiment %s", runID, opts.Experiment)
	}
	return result, nil
}

func track(ctx context.Context, opts Options, r *Result) error {
	params := map[string]string{
		"model":     string(r.ModelType),
		"num_cols":  strconv.Itoa(len(r.NumericColumns)),
		"cat_cols":  strconv.Itoa(len(r.CategoricalColumns)),
		"test_size": strconv.FormatFloat(opts.TestSize, 'f', -1, 64),
		"seed":      strconv.FormatInt(opts.Seed, 10),

		"numeric_columns":     strings.Join(r.NumericColumns, ","),
		"categorical_columns": strings.Join(r.CategoricalColumns, ","),
	}
	metrics := map[string]float64{
		"accuracy":  r.Metrics.Accuracy,
		"f1":        r.Metrics.F1,
		"precision": r.Metrics.Precision,
		"recall":    r.Metrics.Recall,
	}
	if err := tracking.LogRun(ctx, opts.Tracker, r.RunID, params, metrics); err != nil {
		return err
	}
	if err := opts.Tracker.LogArtifact(ctx, r.RunID, "model", r.ModelPath); err != nil {
		return err
	}
	return opts.Tracker.EndRun(ctx, r.RunID, db.StatusFinished)
}

// endRun marks a tracked run failed. It runs on a fresh context so a canceled
// run is still closed out.
func endRun(opts Options, runID, status string) {
	if opts.Tracker == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := opts.Tracker.EndRun(ctx, runID, status); err != nil {
		opts.Logger.Error("failed to close tracking run", "run_id", runID, "error", err)
	}
}
