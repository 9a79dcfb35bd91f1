// Package config provides configuration loading and validation for the CLI.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Default locations, relative to the working directory.
const (
	DefaultDataPath     = "data/telco_churn.csv"
	DefaultContractPath = "contracts/contract.json"
	DefaultReportPath   = "contracts/validation_result.json"
	DefaultArtifactPath = "artifacts/model.json"
	DefaultTrackingDB   = "artifacts/tracking.db"
	DefaultExperiment   = "churnforge-mlops-lite"
	DefaultTestSize     = 0.2
	DefaultSeed         = 42
	DefaultModel        = "logistic"
	DefaultMaxIter      = 1000
	DefaultLearningRate = 0.1
	DefaultL2           = 0.01
	DefaultPort         = 8000
)

// Config represents the CLI configuration that can be loaded from a YAML file.
// All fields are optional; missing values use defaults or CLI flags.
type Config struct {
	// Paths
	DataPath     string `yaml:"data_path,omitempty"`     // Raw churn CSV
	ContractPath string `yaml:"contract_path,omitempty"` // Data contract JSON
	ReportPath   string `yaml:"report_path,omitempty"`   // Validation report JSON
	ArtifactPath string `yaml:"artifact_path,omitempty"` // Model artifact

	// Tracking
	TrackingDB  string `yaml:"tracking_db,omitempty"`  // Local sqlite tracker file
	DatabaseURL string `yaml:"database_url,omitempty"` // PostgreSQL tracker; wins over tracking_db
	Experiment  string `yaml:"experiment,omitempty"`

	// Training
	TestSize float64     `yaml:"test_size,omitempty" validate:"omitempty,gt=0,lt=1"`
	Seed     int64       `yaml:"seed,omitempty"`
	Model    ModelConfig `yaml:"model,omitempty"`

	Serve ServeConfig `yaml:"serve,omitempty"`
}

// ModelConfig selects and tunes the classifier.
type ModelConfig struct {
	Type         string  `yaml:"type,omitempty" validate:"omitempty,oneof=logistic majority"`
	MaxIter      int     `yaml:"max_iter,omitempty" validate:"gte=0"`
	LearningRate float64 `yaml:"learning_rate,omitempty" validate:"gte=0"`
	L2           float64 `yaml:"l2,omitempty" validate:"gte=0"`
}

// ServeConfig configures the prediction server.
type ServeConfig struct {
	Port int `yaml:"port,omitempty" validate:"omitempty,min=1,max=65535"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		DataPath:     DefaultDataPath,
		ContractPath: DefaultContractPath,
		ReportPath:   DefaultReportPath,
		ArtifactPath: DefaultArtifactPath,
		TrackingDB:   DefaultTrackingDB,
		Experiment:   DefaultExperiment,
		TestSize:     DefaultTestSize,
		Seed:         DefaultSeed,
		Model: ModelConfig{
			Type:         DefaultModel,
			MaxIter:      DefaultMaxIter,
			LearningRate: DefaultLearningRate,
			L2:           DefaultL2,
		},
		Serve: ServeConfig{Port: DefaultPort},
	}
}

// LoadConfig loads configuration from a YAML file.
// Unknown keys are rejected.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Required fields are not checked here; defaults and flags fill them later.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("'%s' failed %s", yamlName(fe.Namespace()), fe.Tag()))
			}
			return fmt.Errorf("config error: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// yamlName turns a validator namespace like Config.Model.MaxIter into model.max_iter.
func yamlName(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = snake(p)
	}
	return strings.Join(parts, ".")
}

func snake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			// keep acronyms like DB and URL together
			if i > 0 && !(s[i-1] >= 'A' && s[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ApplyEnv overrides values from the environment. DATABASE_URL and the
// CHURNFORGE_* variables are honored; empty variables are ignored.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}

	strs := map[string]*string{
		"DATABASE_URL":           &c.DatabaseURL,
		"CHURNFORGE_DATA":        &c.DataPath,
		"CHURNFORGE_CONTRACT":    &c.ContractPath,
		"CHURNFORGE_REPORT":      &c.ReportPath,
		"CHURNFORGE_MODEL_PATH":  &c.ArtifactPath,
		"CHURNFORGE_TRACKING_DB": &c.TrackingDB,
		"CHURNFORGE_EXPERIMENT":  &c.Experiment,
		"CHURNFORGE_MODEL":       &c.Model.Type,
	}
	for key, dst := range strs {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	if v := strings.TrimSpace(getenv("CHURNFORGE_TEST_SIZE")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config error: CHURNFORGE_TEST_SIZE: %w", err)
		}
		c.TestSize = f
	}
	if v := strings.TrimSpace(getenv("CHURNFORGE_SEED")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config error: CHURNFORGE_SEED: %w", err)
		}
		c.Seed = n
	}
	if v := strings.TrimSpace(getenv("CHURNFORGE_PORT")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config error: CHURNFORGE_PORT: %w", err)
		}
		c.Serve.Port = n
	}
	return nil
}

// MergeWithDefaults returns a new Config with zero fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&result.DataPath, defaults.DataPath)
	fill(&result.ContractPath, defaults.ContractPath)
	fill(&result.ReportPath, defaults.ReportPath)
	fill(&result.ArtifactPath, defaults.ArtifactPath)
	fill(&result.TrackingDB, defaults.TrackingDB)
	fill(&result.DatabaseURL, defaults.DatabaseURL)
	fill(&result.Experiment, defaults.Experiment)
	fill(&result.Model.Type, defaults.Model.Type)

	// Numeric fields: use default if zero
	if result.TestSize == 0 {
		result.TestSize = defaults.TestSize
	}
	if result.Seed == 0 {
		result.Seed = defaults.Seed
	}
	if result.Model.MaxIter == 0 {
		result.Model.MaxIter = defaults.Model.MaxIter
	}
	if result.Model.LearningRate == 0 {
		result.Model.LearningRate = defaults.Model.LearningRate
	}
	if result.Model.L2 == 0 {
		result.Model.L2 = defaults.Model.L2
	}
	if result.Serve.Port == 0 {
		result.Serve.Port = defaults.Serve.Port
	}

	return result
}
