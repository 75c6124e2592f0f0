// Package config loads vinoscore settings. Precedence, lowest first:
// built-in defaults, YAML file, VINO_* environment variables, command line
// flags.
package config

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/YuminosukeSato/vinoscore/pkg/errors"
	"github.com/YuminosukeSato/vinoscore/pkg/log"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// DefaultDatasetSource is the UCI red wine quality table.
const DefaultDatasetSource = "https://archive.ics.uci.edu/ml/machine-learning-databases/wine-quality/winequality-red.csv"

// EnvPrefix prefixes every environment variable, e.g. VINO_TRAINING_FOLDS.
const EnvPrefix = "VINO"

// Config is the full settings tree shared by both commands.
type Config struct {
	Dataset   DatasetConfig   `yaml:"dataset" envconfig:"DATASET"`
	Training  TrainingConfig  `yaml:"training" envconfig:"TRAINING"`
	Artifacts ArtifactsConfig `yaml:"artifacts" envconfig:"ARTIFACTS"`
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Log       LogConfig       `yaml:"log" envconfig:"LOG"`
}

// DatasetConfig locates the training table.
type DatasetConfig struct {
	// Source is a path, file://, http(s):// or gs:// URI.
	Source string `yaml:"source" envconfig:"SOURCE"`
	// SHA256 pins the hex digest of the raw file when set.
	SHA256 string `yaml:"sha256" envconfig:"SHA256"`
}

// TrainingConfig controls cross-validation and diagnostics.
type TrainingConfig struct {
	Folds   int    `yaml:"folds" envconfig:"FOLDS"`
	Seed    uint64 `yaml:"seed" envconfig:"SEED"`
	Shuffle bool   `yaml:"shuffle" envconfig:"SHUFFLE"`
	// MinMeanR2 logs a warning when the CV mean falls below it. nil disables.
	MinMeanR2 *float64 `yaml:"min_mean_r2" envconfig:"MIN_MEAN_R2"`
	// PlotPath writes a predicted-vs-actual PNG when set.
	PlotPath string `yaml:"plot_path" envconfig:"PLOT_PATH"`
}

// ArtifactsConfig names the two persisted files.
type ArtifactsConfig struct {
	ModelPath  string `yaml:"model_path" envconfig:"MODEL_PATH"`
	ScalerPath string `yaml:"scaler_path" envconfig:"SCALER_PATH"`
}

// ServerConfig is the HTTP listener of wine-serve.
type ServerConfig struct {
	Addr            string        `yaml:"addr" envconfig:"ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// LogConfig selects level, output format and an optional rotated file.
type LogConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`
	Format string `yaml:"format" envconfig:"FORMAT"`
	File   string `yaml:"file" envconfig:"FILE"`
}

// Defaults returns the built-in settings.
func Defaults() *Config {
	return &Config{
		Dataset: DatasetConfig{
			Source: DefaultDatasetSource,
		},
		Training: TrainingConfig{
			Folds:   5,
			Seed:    42,
			Shuffle: true,
		},
		Artifacts: ArtifactsConfig{
			ModelPath:  "wine_model.gob",
			ScalerPath: "wine_scaler.gob",
		},
		Server: ServerConfig{
			Addr:            ":8501",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load applies the YAML file at path (skipped when empty) and then the
// environment over the defaults. It does not validate.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "reading config file")
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Wrap(err, "parsing config file")
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process environment config")
	}
	return cfg, nil
}

// MinMeanR2Value returns the configured floor, or -Inf when disabled.
func (t TrainingConfig) MinMeanR2Value() float64 {
	if t.MinMeanR2 == nil {
		return math.Inf(-1)
	}
	return *t.MinMeanR2
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs errors.ValidationErrors
	add := func(param, reason string, value interface{}) {
		errs = append(errs, &errors.ValidationError{ParamName: param, Reason: reason, Value: value})
	}

	if c.Dataset.Source == "" {
		add("dataset.source", "must not be empty", c.Dataset.Source)
	}
	if c.Dataset.SHA256 != "" {
		if b, err := hex.DecodeString(c.Dataset.SHA256); err != nil || len(b) != 32 {
			add("dataset.sha256", "must be 64 hex characters", c.Dataset.SHA256)
		}
	}
	if c.Training.Folds < 2 {
		add("training.folds", "must be at least 2", c.Training.Folds)
	}
	if v := c.Training.MinMeanR2; v != nil && math.IsNaN(*v) {
		add("training.min_mean_r2", "must be a number", *v)
	}
	if c.Artifacts.ModelPath == "" {
		add("artifacts.model_path", "must not be empty", c.Artifacts.ModelPath)
	}
	if c.Artifacts.ScalerPath == "" {
		add("artifacts.scaler_path", "must not be empty", c.Artifacts.ScalerPath)
	}
	if c.Artifacts.ModelPath != "" && c.Artifacts.ModelPath == c.Artifacts.ScalerPath {
		add("artifacts.scaler_path", "must differ from model_path", c.Artifacts.ScalerPath)
	}
	if c.Server.Addr == "" {
		add("server.addr", "must not be empty", c.Server.Addr)
	}
	timeouts := []struct {
		name string
		d    time.Duration
	}{
		{"server.read_timeout", c.Server.ReadTimeout},
		{"server.write_timeout", c.Server.WriteTimeout},
		{"server.shutdown_timeout", c.Server.ShutdownTimeout},
	}
	for _, t := range timeouts {
		if t.d <= 0 {
			add(t.name, "must be positive", t.d.String())
		}
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		add("log.level", "must be one of debug, info, warn, error", c.Log.Level)
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		add("log.format", `must be "console" or "json"`, c.Log.Format)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// String renders the effective configuration as YAML.
func (c *Config) String() string {
	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("%+v", *c)
	}
	return string(out)
}
