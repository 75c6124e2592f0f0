package config

import (
	"math"
	"strconv"

	"github.com/YuminosukeSato/vinoscore/pkg/errors"
	"github.com/spf13/pflag"
)

// Section registers the flags of one command onto fs, bound to cfg.
type Section func(fs *pflag.FlagSet, cfg *Config)

// Parse resolves the configuration for a command: --config is read first,
// then the file and environment are loaded, then the remaining flags
// override them. The result is validated. pflag.ErrHelp is returned as is.
func Parse(name string, args []string, sections ...Section) (*Config, error) {
	path, err := configPath(name, args)
	if err != nil {
		return nil, err
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = false
	fs.String("config", path, "path to a YAML config file")
	LogFlags(fs, cfg)
	for _, s := range sections {
		s(fs, cfg)
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, errors.Newf("%s: unexpected arguments %v", name, fs.Args())
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

func configPath(name string, args []string) (string, error) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.Usage = func() {}
	path := fs.String("config", "", "")
	// -h is handled by the full flag set
	fs.BoolP("help", "h", false, "")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	return *path, nil
}

// LogFlags binds the log section.
func LogFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "log level: debug, info, warn, error")
	fs.StringVar(&cfg.Log.Format, "log-format", cfg.Log.Format, "log format: console or json")
	fs.StringVar(&cfg.Log.File, "log-file", cfg.Log.File, "also write JSON logs to this rotated file")
}

// ArtifactFlags binds the artifact paths.
func ArtifactFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.Artifacts.ModelPath, "model", cfg.Artifacts.ModelPath, "model artifact path")
	fs.StringVar(&cfg.Artifacts.ScalerPath, "scaler", cfg.Artifacts.ScalerPath, "scaler artifact path")
}

// TrainFlags binds the dataset, training and artifact sections.
func TrainFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVarP(&cfg.Dataset.Source, "data", "d", cfg.Dataset.Source, "dataset path or URI (file, http(s), gs)")
	fs.StringVar(&cfg.Dataset.SHA256, "data-sha256", cfg.Dataset.SHA256, "expected SHA-256 of the dataset")
	fs.IntVarP(&cfg.Training.Folds, "folds", "k", cfg.Training.Folds, "number of cross-validation folds")
	fs.Uint64Var(&cfg.Training.Seed, "seed", cfg.Training.Seed, "shuffle seed for fold assignment")
	fs.BoolVar(&cfg.Training.Shuffle, "shuffle", cfg.Training.Shuffle, "shuffle rows before splitting into folds")
	fs.Var(&optionalFloat{p: &cfg.Training.MinMeanR2}, "min-mean-r2", "warn when mean CV R² is below this value")
	fs.StringVar(&cfg.Training.PlotPath, "plot", cfg.Training.PlotPath, "write a predicted vs actual PNG here")
	ArtifactFlags(fs, cfg)
}

// ServeFlags binds the server and artifact sections.
func ServeFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVarP(&cfg.Server.Addr, "addr", "a", cfg.Server.Addr, "listen address")
	fs.DurationVar(&cfg.Server.ReadTimeout, "read-timeout", cfg.Server.ReadTimeout, "HTTP read timeout")
	fs.DurationVar(&cfg.Server.WriteTimeout, "write-timeout", cfg.Server.WriteTimeout, "HTTP write timeout")
	fs.DurationVar(&cfg.Server.ShutdownTimeout, "shutdown-timeout", cfg.Server.ShutdownTimeout, "graceful shutdown timeout")
	ArtifactFlags(fs, cfg)
}

// optionalFloat is a pflag.Value for a *float64 that stays nil until set.
type optionalFloat struct {
	p **float64
}

func (o *optionalFloat) String() string {
	if o.p == nil || *o.p == nil {
		return "disabled"
	}
	return strconv.FormatFloat(**o.p, 'g', -1, 64)
}

func (o *optionalFloat) Set(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	if math.IsNaN(v) {
		return errors.New("must be a number")
	}
	*o.p = &v
	return nil
}

func (o *optionalFloat) Type() string { return "float" }
