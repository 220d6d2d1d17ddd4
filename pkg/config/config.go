package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethpandaops/runtimeoor/pkg/fsutil"
	"github.com/ethpandaops/runtimeoor/pkg/overhead"
	"github.com/ethpandaops/runtimeoor/pkg/procexec"
	"github.com/ethpandaops/runtimeoor/pkg/runtimes"
	"github.com/ethpandaops/runtimeoor/pkg/workload"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes environment variable overrides, for example
	// RUNTIMEOOR_BENCHMARK_TRIALS=5.
	EnvPrefix = "RUNTIMEOOR"

	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultResultsDir is the default directory for benchmark results.
	DefaultResultsDir = "./results"

	// DefaultWorkloadsDir is the default directory holding workload scripts.
	DefaultWorkloadsDir = "./benchmarks"

	// DefaultTrials is the default number of timed trials per cell.
	DefaultTrials = 3

	// DefaultWarmup is the default number of warmup runs per cell.
	DefaultWarmup = 2

	// DefaultResultsFormat is the default encoding of result files.
	DefaultResultsFormat = "json"
)

// Config is the root configuration for runtimeoor.
type Config struct {
	Global    GlobalConfig    `yaml:"global" mapstructure:"global"`
	Benchmark BenchmarkConfig `yaml:"benchmark" mapstructure:"benchmark"`
	Workloads WorkloadsConfig `yaml:"workloads" mapstructure:"workloads"`
	Database  DatabaseConfig  `yaml:"database" mapstructure:"database"`
	API       APIConfig       `yaml:"api" mapstructure:"api"`
}

// GlobalConfig contains global application settings.
type GlobalConfig struct {
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
}

// BenchmarkConfig contains benchmark-specific settings.
type BenchmarkConfig struct {
	ResultsDir    string              `yaml:"results_dir" mapstructure:"results_dir"`
	ResultsOwner  string              `yaml:"results_owner,omitempty" mapstructure:"results_owner"`
	ResultsFormat string              `yaml:"results_format" mapstructure:"results_format"`
	Trials        int                 `yaml:"trials" mapstructure:"trials"`
	Warmup        int                 `yaml:"warmup" mapstructure:"warmup"`
	TrialTimeout  time.Duration       `yaml:"trial_timeout" mapstructure:"trial_timeout"`
	WarmupTimeout time.Duration       `yaml:"warmup_timeout" mapstructure:"warmup_timeout"`
	SkipOverhead  bool                `yaml:"skip_overhead" mapstructure:"skip_overhead"`
	Runtimes      []string            `yaml:"runtimes,omitempty" mapstructure:"runtimes"`
	Workloads     []string            `yaml:"workloads,omitempty" mapstructure:"workloads"`
	Overhead      overhead.Config     `yaml:"overhead" mapstructure:"overhead"`
	ResultsUpload ResultsUploadConfig `yaml:"results_upload,omitempty" mapstructure:"results_upload"`
}

// WorkloadsConfig describes the workload catalog.
type WorkloadsConfig struct {
	Dir     string           `yaml:"dir" mapstructure:"dir"`
	Entries []workload.Entry `yaml:"entries" mapstructure:"entries"`
}

// ResultsUploadConfig configures where result files are uploaded.
type ResultsUploadConfig struct {
	S3 S3UploadConfig `yaml:"s3,omitempty" mapstructure:"s3"`
}

// S3UploadConfig configures uploading results to an S3-compatible bucket.
type S3UploadConfig struct {
	Enabled         bool   `yaml:"enabled" mapstructure:"enabled"`
	EndpointURL     string `yaml:"endpoint_url,omitempty" mapstructure:"endpoint_url"`
	Region          string `yaml:"region,omitempty" mapstructure:"region"`
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	Prefix          string `yaml:"prefix,omitempty" mapstructure:"prefix"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `yaml:"force_path_style" mapstructure:"force_path_style"`
}

// Load reads configuration from the given YAML files (later files override
// earlier ones), applies RUNTIMEOOR_* environment overrides and fills in
// defaults. With no files only defaults and the environment are used.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	for i, path := range paths {
		v.SetConfigFile(path)

		var err error
		if i == 0 {
			err = v.ReadInConfig()
		} else {
			err = v.MergeInConfig()
		}

		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg Config

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("creating config decoder: %w", err)
	}

	if err := dec.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// setDefaults registers every key so environment overrides apply even when
// no file mentions it.
func setDefaults(v *viper.Viper) {
	ovh := overhead.DefaultConfig()

	v.SetDefault("global.log_level", DefaultLogLevel)

	v.SetDefault("benchmark.results_dir", DefaultResultsDir)
	v.SetDefault("benchmark.results_owner", "")
	v.SetDefault("benchmark.results_format", DefaultResultsFormat)
	v.SetDefault("benchmark.trials", DefaultTrials)
	v.SetDefault("benchmark.warmup", DefaultWarmup)
	v.SetDefault("benchmark.trial_timeout", procexec.DefaultRunTimeout.String())
	v.SetDefault("benchmark.warmup_timeout", procexec.DefaultRunTimeout.String())
	v.SetDefault("benchmark.skip_overhead", false)
	v.SetDefault("benchmark.runtimes", []string{})
	v.SetDefault("benchmark.workloads", []string{})
	v.SetDefault("benchmark.overhead.startup_runs", ovh.StartupRuns)
	v.SetDefault("benchmark.overhead.modules", ovh.Modules)
	v.SetDefault("benchmark.overhead.scientific_modules", ovh.ScientificModules)

	v.SetDefault("benchmark.results_upload.s3.enabled", false)
	v.SetDefault("benchmark.results_upload.s3.endpoint_url", "")
	v.SetDefault("benchmark.results_upload.s3.region", "")
	v.SetDefault("benchmark.results_upload.s3.bucket", "")
	v.SetDefault("benchmark.results_upload.s3.prefix", "")
	v.SetDefault("benchmark.results_upload.s3.access_key_id", "")
	v.SetDefault("benchmark.results_upload.s3.secret_access_key", "")
	v.SetDefault("benchmark.results_upload.s3.force_path_style", false)

	v.SetDefault("workloads.dir", DefaultWorkloadsDir)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.driver", DefaultDatabaseDriver)
	v.SetDefault("database.sqlite.path", DefaultSQLitePath)
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", DefaultPostgresPort)
	v.SetDefault("database.postgres.user", "")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.database", "runtimeoor")
	v.SetDefault("database.postgres.ssl_mode", "disable")

	v.SetDefault("api.listen", DefaultAPIListen)
	v.SetDefault("api.cors_origins", []string{})
	v.SetDefault("api.rate_limit.enabled", false)
	v.SetDefault("api.rate_limit.requests_per_minute", DefaultRequestsPerMinute)
}

// applyDefaults sets values viper cannot express as simple defaults.
func (c *Config) applyDefaults() {
	if c.Global.LogLevel == "" {
		c.Global.LogLevel = DefaultLogLevel
	}

	if len(c.Workloads.Entries) == 0 {
		c.Workloads.Entries = workload.DefaultEntries()
	}

	if c.Benchmark.ResultsFormat == "" {
		c.Benchmark.ResultsFormat = DefaultResultsFormat
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Global.LogLevel); err != nil {
		return fmt.Errorf("global.log_level: %w", err)
	}

	if c.Benchmark.Trials < 0 {
		return fmt.Errorf("benchmark.trials must be >= 0, got %d", c.Benchmark.Trials)
	}

	if c.Benchmark.Warmup < 0 {
		return fmt.Errorf("benchmark.warmup must be >= 0, got %d", c.Benchmark.Warmup)
	}

	if c.Benchmark.TrialTimeout <= 0 {
		return errors.New("benchmark.trial_timeout must be positive")
	}

	if c.Benchmark.WarmupTimeout <= 0 {
		return errors.New("benchmark.warmup_timeout must be positive")
	}

	switch c.Benchmark.ResultsFormat {
	case "json", "yaml":
	default:
		return fmt.Errorf("benchmark.results_format: unsupported format %q", c.Benchmark.ResultsFormat)
	}

	if _, err := fsutil.ParseOwner(c.Benchmark.ResultsOwner); err != nil {
		return fmt.Errorf("benchmark.results_owner: %w", err)
	}

	for _, name := range c.Benchmark.Runtimes {
		if !runtimes.IsKnown(name) {
			return fmt.Errorf("benchmark.runtimes: unknown runtime %q", name)
		}
	}

	seen := make(map[string]struct{}, len(c.Workloads.Entries))

	for i, e := range c.Workloads.Entries {
		if e.Name == "" {
			return fmt.Errorf("workloads.entries[%d]: name is required", i)
		}

		if e.File == "" {
			return fmt.Errorf("workloads.entries[%d]: file is required", i)
		}

		if _, exists := seen[e.Name]; exists {
			return fmt.Errorf("workloads.entries[%d]: duplicate name %q", i, e.Name)
		}

		seen[e.Name] = struct{}{}
	}

	for _, name := range c.Benchmark.Workloads {
		if _, ok := seen[name]; !ok {
			return fmt.Errorf("benchmark.workloads: unknown workload %q", name)
		}
	}

	if c.Benchmark.Overhead.StartupRuns < 0 {
		return errors.New("benchmark.overhead.startup_runs must be >= 0")
	}

	if s3 := c.Benchmark.ResultsUpload.S3; s3.Enabled && s3.Bucket == "" {
		return errors.New("benchmark.results_upload.s3.bucket is required when enabled")
	}

	if c.Database.Enabled {
		if err := c.Database.Validate(); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}

	return nil
}
