package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethpandaops/runtimeoor/pkg/workload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultLogLevel, cfg.Global.LogLevel)
	assert.Equal(t, DefaultResultsDir, cfg.Benchmark.ResultsDir)
	assert.Equal(t, DefaultResultsFormat, cfg.Benchmark.ResultsFormat)
	assert.Equal(t, DefaultTrials, cfg.Benchmark.Trials)
	assert.Equal(t, DefaultWarmup, cfg.Benchmark.Warmup)
	assert.Equal(t, 600*time.Second, cfg.Benchmark.TrialTimeout)
	assert.Equal(t, 600*time.Second, cfg.Benchmark.WarmupTimeout)
	assert.Empty(t, cfg.Benchmark.Runtimes)
	assert.Equal(t, 5, cfg.Benchmark.Overhead.StartupRuns)
	assert.Equal(t, []string{"sys", "os", "time", "json"}, cfg.Benchmark.Overhead.Modules)
	assert.Equal(t, DefaultWorkloadsDir, cfg.Workloads.Dir)
	assert.Equal(t, workload.DefaultEntries(), cfg.Workloads.Entries)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, DefaultDatabaseDriver, cfg.Database.Driver)
	assert.Equal(t, DefaultPostgresPort, cfg.Database.Postgres.Port)
	assert.Equal(t, DefaultAPIListen, cfg.API.Listen)
	assert.Equal(t, DefaultRequestsPerMinute, cfg.API.RateLimit.RequestsPerMinute)

	require.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
global:
  log_level: debug
benchmark:
  results_dir: /tmp/out
  trials: 0
  warmup: 10
  trial_timeout: 30s
  runtimes: [pypy, python3]
  overhead:
    startup_runs: 2
workloads:
  dir: ./scripts
  entries:
    - name: fib
      file: fib.py
    - name: sort
      file: /abs/sort.py
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Global.LogLevel)
	assert.Equal(t, "/tmp/out", cfg.Benchmark.ResultsDir)
	assert.Equal(t, 0, cfg.Benchmark.Trials, "explicit zero trials must survive defaults")
	assert.Equal(t, 10, cfg.Benchmark.Warmup)
	assert.Equal(t, 30*time.Second, cfg.Benchmark.TrialTimeout)
	assert.Equal(t, 600*time.Second, cfg.Benchmark.WarmupTimeout)
	assert.Equal(t, []string{"pypy", "python3"}, cfg.Benchmark.Runtimes)
	assert.Equal(t, 2, cfg.Benchmark.Overhead.StartupRuns)
	assert.Equal(t, "./scripts", cfg.Workloads.Dir)
	assert.Equal(t, []workload.Entry{
		{Name: "fib", File: "fib.py"},
		{Name: "sort", File: "/abs/sort.py"},
	}, cfg.Workloads.Entries)

	require.NoError(t, cfg.Validate())
}

func TestLoad_MergesFiles(t *testing.T) {
	base := writeConfig(t, `
benchmark:
  trials: 7
  warmup: 1
`)
	override := writeConfig(t, `
benchmark:
  warmup: 4
`)

	cfg, err := Load(base, override)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Benchmark.Trials)
	assert.Equal(t, 4, cfg.Benchmark.Warmup)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	path := writeConfig(t, `
global:
  log_level: info
benchmark:
  results_dir: ./file-results
  trials: 3
  results_upload:
    s3:
      enabled: false
      bucket: file-bucket
database:
  driver: sqlite
`)

	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name:    "no env vars uses yaml values",
			envVars: map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "info", cfg.Global.LogLevel)
				assert.Equal(t, "./file-results", cfg.Benchmark.ResultsDir)
				assert.Equal(t, "file-bucket", cfg.Benchmark.ResultsUpload.S3.Bucket)
			},
		},
		{
			name: "string override - log_level",
			envVars: map[string]string{
				"RUNTIMEOOR_GLOBAL_LOG_LEVEL": "debug",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Global.LogLevel)
			},
		},
		{
			name: "integer override - trials",
			envVars: map[string]string{
				"RUNTIMEOOR_BENCHMARK_TRIALS": "9",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9, cfg.Benchmark.Trials)
			},
		},
		{
			name: "integer override - warmup not in file",
			envVars: map[string]string{
				"RUNTIMEOOR_BENCHMARK_WARMUP": "0",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 0, cfg.Benchmark.Warmup)
			},
		},
		{
			name: "duration override - trial_timeout",
			envVars: map[string]string{
				"RUNTIMEOOR_BENCHMARK_TRIAL_TIMEOUT": "45s",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 45*time.Second, cfg.Benchmark.TrialTimeout)
			},
		},
		{
			name: "list override - runtimes",
			envVars: map[string]string{
				"RUNTIMEOOR_BENCHMARK_RUNTIMES": "uv,pypy",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"uv", "pypy"}, cfg.Benchmark.Runtimes)
			},
		},
		{
			name: "boolean override - nested s3 enabled",
			envVars: map[string]string{
				"RUNTIMEOOR_BENCHMARK_RESULTS_UPLOAD_S3_ENABLED": "true",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.Benchmark.ResultsUpload.S3.Enabled)
			},
		},
		{
			name: "secret override - s3 credentials",
			envVars: map[string]string{
				"RUNTIMEOOR_BENCHMARK_RESULTS_UPLOAD_S3_ACCESS_KEY_ID":     "AKIA",
				"RUNTIMEOOR_BENCHMARK_RESULTS_UPLOAD_S3_SECRET_ACCESS_KEY": "secret",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "AKIA", cfg.Benchmark.ResultsUpload.S3.AccessKeyID)
				assert.Equal(t, "secret", cfg.Benchmark.ResultsUpload.S3.SecretAccessKey)
			},
		},
		{
			name: "database override - postgres port",
			envVars: map[string]string{
				"RUNTIMEOOR_DATABASE_DRIVER":        "postgres",
				"RUNTIMEOOR_DATABASE_POSTGRES_PORT": "6543",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "postgres", cfg.Database.Driver)
				assert.Equal(t, 6543, cfg.Database.Postgres.Port)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := Load(path)
			require.NoError(t, err)

			tt.validate(t, cfg)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(_ *Config) {},
		},
		{
			name:    "bad log level",
			mutate:  func(cfg *Config) { cfg.Global.LogLevel = "loud" },
			wantErr: "global.log_level",
		},
		{
			name:    "negative trials",
			mutate:  func(cfg *Config) { cfg.Benchmark.Trials = -1 },
			wantErr: "benchmark.trials",
		},
		{
			name:    "negative warmup",
			mutate:  func(cfg *Config) { cfg.Benchmark.Warmup = -2 },
			wantErr: "benchmark.warmup",
		},
		{
			name:    "zero trial timeout",
			mutate:  func(cfg *Config) { cfg.Benchmark.TrialTimeout = 0 },
			wantErr: "benchmark.trial_timeout",
		},
		{
			name:    "unsupported results format",
			mutate:  func(cfg *Config) { cfg.Benchmark.ResultsFormat = "csv" },
			wantErr: "benchmark.results_format",
		},
		{
			name:    "bad results owner",
			mutate:  func(cfg *Config) { cfg.Benchmark.ResultsOwner = "me:you" },
			wantErr: "benchmark.results_owner",
		},
		{
			name:    "unknown runtime",
			mutate:  func(cfg *Config) { cfg.Benchmark.Runtimes = []string{"jython"} },
			wantErr: `unknown runtime "jython"`,
		},
		{
			name:    "unknown workload",
			mutate:  func(cfg *Config) { cfg.Benchmark.Workloads = []string{"nope"} },
			wantErr: `unknown workload "nope"`,
		},
		{
			name: "duplicate workload entry",
			mutate: func(cfg *Config) {
				cfg.Workloads.Entries = []workload.Entry{
					{Name: "a", File: "a.py"},
					{Name: "a", File: "b.py"},
				}
			},
			wantErr: `duplicate name "a"`,
		},
		{
			name: "workload entry without file",
			mutate: func(cfg *Config) {
				cfg.Workloads.Entries = []workload.Entry{{Name: "a"}}
			},
			wantErr: "file is required",
		},
		{
			name: "s3 enabled without bucket",
			mutate: func(cfg *Config) {
				cfg.Benchmark.ResultsUpload.S3.Enabled = true
			},
			wantErr: "bucket is required",
		},
		{
			name: "unsupported database driver",
			mutate: func(cfg *Config) {
				cfg.Database.Enabled = true
				cfg.Database.Driver = "mysql"
			},
			wantErr: `unsupported driver "mysql"`,
		},
		{
			name: "disabled database is not checked",
			mutate: func(cfg *Config) {
				cfg.Database.Driver = "mysql"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)

			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)

				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
