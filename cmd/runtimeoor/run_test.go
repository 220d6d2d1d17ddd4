package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ethpandaops/runtimeoor/pkg/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyRunFlags(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		expect func(t *testing.T, cfg *config.Config)
	}{
		{
			name: "unset flags keep config values",
			args: nil,
			expect: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, 7, cfg.Benchmark.Trials)
				assert.Equal(t, 4, cfg.Benchmark.Warmup)
				assert.Equal(t, []string{"pypy"}, cfg.Benchmark.Runtimes)
				assert.True(t, cfg.Benchmark.SkipOverhead)
			},
		},
		{
			name: "explicit zero overrides config",
			args: []string{"--trials", "0", "--warmup", "0"},
			expect: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, 0, cfg.Benchmark.Trials)
				assert.Equal(t, 0, cfg.Benchmark.Warmup)
			},
		},
		{
			name: "lists override config",
			args: []string{"--runtimes", "uv,python3", "--benchmarks", "mixed_io"},
			expect: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, []string{"uv", "python3"}, cfg.Benchmark.Runtimes)
				assert.Equal(t, []string{"mixed_io"}, cfg.Benchmark.Workloads)
			},
		},
		{
			name: "skip overhead can be switched off",
			args: []string{"--skip-overhead=false"},
			expect: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.False(t, cfg.Benchmark.SkipOverhead)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{Use: "run"}
			addRunFlags(cmd)
			require.NoError(t, cmd.ParseFlags(tt.args))

			cfg := &config.Config{}
			cfg.Benchmark.Trials = 7
			cfg.Benchmark.Warmup = 4
			cfg.Benchmark.Runtimes = []string{"pypy"}
			cfg.Benchmark.SkipOverhead = true

			applyRunFlags(cmd, cfg)
			tt.expect(t, cfg)
		})
	}
}

func TestResultLocation(t *testing.T) {
	startedAt := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	absOutput := filepath.Join(t.TempDir(), "run.yaml")

	tests := []struct {
		name     string
		output   string
		format   string
		wantDir  string
		wantFile string
	}{
		{
			name:     "default json name",
			format:   "json",
			wantDir:  "./results",
			wantFile: "benchmark_results_20240309_140507.json",
		},
		{
			name:     "default yaml name",
			format:   "yaml",
			wantDir:  "./results",
			wantFile: "benchmark_results_20240309_140507.yaml",
		},
		{
			name:     "bare file name goes to results dir",
			output:   "mine.json",
			format:   "json",
			wantDir:  "./results",
			wantFile: "mine.json",
		},
		{
			name:     "relative path keeps its directory",
			output:   filepath.Join("out", "mine.json"),
			format:   "json",
			wantDir:  "out",
			wantFile: "mine.json",
		},
		{
			name:     "absolute path",
			output:   absOutput,
			format:   "json",
			wantDir:  filepath.Dir(absOutput),
			wantFile: "run.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := runOutput
			runOutput = tt.output

			t.Cleanup(func() { runOutput = prev })

			cfg := &config.Config{}
			cfg.Benchmark.ResultsDir = "./results"
			cfg.Benchmark.ResultsFormat = tt.format

			dir, file := resultLocation(cfg, startedAt)
			assert.Equal(t, tt.wantDir, dir)
			assert.Equal(t, tt.wantFile, file)
		})
	}
}
