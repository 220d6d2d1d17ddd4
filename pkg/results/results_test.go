package results

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethpandaops/runtimeoor/pkg/matrix"
	"github.com/ethpandaops/runtimeoor/pkg/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMatrix() *matrix.ResultMatrix {
	m := matrix.New(matrix.Metadata{
		Timestamp:  "2026-01-02T03:04:05.000000",
		NumTrials:  2,
		WarmupRuns: 1,
		Platform:   "linux",
	})

	m.Runtimes.Set("pypy", &matrix.RuntimeInfo{Name: "PyPy", Version: "PyPy 7.3", Executable: "/usr/bin/pypy3"})
	m.Runtimes.Set("python3", &matrix.RuntimeInfo{Name: "CPython", Version: "Python 3.12.1", Executable: "/usr/bin/python3"})

	m.Set("sort", "pypy", &stats.CellStatistics{
		Times: []float64{1.5, 2.5}, Average: 2, Min: 1.5, Max: 2.5, StdDev: 0.5,
		NumTrials: 2, WarmupRuns: 1,
	})
	m.Set("sort", "python3", &stats.CellStatistics{
		Times: []float64{4}, Average: 4, Min: 4, Max: 4,
		NumTrials: 1, WarmupRuns: 1, LastReturnCode: 1, LastStderr: "boom",
	})
	m.Set("fib", "pypy", stats.Degraded(errors.New("no command"), 2, 1))

	return m
}

func TestDefaultFilename(t *testing.T) {
	ts := time.Date(2026, 3, 9, 14, 5, 7, 0, time.UTC)

	assert.Equal(t, "benchmark_results_20260309_140507.json", DefaultFilename(ts))
	assert.Equal(t, "benchmark_results_20260309_140507.yaml", DefaultFilenameFor(ts, FormatYAML))
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{path: "out.json", want: FormatJSON},
		{path: "out.yaml", want: FormatYAML},
		{path: "OUT.YML", want: FormatYAML},
		{path: "out", want: FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatFromPath(tt.path))
		})
	}
}

func TestWriteAndLoad(t *testing.T) {
	for _, name := range []string{"results.json", "results.yaml"} {
		t.Run(name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "nested")

			path, err := Write(dir, name, sampleMatrix(), nil)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, name), path)

			loaded, err := Load(path)
			require.NoError(t, err)

			assert.Equal(t, "2026-01-02T03:04:05.000000", loaded.Metadata.Timestamp)
			assert.Equal(t, 2, loaded.Metadata.NumTrials)
			assert.Equal(t, []string{"pypy", "python3"}, loaded.Runtimes.Keys())
			assert.Equal(t, []string{"sort", "fib"}, loaded.Workloads())

			row, ok := loaded.Benchmarks.Get("sort")
			require.True(t, ok)
			assert.Equal(t, []string{"pypy", "python3"}, row.Keys())

			cell, ok := loaded.Cell("sort", "pypy")
			require.True(t, ok)
			assert.Equal(t, []float64{1.5, 2.5}, cell.Times)
			assert.InDelta(t, 0.5, cell.StdDev, 1e-9)

			failed, ok := loaded.Cell("sort", "python3")
			require.True(t, ok)
			assert.Equal(t, 1, failed.LastReturnCode)
			assert.Equal(t, "boom", failed.LastStderr)

			degraded, ok := loaded.Cell("fib", "pypy")
			require.True(t, ok)
			assert.Equal(t, "no command", degraded.Error)
			assert.InDelta(t, stats.Unmeasured, degraded.Average, 1e-9)
		})
	}
}

func TestWrite_JSONKeepsOrder(t *testing.T) {
	path, err := Write(t.TempDir(), "r.json", sampleMatrix(), nil)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	text := string(data)
	assert.Less(t, strings.Index(text, `"sort"`), strings.Index(text, `"fib"`))
	assert.Less(t, strings.Index(text, `"metadata"`), strings.Index(text, `"benchmarks"`))
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.json"))
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("[1,2]"), 0o644))

	_, err = Load(bad)
	require.Error(t, err)
}

func TestEncode_UnsupportedFormat(t *testing.T) {
	_, err := Encode(sampleMatrix(), Format("csv"))
	require.Error(t, err)
}
