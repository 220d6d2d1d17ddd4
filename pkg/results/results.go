// Package results persists result matrices to disk.
package results

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethpandaops/runtimeoor/pkg/fsutil"
	"github.com/ethpandaops/runtimeoor/pkg/matrix"
	"gopkg.in/yaml.v3"
)

// Format is the on-disk encoding of a result file.
type Format string

const (
	// FormatJSON encodes results as indented JSON.
	FormatJSON Format = "json"
	// FormatYAML encodes results as YAML.
	FormatYAML Format = "yaml"
)

// DefaultFilename returns the result file name for a run started at t.
func DefaultFilename(t time.Time) string {
	return DefaultFilenameFor(t, FormatJSON)
}

// DefaultFilenameFor returns the result file name for a run started at t
// using the extension of format.
func DefaultFilenameFor(t time.Time, format Format) string {
	return fmt.Sprintf("benchmark_results_%s.%s", t.Format("20060102_150405"), format)
}

// FormatFromPath infers the encoding from a file extension. Unknown
// extensions default to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Encode serializes m in the given format.
func Encode(m *matrix.ResultMatrix, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		data, err := yaml.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("marshaling yaml: %w", err)
		}

		return data, nil
	case FormatJSON, "":
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling json: %w", err)
		}

		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("unsupported results format %q", format)
	}
}

// Write stores m as dir/filename, creating dir if needed, and returns the
// written path. The encoding follows the file extension.
func Write(dir, filename string, m *matrix.ResultMatrix, owner *fsutil.Owner) (string, error) {
	if err := fsutil.MkdirAll(dir, 0o755, owner); err != nil {
		return "", err
	}

	path := filepath.Join(dir, filename)

	data, err := Encode(m, FormatFromPath(path))
	if err != nil {
		return "", err
	}

	if err := fsutil.WriteFileAtomic(path, data, 0o644, owner); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}

	return path, nil
}

// Load reads a result file written by Write.
func Load(path string) (*matrix.ResultMatrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return Decode(data, FormatFromPath(path))
}

// Decode parses a result document in the given format.
func Decode(data []byte, format Format) (*matrix.ResultMatrix, error) {
	m := matrix.New(matrix.Metadata{})

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("parsing yaml results: %w", err)
		}
	default:
		if err := json.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("parsing json results: %w", err)
		}
	}

	return m, nil
}
