// Package workload resolves the catalog of benchmark scripts.
package workload

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Ref is a named workload script with an absolute path.
type Ref struct {
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`
}

// Entry is a configured workload, path relative to the catalog directory
// unless absolute.
type Entry struct {
	Name string `yaml:"name" mapstructure:"name"`
	File string `yaml:"file" mapstructure:"file"`
}

// DefaultEntries returns the built-in workload set.
func DefaultEntries() []Entry {
	return []Entry{
		{Name: "pure_python", File: "pure_python_math.py"},
		{Name: "numpy_scipy", File: "numpy_scipy_math.py"},
		{Name: "mixed_io", File: "mixed_heavy_io.py"},
	}
}

// Catalog is the ordered set of workloads whose scripts exist on disk.
type Catalog struct {
	refs []Ref
}

// NewCatalog resolves entries against dir. Entries whose script is missing
// are logged and dropped.
func NewCatalog(log logrus.FieldLogger, dir string, entries []Entry) (*Catalog, error) {
	log = log.WithField("component", "workload-catalog")

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving workloads directory: %w", err)
	}

	c := &Catalog{refs: make([]Ref, 0, len(entries))}
	seen := make(map[string]struct{}, len(entries))

	for _, e := range entries {
		if _, dup := seen[e.Name]; dup {
			return nil, fmt.Errorf("duplicate workload name %q", e.Name)
		}

		seen[e.Name] = struct{}{}

		path := e.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(absDir, path)
		}

		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			log.WithFields(logrus.Fields{
				"workload": e.Name,
				"path":     path,
			}).Warn("Workload file not found, skipping")

			continue
		}

		c.refs = append(c.refs, Ref{Name: e.Name, Path: filepath.Clean(path)})
	}

	return c, nil
}

// Refs returns every resolved workload in catalog order.
func (c *Catalog) Refs() []Ref {
	out := make([]Ref, len(c.refs))
	copy(out, c.refs)

	return out
}

// Select returns the workloads named in names, in catalog order. Without
// names every workload is returned. Names not present in the catalog are
// ignored, matching how missing scripts are dropped.
func (c *Catalog) Select(names []string) []Ref {
	if len(names) == 0 {
		return c.Refs()
	}

	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[n] = struct{}{}
	}

	out := make([]Ref, 0, len(names))

	for _, r := range c.refs {
		if _, ok := wanted[r.Name]; ok {
			out = append(out, r)
		}
	}

	return out
}
