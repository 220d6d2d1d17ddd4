// Package fsutil writes result artifacts with optional ownership.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Owner is a numeric file owner applied to written artifacts.
type Owner struct {
	UID int
	GID int
}

// ParseOwner parses "UID:GID", or a bare "UID" meaning the same value for
// both. An empty string yields a nil owner, which leaves ownership alone.
func ParseOwner(s string) (*Owner, error) {
	if s == "" {
		return nil, nil
	}

	uidPart, gidPart, found := strings.Cut(s, ":")
	if !found {
		gidPart = uidPart
	}

	uid, err := strconv.Atoi(uidPart)
	if err != nil || uid < 0 {
		return nil, fmt.Errorf("invalid UID in owner %q, expected UID[:GID]", s)
	}

	gid, err := strconv.Atoi(gidPart)
	if err != nil || gid < 0 {
		return nil, fmt.Errorf("invalid GID in owner %q, expected UID[:GID]", s)
	}

	return &Owner{UID: uid, GID: gid}, nil
}

// String renders the owner back as "UID:GID".
func (o *Owner) String() string {
	if o == nil {
		return ""
	}

	return fmt.Sprintf("%d:%d", o.UID, o.GID)
}

// apply chowns path when an owner is set. Failures are ignored: running
// unprivileged must not lose a result file.
func (o *Owner) apply(path string) {
	if o == nil {
		return
	}

	_ = os.Chown(path, o.UID, o.GID)
}

// MkdirAll creates the directory tree and applies ownership to the leaf.
func MkdirAll(path string, perm os.FileMode, owner *Owner) error {
	if err := os.MkdirAll(path, perm); err != nil {
		return fmt.Errorf("creating directory %s: %w", path, err)
	}

	owner.apply(path)

	return nil
}

// WriteFileAtomic writes data to a sibling temp file and renames it over
// path, so readers never observe a partially written result.
func WriteFileAtomic(path string, data []byte, perm os.FileMode, owner *Owner) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tmpName := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()

		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := tmp.Chmod(perm); err != nil {
		cleanup()

		return fmt.Errorf("setting permissions: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("renaming into place: %w", err)
	}

	owner.apply(path)

	return nil
}
