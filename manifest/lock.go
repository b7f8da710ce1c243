package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// LockFile records the last build of each output so a rebuild can be
// compared against it. It lives at .orion/build.lock.
type LockFile struct {
	Builds []LockedBuild `toml:"build"`
}

// LockedBuild describes one built container.
type LockedBuild struct {
	Name    string `toml:"name"`
	Output  string `toml:"output"`
	Hash    string `toml:"hash"` // hex SHA-256 of the container bytes
	Built   int64  `toml:"built"`
	Size    int    `toml:"size"`
	Strings string `toml:"strings"`
}

// ReadLock reads a lock file. Returns nil, nil if the file does not exist.
func ReadLock(path string) (*LockFile, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var lf LockFile
	if err := toml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	return &lf, nil
}

// WriteLock writes lf to path, creating the parent directory.
func WriteLock(path string, lf *LockFile) error {
	var buf bytes.Buffer
	buf.WriteString("# Generated by orion. Do not edit.\n\n")
	if err := toml.NewEncoder(&buf).Encode(lf); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// FindBuild returns the recorded build for name, or nil.
func (lf *LockFile) FindBuild(name string) *LockedBuild {
	for i := range lf.Builds {
		if lf.Builds[i].Name == name {
			return &lf.Builds[i]
		}
	}
	return nil
}

// Record adds b, replacing any earlier build with the same name.
func (lf *LockFile) Record(b LockedBuild) {
	if prev := lf.FindBuild(b.Name); prev != nil {
		*prev = b
		return
	}
	lf.Builds = append(lf.Builds, b)
}
