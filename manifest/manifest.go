// Package manifest handles orion.toml project configuration.
package manifest

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/orion/pkg/bytecode"
)

// FileName is the manifest file looked up in a project directory.
const FileName = "orion.toml"

// ErrInvalid is returned for manifests that parse but fail validation.
var ErrInvalid = errors.New("invalid manifest")

// Manifest represents an orion.toml project configuration.
type Manifest struct {
	Project Project     `toml:"project"`
	Build   BuildConfig `toml:"build"`
	Store   StoreConfig `toml:"store"`

	// Dir is the directory containing the orion.toml file (set at load time).
	Dir string `toml:"-"`

	strings bytecode.StringEncoding
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// BuildConfig configures assembling the project's listing.
type BuildConfig struct {
	Source  string `toml:"source"`  // asm listing, relative to Dir
	Output  string `toml:"output"`  // container path, relative to Dir
	Strings string `toml:"strings"` // latin1 or utf8
	Epoch   int64  `toml:"epoch"`   // >0 pins the header timestamp
}

// StoreConfig configures the artifact store.
type StoreConfig struct {
	Path string `toml:"path"`
}

// Load parses an orion.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	if err := m.applyDefaults(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

func (m *Manifest) applyDefaults() error {
	if m.Project.Name == "" {
		m.Project.Name = filepath.Base(m.Dir)
	}
	if m.Build.Source == "" {
		m.Build.Source = "main.toml"
	}
	if m.Build.Output == "" {
		m.Build.Output = m.Project.Name + ".orion"
	}
	if m.Build.Strings == "" {
		m.Build.Strings = bytecode.StringsLatin1.String()
	}
	if m.Store.Path == "" {
		m.Store.Path = filepath.Join(".orion", "artifacts.db")
	}

	enc, err := bytecode.ParseStringEncoding(m.Build.Strings)
	if err != nil {
		return fmt.Errorf("%w: build.strings: %v", ErrInvalid, err)
	}
	m.strings = enc
	if m.Build.Epoch < 0 || m.Build.Epoch > math.MaxUint32 {
		return fmt.Errorf("%w: build.epoch %d does not fit a 32-bit timestamp", ErrInvalid, m.Build.Epoch)
	}
	return nil
}

// FindAndLoad walks up from startDir to find an orion.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Options returns the serialization options the build section describes.
func (m *Manifest) Options() bytecode.Options {
	opts := bytecode.Options{Strings: m.strings}
	if m.Build.Epoch > 0 {
		opts.Clock = bytecode.FixedUnix(m.Build.Epoch)
	}
	return opts
}

// SourcePath returns the absolute path of the listing.
func (m *Manifest) SourcePath() string {
	return m.resolve(m.Build.Source)
}

// OutputPath returns the absolute path of the built container.
func (m *Manifest) OutputPath() string {
	return m.resolve(m.Build.Output)
}

// StorePath returns the absolute path of the artifact database.
func (m *Manifest) StorePath() string {
	return m.resolve(m.Store.Path)
}

// LockFilePath returns the path to .orion/build.lock.
func (m *Manifest) LockFilePath() string {
	return filepath.Join(m.Dir, ".orion", "build.lock")
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}
