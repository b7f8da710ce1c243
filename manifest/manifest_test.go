package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chazu/orion/pkg/bytecode"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "demo"
version = "0.1.0"

[build]
source = "src/main.toml"
output = "out/demo.orion"
strings = "utf8"
epoch = 1700000000

[store]
path = "/var/lib/orion/artifacts.db"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "demo" {
		t.Errorf("project name = %q, want demo", m.Project.Name)
	}
	if m.Project.Version != "0.1.0" {
		t.Errorf("project version = %q, want 0.1.0", m.Project.Version)
	}
	if got, want := m.SourcePath(), filepath.Join(m.Dir, "src", "main.toml"); got != want {
		t.Errorf("SourcePath() = %q, want %q", got, want)
	}
	if got, want := m.OutputPath(), filepath.Join(m.Dir, "out", "demo.orion"); got != want {
		t.Errorf("OutputPath() = %q, want %q", got, want)
	}
	if got := m.StorePath(); got != "/var/lib/orion/artifacts.db" {
		t.Errorf("StorePath() = %q, want absolute path kept", got)
	}

	opts := m.Options()
	if opts.Strings != bytecode.StringsUTF8 {
		t.Errorf("Options().Strings = %v, want utf8", opts.Strings)
	}
	if opts.Clock == nil {
		t.Fatal("Options().Clock = nil, want fixed clock")
	}
	if got := opts.Clock.Now(); !got.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("Options().Clock.Now() = %v, want epoch 1700000000", got)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "minimal"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Build.Source != "main.toml" {
		t.Errorf("default source = %q, want main.toml", m.Build.Source)
	}
	if m.Build.Output != "minimal.orion" {
		t.Errorf("default output = %q, want minimal.orion", m.Build.Output)
	}
	if m.Build.Strings != "latin1" {
		t.Errorf("default strings = %q, want latin1", m.Build.Strings)
	}
	if got, want := m.StorePath(), filepath.Join(m.Dir, ".orion", "artifacts.db"); got != want {
		t.Errorf("StorePath() = %q, want %q", got, want)
	}

	opts := m.Options()
	if opts.Clock != nil {
		t.Errorf("Options().Clock = %v, want nil (system clock)", opts.Clock)
	}
	if opts.Strings != bytecode.StringsLatin1 {
		t.Errorf("Options().Strings = %v, want latin1", opts.Strings)
	}
}

func TestLoadManifestNameFromDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "widget")
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, dir, "")

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Project.Name != "widget" {
		t.Errorf("project name = %q, want widget", m.Project.Name)
	}
}

func TestLoadManifestInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"strings", "[build]\nstrings = \"ebcdic\"\n"},
		{"negative epoch", "[build]\nepoch = -1\n"},
		{"epoch overflow", "[build]\nepoch = 4294967296\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeManifest(t, dir, tt.content)
			if _, err := Load(dir); !errors.Is(err, ErrInvalid) {
				t.Errorf("Load error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestLoadManifestParseError(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[project\n")
	if _, err := Load(dir); err == nil {
		t.Error("Load succeeded on malformed TOML")
	}
}

func TestFindAndLoad(t *testing.T) {
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, dir, `[project]
name = "found-project"
`)

	// Should find manifest when starting from a deep subdirectory
	m, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Project.Name != "found-project" {
		t.Errorf("project name = %q, want found-project", m.Project.Name)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	dir := t.TempDir()
	m, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when no orion.toml exists")
	}
}

func TestLockFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, ".orion", "build.lock")

	lf := &LockFile{}
	lf.Record(LockedBuild{Name: "demo", Output: "demo.orion", Hash: "ab12", Built: 1700000000, Size: 19, Strings: "latin1"})
	lf.Record(LockedBuild{Name: "other", Output: "other.orion", Hash: "cd34"})
	lf.Record(LockedBuild{Name: "demo", Output: "demo.orion", Hash: "ef56", Built: 1700000001, Size: 20, Strings: "latin1"})

	if len(lf.Builds) != 2 {
		t.Fatalf("Record kept %d builds, want 2", len(lf.Builds))
	}

	if err := WriteLock(lockPath, lf); err != nil {
		t.Fatalf("WriteLock failed: %v", err)
	}

	loaded, err := ReadLock(lockPath)
	if err != nil {
		t.Fatalf("ReadLock failed: %v", err)
	}
	if len(loaded.Builds) != 2 {
		t.Fatalf("expected 2 builds, got %d", len(loaded.Builds))
	}

	found := loaded.FindBuild("demo")
	if found == nil || found.Hash != "ef56" || found.Built != 1700000001 {
		t.Errorf("FindBuild(demo) = %+v, want hash ef56", found)
	}
	if loaded.FindBuild("nonexistent") != nil {
		t.Error("FindBuild(nonexistent) != nil")
	}
}

func TestReadLockNotFound(t *testing.T) {
	lf, err := ReadLock("/nonexistent/path/build.lock")
	if err != nil {
		t.Errorf("ReadLock should return nil,nil for missing file, got err: %v", err)
	}
	if lf != nil {
		t.Errorf("ReadLock should return nil for missing file, got %v", lf)
	}
}
