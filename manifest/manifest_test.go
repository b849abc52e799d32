package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadManifest(t *testing.T) {
	// Create a temporary directory with a yasm.toml
	dir := t.TempDir()
	tomlContent := `
[project]
name = "demo"
version = "0.1.0"

[source]
entry = "main.yasm"

[vm]
max-call-depth = 500
trace = true

[log]
verbosity = 2
file = "yasm.log"
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

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
	if m.VM.MaxCallDepth != 500 {
		t.Errorf("max call depth = %d, want 500", m.VM.MaxCallDepth)
	}
	if !m.VM.Trace {
		t.Error("trace should be true")
	}
	if m.Log.Verbosity != 2 {
		t.Errorf("verbosity = %d, want 2", m.Log.Verbosity)
	}
	if got, want := m.EntryPath(), filepath.Join(m.Dir, "main.yasm"); got != want {
		t.Errorf("EntryPath() = %q, want %q", got, want)
	}
	if p := m.LogFile(); p == nil || *p != filepath.Join(m.Dir, "yasm.log") {
		t.Errorf("LogFile() = %v, want %s", p, filepath.Join(m.Dir, "yasm.log"))
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("[project]\nname = \"x\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.VM.MaxCallDepth != DefaultMaxCallDepth {
		t.Errorf("max call depth = %d, want %d", m.VM.MaxCallDepth, DefaultMaxCallDepth)
	}
	if m.EntryPath() != "" {
		t.Errorf("EntryPath() = %q, want empty", m.EntryPath())
	}
	if m.LogFile() != nil {
		t.Errorf("LogFile() = %v, want nil", *m.LogFile())
	}
}

func TestLoadParseError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("[vm\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("expected error for missing manifest")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	if err := os.WriteFile(path, []byte("[vm]\ntrace = true\n"), 0644); err != nil {
		t.Fatal(err)
	}
	m, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if !m.VM.Trace || m.VM.MaxCallDepth != DefaultMaxCallDepth {
		t.Errorf("vm = %+v", m.VM)
	}
}

func TestFindAndLoad(t *testing.T) {
	// Create nested directory structure
	root := t.TempDir()
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, FileName), []byte("[project]\nname = \"found\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(sub)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Project.Name != "found" {
		t.Errorf("project name = %q, want found", m.Project.Name)
	}
}

func TestDefault(t *testing.T) {
	m := Default()
	if m.VM.MaxCallDepth != DefaultMaxCallDepth {
		t.Errorf("max call depth = %d, want %d", m.VM.MaxCallDepth, DefaultMaxCallDepth)
	}
}
