package orchestrator

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveFileAsGiven(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "task.claude.md")
	os.WriteFile(path, []byte("x"), 0o644)

	got, err := ResolveFile("task.claude.md", dir, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != path {
		t.Errorf("got %q, want %q", got, path)
	}
}

func TestResolveFileFallsBackToDotMdflowInCwd(t *testing.T) {
	dir := t.TempDir()
	os.MkdirAll(filepath.Join(dir, ".mdflow"), 0o755)
	path := filepath.Join(dir, ".mdflow", "task.claude.md")
	os.WriteFile(path, []byte("x"), 0o644)

	got, err := ResolveFile("task.claude.md", dir, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != path {
		t.Errorf("got %q, want %q", got, path)
	}
}

func TestResolveFileFallsBackToHomeDotMdflow(t *testing.T) {
	cwd := t.TempDir()
	home := t.TempDir()
	os.MkdirAll(filepath.Join(home, ".mdflow"), 0o755)
	path := filepath.Join(home, ".mdflow", "task.claude.md")
	os.WriteFile(path, []byte("x"), 0o644)

	got, err := ResolveFile("task.claude.md", cwd, home)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != path {
		t.Errorf("got %q, want %q", got, path)
	}
}

func TestResolveFileNotFound(t *testing.T) {
	dir := t.TempDir()
	_, err := ResolveFile("missing.claude.md", dir, "")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestIsRemoteURL(t *testing.T) {
	if !IsRemoteURL("https://example.com/a.md") {
		t.Error("expected true")
	}
	if IsRemoteURL("./a.md") {
		t.Error("expected false")
	}
}
