package resolver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mdflow/mdflow/internal/mdflowerr"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolveEmptyBody(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "doc.md", "")
	out, err := Resolve(context.Background(), path, "", dir, Options{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "" {
		t.Errorf("expected empty output, got %q", out)
	}
}

func TestResolveFencedDirectiveIsUntouched(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "secret.txt", "top secret")
	body := "See stuff.\n\n```md\nExample: @./secret.txt\n```\n"
	path := writeFile(t, dir, "doc.md", body)
	out, err := Resolve(context.Background(), path, body, dir, Options{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != body {
		t.Errorf("expected body unchanged, got %q", out)
	}
}

func TestResolveFileImport(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "included.md", "Included text.")
	body := "Before @./included.md after."
	path := writeFile(t, dir, "doc.md", body)
	out, err := Resolve(context.Background(), path, body, dir, Options{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Before Included text. after."
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestResolveGlobZeroFilesIsEmptyNoError(t *testing.T) {
	dir := t.TempDir()
	body := "Files: @./nomatch/*.ts"
	path := writeFile(t, dir, "doc.md", body)
	out, err := Resolve(context.Background(), path, body, dir, Options{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Files: " {
		t.Errorf("got %q", out)
	}
}

func TestResolveCircularImport(t *testing.T) {
	dir := t.TempDir()
	aPath := writeFile(t, dir, "a.claude.md", "@./b.md")
	writeFile(t, dir, "b.md", "@./a.claude.md")

	_, err := Resolve(context.Background(), aPath, "@./b.md", dir, Options{}, nil)
	if err == nil {
		t.Fatal("expected CircularImport error")
	}
	mdErr, ok := err.(*mdflowerr.Error)
	if !ok {
		t.Fatalf("expected *mdflowerr.Error, got %T: %v", err, err)
	}
	if mdErr.Kind != mdflowerr.KindCircularImport {
		t.Errorf("expected KindCircularImport, got %v", mdErr.Kind)
	}
	if !strings.Contains(mdErr.Message, "a.claude.md") || !strings.Contains(mdErr.Message, "b.md") {
		t.Errorf("expected chain naming both files, got %q", mdErr.Message)
	}
}

func TestResolveSymlinkSelfCycle(t *testing.T) {
	dir := t.TempDir()
	linkPath := filepath.Join(dir, "self.md")
	if err := os.Symlink(linkPath, linkPath); err != nil {
		t.Skip("symlinks not supported in this environment")
	}
	_, err := Resolve(context.Background(), linkPath, "@./self.md", dir, Options{}, nil)
	if err == nil {
		t.Fatal("expected an error resolving a self-referential symlink")
	}
}

func TestResolveCommandDryRun(t *testing.T) {
	dir := t.TempDir()
	body := "Output: !`echo hi`"
	path := writeFile(t, dir, "doc.md", body)
	out, err := Resolve(context.Background(), path, body, dir, Options{DryRun: true}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Dry Run: Command") {
		t.Errorf("expected dry-run placeholder, got %q", out)
	}
}

func TestResolveTracksResolvedImports(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "included.md", "x")
	body := "@./included.md"
	path := writeFile(t, dir, "doc.md", body)
	tracker := &Tracker{}
	_, err := Resolve(context.Background(), path, body, dir, Options{}, tracker)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entries := tracker.Entries()
	if len(entries) != 1 || entries[0].Kind != "File" {
		t.Errorf("expected one File entry, got %v", entries)
	}
}
