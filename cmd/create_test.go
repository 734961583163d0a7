package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestScaffoldTemplateEmbedsDriverName(t *testing.T) {
	body := scaffoldTemplate("gemini")
	if !strings.Contains(body, "gemini") {
		t.Errorf("expected scaffold to mention the driver name, got %q", body)
	}
	if !strings.Contains(body, "{{ _topic }}") {
		t.Errorf("expected a template variable placeholder, got %q", body)
	}
}

func TestCreateCmdWritesFileWithDriverMarker(t *testing.T) {
	dir := t.TempDir()
	old, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(old)

	createDriver = "codex"
	createInteractive = false
	defer func() { createDriver = "claude" }()

	if err := createCmd.RunE(createCmd, []string{"sample"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "sample.codex.md")); err != nil {
		t.Errorf("expected sample.codex.md to exist: %v", err)
	}
}
