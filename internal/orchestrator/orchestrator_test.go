package orchestrator

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// installFakeDriver writes an executable shell script named name under a
// fresh temp directory, prepends that directory to PATH, and returns a
// cleanup func that restores PATH. The script records its argv (one per
// line) to recordPath.
func installFakeDriver(t *testing.T, name, recordPath, body string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake driver script assumes a POSIX shell")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, name)
	if body == "" {
		body = "#!/bin/sh\nfor a in \"$@\"; do echo \"$a\" >> \"" + recordPath + "\"; done\nexit 0\n"
	}
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
	oldPath := os.Getenv("PATH")
	os.Setenv("PATH", dir+string(os.PathListSeparator)+oldPath)
	t.Cleanup(func() { os.Setenv("PATH", oldPath) })
}

func writeAgentFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunTrivialScenario(t *testing.T) {
	dir := t.TempDir()
	record := filepath.Join(dir, "argv.txt")
	installFakeDriver(t, "claude", record, "")
	writeAgentFile(t, dir, "hello.claude.md", "Say hi.")

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), Invocation{
		Args:       []string{"hello.claude.md"},
		ToolName:   "mdflow",
		Cwd:        dir,
		Stdout:     &stdout,
		Stderr:     &stderr,
		IsTerminal: func() bool { return false },
	})
	if code != 0 {
		t.Fatalf("exit code %d, stderr=%s", code, stderr.String())
	}
	got, err := os.ReadFile(record)
	if err != nil {
		t.Fatalf("reading argv record: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(got), "\n"), "\n")
	want := []string{"--print", "Say hi."}
	if strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Errorf("got argv %v, want %v", lines, want)
	}
}

func TestRunPositionalMapping(t *testing.T) {
	dir := t.TempDir()
	record := filepath.Join(dir, "argv.txt")
	installFakeDriver(t, "copilot", record, "")
	writeAgentFile(t, dir, "tr.copilot.md", "---\n$1: prompt\n---\nTranslate {{ _1 }} to {{ _2 }}.")

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), Invocation{
		Args:       []string{"tr.copilot.md", "hola", "English"},
		ToolName:   "mdflow",
		Cwd:        dir,
		Stdout:     &stdout,
		Stderr:     &stderr,
		IsTerminal: func() bool { return false },
	})
	if code != 0 {
		t.Fatalf("exit code %d, stderr=%s", code, stderr.String())
	}
	got, _ := os.ReadFile(record)
	lines := strings.Split(strings.TrimRight(string(got), "\n"), "\n")
	want := []string{"--silent", "--prompt", "Translate hola to English.", "English"}
	if strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Errorf("got argv %v, want %v", lines, want)
	}
}

func TestRunInteractiveToggleViaFilename(t *testing.T) {
	dir := t.TempDir()
	record := filepath.Join(dir, "argv.txt")
	installFakeDriver(t, "claude", record, "")
	writeAgentFile(t, dir, "task.i.claude.md", "---\nprint: true\n---\nDo the thing.")

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), Invocation{
		Args:       []string{"task.i.claude.md"},
		ToolName:   "mdflow",
		Cwd:        dir,
		Stdout:     &stdout,
		Stderr:     &stderr,
		IsTerminal: func() bool { return false },
	})
	if code != 0 {
		t.Fatalf("exit code %d, stderr=%s", code, stderr.String())
	}
	got, _ := os.ReadFile(record)
	if strings.Contains(string(got), "--print") {
		t.Errorf("expected --print dropped in interactive mode, got %q", string(got))
	}
}

func TestRunMissingTemplateVariableFailsNonInteractive(t *testing.T) {
	dir := t.TempDir()
	record := filepath.Join(dir, "argv.txt")
	installFakeDriver(t, "claude", record, "")
	writeAgentFile(t, dir, "task.claude.md", "Hello {{ _name }}.")

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), Invocation{
		Args:       []string{"task.claude.md"},
		ToolName:   "mdflow",
		Cwd:        dir,
		Stdout:     &stdout,
		Stderr:     &stderr,
		IsTerminal: func() bool { return false },
	})
	if code == 0 {
		t.Fatalf("expected a non-zero exit code for a missing template variable")
	}
	if !strings.Contains(stderr.String(), "Agent failed") {
		t.Errorf("expected Agent failed message, got %q", stderr.String())
	}
}

func TestRunDryRunEmitsPlanWithoutSpawning(t *testing.T) {
	dir := t.TempDir()
	record := filepath.Join(dir, "argv.txt")
	installFakeDriver(t, "claude", record, "")
	writeAgentFile(t, dir, "hello.claude.md", "Say hi.")

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), Invocation{
		Args:       []string{"hello.claude.md", "--_dry-run"},
		ToolName:   "mdflow",
		Cwd:        dir,
		Stdout:     &stdout,
		Stderr:     &stderr,
		IsTerminal: func() bool { return false },
	})
	if code != 0 {
		t.Fatalf("exit code %d, stderr=%s", code, stderr.String())
	}
	if _, err := os.Stat(record); err == nil {
		t.Error("expected driver not to be spawned in dry-run mode")
	}
	if !strings.Contains(stdout.String(), "Say hi.") {
		t.Errorf("expected plan to include rendered prompt, got %q", stdout.String())
	}
}

func TestRunExecutableFenceScenario(t *testing.T) {
	dir := t.TempDir()
	record := filepath.Join(dir, "argv.txt")
	installFakeDriver(t, "claude", record, "")
	body := "Now:\n```sh\n#!/bin/sh\necho ok\n```\n"
	writeAgentFile(t, dir, "task.claude.md", body)

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), Invocation{
		Args:       []string{"task.claude.md"},
		ToolName:   "mdflow",
		Cwd:        dir,
		Stdout:     &stdout,
		Stderr:     &stderr,
		IsTerminal: func() bool { return false },
	})
	if code != 0 {
		t.Fatalf("exit code %d, stderr=%s", code, stderr.String())
	}
	got, _ := os.ReadFile(record)
	if !strings.Contains(string(got), "ok") || strings.Contains(string(got), "{% raw %}") {
		t.Errorf("expected rendered fence output without raw markers, got %q", string(got))
	}
}
