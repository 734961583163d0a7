package execute

import (
	"context"
	"runtime"
	"strings"
	"testing"
)

func TestRunCommandDryRun(t *testing.T) {
	out, err := RunCommand(context.Background(), "echo hi", Context{DryRun: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, `Dry Run: Command "echo hi" not executed`) {
		t.Errorf("unexpected dry run output: %q", out)
	}
	if !strings.HasPrefix(out, "{% raw %}") || !strings.HasSuffix(out, "{% endraw %}") {
		t.Errorf("expected raw-wrapped output, got %q", out)
	}
}

func TestRunCommandSuccess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh -c")
	}
	out, err := RunCommand(context.Background(), "echo hello", Context{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "hello") {
		t.Errorf("expected output to contain 'hello', got %q", out)
	}
}

func TestRunCommandFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh -c")
	}
	_, err := RunCommand(context.Background(), "exit 3", Context{})
	if err == nil {
		t.Fatalf("expected error for non-zero exit")
	}
	cf, ok := err.(*CommandFailedError)
	if !ok {
		t.Fatalf("expected *CommandFailedError, got %T", err)
	}
	if cf.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", cf.ExitCode)
	}
}

func TestRunCommandMarkdownRecursionRewrite(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh -c")
	}
	out, err := RunCommand(context.Background(), "./sub.md", Context{DryRun: true, ToolName: "mdflow"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, `mdflow ./sub.md`) {
		t.Errorf("expected markdown recursion rewrite, got %q", out)
	}
}

func TestRunExecFenceDryRun(t *testing.T) {
	out, err := RunExecFence(context.Background(), "sh", "#!/bin/sh", "echo hi", Context{DryRun: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Dry Run: Code fence not executed") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestRunExecFenceSuccess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses shebang execution")
	}
	out, err := RunExecFence(context.Background(), "sh", "#!/bin/sh", "echo fenced-ok", Context{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "fenced-ok") {
		t.Errorf("expected fenced-ok in output, got %q", out)
	}
}

func TestSanitizeStripsAnsiAndTruncates(t *testing.T) {
	colored := "\x1b[31mred\x1b[0m text"
	got := sanitize(colored)
	if got != "red text" {
		t.Errorf("got %q", got)
	}

	long := strings.Repeat("a", MaxOutputChars+500)
	truncated := sanitize(long)
	if len(truncated) <= MaxOutputChars {
		t.Errorf("expected truncated output to include suffix beyond cap")
	}
	if !strings.Contains(truncated, "truncated") {
		t.Errorf("expected truncation notice")
	}
}

func TestWrapRawBreaksUpLiteralEndraw(t *testing.T) {
	out := wrapRaw("before {% endraw %} after")
	if strings.Contains(out, "before {% endraw %} after") {
		t.Errorf("literal endraw was not broken up: %q", out)
	}
}

func TestExtensionFor(t *testing.T) {
	cases := map[string]string{
		"ts":        ".ts",
		"js foo":    ".js",
		"python":    ".py",
		"bash":      ".sh",
		"ruby":      ".ruby",
		"":          ".sh",
	}
	for in, want := range cases {
		if got := extensionFor(in); got != want {
			t.Errorf("extensionFor(%q) = %q, want %q", in, got, want)
		}
	}
}
