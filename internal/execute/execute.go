// Package execute implements C5: spawning the platform shell for inline
// Command directives and writing+running executable code fences, with a
// shared timeout, output capture, sanitization, and truncation policy.
package execute

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	shellwords "github.com/mattn/go-shellwords"

	"github.com/mdflow/mdflow/internal/mlog"
)

// Timeout is the fixed deadline for both shell commands and exec fences.
const Timeout = 30 * time.Second

// MaxOutputChars is the truncation ceiling applied to captured output.
const MaxOutputChars = 100_000

// BinaryOutputError reports that a command's stdout contains a null byte
// in its first kilobyte.
type BinaryOutputError struct{ Command string }

func (e *BinaryOutputError) Error() string {
	return fmt.Sprintf("command %q produced binary output", e.Command)
}

// CommandFailedError wraps a non-zero exit from an inline command.
type CommandFailedError struct {
	Command  string
	ExitCode int
	Detail   string
}

func (e *CommandFailedError) Error() string {
	return fmt.Sprintf("command %q exited %d: %s", e.Command, e.ExitCode, e.Detail)
}

// CodeFenceFailedError wraps a non-zero exit from an executable fence.
type CodeFenceFailedError struct {
	ExitCode int
	Detail   string
}

func (e *CodeFenceFailedError) Error() string {
	return fmt.Sprintf("code fence exited %d: %s", e.ExitCode, e.Detail)
}

// Context carries the ambient settings a resolver shares across all
// directive executions in one invocation.
type Context struct {
	Dir      string            // working directory override; falls back to the importing file's directory
	Env      []string          // process env override; nil means inherit os.Environ()
	DryRun   bool
	ToolName string            // the outer tool's own binary name, for markdown-recursion rewriting
	Progress func(chunk string) // optional streaming callback for the TTY dashboard
}

var mdCommandPattern = regexp.MustCompile(`^(?:\./|\.\./|~/|/)?\S*\.md$`)

// RunCommand executes an inline Command directive's already
// variable-substituted text and returns the raw-template-wrapped output.
func RunCommand(ctx context.Context, text string, ec Context) (string, error) {
	trimmed := strings.TrimSpace(text)
	if tokens, err := tokenizeShell(trimmed); err == nil && len(tokens) > 0 &&
		mdCommandPattern.MatchString(tokens[0]) && ec.ToolName != "" {
		text = ec.ToolName + " " + text
	}

	mlog.Printf("execute: command %q", text)

	if ec.DryRun {
		return wrapRaw(fmt.Sprintf("[Dry Run: Command %q not executed]", text)), nil
	}

	shellBin, shellArgv := platformShell()
	args := append(append([]string{}, shellArgv...), text)

	cctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, shellBin, args...)
	cmd.Dir = ec.Dir
	if ec.Env != nil {
		cmd.Env = ec.Env
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = teeProgress(&stdoutBuf, ec.Progress)
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	if cctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("command %q timed out after %s", text, Timeout)
	}

	stdout := stdoutBuf.Bytes()
	if hasNullByte(firstKiB(stdout)) {
		return "", &BinaryOutputError{Command: text}
	}

	if err != nil {
		exitCode := -1
		if ee, ok := err.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		}
		detail := strings.TrimSpace(stderrBuf.String())
		if detail == "" {
			detail = strings.TrimSpace(string(stdout))
		}
		return "", &CommandFailedError{Command: text, ExitCode: exitCode, Detail: detail}
	}

	out := sanitize(string(stdout))
	errOut := sanitize(stderrBuf.String())
	var combined string
	switch {
	case errOut != "" && out != "":
		combined = errOut + "\n" + out
	case errOut != "":
		combined = errOut
	default:
		combined = out
	}
	return wrapRaw(combined), nil
}

// RunExecFence writes a shebang-led code fence to a unique temp file,
// marks it executable, and runs it directly.
func RunExecFence(ctx context.Context, infoString, shebang, code string, ec Context) (string, error) {
	if ec.DryRun {
		mlog.Printf("execute: exec fence (dry run), language=%q", infoString)
		return wrapRaw("[Dry Run: Code fence not executed]"), nil
	}

	ext := extensionFor(infoString)
	path := filepath.Join(os.TempDir(), fmt.Sprintf("mdflow-%s%s", uuid.NewString(), ext))

	script := shebang + "\n" + code
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		return "", fmt.Errorf("writing exec fence script: %w", err)
	}
	defer os.Remove(path)

	if err := os.Chmod(path, 0o755); err != nil {
		return "", fmt.Errorf("marking exec fence script executable: %w", err)
	}

	mlog.Printf("execute: exec fence %s (language=%q)", path, infoString)

	cctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, path)
	cmd.Dir = ec.Dir
	if ec.Env != nil {
		cmd.Env = ec.Env
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = teeProgress(&stdoutBuf, ec.Progress)
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	if cctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("code fence timed out after %s", Timeout)
	}
	if err != nil {
		exitCode := -1
		if ee, ok := err.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		}
		detail := strings.TrimSpace(stderrBuf.String())
		if detail == "" {
			detail = strings.TrimSpace(stdoutBuf.String())
		}
		return "", &CodeFenceFailedError{ExitCode: exitCode, Detail: detail}
	}

	out := sanitize(stdoutBuf.String())
	errOut := sanitize(stderrBuf.String())
	var combined string
	switch {
	case errOut != "" && out != "":
		combined = errOut + "\n" + out
	case errOut != "":
		combined = errOut
	default:
		combined = out
	}
	return wrapRaw(combined), nil
}

func platformShell() (string, []string) {
	if runtime.GOOS == "windows" {
		return "cmd.exe", []string{"/d", "/s", "/c"}
	}
	return "sh", []string{"-c"}
}

// extensionFor maps a fence info-string language to a script extension,
// defaulting to the literal language token (or ".sh" for none).
func extensionFor(infoString string) string {
	lang := strings.Fields(infoString)
	if len(lang) == 0 {
		return ".sh"
	}
	switch lang[0] {
	case "ts", "typescript":
		return ".ts"
	case "js", "javascript":
		return ".js"
	case "py", "python":
		return ".py"
	case "sh", "shell", "bash":
		return ".sh"
	default:
		return "." + lang[0]
	}
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// sanitize strips ANSI escapes and truncates per the shared output policy.
func sanitize(s string) string {
	s = ansiPattern.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if len(s) > MaxOutputChars {
		s = s[:MaxOutputChars] + fmt.Sprintf("\n...[truncated, %d characters omitted]", len(s)-MaxOutputChars)
	}
	return s
}

// wrapRaw wraps resolved text in a Liquid raw block and breaks up any
// literal "{% endraw %}" inside it so it cannot prematurely close the
// wrapper.
func wrapRaw(s string) string {
	s = strings.ReplaceAll(s, "{% endraw %}", "{% endraw %}{% raw %}")
	return "{% raw %}\n" + s + "\n{% endraw %}"
}

// WrapRaw is the exported form of wrapRaw, used by callers outside this
// package that resolve text bound for the template engine (e.g. fetched
// URL content) and must apply the same output-sanitization wrapper.
func WrapRaw(s string) string { return wrapRaw(s) }

func firstKiB(b []byte) []byte {
	if len(b) > 1024 {
		return b[:1024]
	}
	return b
}

func hasNullByte(b []byte) bool {
	for _, c := range b {
		if c == 0 {
			return true
		}
	}
	return false
}

func teeProgress(buf io.Writer, progress func(string)) io.Writer {
	if progress == nil {
		return buf
	}
	return io.MultiWriter(buf, progressWriter{progress})
}

type progressWriter struct {
	fn func(string)
}

func (w progressWriter) Write(p []byte) (int, error) {
	w.fn(string(p))
	return len(p), nil
}

// tokenizeShell splits a command string the way a shell would, so the
// markdown-recursion check in RunCommand looks at the actual first
// token rather than naively pattern-matching the raw, possibly quoted
// command text.
func tokenizeShell(s string) ([]string, error) {
	return shellwords.Parse(s)
}
