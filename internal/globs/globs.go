// Package globs implements C4: glob pattern matching against the
// working tree, .gitignore-aware filtering, binary/size rejection, a
// token-count ceiling, and XML-tagged bundle formatting.
package globs

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/mdflow/mdflow/internal/mlog"
)

// DefaultMaxInputSize is the fallback MAX_INPUT_SIZE, in bytes, when no
// configuration overrides it.
const DefaultMaxInputSize = 1 << 20 // 1 MiB

// DefaultContextLimit is the fallback token ceiling when neither model
// configuration nor an environment override resolves one.
const DefaultContextLimit = 128000

var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
	".ico": true, ".webp": true, ".pdf": true, ".zip": true, ".tar": true,
	".gz": true, ".bz2": true, ".xz": true, ".7z": true, ".rar": true,
	".exe": true, ".dll": true, ".so": true, ".dylib": true, ".bin": true,
	".class": true, ".o": true, ".a": true, ".wasm": true,
	".woff": true, ".woff2": true, ".ttf": true, ".otf": true, ".eot": true,
	".mp3": true, ".mp4": true, ".mov": true, ".avi": true, ".mkv": true,
	".sqlite": true, ".db": true,
}

// TooLargeError reports a glob exceeding the resolved token ceiling.
type TooLargeError struct {
	Pattern string
	Files   int
	Tokens  int
	Limit   int
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("glob %q matched %d file(s) totaling ~%d tokens, exceeding the context limit of %d (set MDFLOW_FORCE_CONTEXT to override)", e.Pattern, e.Files, e.Tokens, e.Limit)
}

// Options configures a single Expand call.
type Options struct {
	BaseDir       string
	MaxInputSize  int64
	ContextLimit  int
	ForceContext  bool
	CountTokens   func(string) int // pluggable approximate tokenizer
}

// Result is the outcome of expanding and formatting a glob pattern.
type Result struct {
	Files   []string // relative paths, sorted
	Bundle  string   // formatted XML-tagged bundle
	Tokens  int
	Warning string // non-empty if over 50% of the context limit
}

// Expand matches pattern against BaseDir, filters ignored/binary/oversize
// files, enforces the token ceiling, and formats the bundle.
func Expand(pattern string, opts Options) (Result, error) {
	base := opts.BaseDir
	if base == "" {
		base = "."
	}
	maxSize := opts.MaxInputSize
	if maxSize <= 0 {
		maxSize = DefaultMaxInputSize
	}
	limit := opts.ContextLimit
	if limit <= 0 {
		limit = DefaultContextLimit
	}
	countTokens := opts.CountTokens
	if countTokens == nil {
		countTokens = CountTokens
	}

	expanded := expandTilde(pattern)

	matches, err := matchGlob(base, expanded)
	if err != nil {
		return Result{}, fmt.Errorf("expanding glob %q: %w", pattern, err)
	}

	ignorer := buildIgnoreSet(base)

	var kept []string
	for _, rel := range matches {
		if ignorer.MatchesPath(rel) {
			continue
		}
		full := filepath.Join(base, rel)
		info, err := os.Stat(full)
		if err != nil || info.IsDir() {
			continue
		}
		if isBinary(full) {
			mlog.Printf("globs: skipping binary file %s", rel)
			continue
		}
		if info.Size() > maxSize {
			return Result{}, fmt.Errorf("file %s (%d bytes) exceeds MAX_INPUT_SIZE (%d bytes)", rel, info.Size(), maxSize)
		}
		kept = append(kept, rel)
	}
	sort.Strings(kept)

	var sb strings.Builder
	total := 0
	for i, rel := range kept {
		content, err := os.ReadFile(filepath.Join(base, rel))
		if err != nil {
			return Result{}, fmt.Errorf("reading %s: %w", rel, err)
		}
		if i > 0 {
			sb.WriteString("\n\n")
		}
		tag := tagSlug(rel)
		sb.WriteString(fmt.Sprintf("<%s path=%q>\n%s\n</%s>", tag, rel, string(content), tag))
		total += countTokens(string(content))
	}
	bundle := sb.String()

	if total > limit {
		if !opts.ForceContext {
			return Result{}, &TooLargeError{Pattern: pattern, Files: len(kept), Tokens: total, Limit: limit}
		}
		mlog.Printf("globs: pattern %q is %d tokens, over limit %d, proceeding (force-context set)", pattern, total, limit)
	}

	res := Result{Files: kept, Bundle: bundle, Tokens: total}
	if total > limit/2 {
		res.Warning = fmt.Sprintf("glob %q is %d tokens, over 50%% of the %d-token context limit", pattern, total, limit)
	}
	return res, nil
}

func expandTilde(pattern string) string {
	if pattern == "~" || strings.HasPrefix(pattern, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return pattern
		}
		return filepath.Join(home, strings.TrimPrefix(pattern, "~"))
	}
	return pattern
}

// matchGlob resolves pattern (possibly absolute) against base using
// doublestar, returning paths relative to base.
func matchGlob(base, pattern string) ([]string, error) {
	rel := pattern
	if filepath.IsAbs(pattern) {
		r, err := filepath.Rel(base, pattern)
		if err != nil {
			return nil, err
		}
		rel = r
	}
	rel = filepath.ToSlash(rel)

	fsys := os.DirFS(base)
	matches, err := doublestar.Glob(fsys, rel)
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// buildIgnoreSet walks from base up toward the filesystem root collecting
// every .gitignore encountered, stopping at the first directory
// containing a .git entry, and always seeding the built-in ignore set.
func buildIgnoreSet(base string) *gitignore.GitIgnore {
	lines := []string{".git", "node_modules", ".DS_Store", "*.log"}

	abs, err := filepath.Abs(base)
	if err != nil {
		abs = base
	}
	dir := abs
	for {
		if data, err := os.ReadFile(filepath.Join(dir, ".gitignore")); err == nil {
			for _, l := range strings.Split(string(data), "\n") {
				l = strings.TrimRight(l, "\r")
				if l != "" {
					lines = append(lines, l)
				}
			}
		}
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return gitignore.CompileIgnoreLines(lines...)
}

// IsBinary is the exported form of isBinary, used by the import resolver
// to apply the same binary-detection rule to directly imported files
// (which fail outright, unlike glob-matched binaries, which are skipped).
func IsBinary(path string) bool { return isBinary(path) }

// isBinary classifies path as binary by extension first, then by
// sniffing for a null byte in the first 8 KiB.
func isBinary(path string) bool {
	if binaryExtensions[strings.ToLower(filepath.Ext(path))] {
		return true
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, 8192)
	n, _ := f.Read(buf)
	for _, b := range buf[:n] {
		if b == 0 {
			return true
		}
	}
	return false
}

var nonAlnumRun = regexp.MustCompile(`[^a-z0-9]+`)
var leadingDigit = regexp.MustCompile(`^[0-9]`)

// tagSlug derives the XML tag name for a file: its basename without
// extension, lowercased, with non-alphanumeric runs collapsed to a
// single hyphen, a leading digit prefixed with "_", and a "file"
// fallback for the empty string.
func tagSlug(relPath string) string {
	base := filepath.Base(relPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	slug := strings.ToLower(base)
	slug = nonAlnumRun.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "file"
	}
	if leadingDigit.MatchString(slug) {
		slug = "_" + slug
	}
	return slug
}

// approxTokenCount is the fallback estimator used when no real tokenizer
// is wired in: roughly 4 bytes per token, matching common rule-of-thumb
// estimates for English/code mixes.
func approxTokenCount(s string) int {
	return (len(s) + 3) / 4
}
