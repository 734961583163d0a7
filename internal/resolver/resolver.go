// Package resolver implements C7: the three-phase import pipeline that
// turns a parsed directive list into a fully expanded body, dispatching
// to the symbol extractor, glob expander, URL fetcher, and command/fence
// executor, recursing into File imports with cycle detection.
package resolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/mdflow/mdflow/internal/bindings"
	"github.com/mdflow/mdflow/internal/directive"
	"github.com/mdflow/mdflow/internal/execute"
	"github.com/mdflow/mdflow/internal/fetchtext"
	"github.com/mdflow/mdflow/internal/gitutil"
	"github.com/mdflow/mdflow/internal/globs"
	"github.com/mdflow/mdflow/internal/mdflowerr"
	"github.com/mdflow/mdflow/internal/mlog"
	"github.com/mdflow/mdflow/internal/symbol"
	"github.com/mdflow/mdflow/internal/template"
)

// DefaultConcurrency is the resolver's fixed semaphore capacity.
const DefaultConcurrency = 10

// Options carries the settings shared across one top-level invocation's
// worth of recursive resolution.
type Options struct {
	Concurrency  int
	MaxInputSize int64
	ContextLimit int
	ForceContext bool
	DryRun       bool
	ToolName     string
	Bindings     bindings.Set
	Progress     func(directiveKey, chunk string) // TTY dashboard hook; presentation-only

	// Cwd, when set, overrides the working directory Command and
	// ExecFence directives run in (the invocation-level _cwd front-matter
	// or --_cwd flag). File/Glob/Symbol imports always stay relative to
	// the directory of the file that declared them, regardless of Cwd.
	Cwd string
}

// ResolvedImport is one entry in the dry-run-only resolved-imports
// tracker, recorded in completion order.
type ResolvedImport struct {
	Kind string
	Path string
}

// Tracker accumulates ResolvedImport entries across a whole recursive
// resolution, safe for concurrent appends.
type Tracker struct {
	mu      sync.Mutex
	entries []ResolvedImport
}

func (t *Tracker) record(kind, path string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.entries = append(t.entries, ResolvedImport{Kind: kind, Path: path})
	t.mu.Unlock()
}

// Entries returns the recorded imports in completion order.
func (t *Tracker) Entries() []ResolvedImport {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ResolvedImport, len(t.entries))
	copy(out, t.entries)
	return out
}

// stack tracks the canonical paths on the current import chain, for
// cycle detection.
type stack struct {
	mu    sync.Mutex
	paths []string
}

// fork returns an independent copy of the chain, so sibling imports each
// extend their own ancestry instead of seeing one another's entries.
func (s *stack) fork() *stack {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &stack{paths: append([]string(nil), s.paths...)}
}

func (s *stack) push(canonical string) (func(), error) {
	s.mu.Lock()
	for _, p := range s.paths {
		if p == canonical {
			chain := append(append([]string(nil), s.paths...), canonical)
			s.mu.Unlock()
			return nil, mdflowerr.New(mdflowerr.KindCircularImport,
				strings.Join(chain, " -> "))
		}
	}
	s.paths = append(s.paths, canonical)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		for i, p := range s.paths {
			if p == canonical {
				s.paths = append(s.paths[:i], s.paths[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
	}, nil
}

// Resolve expands body (read from the file at path, whose directory is
// baseDir) against opts, recursing into File imports. tracker may be nil.
func Resolve(ctx context.Context, path, body, baseDir string, opts Options, tracker *Tracker) (string, error) {
	return resolve(ctx, path, body, baseDir, opts, tracker, &stack{})
}

func resolve(ctx context.Context, path, body, baseDir string, opts Options, tracker *Tracker, st *stack) (string, error) {
	canonical, err := gitutil.Canonical(path)
	if err != nil {
		canonical = path
	}
	pop, err := st.push(canonical)
	if err != nil {
		return "", err
	}
	defer pop()

	directives := directive.Parse(body)
	if len(directives) == 0 {
		return body, nil
	}

	type resolved struct {
		d           directive.Directive
		replacement string
	}
	results := make([]resolved, len(directives))

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	sem := semaphore.NewWeighted(int64(concurrency))
	eg, egCtx := errgroup.WithContext(ctx)

	for i, d := range directives {
		i, d := i, d
		eg.Go(func() error {
			if err := sem.Acquire(egCtx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			repl, err := resolveOne(egCtx, d, baseDir, opts, tracker, st)
			if err != nil {
				return err
			}
			results[i] = resolved{d: d, replacement: repl}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return "", err
	}

	// Inject in descending index order so earlier indices stay valid.
	sort.Slice(results, func(i, j int) bool { return results[i].d.Index > results[j].d.Index })
	out := body
	for _, r := range results {
		out = out[:r.d.Index] + r.replacement + out[r.d.Index+len(r.d.Original):]
	}
	return out, nil
}

func resolveOne(ctx context.Context, d directive.Directive, baseDir string, opts Options, tracker *Tracker, st *stack) (string, error) {
	switch d.Kind {
	case directive.KindFile:
		return resolveFile(ctx, d, baseDir, opts, tracker, st)
	case directive.KindGlob:
		return resolveGlob(d, baseDir, opts, tracker)
	case directive.KindSymbol:
		return resolveSymbol(d, baseDir, tracker)
	case directive.KindURL:
		return resolveURL(ctx, d, tracker)
	case directive.KindCommand:
		return resolveCommand(ctx, d, commandDir(baseDir, opts), opts)
	case directive.KindExecFence:
		return resolveExecFence(ctx, d, commandDir(baseDir, opts), opts)
	}
	return "", mdflowerr.New(mdflowerr.KindImportError, fmt.Sprintf("unknown directive kind %v", d.Kind))
}

func resolveFile(ctx context.Context, d directive.Directive, baseDir string, opts Options, tracker *Tracker, st *stack) (string, error) {
	full := resolvePath(d.Path, baseDir)
	data, err := readWithLimit(full, opts)
	if err != nil {
		return "", err
	}
	text := string(data)
	if d.LineRange != nil {
		text = sliceLines(text, d.LineRange.Start, d.LineRange.End)
	}
	tracker.record("File", full)
	expanded, err := resolve(ctx, full, text, filepath.Dir(full), opts, tracker, st.fork())
	if err != nil {
		return "", err
	}
	return expanded, nil
}

func resolveGlob(d directive.Directive, baseDir string, opts Options, tracker *Tracker) (string, error) {
	res, err := globs.Expand(d.Path, globs.Options{
		BaseDir:      baseDir,
		MaxInputSize: maxInputSize(opts),
		ContextLimit: contextLimit(opts),
		ForceContext: opts.ForceContext,
	})
	if err != nil {
		return "", mdflowerr.Wrap(mdflowerr.KindImportError, err)
	}
	if res.Warning != "" {
		mlog.Printf("%s", res.Warning)
	}
	tracker.record("Glob", d.Path)
	return res.Bundle, nil
}

func resolveSymbol(d directive.Directive, baseDir string, tracker *Tracker) (string, error) {
	full := resolvePath(d.Path, baseDir)
	data, err := os.ReadFile(full)
	if err != nil {
		return "", mdflowerr.Wrap(mdflowerr.KindFileNotFound, err)
	}
	out, err := symbol.Extract(string(data), d.Symbol)
	if err != nil {
		return "", mdflowerr.Wrap(mdflowerr.KindSymbolNotFound, err)
	}
	tracker.record("Symbol", full+"#"+d.Symbol)
	return out, nil
}

func resolveURL(ctx context.Context, d directive.Directive, tracker *Tracker) (string, error) {
	text, err := fetchtext.Fetch(ctx, d.URL)
	if err != nil {
		switch err.(type) {
		case *fetchtext.UnsupportedContentTypeError:
			return "", mdflowerr.Wrap(mdflowerr.KindUnsupportedContentType, err)
		default:
			return "", mdflowerr.Wrap(mdflowerr.KindNetworkError, err)
		}
	}
	tracker.record("Url", d.URL)
	return execute.WrapRaw(text), nil
}

func resolveCommand(ctx context.Context, d directive.Directive, baseDir string, opts Options) (string, error) {
	substituted, err := template.Render(d.CommandText, opts.Bindings.ToTemplateBindings())
	if err != nil {
		return "", mdflowerr.Wrap(mdflowerr.KindTemplateError, err)
	}
	ec := execute.Context{
		Dir:      baseDir,
		DryRun:   opts.DryRun,
		ToolName: opts.ToolName,
	}
	if opts.Progress != nil {
		key := d.CommandText
		ec.Progress = func(chunk string) { opts.Progress(key, chunk) }
	}
	out, err := execute.RunCommand(ctx, substituted, ec)
	if err != nil {
		return "", mdflowerr.Wrap(mdflowerr.KindCommandFailed, err)
	}
	return out, nil
}

func resolveExecFence(ctx context.Context, d directive.Directive, baseDir string, opts Options) (string, error) {
	ec := execute.Context{
		Dir:      baseDir,
		DryRun:   opts.DryRun,
		ToolName: opts.ToolName,
	}
	if opts.Progress != nil {
		key := d.InfoString
		ec.Progress = func(chunk string) { opts.Progress(key, chunk) }
	}
	out, err := execute.RunExecFence(ctx, d.InfoString, d.Shebang, d.Code, ec)
	if err != nil {
		return "", mdflowerr.Wrap(mdflowerr.KindCommandFailed, err)
	}
	return out, nil
}

// commandDir returns the directory a Command/ExecFence directive should
// run in: the invocation-level override if one was given, else the
// directory of the file that declared the directive.
func commandDir(baseDir string, opts Options) string {
	if opts.Cwd != "" {
		return opts.Cwd
	}
	return baseDir
}

func resolvePath(path, baseDir string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~/"))
		}
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

func readWithLimit(path string, opts Options) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, mdflowerr.Wrap(mdflowerr.KindFileNotFound, err)
	}
	if limit := maxInputSize(opts); info.Size() > limit {
		return nil, mdflowerr.New(mdflowerr.KindFileSizeLimit,
			fmt.Sprintf("%s exceeds the maximum input size of %d bytes", path, limit))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, mdflowerr.Wrap(mdflowerr.KindFileNotFound, err)
	}
	if globs.IsBinary(path) || hasNullByte(data) {
		return nil, mdflowerr.New(mdflowerr.KindBinaryFileImport, path)
	}
	return data, nil
}

func hasNullByte(b []byte) bool {
	n := len(b)
	if n > 8192 {
		n = 8192
	}
	for i := 0; i < n; i++ {
		if b[i] == 0 {
			return true
		}
	}
	return false
}

func maxInputSize(opts Options) int64 {
	if opts.MaxInputSize > 0 {
		return opts.MaxInputSize
	}
	return globs.DefaultMaxInputSize
}

func contextLimit(opts Options) int {
	if opts.ContextLimit > 0 {
		return opts.ContextLimit
	}
	return globs.DefaultContextLimit
}

// sliceLines returns the inclusive 1-indexed [start, end] line range of
// text. Out-of-range bounds clamp rather than fail.
func sliceLines(text string, start, end int) string {
	lines := strings.Split(text, "\n")
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end || start > len(lines) {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}
