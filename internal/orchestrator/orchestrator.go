// Package orchestrator implements C12: the top-level linear flow that
// reads an agent file, resolves its driver and config, expands imports,
// renders the prompt, compiles argv, and spawns the driver.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/viper"

	"github.com/mdflow/mdflow/internal/adapters"
	"github.com/mdflow/mdflow/internal/argcompile"
	"github.com/mdflow/mdflow/internal/bindings"
	"github.com/mdflow/mdflow/internal/config"
	"github.com/mdflow/mdflow/internal/directive"
	"github.com/mdflow/mdflow/internal/envfile"
	"github.com/mdflow/mdflow/internal/frontmatter"
	"github.com/mdflow/mdflow/internal/globs"
	"github.com/mdflow/mdflow/internal/mdflowerr"
	"github.com/mdflow/mdflow/internal/mlog"
	"github.com/mdflow/mdflow/internal/resolver"
	"github.com/mdflow/mdflow/internal/template"
	"github.com/mdflow/mdflow/internal/value"
)

// modelContextTable is the small built-in map from a model name to its
// context window size, consulted after front matter and before the
// hardcoded fallback in contextOverrideLimit's precedence chain.
var modelContextTable = map[string]int{
	"claude-opus-4":    200000,
	"claude-sonnet-4":  200000,
	"claude-haiku-4":   200000,
	"gpt-5":            272000,
	"gpt-5-mini":       272000,
	"gemini-2.5-pro":   1048576,
	"gemini-2.5-flash": 1048576,
}

func init() {
	viper.SetEnvPrefix("MDFLOW")
	viper.AutomaticEnv()
	viper.BindEnv("context_window", "MDFLOW_CONTEXT_WINDOW", "MA_CONTEXT_WINDOW")
	viper.BindEnv("force_context", "MDFLOW_FORCE_CONTEXT", "MA_FORCE_CONTEXT")
	viper.BindEnv("model", "MDFLOW_MODEL", "MA_MODEL")
}

// Invocation carries everything the orchestrator needs from its caller
// (cmd/mdflow, or a test) instead of reaching for globals directly.
type Invocation struct {
	Args     []string // remaining_args after the outer subcommand was routed away
	ToolName string   // this binary's own name, for markdown-recursion rewriting
	Cwd      string
	Home     string
	Stdin    io.Reader
	Stdout   io.Writer
	Stderr   io.Writer

	// IsTerminal reports whether stdin is attached to a terminal; tests
	// override this to force the non-interactive fatal-error path.
	IsTerminal func() bool
}

// Run executes the full C12 flow for one agent-file invocation and
// returns the process exit code.
func Run(ctx context.Context, inv Invocation) int {
	if inv.IsTerminal == nil {
		inv.IsTerminal = func() bool { return isatty.IsTerminal(os.Stdin.Fd()) }
	}
	if inv.Stdout == nil {
		inv.Stdout = os.Stdout
	}
	if inv.Stderr == nil {
		inv.Stderr = os.Stderr
	}

	stop := InstallSignalHandlers(func(exitCode int) { os.Exit(exitCode) })
	defer stop()

	code, err := run(ctx, inv)
	if err != nil {
		fmt.Fprintf(inv.Stderr, "Agent failed: %s\n", err.Error())
		if mdErr, ok := err.(*mdflowerr.Error); ok {
			return mdErr.Kind.ExitCode()
		}
		return 1
	}
	return code
}

func run(ctx context.Context, inv Invocation) (int, error) {
	if len(inv.Args) == 0 {
		return 0, mdflowerr.New(mdflowerr.KindConfigurationError, "no agent file given")
	}

	hijacked, remaining := ExtractHijacked(inv.Args[1:])
	fileArg := inv.Args[0]

	if IsRemoteURL(fileArg) {
		return 0, mdflowerr.New(mdflowerr.KindImportError, "remote agent fetch/cache is an external collaborator; not available in this build")
	}

	path, err := ResolveFile(fileArg, inv.Cwd, inv.Home)
	if err != nil {
		return 0, err
	}

	if closeLog := openDebugLog(path, inv.Home); closeLog != nil {
		defer closeLog()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, mdflowerr.Wrap(mdflowerr.KindFileNotFound, err)
	}
	doc, err := frontmatter.Parse(string(data))
	if err != nil {
		return 0, mdflowerr.Wrap(mdflowerr.KindConfigurationError, err)
	}

	driverName, filenameInteractive := DriverName(path)
	if hijacked.Command != "" {
		driverName = hijacked.Command
	}
	if driverName == "" {
		return 0, mdflowerr.New(mdflowerr.KindConfigurationError, "could not determine driver name from filename; pass --_command")
	}

	adapter := adapters.For(driverName)
	builtins := value.NewMap()
	commands := value.NewMap()
	commands.Set(driverName, adapter.Defaults())
	builtins.Set("commands", commands)

	envfile.Load(inv.Cwd)
	cascade := config.Load(builtins, inv.Cwd)
	driverCfg := value.NewMap()
	if commandsLayer, ok := cascade.Get("commands"); ok {
		if dc, ok := commandsLayer.Get(driverName); ok {
			driverCfg = dc
		}
	}
	merged := value.MergeShallow(driverCfg, doc.Config)

	interactive := hijacked.Interactive || filenameInteractive || isInteractiveFlag(merged)
	if interactive {
		merged = adapter.ApplyInteractive(merged)
		merged.Delete("_interactive")
		merged.Delete("_i")
	}

	envAdditions := extractEnvAdditions(merged)

	baseDir := filepath.Dir(path)
	cwdForCommands := baseDir
	if hijacked.Cwd != "" {
		cwdForCommands = hijacked.Cwd
	} else if cwdVal, ok := merged.Get("_cwd"); ok && !cwdVal.IsNull() {
		cwdForCommands = cwdVal.String()
	}

	bset := bindings.FromFrontMatter(merged)
	positionals := bindings.ApplyCLIFlags(bset, remaining)
	bindings.ApplyPositionals(bset, positionals)
	if !inv.IsTerminal() && inv.Stdin != nil {
		stdinBytes, _ := io.ReadAll(inv.Stdin)
		bindings.ApplyStdin(bset, string(stdinBytes))
	}

	body := doc.Body
	if len(directive.Parse(body)) > 0 {
		opts := resolver.Options{
			MaxInputSize: contextOverrideSize(merged),
			ContextLimit: contextOverrideLimit(merged),
			ForceContext: viper.GetBool("force_context"),
			DryRun:       hijacked.DryRun,
			ToolName:     inv.ToolName,
			Bindings:     bset,
		}
		if hijacked.Cwd != "" {
			opts.Cwd = hijacked.Cwd
		} else if cwdForCommands != baseDir {
			opts.Cwd = cwdForCommands
		}
		var dash *Dashboard
		if inv.IsTerminal() && !hijacked.DryRun {
			dash = NewDashboard(inv.Stderr)
			dash.Start()
			opts.Progress = dash.Update
		}
		expanded, err := resolver.Resolve(ctx, path, body, baseDir, opts, nil)
		if dash != nil {
			dash.Stop()
		}
		if err != nil {
			return 0, wrapResolverError(err)
		}
		body = expanded
	}

	freeVars := template.PromptFillable(template.FreeVariables(body))
	var missing []string
	for name := range freeVars {
		bare := strings.TrimPrefix(name, "_")
		if _, bound := bset[bare]; !bound {
			missing = append(missing, bare)
		}
	}
	if len(missing) > 0 {
		if inv.IsTerminal() {
			filled, err := PromptForMissing(missing)
			if err != nil {
				return 0, err
			}
			for name, v := range filled {
				bset[name] = v
			}
		} else {
			return 0, mdflowerr.New(mdflowerr.KindTemplateError,
				fmt.Sprintf("missing template variables: %s", strings.Join(missing, ", ")))
		}
	}

	rendered, err := template.Render(body, bset.ToTemplateBindings())
	if err != nil {
		return 0, mdflowerr.Wrap(mdflowerr.KindTemplateError, err)
	}

	// The set of bare names consumed as template variables, so the
	// argument compiler's rule 5 doesn't also emit them as flags. Front-
	// matter template-variable declarations are always "_"-prefixed (so
	// rule 4 already skips them); this set instead covers the plain,
	// non-underscore key that §6's "$<name> (not numeric)" form shares
	// with its "_<name>" counterpart.
	consumed := map[string]bool{}
	for name := range freeVars {
		consumed[strings.TrimPrefix(name, "_")] = true
	}

	argvPositionals := []string{rendered}
	if len(positionals) > 1 {
		argvPositionals = append(argvPositionals, positionals[1:]...)
	}
	argv := argcompile.Compile(merged, consumed, argvPositionals)

	if hijacked.DryRun {
		fmt.Fprint(inv.Stdout, FormatPlan(driverName, argv, rendered))
		return 0, nil
	}

	code, err := spawnDriver(ctx, driverName, argv, cwdForCommands, envAdditions, inv)
	return code, err
}

// AgentSlug derives the per-agent log directory name from an agent file
// path, matching the <home>/.mdflow/logs/<agent-slug>/debug.log layout.
func AgentSlug(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), ".md")
	base = strings.ToLower(base)
	var sb strings.Builder
	prevDash := false
	for _, r := range base {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
			prevDash = false
			continue
		}
		if !prevDash {
			sb.WriteByte('-')
			prevDash = true
		}
	}
	slug := strings.Trim(sb.String(), "-")
	if slug == "" {
		slug = "agent"
	}
	return slug
}

// openDebugLog opens (creating directories as needed) this invocation's
// per-agent debug log and installs it as the ambient logging sink.
// Returns nil, and leaves logging stderr-only, if home is unknown or the
// file can't be opened.
func openDebugLog(path, home string) func() {
	if home == "" {
		return nil
	}
	dir := filepath.Join(home, ".mdflow", "logs", AgentSlug(path))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(dir, "debug.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil
	}
	mlog.SetSink(f)
	return mlog.CloseSink
}

func isInteractiveFlag(cfg value.Value) bool {
	for _, key := range []string{"_interactive", "_i"} {
		if v, ok := cfg.Get(key); ok && !v.IsFalse() {
			return true
		}
	}
	return false
}

func extractEnvAdditions(cfg value.Value) []string {
	envVal, ok := cfg.Get("env")
	if !ok || envVal.Kind != value.KindMap {
		return nil
	}
	var out []string
	for _, k := range envVal.Keys() {
		v, _ := envVal.Get(k)
		out = append(out, fmt.Sprintf("%s=%s", k, v.String()))
	}
	return out
}

func contextOverrideSize(cfg value.Value) int64 {
	return globs.DefaultMaxInputSize
}

// contextOverrideLimit resolves the effective token ceiling in
// precedence order: the CLI/environment override, then front matter's
// own context_window key, then a model-name-derived default, then a
// hardcoded fallback.
func contextOverrideLimit(cfg value.Value) int {
	if n := atoiOrZero(viper.GetString("context_window")); n > 0 {
		return n
	}
	if cw, ok := cfg.Get("context_window"); ok {
		if n := atoiOrZero(cw.String()); n > 0 {
			return n
		}
	}
	if n, ok := modelContextTable[viper.GetString("model")]; ok {
		return n
	}
	return globs.DefaultContextLimit
}

func atoiOrZero(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func wrapResolverError(err error) error {
	if _, ok := err.(*mdflowerr.Error); ok {
		return err
	}
	return mdflowerr.Wrap(mdflowerr.KindImportError, err)
}

func spawnDriver(ctx context.Context, driverName string, argv []string, dir string, envAdditions []string, inv Invocation) (int, error) {
	binPath, err := exec.LookPath(driverName)
	if err != nil {
		mlog.Printf("orchestrator: driver %q not found on PATH", driverName)
		return 127, nil
	}

	cmd := exec.CommandContext(ctx, binPath, argv...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), envAdditions...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = inv.Stdout
	cmd.Stderr = inv.Stderr

	if err := cmd.Start(); err != nil {
		return 0, mdflowerr.Wrap(mdflowerr.KindCommandFailed, err)
	}
	SetCurrentChild(cmd.Process)
	defer SetCurrentChild(nil)

	err = cmd.Wait()
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return 1, mdflowerr.Wrap(mdflowerr.KindCommandFailed, err)
}
