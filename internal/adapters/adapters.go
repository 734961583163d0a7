// Package adapters implements C10: the closed registry of downstream
// driver adapters, each contributing built-in defaults and a
// print-to-interactive transform.
package adapters

import "github.com/mdflow/mdflow/internal/value"

// Adapter is the small capability set every registered driver implements.
type Adapter interface {
	// Name is the canonical tool identifier.
	Name() string
	// Defaults returns the built-in defaults layer contributed by this
	// adapter, merged as the lowest-precedence config cascade layer.
	Defaults() value.Value
	// ApplyInteractive transforms a print-mode-defaulted config into its
	// interactive-mode equivalent for this tool.
	ApplyInteractive(cfg value.Value) value.Value
}

func mapOf(pairs ...any) value.Value {
	m := value.NewMap()
	for i := 0; i+1 < len(pairs); i += 2 {
		m.Set(pairs[i].(string), pairs[i+1].(value.Value))
	}
	return m
}

func scalar(v any) value.Value { return value.NewScalar(v) }

// claudeAdapter: non-interactive means "--print".
type claudeAdapter struct{}

func (claudeAdapter) Name() string          { return "claude" }
func (claudeAdapter) Defaults() value.Value { return mapOf("print", scalar(true)) }
func (claudeAdapter) ApplyInteractive(cfg value.Value) value.Value {
	out := cloneMap(cfg)
	out.Delete("print")
	return out
}

// droidAdapter: same print-mode shape as claude.
type droidAdapter struct{}

func (droidAdapter) Name() string          { return "droid" }
func (droidAdapter) Defaults() value.Value { return mapOf("print", scalar(true)) }
func (droidAdapter) ApplyInteractive(cfg value.Value) value.Value {
	out := cloneMap(cfg)
	out.Delete("print")
	return out
}

// codexAdapter: non-interactive behavior gated behind a subcommand.
type codexAdapter struct{}

func (codexAdapter) Name() string          { return "codex" }
func (codexAdapter) Defaults() value.Value { return mapOf("_subcommand", scalar("exec")) }
func (codexAdapter) ApplyInteractive(cfg value.Value) value.Value {
	out := cloneMap(cfg)
	out.Delete("_subcommand")
	return out
}

// opencodeAdapter: same subcommand-gated shape as codex, different verb.
type opencodeAdapter struct{}

func (opencodeAdapter) Name() string          { return "opencode" }
func (opencodeAdapter) Defaults() value.Value { return mapOf("_subcommand", scalar("run")) }
func (opencodeAdapter) ApplyInteractive(cfg value.Value) value.Value {
	out := cloneMap(cfg)
	out.Delete("_subcommand")
	return out
}

// geminiAdapter: body mapped to a --prompt flag, with a silent toggle.
type geminiAdapter struct{}

func (geminiAdapter) Name() string {
	return "gemini"
}
func (geminiAdapter) Defaults() value.Value {
	return mapOf("$1", scalar("prompt"), "silent", scalar(true))
}
func (geminiAdapter) ApplyInteractive(cfg value.Value) value.Value {
	out := cloneMap(cfg)
	out.Delete("silent")
	out.Set("$1", scalar("interactive"))
	return out
}

// copilotAdapter: body mapped to --prompt, interactive mode uses a
// distinct positional-flag name rather than reusing "interactive".
type copilotAdapter struct{}

func (copilotAdapter) Name() string {
	return "copilot"
}
func (copilotAdapter) Defaults() value.Value {
	return mapOf("$1", scalar("prompt"), "silent", scalar(true))
}
func (copilotAdapter) ApplyInteractive(cfg value.Value) value.Value {
	out := cloneMap(cfg)
	out.Delete("silent")
	out.Set("$1", scalar("prompt-interactive"))
	return out
}

// defaultAdapter is the fallback for any unknown tool name: it
// contributes no defaults and only strips the interactive toggle keys
// when switching modes.
type defaultAdapter struct{ name string }

func (d defaultAdapter) Name() string          { return d.name }
func (defaultAdapter) Defaults() value.Value   { return value.NewMap() }
func (defaultAdapter) ApplyInteractive(cfg value.Value) value.Value {
	out := cloneMap(cfg)
	out.Delete("_interactive")
	out.Delete("_i")
	return out
}

var registry = map[string]Adapter{
	"claude":   claudeAdapter{},
	"droid":    droidAdapter{},
	"codex":    codexAdapter{},
	"opencode": opencodeAdapter{},
	"gemini":   geminiAdapter{},
	"copilot":  copilotAdapter{},
}

// For returns the registered adapter for name, or a default fallback
// adapter carrying that same name if it is not in the closed registry.
func For(name string) Adapter {
	if a, ok := registry[name]; ok {
		return a
	}
	return defaultAdapter{name: name}
}

func cloneMap(v value.Value) value.Value {
	if v.Kind != value.KindMap {
		return value.NewMap()
	}
	out := value.NewMap()
	for _, k := range v.Keys() {
		val, _ := v.Get(k)
		out.Set(k, val)
	}
	return out
}
