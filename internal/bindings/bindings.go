// Package bindings assembles the variable binding set consumed by the
// template engine: front-matter defaults, CLI flags, positionals, and
// piped stdin, applied in ascending precedence.
package bindings

import (
	"fmt"
	"strings"

	"github.com/mdflow/mdflow/internal/value"
)

// internalKeys are never turned into template-fillable bindings even
// though they start with "_", since they carry orchestrator meaning.
var internalKeys = map[string]bool{
	"_interactive": true, "_i": true, "_cwd": true, "_subcommand": true,
}

// Set is the accumulated name -> string binding set.
type Set map[string]string

// FromFrontMatter seeds a Set from front-matter keys starting with "_",
// excluding the internal directive keys.
func FromFrontMatter(cfg value.Value) Set {
	s := Set{}
	if cfg.Kind != value.KindMap {
		return s
	}
	for _, k := range cfg.Keys() {
		if !strings.HasPrefix(k, "_") || internalKeys[k] {
			continue
		}
		v, _ := cfg.Get(k)
		s[strings.TrimPrefix(k, "_")] = v.String()
	}
	return s
}

// ApplyCLIFlags overlays bindings parsed from "--_key value" and
// "--_key=value" tokens, consuming them from args and returning the
// remaining (non-binding) tokens in original order.
func ApplyCLIFlags(s Set, args []string) (remaining []string) {
	i := 0
	for i < len(args) {
		a := args[i]
		if !strings.HasPrefix(a, "--_") {
			remaining = append(remaining, a)
			i++
			continue
		}
		body := strings.TrimPrefix(a, "--_")
		if eq := strings.Index(body, "="); eq != -1 {
			s[body[:eq]] = body[eq+1:]
			i++
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "--") {
			s[body] = args[i+1]
			i += 2
			continue
		}
		s[body] = "true"
		i++
	}
	return remaining
}

// ApplyPositionals binds the leftover bare CLI arguments to "1", "2", …
// and "args" (a formatted list), per the binding set's precedence order.
func ApplyPositionals(s Set, positionals []string) {
	for i, p := range positionals {
		s[fmt.Sprintf("%d", i+1)] = p
	}
	s["args"] = strings.Join(positionals, " ")
}

// ApplyStdin binds piped input to "stdin".
func ApplyStdin(s Set, stdin string) {
	if stdin != "" {
		s["stdin"] = stdin
	}
}

// ToTemplateBindings converts the set into the "_"-prefixed map the
// template engine expects as its root variable names.
func (s Set) ToTemplateBindings() map[string]any {
	out := make(map[string]any, len(s))
	for k, v := range s {
		out["_"+k] = v
	}
	return out
}
