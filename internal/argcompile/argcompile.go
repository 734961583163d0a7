// Package argcompile implements C11: compiling the merged front-matter
// config, the set of template variables already consumed, and the
// positional CLI arguments into a driver argv.
package argcompile

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mdflow/mdflow/internal/value"
)

var positionalMapPattern = regexp.MustCompile(`^\$\d+$`)

// Compile derives argv per the ten ordered rules, then appends the
// positional section and prepends _subcommand.
//
// positionals is the orchestrator's prepared positional sequence, not
// the raw CLI argv: position 1 is always the rendered prompt body
// (mapped to a flag by "$1" when declared, else trailing raw), and any
// further entries are the CLI's own positional arguments starting from
// its second one (its first was already consumed as the "_1" template
// binding).
func Compile(cfg value.Value, consumedTemplateVars map[string]bool, positionals []string) []string {
	var argv []string

	positionalFlagNames := map[int]string{} // 1-based index -> flag name
	for _, key := range cfg.SortedKeys() {
		if m := positionalMapPattern.FindString(key); m != "" {
			n, _ := strconv.Atoi(strings.TrimPrefix(key, "$"))
			v, _ := cfg.Get(key)
			positionalFlagNames[n] = v.String()
		}
	}

	for _, key := range cfg.SortedKeys() {
		switch {
		case key == "args":
			continue // rule 1: system key, always skipped
		case positionalMapPattern.MatchString(key):
			continue // rule 2: positional mapping, handled separately
		case strings.HasPrefix(key, "$"):
			continue // rule 3: template-variable declaration
		case strings.HasPrefix(key, "_"):
			continue // rule 4: internal directive
		}

		if consumedTemplateVars[key] {
			continue // rule 5
		}

		v, _ := cfg.Get(key)

		if key == "env" && v.Kind == value.KindMap {
			continue // rule 6: env mapping sets process env, not an arg
		}

		if v.IsNull() || v.IsFalse() {
			continue // rule 7
		}

		flag := flagFor(key)

		switch v.Kind {
		case value.KindScalar:
			if b, ok := v.Scalar.(bool); ok && b {
				argv = append(argv, flag) // rule 8: bare boolean flag
				continue
			}
			argv = append(argv, flag, v.String()) // rule 10
		case value.KindList:
			for _, item := range v.List {
				argv = append(argv, flag, item.String()) // rule 9
			}
		default:
			argv = append(argv, flag, v.String())
		}
	}

	argv = append(argv, compilePositionals(positionals, positionalFlagNames)...)

	if sub, ok := cfg.Get("_subcommand"); ok && !sub.IsNull() {
		var prefix []string
		if sub.Kind == value.KindList {
			for _, item := range sub.List {
				prefix = append(prefix, item.String())
			}
		} else {
			prefix = append(prefix, sub.String())
		}
		argv = append(prefix, argv...)
	}

	return argv
}

func compilePositionals(positionals []string, flagNames map[int]string) []string {
	var out []string
	for i, p := range positionals {
		idx := i + 1
		if flag, mapped := flagNames[idx]; mapped {
			out = append(out, flagFor(flag), p)
			continue
		}
		out = append(out, p)
	}
	return out
}

// flagFor renders key as a long flag ("--key") unless it is a single
// character, in which case it renders as a short flag ("-k").
func flagFor(key string) string {
	if len(key) == 1 {
		return "-" + key
	}
	return "--" + key
}
