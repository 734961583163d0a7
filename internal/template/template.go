// Package template implements C8: a thin adapter over a Liquid-compatible
// engine providing lenient rendering and free-variable analysis.
package template

import (
	"regexp"
	"strings"

	"github.com/osteele/liquid"
)

// Bindings is the variable set passed to Render.
type Bindings map[string]any

var engine = liquid.NewEngine()

// Render substitutes variables and evaluates control flow against
// bindings. Undefined variables render as empty and undefined filters
// are no-ops, per the underlying engine's lenient defaults.
func Render(body string, bindings Bindings) (string, error) {
	tpl, err := engine.ParseTemplate([]byte(body))
	if err != nil {
		return "", err
	}
	out, err := tpl.Render(liquid.Bindings(bindings))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// controlKeywords are keywords and literals that free-variable analysis
// must never treat as a variable reference.
var controlKeywords = map[string]bool{
	"true": true, "false": true, "nil": true, "null": true, "empty": true, "blank": true,
	"and": true, "or": true, "not": true, "contains": true, "in": true,
	"if": true, "elsif": true, "else": true, "endif": true, "unless": true, "endunless": true,
	"for": true, "endfor": true, "case": true, "when": true, "endcase": true,
	"assign": true, "capture": true, "endcapture": true, "increment": true, "decrement": true,
	"raw": true, "endraw": true, "comment": true, "endcomment": true, "break": true, "continue": true,
}

var (
	exprTagPattern  = regexp.MustCompile(`\{\{-?\s*(.*?)\s*-?\}\}`)
	statementPattern = regexp.MustCompile(`\{%-?\s*(.*?)\s*-?%\}`)
	identPattern    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*`)
	pathPattern     = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*`)
	stringLiteral   = regexp.MustCompile(`'[^']*'|"[^"]*"`)
	numberLiteral   = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)
	literalBlock    = regexp.MustCompile(`(?s)\{%-?\s*raw\s*-?%\}.*?\{%-?\s*endraw\s*-?%\}|\{%-?\s*comment\s*-?%\}.*?\{%-?\s*endcomment\s*-?%\}`)
)

// FreeVariables returns the set of undefined root-variable names actually
// referenced by body, excluding names bound by assign/capture/for/
// increment and control-flow keywords/literals.
func FreeVariables(body string) map[string]bool {
	body = literalBlock.ReplaceAllString(body, "")
	bound := map[string]bool{}
	refs := map[string]bool{}

	collectRefs := func(expr string) {
		expr = stringLiteral.ReplaceAllString(expr, "")
		for _, path := range pathPattern.FindAllString(expr, -1) {
			root := RootName(path)
			if root == "" || controlKeywords[root] || numberLiteral.MatchString(root) {
				continue
			}
			refs[root] = true
		}
	}

	for _, m := range exprTagPattern.FindAllStringSubmatch(body, -1) {
		collectRefs(filterBase(m[1]))
	}

	for _, m := range statementPattern.FindAllStringSubmatch(body, -1) {
		stmt := strings.TrimSpace(m[1])
		fields := strings.Fields(stmt)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "assign":
			// assign <name> = <expr>
			rest := strings.TrimSpace(strings.TrimPrefix(stmt, "assign"))
			if eq := strings.Index(rest, "="); eq != -1 {
				name := strings.TrimSpace(rest[:eq])
				bound[name] = true
				collectRefs(filterBase(rest[eq+1:]))
			}
		case "capture":
			if len(fields) >= 2 {
				bound[fields[1]] = true
			}
		case "increment", "decrement":
			if len(fields) >= 2 {
				bound[fields[1]] = true
			}
		case "for":
			// for <item> in <collection>
			if len(fields) >= 4 && fields[2] == "in" {
				bound[fields[1]] = true
				collectRefs(filterBase(strings.Join(fields[3:], " ")))
			}
		case "if", "elsif", "unless", "when", "case":
			collectRefs(filterBase(strings.Join(fields[1:], " ")))
		}
	}

	for name := range bound {
		delete(refs, name)
	}
	delete(refs, "forloop")
	return refs
}

// filterBase strips Liquid filter pipes, keeping only the base expression
// before the first "|", since filters are never variable references
// (their names are also tokens but not free variables).
func filterBase(expr string) string {
	parts := strings.SplitN(expr, "|", 2)
	return parts[0]
}

// RootName returns the root variable of a dotted property-access
// expression, e.g. RootName("a.b.c") == "a".
func RootName(expr string) string {
	m := identPattern.FindString(strings.TrimSpace(expr))
	return m
}

// PromptFillable filters names to those beginning with "_", the only
// ones considered prompt-fillable; all others are presumed to be
// CLI-flag names and are silently ignored.
func PromptFillable(names map[string]bool) map[string]bool {
	out := map[string]bool{}
	for n := range names {
		if strings.HasPrefix(n, "_") {
			out[n] = true
		}
	}
	return out
}
