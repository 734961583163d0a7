// Package frontmatter implements C1: splitting a markdown agent file into
// its YAML front matter (as a value.Value map) and body text.
package frontmatter

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mdflow/mdflow/internal/value"
)

// Document is a parsed markdown unit: config (front matter, insertion
// ordered but that order is not observable outside debug) and body text.
// Immutable once returned by Parse.
type Document struct {
	Config value.Value
	Body   string
}

// ParseError names the line/column of a malformed front-matter block.
type ParseError struct {
	Line   int
	Column int
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("front matter: line %d, column %d: %v", e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

const fenceDelim = "---"

// Parse splits text into front matter and body. If text does not begin
// with a "---" line, Config is an empty map and Body is the whole text.
func Parse(text string) (Document, error) {
	if !startsWithFence(text) {
		return Document{Config: value.NewMap(), Body: text}, nil
	}

	// Find the line holding the opening fence, then scan for the first
	// line that is exactly "---" (optionally followed by trailing
	// whitespace) after it.
	lines := splitKeepEnds(text)
	if len(lines) == 0 {
		return Document{Config: value.NewMap(), Body: text}, nil
	}

	closeIdx := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(stripEOL(lines[i]), " \t") == fenceDelim {
			closeIdx = i
			break
		}
	}
	if closeIdx == -1 {
		// No closing fence: the whole document is body, no front matter.
		return Document{Config: value.NewMap(), Body: text}, nil
	}

	yamlBlock := joinLines(lines[1:closeIdx])
	body := joinLines(lines[closeIdx+1:])

	var node yaml.Node
	if strings.TrimSpace(yamlBlock) != "" {
		if err := yaml.Unmarshal([]byte(yamlBlock), &node); err != nil {
			line, col := extractPos(err)
			return Document{}, &ParseError{Line: line, Column: col, Err: err}
		}
	}

	cfg, err := value.FromYAMLNode(&node)
	if err != nil {
		return Document{}, &ParseError{Line: 0, Column: 0, Err: err}
	}
	if cfg.Kind != value.KindMap {
		cfg = value.NewMap()
	}

	coerceEnvToStrings(&cfg)

	return Document{Config: cfg, Body: body}, nil
}

func startsWithFence(text string) bool {
	if !strings.HasPrefix(text, fenceDelim) {
		return false
	}
	rest := text[len(fenceDelim):]
	if rest == "" {
		return true
	}
	return rest[0] == '\n' || rest[0] == '\r' || strings.TrimRight(rest, " \t\r\n") == ""
}

// coerceEnvToStrings coerces the "env" key's scalar values to strings
// regardless of how YAML parsed them (env vars are always strings),
// while leaving map/list structural shape and all other keys untouched.
func coerceEnvToStrings(cfg *value.Value) {
	envVal, ok := cfg.Get("env")
	if !ok {
		return
	}
	cfg.Set("env", coerceScalarsDeep(envVal))
}

func coerceScalarsDeep(v value.Value) value.Value {
	switch v.Kind {
	case value.KindScalar:
		return value.NewScalar(v.String())
	case value.KindList:
		items := make([]value.Value, len(v.List))
		for i, item := range v.List {
			items[i] = coerceScalarsDeep(item)
		}
		return value.NewList(items)
	case value.KindMap:
		out := value.NewMap()
		for _, k := range v.Keys() {
			val, _ := v.Get(k)
			out.Set(k, coerceScalarsDeep(val))
		}
		return out
	default:
		return v
	}
}

func splitKeepEnds(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func stripEOL(s string) string {
	s = strings.TrimSuffix(s, "\n")
	s = strings.TrimSuffix(s, "\r")
	return s
}

func joinLines(lines []string) string {
	return strings.Join(lines, "")
}

// extractPos pulls "line N" from yaml.v3's TypeError/error message; yaml.v3
// doesn't expose a structured position, so this is best-effort text
// scraping of its conventional "yaml: line N: ..." prefix.
func extractPos(err error) (int, int) {
	msg := err.Error()
	const marker = "line "
	idx := strings.Index(msg, marker)
	if idx == -1 {
		return 0, 0
	}
	rest := msg[idx+len(marker):]
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, 0
	}
	var line int
	fmt.Sscanf(rest[:end], "%d", &line)
	return line, 0
}
