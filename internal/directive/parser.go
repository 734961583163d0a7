package directive

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// canonicalPathPattern is the standardized @path token, per §9's
// resolution of the two competing regexes in the source: "@(~?[./][^\s]+)".
var canonicalPathPattern = regexp.MustCompile(`@(~?[./][^\s]+)`)

var urlPattern = regexp.MustCompile(`@(https?://\S+)`)

var symbolSuffixPattern = regexp.MustCompile(`^(.*)#([A-Za-z_$][A-Za-z0-9_$]*)$`)
var lineRangeSuffixPattern = regexp.MustCompile(`^(.*):(\d+)-(\d+)$`)

// Parse scans body and returns the ordered, non-overlapping directive
// list. Parse is pure: no I/O, no execution of any directive.
func Parse(body string) []Directive {
	res := scan(body)

	var out []Directive
	for _, r := range res.safe {
		out = append(out, parseSafeRange(body, r)...)
	}
	for _, fb := range res.fences {
		if d, ok := execFenceDirective(body, fb); ok {
			out = append(out, d)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// parseSafeRange finds @-directives and !-command directives within a
// single safe (normal-context) byte range.
func parseSafeRange(body string, r byteRange) []Directive {
	segment := body[r.Start:r.End]
	var out []Directive

	// URL directives take precedence over generic path directives since
	// both start with '@'; match whichever pattern starts earliest at
	// each position by scanning left to right for '@' and '!'.
	i := 0
	for i < len(segment) {
		switch segment[i] {
		case '@':
			if d, consumed, ok := matchAtDirective(segment, i, r.Start); ok {
				out = append(out, d)
				i += consumed
				continue
			}
		case '!':
			if d, consumed, ok := matchCommandDirective(segment, i, r.Start); ok {
				out = append(out, d)
				i += consumed
				continue
			}
		}
		i++
	}
	return out
}

func matchAtDirective(segment string, pos int, baseOffset int) (Directive, int, bool) {
	rest := segment[pos:]
	if loc := urlPattern.FindStringIndex(rest); loc != nil && loc[0] == 0 {
		full := rest[loc[0]:loc[1]]
		raw := urlPattern.FindStringSubmatch(full)[1]
		return Directive{
			Kind:     KindURL,
			Index:    baseOffset + pos,
			Original: full,
			URL:      raw,
		}, loc[1], true
	}
	if loc := canonicalPathPattern.FindStringIndex(rest); loc != nil && loc[0] == 0 {
		full := rest[loc[0]:loc[1]]
		path := canonicalPathPattern.FindStringSubmatch(full)[1]
		d := classifyPathDirective(path)
		d.Index = baseOffset + pos
		d.Original = full
		return d, loc[1], true
	}
	return Directive{}, 0, false
}

// classifyPathDirective determines whether an @path token is a Glob,
// Symbol, line-range File, or plain File import, per §4.2's sub-forms.
func classifyPathDirective(path string) Directive {
	if strings.ContainsAny(path, "*?[") {
		return Directive{Kind: KindGlob, Path: path}
	}
	if m := symbolSuffixPattern.FindStringSubmatch(path); m != nil {
		return Directive{Kind: KindSymbol, Path: m[1], Symbol: m[2]}
	}
	if m := lineRangeSuffixPattern.FindStringSubmatch(path); m != nil {
		start, errS := strconv.Atoi(m[2])
		end, errE := strconv.Atoi(m[3])
		if errS == nil && errE == nil {
			return Directive{Kind: KindFile, Path: m[1], LineRange: &LineRange{Start: start, End: end}}
		}
	}
	return Directive{Kind: KindFile, Path: path}
}

// matchCommandDirective matches "!<fence>...<fence>" where fence is one
// or more backticks; the inner content may use fewer backticks than the
// fence, and becomes the command text.
func matchCommandDirective(segment string, pos int, baseOffset int) (Directive, int, bool) {
	rest := segment[pos+1:]
	if rest == "" || rest[0] != '`' {
		return Directive{}, 0, false
	}
	fenceLen := 0
	for fenceLen < len(rest) && rest[fenceLen] == '`' {
		fenceLen++
	}
	fence := strings.Repeat("`", fenceLen)
	body := rest[fenceLen:]
	closeIdx := strings.Index(body, fence)
	if closeIdx == -1 {
		return Directive{}, 0, false
	}
	content := body[:closeIdx]
	original := "!" + fence + content + fence
	return Directive{
		Kind:        KindCommand,
		Index:       baseOffset + pos,
		Original:    original,
		CommandText: strings.TrimSpace(content),
	}, len(original), true
}

// execFenceDirective determines whether a top-level fenced block is an
// executable code fence: its first code line starts with "#!".
func execFenceDirective(body string, fb fenceBlock) (Directive, bool) {
	if !fb.HasCode {
		return Directive{}, false
	}
	if !strings.HasPrefix(strings.TrimLeft(fb.CodeFirst, " \t"), "#!") {
		return Directive{}, false
	}
	return Directive{
		Kind:       KindExecFence,
		Index:      fb.Start,
		Original:   body[fb.Start:fb.End],
		InfoString: fb.InfoString,
		Shebang:    strings.TrimLeft(fb.CodeFirst, " \t"),
		Code:       fb.CodeRest,
	}, true
}

// Language extracts the first whitespace-delimited token of the fenced
// block's info string, used by the executor to choose a file extension.
func Language(infoString string) string {
	fields := strings.Fields(infoString)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
