package directive

import "strings"

// byteRange is a half-open [Start, End) byte span.
type byteRange struct {
	Start, End int
}

// fenceBlock records a top-level fenced code block's span and parsed parts.
type fenceBlock struct {
	Start, End   int // End is exclusive, after the closing fence line (or EOF)
	InfoString   string
	CodeFirst    string // first line of code content (candidate shebang line)
	CodeRest     string // remaining code lines joined by "\n"
	HasCode      bool
}

// scanResult is the output of the single-pass classification scan.
type scanResult struct {
	safe    []byteRange
	fences  []fenceBlock
}

// scan performs the context-aware safe-range classification described in
// §4.2: a left-to-right pass over the body that tracks fenced-code and
// inline-code context, emitting maximal "normal" (safe) ranges and the
// list of top-level fenced code blocks (candidates for ExecFence).
func scan(body string) scanResult {
	var res scanResult
	n := len(body)

	lineStart := 0
	inFence := false
	var fenceChar byte
	var fenceLen int
	var curFence fenceBlock
	var codeLines []string

	safeStart := 0 // start of the current open safe range; meaningful only while inSafe
	inSafe := true

	closeSafe := func(end int) {
		if inSafe && end > safeStart {
			res.safe = append(res.safe, byteRange{safeStart, end})
		}
		inSafe = false
	}
	openSafe := func(start int) {
		safeStart = start
		inSafe = true
	}

	for lineStart <= n {
		lineEnd := indexByteFrom(body, lineStart, '\n')
		var lineEndExcl int // end of line content, excluding newline
		var nextLineStart int
		if lineEnd == -1 {
			lineEndExcl = n
			nextLineStart = n + 1 // terminate loop after this iteration
		} else {
			lineEndExcl = lineEnd
			nextLineStart = lineEnd + 1
		}
		line := body[lineStart:lineEndExcl]

		if inFence {
			if isClosingFence(line, fenceChar, fenceLen) {
				inFence = false
				curFence.End = minInt(nextLineStart, n)
				curFence.CodeFirst, curFence.CodeRest, curFence.HasCode = splitCode(codeLines)
				res.fences = append(res.fences, curFence)
				codeLines = nil
				openSafe(curFence.End)
			} else {
				codeLines = append(codeLines, line)
			}
		} else {
			if ch, length, info, ok := openingFence(line); ok {
				closeSafe(lineStart)
				inFence = true
				fenceChar = ch
				fenceLen = length
				curFence = fenceBlock{Start: lineStart, InfoString: info}
				codeLines = nil
			} else {
				scanInlineCode(body, lineStart, lineEndExcl, &res, closeSafe, openSafe, &inSafe)
			}
		}

		if lineEnd == -1 {
			break
		}
		lineStart = nextLineStart
	}

	closeSafe(n)
	if inFence {
		// Unterminated fence: treat remainder of the document as unsafe,
		// matching "fenced block" semantics with an implicit EOF close.
		curFence.End = n
		curFence.CodeFirst, curFence.CodeRest, curFence.HasCode = splitCode(codeLines)
		res.fences = append(res.fences, curFence)
	}
	return res
}

// scanInlineCode walks a normal-context line looking for single-backtick
// inline code spans; newline always resets to normal (handled by the
// caller, since this only ever sees one line at a time).
func scanInlineCode(body string, lineStart, lineEndExcl int, res *scanResult, closeSafe func(int), openSafe func(int), inSafe *bool) {
	i := lineStart
	for i < lineEndExcl {
		if body[i] == '`' {
			if i > lineStart && body[i-1] == '!' {
				if end, ok := commandSpanEnd(body, i, lineEndExcl); ok {
					// "!`...`" is a command directive, not inline code: stays
					// inside the current safe range for matchCommandDirective.
					i = end
					continue
				}
			}
			closeSafe(i)
			// find the closing backtick on the same line
			j := indexByteFrom(body, i+1, '`')
			if j == -1 || j >= lineEndExcl {
				// unterminated inline code on this line: rest of line is unsafe
				openSafe(lineEndExcl)
				return
			}
			i = j + 1
			openSafe(i)
			continue
		}
		i++
	}
}

// commandSpanEnd reports the end of a "`...`" fence opening at i (a
// backtick run immediately preceded by '!') if a same-line closing fence
// of equal backtick count exists, per the command-directive grammar in
// matchCommandDirective.
func commandSpanEnd(body string, i, lineEndExcl int) (int, bool) {
	j := i
	for j < lineEndExcl && body[j] == '`' {
		j++
	}
	fence := body[i:j]
	closeIdx := strings.Index(body[j:lineEndExcl], fence)
	if closeIdx == -1 {
		return 0, false
	}
	return j + closeIdx + len(fence), true
}

// openingFence reports whether line opens a fenced code block: up to 3
// leading spaces, then >=3 consecutive backticks or tildes, followed by
// an info string (which must not itself contain the fence character for
// backtick fences).
func openingFence(line string) (ch byte, length int, info string, ok bool) {
	i := 0
	spaces := 0
	for i < len(line) && line[i] == ' ' && spaces < 3 {
		i++
		spaces++
	}
	if i >= len(line) {
		return 0, 0, "", false
	}
	c := line[i]
	if c != '`' && c != '~' {
		return 0, 0, "", false
	}
	start := i
	for i < len(line) && line[i] == c {
		i++
	}
	count := i - start
	if count < 3 {
		return 0, 0, "", false
	}
	rest := line[i:]
	if c == '`' && strings.ContainsRune(rest, '`') {
		// backtick fences cannot have a backtick in the info string
		return 0, 0, "", false
	}
	return c, count, strings.TrimSpace(rest), true
}

// isClosingFence reports whether line closes a fence of the given
// character and opening length: it must start with at least as many
// fence characters of the same kind (optionally after up to 3 leading
// spaces).
func isClosingFence(line string, ch byte, length int) bool {
	i := 0
	spaces := 0
	for i < len(line) && line[i] == ' ' && spaces < 3 {
		i++
		spaces++
	}
	count := 0
	for i < len(line) && line[i] == ch {
		i++
		count++
	}
	return count >= length
}

func splitCode(lines []string) (first, rest string, has bool) {
	if len(lines) == 0 {
		return "", "", false
	}
	return lines[0], strings.Join(lines[1:], "\n"), true
}

func indexByteFrom(s string, from int, b byte) int {
	if from >= len(s) {
		return -1
	}
	idx := strings.IndexByte(s[from:], b)
	if idx == -1 {
		return -1
	}
	return from + idx
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
