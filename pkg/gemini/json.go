package gemini

import (
	"regexp"
	"strings"
)

var codeFence = regexp.MustCompile("```(?:json|JSON)?\\s*([\\s\\S]*?)```")

// CleanJSON extracts the JSON payload from a model reply that may be wrapped
// in code fences or surrounded by prose.
func CleanJSON(s string) string {
	if m := codeFence.FindStringSubmatch(s); len(m) > 1 {
		s = m[1]
	}
	s = strings.TrimSpace(s)

	start := strings.IndexAny(s, "[{")
	if start == -1 {
		return s
	}
	open := rune(s[start])
	closeCh := ']'
	if open == '{' {
		closeCh = '}'
	}
	if end := matchingBracket(s, start, open, closeCh); end != -1 {
		return sanitizeNewlines(s[start : end+1])
	}

	// Unbalanced; keep everything up to the last closer and let the decoder decide.
	end := strings.LastIndexAny(s, "]}")
	if end < start {
		return s[start:]
	}
	return sanitizeNewlines(s[start : end+1])
}

// matchingBracket returns the index of the bracket closing the one at start,
// ignoring brackets inside strings. -1 if none.
func matchingBracket(s string, start int, open, closeCh rune) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := rune(s[i])
		switch {
		case escaped:
			escaped = false
		case ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == open:
			depth++
		case ch == closeCh:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// sanitizeNewlines escapes raw newlines that models leave inside string literals.
func sanitizeNewlines(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case inString && ch == '\n':
			b.WriteString(`\n`)
			continue
		case inString && ch == '\r':
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}
