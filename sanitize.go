package textgrad

import (
	"strings"
	"unicode/utf8"
)

const (
	proposedOpen  = "<proposed_variable>"
	proposedClose = "</proposed_variable>"
)

var quotePairs = [][2]string{
	{`"`, `"`},
	{`'`, `'`},
	{"`", "`"},
	{"“", "”"},
}

// Sanitize cleans a rewrite returned by the teacher. When the reply holds a
// <proposed_variable> block only its content is kept; surrounding whitespace
// and matching wrapping quotes are then removed until nothing changes. Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(text string) string {
	for {
		next := sanitizeOnce(text)
		if next == text {
			return text
		}
		text = next
	}
}

func sanitizeOnce(text string) string {
	text = strings.TrimSpace(text)
	if inner, ok := proposedSpan(text); ok {
		return inner
	}
	for _, q := range quotePairs {
		if len(text) >= len(q[0])+len(q[1]) && strings.HasPrefix(text, q[0]) && strings.HasSuffix(text, q[1]) {
			return text[len(q[0]) : len(text)-len(q[1])]
		}
	}
	return text
}

// proposedSpan returns the text of the first <proposed_variable> block,
// dropping anything the teacher wrote around it.
func proposedSpan(text string) (string, bool) {
	start := strings.Index(text, proposedOpen)
	if start < 0 {
		return "", false
	}
	rest := text[start+len(proposedOpen):]
	end := strings.Index(rest, proposedClose)
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

// Excerpt cuts text to at most n runes, appending "..." only when something
// was cut.
func Excerpt(text string, n int) string {
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n]) + "..."
}
