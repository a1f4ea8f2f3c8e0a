// Package parse extracts comparable answers from raw model output.
package parse

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Parser extracts an answer. The boolean is false when none was found.
type Parser func(raw string) (string, bool)

func (p Parser) Parse(raw string) (string, bool) {
	return p(raw)
}

var (
	bracketRe = regexp.MustCompile(`\[\[\s*([-+]?[\d,]*\.?\d+)\s*\]\]`)
	numberRe  = regexp.MustCompile(`[-+]?\d[\d,]*(?:\.\d+)?|[-+]?\.\d+`)
)

// Normalize is the form both sides of an answer comparison are reduced to:
// trimmed, lower case, thousands separators removed.
func Normalize(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
}

// Bracketed reads the first [[N]] marker.
var Bracketed Parser = func(raw string) (string, bool) {
	m := bracketRe.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return strings.ReplaceAll(m[1], ",", ""), true
}

// Numeric reads the first [[N]] marker and falls back to the last number in
// the text.
var Numeric Parser = func(raw string) (string, bool) {
	if ans, ok := Bracketed(raw); ok {
		return ans, true
	}
	all := numberRe.FindAllString(raw, -1)
	if len(all) == 0 {
		return "", false
	}
	return strings.ReplaceAll(all[len(all)-1], ",", ""), true
}

// Exact uses the whole trimmed output as the answer.
var Exact Parser = func(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	return s, s != ""
}

var parsers = map[string]Parser{
	"numeric":   Numeric,
	"bracketed": Bracketed,
	"exact":     Exact,
}

// ByName returns a registered parser.
func ByName(name string) (Parser, error) {
	p, ok := parsers[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown answer parser %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return p, nil
}

func Names() []string {
	names := make([]string, 0, len(parsers))
	for name := range parsers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
