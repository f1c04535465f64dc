package rubric

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// ContextRadius is the number of characters kept on each side of a match.
const ContextRadius = 30

// Pattern matches either a literal substring or a regular expression against
// lower-cased text. Label identifies the pattern in comments and examples.
type Pattern struct {
	Label   string
	literal string
	re      *regexp.Regexp
}

// Literal builds a substring pattern. The literal is lower-cased.
func Literal(s string) Pattern {
	s = strings.ToLower(s)
	return Pattern{Label: s, literal: s}
}

// Literals builds one substring pattern per argument, preserving order.
func Literals(ss ...string) []Pattern {
	out := make([]Pattern, len(ss))
	for i, s := range ss {
		out[i] = Literal(s)
	}
	return out
}

// Regexp builds a regular expression pattern. Panics if expr does not compile.
func Regexp(label, expr string) Pattern {
	return Pattern{Label: label, re: regexp.MustCompile(expr)}
}

// find returns the byte ranges of every non-overlapping match in text, in order.
func (p Pattern) find(text string) [][]int {
	if p.re != nil {
		return p.re.FindAllStringIndex(text, -1)
	}
	if p.literal == "" {
		return nil
	}

	var out [][]int
	for offset := 0; offset < len(text); {
		i := strings.Index(text[offset:], p.literal)
		if i < 0 {
			break
		}
		start := offset + i
		end := start + len(p.literal)
		out = append(out, []int{start, end})
		offset = end
	}
	return out
}

// snippet returns text[start:end] widened by ContextRadius runes on each side,
// with whitespace collapsed and an ellipsis marking truncation.
func snippet(text string, start, end int) string {
	from := start
	for n := 0; n < ContextRadius && from > 0; n++ {
		_, size := utf8.DecodeLastRuneInString(text[:from])
		from -= size
	}

	to := end
	for n := 0; n < ContextRadius && to < len(text); n++ {
		_, size := utf8.DecodeRuneInString(text[to:])
		to += size
	}

	s := strings.Join(strings.Fields(text[from:to]), " ")
	if from > 0 {
		s = "..." + s
	}
	if to < len(text) {
		s += "..."
	}
	return s
}
