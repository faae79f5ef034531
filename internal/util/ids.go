package util

import (
	"regexp"
	"strings"
	"unicode"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	reBoldPadded = regexp.MustCompile(`\*\*[ \t]*([^*\n]*?)[ \t]*\*\*`)
	reBoldUnder  = regexp.MustCompile(`__([^_\n]+)__`)
	reBoldToken  = regexp.MustCompile(`\*\*([^*\n]+)\*\*`)
)

// NewID returns a fresh 21 character nanoid.
func NewID() (string, error) {
	return gonanoid.New()
}

// IsID reports whether s looks like an ID produced by NewID.
func IsID(s string) bool {
	if len(s) != 21 {
		return false
	}
	for _, r := range s {
		if !(r == '_' || r == '-' || (r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)))) {
			return false
		}
	}
	return true
}

// NormalizeBold rewrites bold markup to the canonical **Name** form:
// "__Name__" and "** Name **" both become "**Name**", and a name repeated
// back to back in bold is written once.
func NormalizeBold(s string) string {
	s = reBoldUnder.ReplaceAllString(s, "**$1**")
	s = reBoldPadded.ReplaceAllString(s, "**$1**")
	return dedupeAdjacentBold(s)
}

func dedupeAdjacentBold(s string) string {
	matches := reBoldToken.FindAllStringSubmatchIndex(s, -1)
	if len(matches) < 2 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	cursor := 0

	for mi := 0; mi < len(matches); mi++ {
		m := matches[mi]
		start, end := m[0], m[1]
		name := s[m[2]:m[3]]

		b.WriteString(s[cursor:start])

		dupEnd := end
		next := mi + 1
		for next < len(matches) {
			sep := s[dupEnd:matches[next][0]]
			if !onlyWhitespace(sep) {
				break
			}
			if s[matches[next][2]:matches[next][3]] != name {
				break
			}
			dupEnd = matches[next][1]
			next++
		}

		b.WriteString(s[start:end])
		cursor = dupEnd
		mi = next - 1
	}

	if cursor < len(s) {
		b.WriteString(s[cursor:])
	}
	return b.String()
}

func onlyWhitespace(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
