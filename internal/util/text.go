package util

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	reEscapeLiteral = regexp.MustCompile(`\\[nrt]`)
	reSpaceRun      = regexp.MustCompile(`[\s\p{Zs}]+`)
)

// ScrubText turns model output into a single clean paragraph. It drops
// invalid UTF-8 and NUL bytes, replaces real and backslash-escaped control
// characters with spaces, applies NFKC and collapses whitespace.
func ScrubText(value string) string {
	if value == "" {
		return value
	}

	s := strings.ToValidUTF8(value, "")
	s = strings.ReplaceAll(s, "\x00", "")
	s = reEscapeLiteral.ReplaceAllString(s, " ")
	s = norm.NFKC.String(s)
	s = reSpaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// NormalizeName puts a display name or dataset label in the form ScrubText
// leaves it in, so names survive a round trip through model output.
func NormalizeName(value string) string {
	s := norm.NFKC.String(value)
	s = reSpaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
