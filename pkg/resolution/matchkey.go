package resolution

import (
	"regexp"
	"strings"
)

// MatchKeyPart is one component of a MATCH_KEY such as "+ADDRESS" or
// "-DOB(PRIMARY)".
type MatchKeyPart struct {
	Shared    bool
	Code      string
	Qualifier string
}

var matchKeyPart = regexp.MustCompile(`([+-])([A-Z][A-Z0-9_]*)(?:\(([^)]*)\))?`)

// ParseMatchKey splits a MATCH_KEY into its components. Text outside the
// grammar makes the whole key invalid.
func ParseMatchKey(key string) ([]MatchKeyPart, error) {
	key = strings.Join(strings.Fields(key), "")
	if key == "" {
		return nil, malformed("empty MATCH_KEY")
	}

	parts := []MatchKeyPart{}
	pos := 0
	for _, m := range matchKeyPart.FindAllStringSubmatchIndex(key, -1) {
		if m[0] != pos {
			return nil, malformed("invalid MATCH_KEY %q", key)
		}
		part := MatchKeyPart{
			Shared: key[m[2]:m[3]] == "+",
			Code:   key[m[4]:m[5]],
		}
		if m[6] >= 0 {
			part.Qualifier = key[m[6]:m[7]]
		}
		parts = append(parts, part)
		pos = m[1]
	}
	if pos != len(key) {
		return nil, malformed("invalid MATCH_KEY %q", key)
	}
	return parts, nil
}

// SharedCodes returns the distinct "+" codes of a MATCH_KEY in order.
func SharedCodes(key string) ([]string, error) {
	parts, err := ParseMatchKey(key)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	codes := []string{}
	for _, p := range parts {
		if !p.Shared || seen[p.Code] {
			continue
		}
		seen[p.Code] = true
		codes = append(codes, p.Code)
	}
	return codes, nil
}
