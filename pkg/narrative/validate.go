package narrative

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/DerwenAI/dylifo/pkg/vocabulary"
)

// ValidationError names the first rule a narrative breaks.
type ValidationError struct {
	Rule   string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return e.Rule
	}
	return fmt.Sprintf("%s: %s", e.Rule, e.Detail)
}

// BannedPhrases frame a result as suspicious overlap and are never allowed.
var BannedPhrases = []string{
	"network of relationships",
	"potential relationship",
	"shared identifying information",
	"similar identifying information",
	"indicating overlap",
}

var (
	bannedPatterns = compilePhrases(BannedPhrases)

	reRawCode    = regexp.MustCompile(`\b(NAME|ADDRESS|DOB|DRLIC|EMAIL|SURNAME)\b`)
	reMatchLevel = regexp.MustCompile(`\b(RESOLVED|POSSIBLY_SAME|POSSIBLY_RELATED|NAME_ONLY|DISCLOSED)\b`)
	reConfidence = regexp.MustCompile(`(?i)\b(match[\s_-]*levels?|match[\s_-]*scores?|match[\s_-]*keys?|confidence|likelihood|probability)\b`)
)

func compilePhrases(phrases []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(phrases))
	for _, p := range phrases {
		words := strings.Fields(p)
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		out = append(out, regexp.MustCompile(`(?i)\b`+strings.Join(words, `\s+`)+`\b`))
	}
	return out
}

// Validate checks text against the narrative rules for facts and returns a
// *ValidationError for the first violation.
func Validate(text string, facts []vocabulary.RelationshipFact) error {
	if strings.TrimSpace(text) == "" {
		return &ValidationError{Rule: "empty summary"}
	}

	for i, re := range bannedPatterns {
		if re.MatchString(text) {
			return &ValidationError{Rule: "banned phrase", Detail: BannedPhrases[i]}
		}
	}

	names := factNames(facts)
	sources := factSources(facts)

	// names and labels may legitimately contain upper case words
	rest := text
	for _, n := range names {
		rest = strings.ReplaceAll(rest, "**"+n+"**", " ")
	}
	for _, n := range names {
		if containsWord(rest, n) {
			return &ValidationError{Rule: "entity name not in bold", Detail: n}
		}
	}
	for _, s := range sources {
		rest = strings.ReplaceAll(rest, s, " ")
	}

	if m := reRawCode.FindString(rest); m != "" {
		return &ValidationError{Rule: "raw match key code", Detail: m}
	}
	if m := reMatchLevel.FindString(rest); m != "" {
		return &ValidationError{Rule: "match level mentioned", Detail: m}
	}
	if m := reConfidence.FindString(rest); m != "" {
		return &ValidationError{Rule: "confidence mentioned", Detail: m}
	}

	for _, n := range names {
		if !strings.Contains(text, "**"+n+"**") {
			return &ValidationError{Rule: "entity name missing", Detail: n}
		}
	}
	for _, s := range sources {
		if !strings.Contains(text, s) {
			return &ValidationError{Rule: "dataset missing", Detail: s}
		}
	}
	lower := strings.ToLower(strings.ReplaceAll(text, "’", "'"))
	for _, a := range factAttributes(facts) {
		if !strings.Contains(lower, strings.ToLower(a)) {
			return &ValidationError{Rule: "attribute missing", Detail: a}
		}
	}
	return nil
}

func containsWord(text, word string) bool {
	re := regexp.MustCompile(`(^|[^\pL\pN])` + regexp.QuoteMeta(word) + `($|[^\pL\pN])`)
	return re.MatchString(text)
}

// factNames returns distinct names, longest first so that "Bob Jones" is
// handled before "Bob".
func factNames(facts []vocabulary.RelationshipFact) []string {
	names := distinct(facts, func(f vocabulary.RelationshipFact) []string {
		return []string{f.EntityA, f.EntityB}
	})
	sort.SliceStable(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })
	return names
}

func factSources(facts []vocabulary.RelationshipFact) []string {
	sources := distinct(facts, func(f vocabulary.RelationshipFact) []string {
		return []string{f.DataSource}
	})
	sort.SliceStable(sources, func(i, j int) bool { return len(sources[i]) > len(sources[j]) })
	return sources
}

func factAttributes(facts []vocabulary.RelationshipFact) []string {
	return distinct(facts, func(f vocabulary.RelationshipFact) []string {
		return []string{f.Attribute}
	})
}

func distinct(facts []vocabulary.RelationshipFact, fields func(vocabulary.RelationshipFact) []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, f := range facts {
		for _, v := range fields(f) {
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
