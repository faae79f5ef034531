// Package vocabulary translates match-key codes into the fixed phrases used
// in narratives and turns graph links into RelationshipFacts.
package vocabulary

import (
	"fmt"

	"github.com/DerwenAI/dylifo/pkg/resolution"
)

var phrases = map[string]string{
	"NAME":    "name",
	"ADDRESS": "address",
	"DOB":     "date of birth",
	"DRLIC":   "driver's license number",
	"EMAIL":   "email",
	"SURNAME": "surname",
}

// codes keeps the table in a fixed order for Phrases.
var codes = []string{"NAME", "ADDRESS", "DOB", "DRLIC", "EMAIL", "SURNAME"}

// RelationshipFact states that two named entities share one attribute in
// one dataset.
type RelationshipFact struct {
	EntityA    string `json:"entity_a"`
	EntityB    string `json:"entity_b"`
	Attribute  string `json:"attribute"`
	DataSource string `json:"data_source"`
}

// Code pairs a match-key code with its phrase.
type Code struct {
	Code   string `json:"code"`
	Phrase string `json:"phrase"`
}

// VocabularyError reports a match-key code with no phrase.
type VocabularyError struct {
	Code string
}

func (e *VocabularyError) Error() string {
	return fmt.Sprintf("unknown match key code %q", e.Code)
}

// Phrase returns the phrase for code.
func Phrase(code string) (string, error) {
	p, ok := phrases[code]
	if !ok {
		return "", &VocabularyError{Code: code}
	}
	return p, nil
}

// Phrases returns the whole table in a stable order.
func Phrases() []Code {
	out := make([]Code, 0, len(codes))
	for _, c := range codes {
		out = append(out, Code{Code: c, Phrase: phrases[c]})
	}
	return out
}

type linkKey struct {
	a, b, kind, dataSource string
}

// Translate returns one fact per distinct (pair, kind, dataset) in link
// order. Pairs are told apart by entity ID, and entities sharing a display
// name are named by their unique labels. The first unknown code fails the
// whole translation.
func Translate(g *resolution.ResolutionGraph) ([]RelationshipFact, error) {
	facts := []RelationshipFact{}
	seen := map[linkKey]bool{}

	for _, l := range g.Links {
		attr, err := Phrase(l.Kind)
		if err != nil {
			return nil, err
		}
		key := linkKey{l.A, l.B, l.Kind, l.DataSource}
		if seen[key] {
			continue
		}
		seen[key] = true
		facts = append(facts, RelationshipFact{
			EntityA:    g.Label(l.A),
			EntityB:    g.Label(l.B),
			Attribute:  attr,
			DataSource: l.DataSource,
		})
	}
	return facts, nil
}
