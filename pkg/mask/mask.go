// Package mask replaces personal data with opaque tokens before text leaves
// the process and puts it back afterwards.
package mask

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/DerwenAI/dylifo/pkg/vocabulary"
)

// Kind names the field a masked value came from. It becomes the token prefix.
type Kind string

const (
	KindEntityName Kind = "ENTITY_NAME"
	KindDataSource Kind = "DATA_SOURCE"
)

var tokenPattern = regexp.MustCompile(`[A-Z_]+_\d+`)

// Masker holds the token table of one run. The zero value is not usable;
// call New.
type Masker struct {
	mu      sync.Mutex
	counts  map[Kind]int
	byValue map[Kind]map[string]string
	values  map[string]string
}

func New() *Masker {
	return &Masker{
		counts:  map[Kind]int{},
		byValue: map[Kind]map[string]string{},
		values:  map[string]string{},
	}
}

// Mask returns the token for value, allocating KIND_N on first sight.
func (m *Masker) Mask(kind Kind, value string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen, ok := m.byValue[kind]
	if !ok {
		seen = map[string]string{}
		m.byValue[kind] = seen
	}
	if token, ok := seen[value]; ok {
		return token
	}

	m.counts[kind]++
	token := fmt.Sprintf("%s_%d", kind, m.counts[kind])
	seen[value] = token
	m.values[token] = value
	return token
}

// Unmask substitutes the original values for every known token in text.
// Unknown tokens are left as they are.
func (m *Masker) Unmask(text string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return tokenPattern.ReplaceAllStringFunc(text, func(token string) string {
		if value, ok := m.values[token]; ok {
			return value
		}
		return token
	})
}

// Len returns the number of distinct masked values.
func (m *Masker) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.values)
}

// Facts returns a copy of facts with names and datasets masked.
func (m *Masker) Facts(facts []vocabulary.RelationshipFact) []vocabulary.RelationshipFact {
	out := make([]vocabulary.RelationshipFact, len(facts))
	for i, f := range facts {
		out[i] = vocabulary.RelationshipFact{
			EntityA:    m.Mask(KindEntityName, f.EntityA),
			EntityB:    m.Mask(KindEntityName, f.EntityB),
			Attribute:  f.Attribute,
			DataSource: m.Mask(KindDataSource, f.DataSource),
		}
	}
	return out
}
