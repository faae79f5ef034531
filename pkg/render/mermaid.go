// Package render draws a ResolutionGraph for display.
package render

import (
	"fmt"
	"strings"

	"github.com/DerwenAI/dylifo/pkg/resolution"
	"github.com/DerwenAI/dylifo/pkg/vocabulary"
)

var labelEscaper = strings.NewReplacer(`"`, "#quot;", "\n", " ", "|", "#124;")

// Mermaid returns a left-to-right Mermaid flowchart with one node per
// entity and one edge per distinct pair, attribute and dataset.
func Mermaid(g *resolution.ResolutionGraph) (string, error) {
	var b strings.Builder
	b.WriteString("graph LR\n")

	nodes := make(map[string]string, len(g.Entities))
	for i, e := range g.Entities {
		node := fmt.Sprintf("e%d", i)
		nodes[e.ID] = node
		fmt.Fprintf(&b, "    %s[\"%s\"]\n", node, labelEscaper.Replace(g.Label(e.ID)))
	}

	seen := map[resolution.MatchLink]bool{}
	for _, l := range g.Links {
		key := resolution.MatchLink{A: l.A, B: l.B, Kind: l.Kind, DataSource: l.DataSource}
		if seen[key] {
			continue
		}
		seen[key] = true

		phrase, err := vocabulary.Phrase(l.Kind)
		if err != nil {
			return "", err
		}
		label := labelEscaper.Replace(fmt.Sprintf("%s (%s)", phrase, l.DataSource))
		fmt.Fprintf(&b, "    %s ---|\"%s\"| %s\n", nodes[l.A], label, nodes[l.B])
	}
	return b.String(), nil
}
