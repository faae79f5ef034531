// Package resolution turns entity resolution output into an immutable
// ResolutionGraph of entities and the attribute links between them.
package resolution

import "fmt"

// SourceCount is the number of records an entity holds in one dataset.
type SourceCount struct {
	DataSource  string `json:"data_source"`
	RecordCount int    `json:"record_count"`
}

// Entity is one resolved identity.
type Entity struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Records []SourceCount `json:"records,omitempty"`
}

// MatchLink records that two entities share one attribute kind in one
// dataset. A is always less than B.
type MatchLink struct {
	A          string `json:"a"`
	B          string `json:"b"`
	Kind       string `json:"kind"`
	DataSource string `json:"data_source"`
	// MatchLevel is kept for diagnostics and never surfaced in narratives.
	MatchLevel string `json:"match_level,omitempty"`
}

// EntitySourceRow lists which dataset an entity's records came from.
type EntitySourceRow struct {
	Entity      string `json:"entity"`
	DataSource  string `json:"data_source"`
	RecordCount int    `json:"record_count"`
}

// ResolutionGraph holds entities in document order and the links between
// them. It is never mutated after construction.
type ResolutionGraph struct {
	Entities []Entity    `json:"entities"`
	Links    []MatchLink `json:"links"`

	index  map[string]int
	labels map[string]string
}

// newGraph indexes entities. A nil labels map is derived from entities;
// components pass their parent's so labels agree across the split.
func newGraph(entities []Entity, links []MatchLink, labels map[string]string) *ResolutionGraph {
	g := &ResolutionGraph{
		Entities: entities,
		Links:    links,
		index:    make(map[string]int, len(entities)),
		labels:   labels,
	}
	for i, e := range entities {
		g.index[e.ID] = i
	}
	if g.labels == nil {
		g.labels = uniqueLabels(entities)
	}
	return g
}

// uniqueLabels maps each ID to its name, suffixed with the ID when another
// entity carries the same name.
func uniqueLabels(entities []Entity) map[string]string {
	count := map[string]int{}
	for _, e := range entities {
		count[e.Name]++
	}
	labels := make(map[string]string, len(entities))
	for _, e := range entities {
		if count[e.Name] > 1 {
			labels[e.ID] = fmt.Sprintf("%s (%s)", e.Name, e.ID)
		} else {
			labels[e.ID] = e.Name
		}
	}
	return labels
}

// Entity looks up an entity by ID.
func (g *ResolutionGraph) Entity(id string) (Entity, bool) {
	i, ok := g.index[id]
	if !ok {
		return Entity{}, false
	}
	return g.Entities[i], true
}

// Name returns the display name of id, or a placeholder for unknown IDs.
func (g *ResolutionGraph) Name(id string) string {
	if e, ok := g.Entity(id); ok {
		return e.Name
	}
	return placeholderName(id)
}

// Label returns a name for id that no other entity in the document shares.
func (g *ResolutionGraph) Label(id string) string {
	if l, ok := g.labels[id]; ok {
		return l
	}
	return g.Name(id)
}

// Components splits the graph into connected components over its links.
// Components are ordered by their first entity in document order and
// entities without links form components of their own.
func (g *ResolutionGraph) Components() []*ResolutionGraph {
	parent := make([]int, len(g.Entities))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	for _, l := range g.Links {
		a, b := find(g.index[l.A]), find(g.index[l.B])
		if a == b {
			continue
		}
		// smaller index wins so the root is the earliest entity
		if a < b {
			parent[b] = a
		} else {
			parent[a] = b
		}
	}

	order := []int{}
	members := map[int][]Entity{}
	for i, e := range g.Entities {
		root := find(i)
		if _, seen := members[root]; !seen {
			order = append(order, root)
		}
		members[root] = append(members[root], e)
	}
	links := map[int][]MatchLink{}
	for _, l := range g.Links {
		root := find(g.index[l.A])
		links[root] = append(links[root], l)
	}

	out := make([]*ResolutionGraph, 0, len(order))
	for _, root := range order {
		out = append(out, newGraph(members[root], links[root], g.labels))
	}
	return out
}

// Rows returns one row per entity and dataset, in document order.
func (g *ResolutionGraph) Rows() []EntitySourceRow {
	rows := []EntitySourceRow{}
	for _, e := range g.Entities {
		for _, rc := range e.Records {
			rows = append(rows, EntitySourceRow{
				Entity:      e.Name,
				DataSource:  rc.DataSource,
				RecordCount: rc.RecordCount,
			})
		}
	}
	return rows
}

func placeholderName(id string) string {
	return fmt.Sprintf("Entity %s", id)
}
