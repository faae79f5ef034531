package resolution

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/DerwenAI/dylifo/internal/util"
	"github.com/DerwenAI/dylifo/pkg/loader"
	"github.com/DerwenAI/dylifo/pkg/logger"

	"github.com/kaptinlin/jsonrepair"
)

// Normalize returns strict JSON for raw. Strict input passes through
// untouched and anything else is handed to jsonrepair, which fixes
// comments, trailing commas, single quotes, unquoted keys and Python
// literals.
func Normalize(raw []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, malformed("empty document")
	}
	if json.Valid(trimmed) {
		return trimmed, nil
	}

	repaired, err := jsonrepair.JSONRepair(string(trimmed))
	if err != nil {
		return nil, &MalformedResultError{Reason: "not repairable as JSON", Err: err}
	}
	logger.Debug("[Resolution] repaired non-strict JSON input")
	return []byte(repaired), nil
}

// flexString accepts a JSON string or number.
type flexString struct {
	set   bool
	value string
}

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		f.set, f.value = true, strings.TrimSpace(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	f.set, f.value = true, n.String()
	return nil
}

type rawRecord struct {
	DataSource string `json:"DATA_SOURCE"`
}

type rawSummary struct {
	DataSource  string `json:"DATA_SOURCE"`
	RecordCount int    `json:"RECORD_COUNT"`
}

type rawEntity struct {
	ID             flexString   `json:"ENTITY_ID"`
	Name           string       `json:"ENTITY_NAME"`
	MatchKey       *string      `json:"MATCH_KEY"`
	MatchLevel     flexString   `json:"MATCH_LEVEL"`
	MatchLevelCode string       `json:"MATCH_LEVEL_CODE"`
	Records        []rawRecord  `json:"RECORDS"`
	RecordSummary  []rawSummary `json:"RECORD_SUMMARY"`
}

type rawDocument struct {
	Resolved *rawEntity  `json:"RESOLVED_ENTITY"`
	Related  []rawEntity `json:"RELATED_ENTITIES"`
}

// Parse normalizes raw and builds the graph of the resolved entity and its
// related entities.
func Parse(raw []byte) (*ResolutionGraph, error) {
	normalized, err := Normalize(raw)
	if err != nil {
		return nil, err
	}

	var doc rawDocument
	if err := json.Unmarshal(normalized, &doc); err != nil {
		return nil, &MalformedResultError{Reason: "unexpected document shape", Err: err}
	}
	if doc.Resolved == nil {
		return nil, malformed("missing RESOLVED_ENTITY")
	}
	if !doc.Resolved.ID.set || doc.Resolved.ID.value == "" {
		return nil, malformed("RESOLVED_ENTITY has no ENTITY_ID")
	}

	root := toEntity(doc.Resolved)
	entities := []Entity{root}
	seen := map[string]bool{root.ID: true}
	links := []MatchLink{}

	for i := range doc.Related {
		rel := &doc.Related[i]
		if !rel.ID.set || rel.ID.value == "" {
			return nil, malformed("related entity %d has no ENTITY_ID", i)
		}
		id := rel.ID.value
		if id == root.ID {
			return nil, malformed("related entity %s links to itself", id)
		}
		if rel.MatchKey == nil {
			return nil, malformed("related entity %s has no MATCH_KEY", id)
		}
		codes, err := SharedCodes(*rel.MatchKey)
		if err != nil {
			return nil, err
		}

		entity := toEntity(rel)
		if len(entity.Records) == 0 {
			return nil, malformed("related entity %s has no DATA_SOURCE", id)
		}
		if !seen[id] {
			seen[id] = true
			entities = append(entities, entity)
		}

		a, b := root.ID, id
		if b < a {
			a, b = b, a
		}
		for _, code := range codes {
			for _, rc := range entity.Records {
				links = append(links, MatchLink{
					A:          a,
					B:          b,
					Kind:       code,
					DataSource: rc.DataSource,
					MatchLevel: rel.MatchLevel.value,
				})
			}
		}
	}

	logger.Debug("[Resolution] parsed document",
		"entities", len(entities),
		"links", len(links),
	)
	return newGraph(entities, links, nil), nil
}

// Load fetches path through l and parses it.
func Load(ctx context.Context, l loader.DocumentLoader, path string) (*ResolutionGraph, error) {
	raw, err := l.GetDocument(ctx, loader.Document{Path: path})
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// toEntity collects per-dataset record counts, preferring RECORD_SUMMARY
// over counting RECORDS. Names and dataset labels are normalized the same
// way model replies are.
func toEntity(r *rawEntity) Entity {
	e := Entity{
		ID:   r.ID.value,
		Name: util.NormalizeName(r.Name),
	}
	if e.Name == "" {
		e.Name = placeholderName(e.ID)
	}

	counts := map[string]int{}
	order := []string{}
	add := func(ds string, n int) {
		ds = util.NormalizeName(ds)
		if ds == "" {
			return
		}
		if _, ok := counts[ds]; !ok {
			order = append(order, ds)
		}
		counts[ds] += n
	}

	if len(r.RecordSummary) > 0 {
		for _, s := range r.RecordSummary {
			add(s.DataSource, s.RecordCount)
		}
	} else {
		for _, rec := range r.Records {
			add(rec.DataSource, 1)
		}
	}

	for _, ds := range order {
		e.Records = append(e.Records, SourceCount{DataSource: ds, RecordCount: counts[ds]})
	}
	return e
}
