package vocabulary

import (
	"errors"
	"testing"

	"github.com/DerwenAI/dylifo/pkg/resolution"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, raw string) *resolution.ResolutionGraph {
	t.Helper()
	g, err := resolution.Parse([]byte(raw))
	require.NoError(t, err)
	return g
}

func TestTranslate(t *testing.T) {
	g := parse(t, `{
		"RESOLVED_ENTITY": {"ENTITY_ID": 1, "ENTITY_NAME": "Bob Jones"},
		"RELATED_ENTITIES": [
			{"ENTITY_ID": 2, "ENTITY_NAME": "Mary Smith", "MATCH_KEY": "+ADDRESS+DRLIC", "MATCH_LEVEL": 2,
			 "RECORD_SUMMARY": [{"DATA_SOURCE": "CUSTOMERS", "RECORD_COUNT": 1}]},
			{"ENTITY_ID": 2, "ENTITY_NAME": "Mary Smith", "MATCH_KEY": "+ADDRESS",
			 "RECORD_SUMMARY": [{"DATA_SOURCE": "CUSTOMERS", "RECORD_COUNT": 1}]}
		]
	}`)

	facts, err := Translate(g)
	require.NoError(t, err)
	assert.Equal(t, []RelationshipFact{
		{EntityA: "Bob Jones", EntityB: "Mary Smith", Attribute: "address", DataSource: "CUSTOMERS"},
		{EntityA: "Bob Jones", EntityB: "Mary Smith", Attribute: "driver's license number", DataSource: "CUSTOMERS"},
	}, facts)
}

func TestTranslate_SameNameDifferentEntities(t *testing.T) {
	g := parse(t, `{
		"RESOLVED_ENTITY": {"ENTITY_ID": 1, "ENTITY_NAME": "Bob Jones"},
		"RELATED_ENTITIES": [
			{"ENTITY_ID": 2, "ENTITY_NAME": "Mary Smith", "MATCH_KEY": "+ADDRESS",
			 "RECORD_SUMMARY": [{"DATA_SOURCE": "CUSTOMERS", "RECORD_COUNT": 1}]},
			{"ENTITY_ID": 3, "ENTITY_NAME": "Mary Smith", "MATCH_KEY": "+ADDRESS",
			 "RECORD_SUMMARY": [{"DATA_SOURCE": "CUSTOMERS", "RECORD_COUNT": 1}]}
		]
	}`)
	require.Len(t, g.Links, 2)

	facts, err := Translate(g)
	require.NoError(t, err)
	assert.Equal(t, []RelationshipFact{
		{EntityA: "Bob Jones", EntityB: "Mary Smith (2)", Attribute: "address", DataSource: "CUSTOMERS"},
		{EntityA: "Bob Jones", EntityB: "Mary Smith (3)", Attribute: "address", DataSource: "CUSTOMERS"},
	}, facts)
}

func TestTranslate_UnknownCode(t *testing.T) {
	g := parse(t, `{
		"RESOLVED_ENTITY": {"ENTITY_ID": 1},
		"RELATED_ENTITIES": [
			{"ENTITY_ID": 2, "MATCH_KEY": "+NAME+PHONE",
			 "RECORD_SUMMARY": [{"DATA_SOURCE": "CUSTOMERS", "RECORD_COUNT": 1}]}
		]
	}`)

	facts, err := Translate(g)
	assert.Nil(t, facts)

	var vocabErr *VocabularyError
	require.True(t, errors.As(err, &vocabErr))
	assert.Equal(t, "PHONE", vocabErr.Code)
}

func TestTranslate_NoLinks(t *testing.T) {
	g := parse(t, `{"RESOLVED_ENTITY": {"ENTITY_ID": 1}}`)
	facts, err := Translate(g)
	require.NoError(t, err)
	assert.Empty(t, facts)
}

func TestPhrases(t *testing.T) {
	table := Phrases()
	require.Len(t, table, 6)
	assert.Equal(t, Code{Code: "NAME", Phrase: "name"}, table[0])

	p, err := Phrase("DOB")
	require.NoError(t, err)
	assert.Equal(t, "date of birth", p)

	_, err = Phrase("name")
	assert.Error(t, err)
}
