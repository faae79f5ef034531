package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/DerwenAI/dylifo/internal/util"
	"github.com/DerwenAI/dylifo/pkg/ai"
	"github.com/DerwenAI/dylifo/pkg/ai/aitest"
	"github.com/DerwenAI/dylifo/pkg/mask"
	"github.com/DerwenAI/dylifo/pkg/vocabulary"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bobAndMary = []vocabulary.RelationshipFact{
	{EntityA: "Bob Jones", EntityB: "Mary Smith", Attribute: "address", DataSource: "CUSTOMERS"},
}

const goodSummary = "**Bob Jones** and **Mary Smith** have an address in common from the CUSTOMERS dataset."

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(bobAndMary)

	assert.Contains(t, prompt, "- **Bob Jones** and **Mary Smith**: address from the CUSTOMERS dataset")
	assert.Contains(t, prompt, "**Bob Jones** and **Mary Smith** have an address in common from the CUSTOMERS dataset.")
	assert.Equal(t, prompt, BuildPrompt(bobAndMary))
	assert.NotContains(t, prompt, "%!")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		text string
		rule string
	}{
		{"accepted", goodSummary, ""},
		{"empty", "   ", "empty summary"},
		{"banned network", goodSummary + " They form a network of relationships.", "banned phrase"},
		{"banned flexible whitespace", goodSummary + " A Potential\n  Relationship exists.", "banned phrase"},
		{"banned overlap", goodSummary + " Shared identifying information suggests fraud.", "banned phrase"},
		{"raw code", "**Bob Jones** and **Mary Smith** share ADDRESS in the CUSTOMERS dataset.", "raw match key code"},
		{"match level", goodSummary + " The match level is 2.", "confidence mentioned"},
		{"match level code", goodSummary + " They are POSSIBLY_RELATED.", "match level mentioned"},
		{"name not bold", "Bob Jones and **Mary Smith** have an address in common from the CUSTOMERS dataset.", "entity name not in bold"},
		{"name missing", "**Mary Smith** has an address in common from the CUSTOMERS dataset.", "entity name missing"},
		{"dataset missing", "**Bob Jones** and **Mary Smith** have an address in common.", "dataset missing"},
		{"attribute missing", "**Bob Jones** and **Mary Smith** appear in the CUSTOMERS dataset.", "attribute missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.text, bobAndMary)
			if tt.rule == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.rule, verr.Rule)
		})
	}
}

func TestValidate_UppercaseDatasetIsNotACode(t *testing.T) {
	facts := []vocabulary.RelationshipFact{
		{EntityA: "Bob Jones", EntityB: "Mary Smith", Attribute: "email", DataSource: "EMAIL"},
	}
	err := Validate("**Bob Jones** and **Mary Smith** have an email in common from the EMAIL dataset.", facts)
	assert.NoError(t, err)
}

func TestGenerate_Accepts(t *testing.T) {
	client := aitest.Summaries("  ** Bob Jones ** and **Mary Smith** have an address\nin common from the CUSTOMERS dataset.  ")
	g := NewGenerator(client, Options{Temperature: 0, MaxTokens: 512, MaxRetries: 2})

	n, err := g.Generate(context.Background(), bobAndMary)
	require.NoError(t, err)
	assert.Equal(t, goodSummary, n.Text)
	assert.Equal(t, 1, n.Attempts)
	assert.Equal(t, BuildPrompt(bobAndMary), n.Prompt)

	opts := client.Options()
	require.Len(t, opts, 1)
	assert.Equal(t, 512, opts[0].MaxTokens)
}

func TestGenerate_RetriesRejectedReply(t *testing.T) {
	client := aitest.Summaries(
		goodSummary+" They form a network of relationships.",
		"",
		goodSummary,
	)
	g := NewGenerator(client, Options{MaxRetries: 2})

	n, err := g.Generate(context.Background(), bobAndMary)
	require.NoError(t, err)
	assert.Equal(t, 3, n.Attempts)
	assert.Equal(t, 3, client.Calls())
	assert.Equal(t, 3, n.Usage.Requests)
}

func TestGenerate_UsageIsPerCall(t *testing.T) {
	client := aitest.Summaries(goodSummary)
	g := NewGenerator(client, Options{})

	first, err := g.Generate(context.Background(), bobAndMary)
	require.NoError(t, err)
	second, err := g.Generate(context.Background(), bobAndMary)
	require.NoError(t, err)

	assert.Equal(t, 1, first.Usage.Requests)
	assert.Equal(t, 1, second.Usage.Requests)
	assert.Positive(t, second.Usage.TotalTokens)
	assert.Equal(t, 2, client.GetMetrics().Requests)
}

func TestGenerate_NameNormalization(t *testing.T) {
	names := map[string]string{
		"decomposed accent": "Jose\u0301 Garcia",
		"no-break space":    "Bob\u00a0Jones",
		"double space":      "Bob  Jones",
	}
	for label, name := range names {
		for _, masked := range []bool{false, true} {
			t.Run(fmt.Sprintf("%s masked=%v", label, masked), func(t *testing.T) {
				facts := []vocabulary.RelationshipFact{
					{EntityA: name, EntityB: "Mary Smith", Attribute: "address", DataSource: "CUSTOMERS"},
				}
				reply := "**" + name + "** and **Mary Smith** have an address in common from the CUSTOMERS dataset."
				opts := Options{MaxRetries: 2}
				if masked {
					reply = "**ENTITY_NAME_1** and **ENTITY_NAME_2** have an address in common from the DATA_SOURCE_1 dataset."
					opts.Masker = mask.New()
				}
				client := aitest.Summaries(reply)

				n, err := NewGenerator(client, opts).Generate(context.Background(), facts)
				require.NoError(t, err)
				assert.Equal(t, 1, client.Calls())
				assert.Contains(t, n.Text, "**"+util.NormalizeName(name)+"**")
			})
		}
	}
}

func TestGenerate_RetryBound(t *testing.T) {
	client := aitest.Summaries("**Bob Jones** and **Mary Smith** have a potential relationship.")
	g := NewGenerator(client, Options{MaxRetries: 2})

	n, err := g.Generate(context.Background(), bobAndMary)
	assert.Nil(t, n)

	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, ReasonRejected, genErr.Reason)
	assert.Equal(t, 3, genErr.Attempts)
	assert.Equal(t, 3, client.Calls())

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "banned phrase", verr.Rule)
}

func TestGenerate_UnparseableReply(t *testing.T) {
	client := aitest.New(aitest.Reply{Raw: "[1, 2, 3]"}, aitest.Reply{Summary: goodSummary})
	g := NewGenerator(client, Options{MaxRetries: 1})

	n, err := g.Generate(context.Background(), bobAndMary)
	require.NoError(t, err)
	assert.Equal(t, 2, n.Attempts)
}

func TestGenerate_BackendErrorNotRetried(t *testing.T) {
	cause := errors.New("connection refused")
	client := aitest.New(aitest.Reply{Err: &ai.BackendError{Backend: "ollama", Kind: ai.KindUnreachable, Err: cause}})
	g := NewGenerator(client, Options{MaxRetries: 2})

	_, err := g.Generate(context.Background(), bobAndMary)

	var backendErr *ai.BackendError
	require.True(t, errors.As(err, &backendErr))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, client.Calls())
}

func TestGenerate_Timeout(t *testing.T) {
	client := aitest.New(aitest.Reply{Block: true})
	g := NewGenerator(client, Options{MaxRetries: 2, Timeout: 20 * time.Millisecond})

	_, err := g.Generate(context.Background(), bobAndMary)

	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, ReasonTimeout, genErr.Reason)
	assert.Equal(t, 1, client.Calls())
}

func TestGenerate_Cancelled(t *testing.T) {
	client := aitest.Summaries(goodSummary)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGenerator(client, Options{MaxRetries: 2}).Generate(ctx, bobAndMary)

	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, ReasonCancelled, genErr.Reason)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, client.Calls())
}

func TestGenerate_NoFacts(t *testing.T) {
	client := aitest.Summaries(goodSummary)
	_, err := NewGenerator(client, Options{}).Generate(context.Background(), nil)

	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, ReasonNoFacts, genErr.Reason)
	assert.Zero(t, client.Calls())
}

func TestGenerate_Masked(t *testing.T) {
	client := aitest.Summaries("**ENTITY_NAME_1** and **ENTITY_NAME_2** have an address in common from the DATA_SOURCE_1 dataset.")
	g := NewGenerator(client, Options{Masker: mask.New()})

	n, err := g.Generate(context.Background(), bobAndMary)
	require.NoError(t, err)
	assert.Equal(t, goodSummary, n.Text)

	prompts := client.Prompts()
	require.Len(t, prompts, 1)
	background := strings.SplitN(prompts[0], "# Detailed Task Description", 2)[0]
	assert.NotContains(t, background, "Mary Smith")
	assert.NotContains(t, background, "CUSTOMERS")
	assert.Contains(t, background, "**ENTITY_NAME_1** and **ENTITY_NAME_2**: address from the DATA_SOURCE_1 dataset")
}
