// Package narrative turns relationship facts into one validated paragraph
// of prose using a language model.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DerwenAI/dylifo/internal/util"
	"github.com/DerwenAI/dylifo/pkg/ai"
	"github.com/DerwenAI/dylifo/pkg/logger"
	"github.com/DerwenAI/dylifo/pkg/mask"
	"github.com/DerwenAI/dylifo/pkg/vocabulary"
)

const (
	ReasonNoFacts   = "no facts"
	ReasonRejected  = "rejected"
	ReasonTimeout   = "timeout"
	ReasonCancelled = "cancelled"
)

// Options configures a Generator.
type Options struct {
	Temperature float64
	MaxTokens   int
	// MaxRetries is the number of regenerations after a rejected, empty or
	// unparseable reply.
	MaxRetries int
	// Timeout bounds each backend call. Zero means no extra bound.
	Timeout time.Duration
	// Masker, when set, hides names and datasets from the backend.
	Masker *mask.Masker
}

// Narrative is an accepted summary.
type Narrative struct {
	Text     string `json:"text"`
	Prompt   string `json:"prompt,omitempty"`
	Attempts int    `json:"attempts"`
	// Usage covers every attempt, rejected ones included.
	Usage ai.ModelMetrics `json:"usage"`
}

// GenerationError reports that no acceptable narrative was produced. Err
// holds the last violation or cause.
type GenerationError struct {
	Reason   string
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	msg := fmt.Sprintf("narrative generation failed (%s)", e.Reason)
	if e.Attempts > 0 {
		msg += fmt.Sprintf(" after %d attempt(s)", e.Attempts)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

type Generator struct {
	client ai.Client
	opts   Options
}

func NewGenerator(client ai.Client, opts Options) *Generator {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Generator{client: client, opts: opts}
}

// Generate asks the backend for a summary of facts and returns the first
// reply that passes Validate. Backend failures are returned as they are and
// never retried here.
func (g *Generator) Generate(ctx context.Context, facts []vocabulary.RelationshipFact) (*Narrative, error) {
	if len(facts) == 0 {
		return nil, &GenerationError{Reason: ReasonNoFacts}
	}

	facts = normalizeFacts(facts)
	promptFacts := facts
	if g.opts.Masker != nil {
		promptFacts = g.opts.Masker.Facts(facts)
	}
	prompt := BuildPrompt(promptFacts)

	usage := &ai.MetricsRecorder{}
	maxAttempts := g.opts.MaxRetries + 1
	attempt := 0
	n, err := util.RetryWhenWithContext(ctx, maxAttempts, isRegenerable, func(ctx context.Context) (*Narrative, error) {
		attempt++
		text, err := g.complete(ctx, prompt, usage)
		if err != nil {
			if isRegenerable(err) {
				logger.Warn("[Narrative] unusable reply", "attempt", attempt, "err", err)
			}
			return nil, err
		}

		if g.opts.Masker != nil {
			text = g.opts.Masker.Unmask(text)
		}
		text = util.NormalizeBold(util.ScrubText(text))

		if err := Validate(text, facts); err != nil {
			logger.Warn("[Narrative] reply rejected", "attempt", attempt, "rule", err)
			return nil, err
		}
		return &Narrative{Text: text, Prompt: prompt, Attempts: attempt}, nil
	})
	switch {
	case err == nil:
		n.Usage = usage.GetMetrics()
		logger.Debug("[Narrative] summary accepted", "attempt", attempt, "facts", len(facts))
		return n, nil
	case errors.Is(err, context.DeadlineExceeded):
		return nil, &GenerationError{Reason: ReasonTimeout, Attempts: attempt, Err: err}
	case errors.Is(err, context.Canceled):
		return nil, &GenerationError{Reason: ReasonCancelled, Attempts: attempt, Err: err}
	case ai.IsBackendError(err):
		return nil, err
	}
	return nil, &GenerationError{Reason: ReasonRejected, Attempts: attempt, Err: err}
}

// isRegenerable reports whether a failed attempt may be followed by another.
func isRegenerable(err error) bool {
	return !ai.IsBackendError(err) &&
		!errors.Is(err, context.DeadlineExceeded) &&
		!errors.Is(err, context.Canceled)
}

// normalizeFacts brings names and datasets into the form replies are
// scrubbed to, so Validate compares like with like.
func normalizeFacts(facts []vocabulary.RelationshipFact) []vocabulary.RelationshipFact {
	out := make([]vocabulary.RelationshipFact, len(facts))
	for i, f := range facts {
		out[i] = vocabulary.RelationshipFact{
			EntityA:    util.NormalizeName(f.EntityA),
			EntityB:    util.NormalizeName(f.EntityB),
			Attribute:  f.Attribute,
			DataSource: util.NormalizeName(f.DataSource),
		}
	}
	return out
}

func (g *Generator) complete(ctx context.Context, prompt string, usage *ai.MetricsRecorder) (string, error) {
	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}

	opts := []ai.GenerateOption{ai.WithTemperature(g.opts.Temperature), ai.WithUsage(usage)}
	if g.opts.MaxTokens > 0 {
		opts = append(opts, ai.WithMaxTokens(g.opts.MaxTokens))
	}

	var reply summaryReply
	if err := g.client.GenerateCompletionWithFormat(
		ctx,
		summaryFormatName,
		summaryFormatDescription,
		prompt,
		&reply,
		opts...,
	); err != nil {
		return "", err
	}
	if reply.Summary == "" {
		return "", errors.New("empty summary in reply")
	}
	return reply.Summary, nil
}
