// Package aitest provides a scripted ai.Client for tests.
package aitest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/DerwenAI/dylifo/pkg/ai"
)

// Reply is one scripted answer. Exactly one of the fields is used: Err is
// returned as is, Block waits for the context to end, and otherwise Summary
// is delivered as {"summary": Summary} (or Raw verbatim when set).
type Reply struct {
	Summary string
	Raw     string
	Err     error
	Block   bool
}

// Client replays Replies in order and repeats the last one when it runs out.
type Client struct {
	ai.MetricsRecorder

	mu      sync.Mutex
	replies []Reply
	prompts []string
	options []ai.GenerateOptions
}

// New returns a Client that answers with replies.
func New(replies ...Reply) *Client {
	return &Client{replies: replies}
}

// Summaries is shorthand for New with one Summary reply per text.
func Summaries(texts ...string) *Client {
	replies := make([]Reply, len(texts))
	for i, t := range texts {
		replies[i] = Reply{Summary: t}
	}
	return New(replies...)
}

// Calls returns the number of requests received.
func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prompts)
}

// Prompts returns the prompts received so far.
func (c *Client) Prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.prompts...)
}

// Options returns the resolved options of each request.
func (c *Client) Options() []ai.GenerateOptions {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ai.GenerateOptions(nil), c.options...)
}

func (c *Client) next(prompt string, opts []ai.GenerateOption) (Reply, ai.GenerateOptions) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var o ai.GenerateOptions
	for _, opt := range opts {
		opt(&o)
	}
	c.options = append(c.options, o)

	i := len(c.prompts)
	c.prompts = append(c.prompts, prompt)
	if len(c.replies) == 0 {
		return Reply{}, o
	}
	if i >= len(c.replies) {
		i = len(c.replies) - 1
	}
	return c.replies[i], o
}

func (c *Client) record(o ai.GenerateOptions, prompt, reply string) {
	m := ai.ModelMetrics{
		InputTokens:  len(prompt) / 4,
		OutputTokens: len(reply) / 4,
		TotalTokens:  (len(prompt) + len(reply)) / 4,
	}
	c.Record(m)
	o.Usage.Record(m)
}

func (c *Client) answer(ctx context.Context, prompt string, opts []ai.GenerateOption) (string, error) {
	r, o := c.next(prompt, opts)
	switch {
	case r.Err != nil:
		return "", r.Err
	case r.Block:
		<-ctx.Done()
		return "", ctx.Err()
	case r.Raw != "":
		c.record(o, prompt, r.Raw)
		return r.Raw, nil
	}
	b, err := json.Marshal(map[string]string{"summary": r.Summary})
	if err != nil {
		return "", err
	}
	c.record(o, prompt, string(b))
	return string(b), nil
}

// GenerateCompletion implements ai.Client.
func (c *Client) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return c.answer(ctx, prompt, opts)
}

// GenerateCompletionWithFormat implements ai.Client.
func (c *Client) GenerateCompletionWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...ai.GenerateOption,
) error {
	content, err := c.answer(ctx, prompt, opts)
	if err != nil {
		return err
	}
	return ai.UnmarshalFlexible(content, out)
}

// LoadModel implements ai.Client.
func (c *Client) LoadModel(ctx context.Context, opts ...ai.GenerateOption) error {
	return nil
}

var _ ai.Client = (*Client)(nil)
