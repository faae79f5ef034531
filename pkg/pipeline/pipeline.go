// Package pipeline runs Load, Translate and Generate for one resolution
// document at a time.
package pipeline

import (
	"context"
	"strings"

	"github.com/DerwenAI/dylifo/internal/config"
	"github.com/DerwenAI/dylifo/internal/util"
	"github.com/DerwenAI/dylifo/pkg/ai"
	"github.com/DerwenAI/dylifo/pkg/loader"
	loaderio "github.com/DerwenAI/dylifo/pkg/loader/io"
	"github.com/DerwenAI/dylifo/pkg/logger"
	"github.com/DerwenAI/dylifo/pkg/mask"
	"github.com/DerwenAI/dylifo/pkg/narrative"
	"github.com/DerwenAI/dylifo/pkg/render"
	"github.com/DerwenAI/dylifo/pkg/resolution"
	"github.com/DerwenAI/dylifo/pkg/vocabulary"
)

// BackendFactory builds the model client for a resolved configuration.
// backend.New satisfies it.
type BackendFactory func(cfg *config.GenerationConfig) (ai.Client, error)

// ComponentNarrative is the summary of one connected component.
type ComponentNarrative struct {
	Entities  []string                      `json:"entities"`
	Facts     []vocabulary.RelationshipFact `json:"facts"`
	Narrative *narrative.Narrative          `json:"narrative"`
}

// Result is everything one run produces.
type Result struct {
	RunID      string                        `json:"run_id,omitempty"`
	Narratives []ComponentNarrative          `json:"narratives"`
	Rows       []resolution.EntitySourceRow  `json:"rows"`
	Graph      *resolution.ResolutionGraph   `json:"graph"`
	Facts      []vocabulary.RelationshipFact `json:"facts"`
	Mermaid    string                        `json:"mermaid"`
	Usage      ai.ModelMetrics               `json:"usage"`
}

// Text joins the narratives into one block, a blank line between components.
func (r *Result) Text() string {
	texts := make([]string, 0, len(r.Narratives))
	for _, n := range r.Narratives {
		texts = append(texts, n.Narrative.Text)
	}
	return strings.Join(texts, "\n\n")
}

type Pipeline struct {
	cfg    *config.GenerationConfig
	client ai.Client
	loader loader.DocumentLoader
}

type Option func(*Pipeline)

// WithLoader sets the loader used by RunPath. The default reads local files.
func WithLoader(l loader.DocumentLoader) Option {
	return func(p *Pipeline) {
		p.loader = l
	}
}

// New returns a pipeline bound to cfg and client. Both are only read.
func New(cfg *config.GenerationConfig, client ai.Client, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:    cfg,
		client: client,
		loader: &loader.Router{Local: loaderio.NewIOLoader()},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// FromSettings resolves the settings document at path and only then asks
// factory for a backend, so a configuration error never reaches a model.
func FromSettings(path string, factory BackendFactory, opts ...Option) (*Pipeline, error) {
	cfg, err := config.Resolve(path)
	if err != nil {
		return nil, err
	}
	client, err := factory(cfg)
	if err != nil {
		return nil, err
	}
	return New(cfg, client, opts...), nil
}

// Config returns the configuration the pipeline was built with.
func (p *Pipeline) Config() *config.GenerationConfig {
	return p.cfg
}

// Client returns the model client the pipeline was built with.
func (p *Pipeline) Client() ai.Client {
	return p.client
}

// RunPath loads path through the configured loader and runs it.
func (p *Pipeline) RunPath(ctx context.Context, path string) (*Result, error) {
	raw, err := p.loader.GetDocument(ctx, loader.Document{Path: path})
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, raw)
}

// InspectPath is the model-free counterpart of RunPath.
func (p *Pipeline) InspectPath(ctx context.Context, path string) (*Result, error) {
	raw, err := p.loader.GetDocument(ctx, loader.Document{Path: path})
	if err != nil {
		return nil, err
	}
	return Inspect(raw)
}

// Inspect parses and translates raw and renders its graph without calling
// any model.
func Inspect(raw []byte) (*Result, error) {
	g, err := resolution.Parse(raw)
	if err != nil {
		return nil, err
	}
	facts, err := vocabulary.Translate(g)
	if err != nil {
		return nil, err
	}
	mermaid, err := render.Mermaid(g)
	if err != nil {
		return nil, err
	}
	return &Result{
		Narratives: []ComponentNarrative{},
		Rows:       g.Rows(),
		Graph:      g,
		Facts:      facts,
		Mermaid:    mermaid,
	}, nil
}

// Run produces one narrative per connected component that has at least one
// fact. Components are generated one after another and the first failure
// aborts the run without partial output.
func (p *Pipeline) Run(ctx context.Context, raw []byte) (*Result, error) {
	res, err := Inspect(raw)
	if err != nil {
		return nil, err
	}

	opts := narrative.Options{
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokens,
		MaxRetries:  p.cfg.MaxRetries,
		Timeout:     p.cfg.Timeout,
	}
	if p.cfg.MaskPII {
		opts.Masker = mask.New()
	}
	gen := narrative.NewGenerator(p.client, opts)

	res.RunID, err = util.NewID()
	if err != nil {
		return nil, err
	}

	usage := &ai.MetricsRecorder{}

	for _, comp := range res.Graph.Components() {
		facts, err := vocabulary.Translate(comp)
		if err != nil {
			return nil, err
		}
		if len(facts) == 0 {
			continue
		}

		names := make([]string, 0, len(comp.Entities))
		for _, e := range comp.Entities {
			names = append(names, e.Name)
		}
		logger.Debug("[Pipeline] generating narrative", "run", res.RunID, "entities", len(names), "facts", len(facts))

		n, err := gen.Generate(ctx, facts)
		if err != nil {
			return nil, err
		}
		usage.Add(n.Usage)
		res.Narratives = append(res.Narratives, ComponentNarrative{
			Entities:  names,
			Facts:     facts,
			Narrative: n,
		})
	}

	res.Usage = usage.GetMetrics()
	logger.Info("[Pipeline] run completed",
		"run", res.RunID,
		"narratives", len(res.Narratives),
		"requests", res.Usage.Requests,
		"tokens", res.Usage.TotalTokens,
	)
	return res, nil
}
