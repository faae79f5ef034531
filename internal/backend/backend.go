// Package backend builds the ai.Client selected by a resolved GenerationConfig.
package backend

import (
	"net/http"

	"github.com/DerwenAI/dylifo/internal/config"
	"github.com/DerwenAI/dylifo/pkg/ai"
	"github.com/DerwenAI/dylifo/pkg/ai/ollama"
	"github.com/DerwenAI/dylifo/pkg/ai/openai"
	"github.com/DerwenAI/dylifo/pkg/logger"
)

var (
	_ ai.Client = (*ollama.Client)(nil)
	_ ai.Client = (*openai.Client)(nil)
)

// New returns the local Ollama client when cfg.RunLocal is set and the
// hosted OpenAI client otherwise. Neither constructor performs I/O.
func New(cfg *config.GenerationConfig) (ai.Client, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout}

	logger.Debug("[Backend] selecting model backend",
		"backend", cfg.Backend(),
		"model", cfg.Model(),
	)

	if cfg.RunLocal {
		client, err := ollama.NewClient(ollama.NewClientParams{
			Model:                 cfg.Local.Model,
			BaseURL:               cfg.Local.BaseURL,
			MaxConcurrentRequests: 1,
			HTTPClient:            httpClient,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	client, err := openai.NewClient(openai.NewClientParams{
		Model:      cfg.Remote.Model,
		BaseURL:    cfg.Remote.BaseURL,
		ApiKey:     cfg.Remote.APIKey,
		MaxRetries: cfg.BackendRetries,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}
