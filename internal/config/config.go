// Package config resolves the settings document and environment secrets into
// the immutable GenerationConfig used by every other component.
package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultPath is the settings document read when no path is given.
	DefaultPath = "config.toml"

	// APIKeyEnv holds the remote backend credential.
	APIKeyEnv = "OPENAI_API_KEY"
	// DebugEnv toggles debug logging in every shell.
	DebugEnv = "DYLIFO_DEBUG"

	DefaultLocalBaseURL = "http://localhost:11434"
	DefaultRemoteModel  = "gpt-4o-mini"
	DefaultMaxTokens    = 2048
	DefaultTimeout      = 120 * time.Second
	DefaultMaxRetries   = 2
)

// LocalBackend configures the local inference server.
type LocalBackend struct {
	Model   string `validate:"omitempty"`
	BaseURL string `validate:"required,url"`
}

// RemoteBackend configures the hosted API. APIKey comes from the environment only.
type RemoteBackend struct {
	Model   string `validate:"required"`
	BaseURL string `validate:"omitempty,url"`
	APIKey  string `json:"-" yaml:"-"`
}

// GenerationConfig is resolved once per process and never mutated afterwards.
type GenerationConfig struct {
	RunLocal bool
	Local    LocalBackend
	Remote   RemoteBackend

	Temperature    float64       `validate:"gte=0,lte=2"`
	MaxTokens      int           `validate:"gt=0"`
	Timeout        time.Duration `validate:"gt=0"`
	MaxRetries     int           `validate:"gte=0,lte=5"`
	BackendRetries int           `validate:"gte=0,lte=5"`
	MaskPII        bool
	Debug          bool
}

// Default returns the configuration used for keys the settings document omits.
func Default() GenerationConfig {
	return GenerationConfig{
		RunLocal: true,
		Local: LocalBackend{
			BaseURL: DefaultLocalBaseURL,
		},
		Remote: RemoteBackend{
			Model: DefaultRemoteModel,
		},
		Temperature: 0,
		MaxTokens:   DefaultMaxTokens,
		Timeout:     DefaultTimeout,
		MaxRetries:  DefaultMaxRetries,
		MaskPII:     true,
	}
}

// Backend names the selected backend for logs and error messages.
func (c *GenerationConfig) Backend() string {
	if c.RunLocal {
		return "ollama"
	}
	return "openai"
}

// Model returns the model identifier of the selected backend.
func (c *GenerationConfig) Model() string {
	if c.RunLocal {
		return c.Local.Model
	}
	return c.Remote.Model
}

// ConfigError reports a settings document or credential problem.
// When it is returned no backend has been constructed.
type ConfigError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := "configuration error"
	if e.Path != "" {
		msg += " in " + e.Path
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func configErr(path string, err error, format string, args ...any) *ConfigError {
	return &ConfigError{Path: path, Reason: fmt.Sprintf(format, args...), Err: err}
}

// providerPrefixes are the litellm-style prefixes accepted on model names,
// e.g. "ollama_chat/gemma3:12b" or "openai/gpt-4o-mini".
var providerPrefixes = []string{"ollama_chat/", "ollama/", "openai/"}

func stripProvider(model string) string {
	model = strings.TrimSpace(model)
	for _, prefix := range providerPrefixes {
		if strings.HasPrefix(model, prefix) {
			return strings.TrimPrefix(model, prefix)
		}
	}
	return model
}
