package config

import (
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/DerwenAI/dylifo/internal/util"
	"github.com/DerwenAI/dylifo/pkg/logger"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator"
	"gopkg.in/yaml.v3"
)

// settings mirrors one settings table. Pointer fields distinguish an absent
// key from an explicit zero value.
type settings struct {
	RunLocal       *bool    `toml:"run_local" yaml:"run_local"`
	LMName         string   `toml:"lm_name" yaml:"lm_name"`
	APIBase        string   `toml:"api_base" yaml:"api_base"`
	RemoteModel    string   `toml:"remote_model" yaml:"remote_model"`
	RemoteAPIBase  string   `toml:"remote_api_base" yaml:"remote_api_base"`
	Temperature    *float64 `toml:"temperature" yaml:"temperature"`
	MaxTokens      *int     `toml:"max_tokens" yaml:"max_tokens"`
	Timeout        string   `toml:"timeout" yaml:"timeout"`
	MaxRetries     *int     `toml:"max_retries" yaml:"max_retries"`
	BackendRetries *int     `toml:"backend_retries" yaml:"backend_retries"`
	MaskPII        *bool    `toml:"mask_pii" yaml:"mask_pii"`
}

type document struct {
	Dylifo *settings `toml:"dylifo" yaml:"dylifo"`
	DSPy   *settings `toml:"dspy" yaml:"dspy"`
}

var knownTables = []string{"dylifo", "dspy"}

var knownKeys = []string{
	"run_local", "lm_name", "api_base", "remote_model", "remote_api_base",
	"temperature", "max_tokens", "timeout", "max_retries", "backend_retries",
	"mask_pii",
}

var validate = validator.New()

// Resolve reads the settings document at path (DefaultPath when empty) and
// the environment, and returns a validated configuration. Every failure is a
// *ConfigError.
func Resolve(path string) (*GenerationConfig, error) {
	if path == "" {
		path = DefaultPath
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, configErr(path, err, "cannot read settings document")
	}

	doc, unknown, err := decode(path, raw)
	if err != nil {
		return nil, err
	}
	for _, key := range unknown {
		logger.Warn("Ignoring unknown settings key", "path", path, "key", key)
	}

	if doc.Dylifo != nil && doc.DSPy != nil {
		return nil, configErr(path, nil, "both [dylifo] and [dspy] settings tables present")
	}
	s := doc.Dylifo
	if s == nil {
		s = doc.DSPy
	}
	if s == nil {
		return nil, configErr(path, nil, "missing [dylifo] settings table")
	}

	cfg, err := apply(path, Default(), s)
	if err != nil {
		return nil, err
	}
	util.LoadEnv()
	cfg.Remote.APIKey = util.GetEnv(APIKeyEnv)
	cfg.Debug = util.GetEnvBool(DebugEnv, false)

	if err := check(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decode(path string, raw []byte) (document, []string, error) {
	var (
		doc  document
		tree map[string]any
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(raw), &doc); err != nil {
			return doc, nil, configErr(path, err, "malformed TOML")
		}
		if _, err := toml.Decode(string(raw), &tree); err != nil {
			return doc, nil, configErr(path, err, "malformed TOML")
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return doc, nil, configErr(path, err, "malformed YAML")
		}
		if err := yaml.Unmarshal(raw, &tree); err != nil {
			return doc, nil, configErr(path, err, "malformed YAML")
		}
	default:
		return doc, nil, configErr(path, nil, "unsupported settings format %q", filepath.Ext(path))
	}

	return doc, unknownKeys(tree), nil
}

func unknownKeys(tree map[string]any) []string {
	var unknown []string
	for table, value := range tree {
		if !slices.Contains(knownTables, table) {
			unknown = append(unknown, table)
			continue
		}
		entries, ok := value.(map[string]any)
		if !ok {
			continue
		}
		for key := range entries {
			if !slices.Contains(knownKeys, key) {
				unknown = append(unknown, table+"."+key)
			}
		}
	}
	sort.Strings(unknown)
	return unknown
}

func apply(path string, cfg GenerationConfig, s *settings) (GenerationConfig, error) {
	if s.RunLocal != nil {
		cfg.RunLocal = *s.RunLocal
	}
	if s.LMName != "" {
		cfg.Local.Model = stripProvider(s.LMName)
	}
	if s.APIBase != "" {
		cfg.Local.BaseURL = strings.TrimSpace(s.APIBase)
	}
	if s.RemoteModel != "" {
		cfg.Remote.Model = stripProvider(s.RemoteModel)
	}
	if s.RemoteAPIBase != "" {
		cfg.Remote.BaseURL = strings.TrimSpace(s.RemoteAPIBase)
	}
	if s.Temperature != nil {
		cfg.Temperature = *s.Temperature
	}
	if s.MaxTokens != nil {
		cfg.MaxTokens = *s.MaxTokens
	}
	if s.Timeout != "" {
		d, err := time.ParseDuration(s.Timeout)
		if err != nil {
			return cfg, configErr(path, err, "invalid timeout %q", s.Timeout)
		}
		cfg.Timeout = d
	}
	if s.MaxRetries != nil {
		cfg.MaxRetries = *s.MaxRetries
	}
	if s.BackendRetries != nil {
		cfg.BackendRetries = *s.BackendRetries
	}
	if s.MaskPII != nil {
		cfg.MaskPII = *s.MaskPII
	}
	return cfg, nil
}

func check(path string, cfg *GenerationConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return configErr(path, err, "invalid settings")
	}
	if cfg.RunLocal && cfg.Local.Model == "" {
		return configErr(path, nil, "lm_name is required when run_local is true")
	}
	if !cfg.RunLocal && cfg.Remote.APIKey == "" {
		return configErr(path, nil, "environment variable %s is not set; it is required when run_local is false", APIKeyEnv)
	}
	return nil
}
