package pipeline

import (
	"errors"

	"github.com/DerwenAI/dylifo/internal/config"
	"github.com/DerwenAI/dylifo/pkg/ai"
	"github.com/DerwenAI/dylifo/pkg/narrative"
	"github.com/DerwenAI/dylifo/pkg/resolution"
	"github.com/DerwenAI/dylifo/pkg/vocabulary"
)

// ErrorClass is the coarse failure category shells report.
type ErrorClass string

const (
	ClassNone       ErrorClass = ""
	ClassConfig     ErrorClass = "config"
	ClassMalformed  ErrorClass = "malformed"
	ClassVocabulary ErrorClass = "vocabulary"
	ClassGeneration ErrorClass = "generation"
	ClassTimeout    ErrorClass = "timeout"
	ClassBackend    ErrorClass = "backend"
	ClassOther      ErrorClass = "other"
)

// Classify maps err to its ErrorClass. A backend failure wins over the
// generation error that may wrap it.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassNone
	}

	var (
		cfgErr       *config.ConfigError
		malformedErr *resolution.MalformedResultError
		vocabErr     *vocabulary.VocabularyError
		backendErr   *ai.BackendError
		genErr       *narrative.GenerationError
	)
	switch {
	case errors.As(err, &cfgErr):
		return ClassConfig
	case errors.As(err, &malformedErr):
		return ClassMalformed
	case errors.As(err, &vocabErr):
		return ClassVocabulary
	case errors.As(err, &backendErr):
		return ClassBackend
	case errors.As(err, &genErr):
		if genErr.Reason == narrative.ReasonTimeout {
			return ClassTimeout
		}
		return ClassGeneration
	}
	return ClassOther
}

// Retryable reports whether running the same input again may succeed.
func Retryable(err error) bool {
	var backendErr *ai.BackendError
	if errors.As(err, &backendErr) {
		switch backendErr.Kind {
		case ai.KindUnreachable, ai.KindRateLimited, ai.KindServer:
			return true
		}
		return false
	}
	return Classify(err) == ClassTimeout
}
