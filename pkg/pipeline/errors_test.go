package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DerwenAI/dylifo/internal/config"
	"github.com/DerwenAI/dylifo/pkg/ai"
	"github.com/DerwenAI/dylifo/pkg/narrative"
	"github.com/DerwenAI/dylifo/pkg/resolution"
	"github.com/DerwenAI/dylifo/pkg/vocabulary"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		class     ErrorClass
		retryable bool
	}{
		{"nil", nil, ClassNone, false},
		{"config", &config.ConfigError{Reason: "bad"}, ClassConfig, false},
		{"malformed", fmt.Errorf("load: %w", &resolution.MalformedResultError{Reason: "x"}), ClassMalformed, false},
		{"vocabulary", &vocabulary.VocabularyError{Code: "SSN"}, ClassVocabulary, false},
		{"backend auth", &ai.BackendError{Kind: ai.KindAuth, Err: errors.New("401")}, ClassBackend, false},
		{"backend rate limited", &ai.BackendError{Kind: ai.KindRateLimited, Err: errors.New("429")}, ClassBackend, true},
		{"generation", &narrative.GenerationError{Reason: narrative.ReasonRejected}, ClassGeneration, false},
		{"timeout", &narrative.GenerationError{Reason: narrative.ReasonTimeout, Err: context.DeadlineExceeded}, ClassTimeout, true},
		{"other", errors.New("boom"), ClassOther, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.class, Classify(tt.err))
			assert.Equal(t, tt.retryable, Retryable(tt.err))
		})
	}
}
