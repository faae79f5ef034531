package routes

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/DerwenAI/dylifo/internal/server/middleware"
	"github.com/DerwenAI/dylifo/pkg/pipeline"
)

// StatusFor maps a pipeline failure to the HTTP status returned to the
// caller.
func StatusFor(err error) int {
	switch pipeline.Classify(err) {
	case pipeline.ClassMalformed, pipeline.ClassVocabulary:
		return http.StatusUnprocessableEntity
	case pipeline.ClassBackend, pipeline.ClassGeneration:
		return http.StatusBadGateway
	case pipeline.ClassTimeout:
		return http.StatusGatewayTimeout
	}
	if errors.Is(err, middleware.ErrPathForbidden) {
		return http.StatusForbidden
	}
	if errors.Is(err, fs.ErrNotExist) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
