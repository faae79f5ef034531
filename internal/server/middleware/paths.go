package middleware

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/DerwenAI/dylifo/pkg/loader"
)

// ErrPathForbidden is returned for request paths the server will not read.
var ErrPathForbidden = errors.New("path not allowed")

// ResolvePath maps a request path to the one handed to the loader.
//
// Local paths must stay inside DataDir, and relative paths are taken from
// there. s3:// URIs reach whatever the server's credentials can, so they
// are only accepted when an API key guards the API.
func (a *App) ResolvePath(path string) (string, error) {
	if loader.IsS3(path) {
		if a.APIKey == "" {
			return "", fmt.Errorf("%w: s3 paths require an API key", ErrPathForbidden)
		}
		return path, nil
	}
	if a.DataDir == "" {
		return "", fmt.Errorf("%w: no data directory configured", ErrPathForbidden)
	}

	rel := path
	if filepath.IsAbs(path) {
		r, err := filepath.Rel(a.DataDir, path)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrPathForbidden, path)
		}
		rel = r
	}
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %s is outside the data directory", ErrPathForbidden, path)
	}
	return filepath.Join(a.DataDir, rel), nil
}
