package io

import (
	"context"
	"os"

	"github.com/DerwenAI/dylifo/pkg/loader"

	"golang.org/x/sync/singleflight"
)

// IOLoader loads documents directly from the local filesystem. Concurrent
// reads of the same path share one read; nothing is kept afterwards.
type IOLoader struct {
	group singleflight.Group
}

// NewIOLoader creates a new filesystem-based document loader.
func NewIOLoader() *IOLoader {
	return &IOLoader{}
}

// GetDocument reads the document from the filesystem.
func (l *IOLoader) GetDocument(ctx context.Context, doc loader.Document) ([]byte, error) {
	result, err, _ := l.group.Do(loader.Key(doc), func() (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return os.ReadFile(doc.Path)
	})
	if err != nil {
		return nil, err
	}

	return result.([]byte), nil
}
