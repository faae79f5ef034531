// Package loader fetches the raw bytes of input documents. Paths are either
// local filesystem paths or s3://bucket/key URIs.
package loader

import (
	"context"
	"fmt"
	"strings"
)

const s3Scheme = "s3://"

// Document identifies one input document.
type Document struct {
	// Path is a filesystem path or an s3://bucket/key URI.
	Path string
}

// DocumentLoader defines the interface for loading the contents of a Document.
// Implementations may load files from disk, cloud storage, or other sources.
type DocumentLoader interface {
	GetDocument(ctx context.Context, doc Document) ([]byte, error)
}

// Key identifies a Document for coalescing concurrent reads.
func Key(doc Document) string {
	return doc.Path
}

// IsS3 reports whether path uses the s3:// scheme.
func IsS3(path string) bool {
	return strings.HasPrefix(path, s3Scheme)
}

// ParseS3URI splits an s3://bucket/key URI.
func ParseS3URI(uri string) (bucket string, key string, err error) {
	if !IsS3(uri) {
		return "", "", fmt.Errorf("not an s3 uri: %q", uri)
	}
	rest := strings.TrimPrefix(uri, s3Scheme)
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 uri must have the form s3://bucket/key: %q", uri)
	}
	return bucket, key, nil
}

// Router dispatches s3:// URIs to S3 and everything else to Local.
// A nil S3 loader makes s3:// paths an error.
type Router struct {
	Local DocumentLoader
	S3    DocumentLoader
}

// GetDocument implements DocumentLoader.
func (r *Router) GetDocument(ctx context.Context, doc Document) ([]byte, error) {
	if IsS3(doc.Path) {
		if r.S3 == nil {
			return nil, fmt.Errorf("no s3 loader configured for %s", doc.Path)
		}
		return r.S3.GetDocument(ctx, doc)
	}
	if r.Local == nil {
		return nil, fmt.Errorf("no local loader configured for %s", doc.Path)
	}
	return r.Local.GetDocument(ctx, doc)
}
