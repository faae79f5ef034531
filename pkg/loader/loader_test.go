package loader

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLoader struct {
	name  string
	calls int
}

func (s *stubLoader) GetDocument(ctx context.Context, doc Document) ([]byte, error) {
	s.calls++
	return []byte(s.name), nil
}

func TestParseS3URI(t *testing.T) {
	bucket, key, err := ParseS3URI("s3://senzing/exports/entity.json")
	require.NoError(t, err)
	assert.Equal(t, "senzing", bucket)
	assert.Equal(t, "exports/entity.json", key)

	for _, bad := range []string{"data/entity.json", "s3://", "s3://bucket", "s3:///key"} {
		_, _, err := ParseS3URI(bad)
		assert.Error(t, err, bad)
	}
}

func TestRouter_Dispatch(t *testing.T) {
	local := &stubLoader{name: "local"}
	remote := &stubLoader{name: "s3"}
	r := &Router{Local: local, S3: remote}

	got, err := r.GetDocument(context.Background(), Document{Path: "data/entity.json"})
	require.NoError(t, err)
	assert.Equal(t, "local", string(got))

	got, err = r.GetDocument(context.Background(), Document{Path: "s3://b/k.json"})
	require.NoError(t, err)
	assert.Equal(t, "s3", string(got))

	assert.Equal(t, 1, local.calls)
	assert.Equal(t, 1, remote.calls)
}

func TestRouter_MissingS3(t *testing.T) {
	r := &Router{Local: &stubLoader{}}
	_, err := r.GetDocument(context.Background(), Document{Path: "s3://b/k.json"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, context.Canceled))
}
