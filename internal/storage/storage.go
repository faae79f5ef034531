// Package storage builds the document loader shared by the shells from the
// AWS_* environment.
package storage

import (
	"context"

	"github.com/DerwenAI/dylifo/internal/util"
	"github.com/DerwenAI/dylifo/pkg/loader"
	loaderio "github.com/DerwenAI/dylifo/pkg/loader/io"
	loaders3 "github.com/DerwenAI/dylifo/pkg/loader/s3"
	"github.com/DerwenAI/dylifo/pkg/logger"
)

// S3Params reads the S3 settings from the environment. ok is false when
// neither AWS_REGION nor AWS_ENDPOINT is set.
func S3Params() (params loaders3.NewS3LoaderParams, ok bool) {
	params = loaders3.NewS3LoaderParams{
		Region:    util.GetEnv("AWS_REGION"),
		Endpoint:  util.GetEnv("AWS_ENDPOINT"),
		AccessKey: util.GetEnv("AWS_ACCESS_KEY"),
		SecretKey: util.GetEnv("AWS_SECRET_KEY"),
	}
	return params, params.Region != "" || params.Endpoint != ""
}

// NewLoader returns a Router reading local files, and s3:// URIs when S3 is
// configured.
func NewLoader(ctx context.Context) (*loader.Router, error) {
	r := &loader.Router{Local: loaderio.NewIOLoader()}

	params, ok := S3Params()
	if !ok {
		return r, nil
	}
	s3, err := loaders3.NewS3Loader(ctx, params)
	if err != nil {
		return nil, err
	}
	logger.Debug("[Storage] s3 loader enabled", "region", params.Region, "endpoint", params.Endpoint)
	r.S3 = s3
	return r, nil
}
