package s3

import (
	"bytes"
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/singleflight"

	"github.com/DerwenAI/dylifo/pkg/loader"
)

// ObjectGetter is the part of the S3 API the loader needs. *s3.Client
// satisfies it.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Loader is a DocumentLoader implementation that loads documents from
// s3://bucket/key URIs using the AWS SDK v2 for Go. Every call fetches the
// object again; only concurrent fetches of the same URI are shared.
type S3Loader struct {
	client ObjectGetter
	group  singleflight.Group
}

// NewS3LoaderWithClient creates a new S3Loader using an existing client.
// This is useful if you want to reuse a preconfigured AWS client.
func NewS3LoaderWithClient(client ObjectGetter) *S3Loader {
	return &S3Loader{client: client}
}

// NewS3LoaderParams defines the configuration parameters for creating a new
// S3Loader.
//
// Endpoint allows overriding the S3 endpoint (useful for S3-compatible
// storage like MinIO). When AccessKey is empty the default AWS credential
// chain is used.
type NewS3LoaderParams struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// NewS3Loader creates a new S3Loader using the provided parameters.
//
// Example:
//
//	l, err := s3.NewS3Loader(ctx, s3.NewS3LoaderParams{
//		Region:    "us-east-1",
//		AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
//		SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	raw, err := l.GetDocument(ctx, loader.Document{Path: "s3://senzing/entity.json"})
func NewS3Loader(ctx context.Context, params NewS3LoaderParams) (*S3Loader, error) {
	opts := []func(*config.LoadOptions) error{}
	if params.Region != "" {
		opts = append(opts, config.WithRegion(params.Region))
	}
	if params.Endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(params.Endpoint))
	}
	if params.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			params.AccessKey,
			params.SecretKey,
			"",
		)))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = params.Endpoint != ""
	})

	return NewS3LoaderWithClient(client), nil
}

// GetDocument retrieves the object named by doc.Path. It implements the
// DocumentLoader interface.
func (l *S3Loader) GetDocument(ctx context.Context, doc loader.Document) ([]byte, error) {
	bucket, key, err := loader.ParseS3URI(doc.Path)
	if err != nil {
		return nil, err
	}
	result, err, _ := l.group.Do(loader.Key(doc), func() (any, error) {
		out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, err
		}
		defer out.Body.Close()

		buf := new(bytes.Buffer)
		if _, err := io.Copy(buf, out.Body); err != nil {
			return nil, err
		}

		return buf.Bytes(), nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]byte), nil
}
