// Package fetch retrieves raw log objects from S3.
package fetch

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/telhawk-systems/telhawk-loader/internal/config"
)

// ObjectFetcher retrieves the full body of one stored object.
type ObjectFetcher interface {
	Fetch(ctx context.Context, bucket, key string) ([]byte, error)
}

// s3API is the slice of the S3 client the fetcher uses.
type s3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Fetcher reads objects through the AWS SDK with a size ceiling.
type S3Fetcher struct {
	client   s3API
	maxBytes int
}

// NewS3Fetcher builds a fetcher from the service configuration.
func NewS3Fetcher(ctx context.Context, cfg config.S3Config, maxBytes int) (*S3Fetcher, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Fetcher{client: client, maxBytes: maxBytes}, nil
}

// newS3FetcherWithClient wires a pre-built client, for tests.
func newS3FetcherWithClient(client s3API, maxBytes int) *S3Fetcher {
	return &S3Fetcher{client: client, maxBytes: maxBytes}
}

// Fetch downloads one object. Objects larger than the configured ceiling
// are rejected before the body is read to the end.
func (f *S3Fetcher) Fetch(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("fetching s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	if f.maxBytes > 0 && out.ContentLength != nil && *out.ContentLength > int64(f.maxBytes) {
		return nil, fmt.Errorf("object s3://%s/%s is %d bytes, over the %d byte limit",
			bucket, key, *out.ContentLength, f.maxBytes)
	}

	var body io.Reader = out.Body
	if f.maxBytes > 0 {
		body = io.LimitReader(out.Body, int64(f.maxBytes)+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading s3://%s/%s: %w", bucket, key, err)
	}
	if f.maxBytes > 0 && len(data) > f.maxBytes {
		return nil, fmt.Errorf("object s3://%s/%s is over the %d byte limit", bucket, key, f.maxBytes)
	}
	return data, nil
}
