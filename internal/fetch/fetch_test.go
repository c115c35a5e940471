package fetch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type mockS3 struct {
	getObjectFunc func(ctx context.Context, in *s3.GetObjectInput) (*s3.GetObjectOutput, error)
}

func (m *mockS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return m.getObjectFunc(ctx, in)
}

func TestFetch(t *testing.T) {
	body := []byte("line one\nline two\n")
	client := &mockS3{
		getObjectFunc: func(_ context.Context, in *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
			if *in.Bucket != "logs" || *in.Key != "AWSLogs/x.gz" {
				t.Errorf("unexpected request: bucket=%s key=%s", *in.Bucket, *in.Key)
			}
			return &s3.GetObjectOutput{
				Body:          io.NopCloser(bytes.NewReader(body)),
				ContentLength: aws.Int64(int64(len(body))),
			}, nil
		},
	}

	f := newS3FetcherWithClient(client, 1024)
	got, err := f.Fetch(context.Background(), "logs", "AWSLogs/x.gz")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !bytes.Equal(got, body) {
		t.Errorf("Fetch() = %q, want %q", got, body)
	}
}

func TestFetch_Error(t *testing.T) {
	wantErr := errors.New("access denied")
	client := &mockS3{
		getObjectFunc: func(context.Context, *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
			return nil, wantErr
		},
	}

	f := newS3FetcherWithClient(client, 0)
	_, err := f.Fetch(context.Background(), "logs", "k")
	if !errors.Is(err, wantErr) {
		t.Errorf("Fetch() error = %v, want wrapped %v", err, wantErr)
	}
}

func TestFetch_RejectsOversizedDeclared(t *testing.T) {
	client := &mockS3{
		getObjectFunc: func(context.Context, *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
			return &s3.GetObjectOutput{
				Body:          io.NopCloser(strings.NewReader("x")),
				ContentLength: aws.Int64(2048),
			}, nil
		},
	}

	f := newS3FetcherWithClient(client, 1024)
	_, err := f.Fetch(context.Background(), "logs", "big")
	if err == nil || !strings.Contains(err.Error(), "byte limit") {
		t.Errorf("Fetch() error = %v, want size limit error", err)
	}
}

func TestFetch_RejectsOversizedUndeclared(t *testing.T) {
	// No Content-Length header: the limit is enforced while reading
	client := &mockS3{
		getObjectFunc: func(context.Context, *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
			return &s3.GetObjectOutput{
				Body: io.NopCloser(strings.NewReader(strings.Repeat("a", 2048))),
			}, nil
		},
	}

	f := newS3FetcherWithClient(client, 1024)
	_, err := f.Fetch(context.Background(), "logs", "big")
	if err == nil || !strings.Contains(err.Error(), "byte limit") {
		t.Errorf("Fetch() error = %v, want size limit error", err)
	}
}
