package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/telhawk-systems/telhawk-loader/internal/adapter"
	"github.com/telhawk-systems/telhawk-loader/internal/delivery"
	"github.com/telhawk-systems/telhawk-loader/internal/intake"
	"github.com/telhawk-systems/telhawk-loader/internal/logging"
	"github.com/telhawk-systems/telhawk-loader/internal/logtypes"
)

const loaderTestTable = `
log_types:
  - name: cloudtrail
    s3_key: CloudTrail/
    file_format: json
    json_delimiter: Records
    index_name: log-aws-cloudtrail
    ecs:
      event.action: eventName
  - name: linux-secure
    log_group: /var/log/secure
    file_format: text
    pattern: '^(?P<proc>\w+): (?P<msg>.*)$'
    index_name: log-linux-secure
`

type mockFetcher struct {
	fetchFunc func(ctx context.Context, bucket, key string) ([]byte, error)
}

func (m *mockFetcher) Fetch(ctx context.Context, bucket, key string) ([]byte, error) {
	return m.fetchFunc(ctx, bucket, key)
}

type mockSink struct {
	mu      sync.Mutex
	docs    []delivery.Document
	addFunc func(ctx context.Context, doc delivery.Document) error
}

func (m *mockSink) Name() string                    { return "mock" }
func (m *mockSink) Start(context.Context) error     { return nil }
func (m *mockSink) Close(context.Context) error     { return nil }
func (m *mockSink) Stats() delivery.Stats           { return delivery.Stats{} }
func (m *mockSink) Add(ctx context.Context, doc delivery.Document) error {
	if m.addFunc != nil {
		if err := m.addFunc(ctx, doc); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, doc)
	return nil
}

func testLoader(t *testing.T, fetcher *mockFetcher, sink *mockSink) *Loader {
	t.Helper()
	table, err := logtypes.Parse([]byte(loaderTestTable))
	if err != nil {
		t.Fatalf("parsing log type table: %v", err)
	}
	return NewLoader(table, fetcher, sink, nil, nil, 4, logging.New(logging.ParseLevel("error"), "text"))
}

func TestProcessObject(t *testing.T) {
	body := `{"Records": [{"eventName": "ConsoleLogin"}, {"eventName": "AssumeRole"}]}`
	fetcher := &mockFetcher{
		fetchFunc: func(_ context.Context, bucket, key string) ([]byte, error) {
			if bucket != "logs" {
				t.Errorf("bucket = %q, want logs", bucket)
			}
			return []byte(body), nil
		},
	}
	sink := &mockSink{}
	l := testLoader(t, fetcher, sink)

	result, err := l.ProcessObject(context.Background(), intake.ObjectRef{
		Bucket: "logs",
		Key:    "AWSLogs/123456789012/CloudTrail/us-east-1/x.json",
	})
	if err != nil {
		t.Fatalf("ProcessObject() error = %v", err)
	}

	if result.LogType != "cloudtrail" {
		t.Errorf("LogType = %q, want cloudtrail", result.LogType)
	}
	if result.Accepted != 2 || result.Ignored != 0 || result.Failed != 0 {
		t.Errorf("counts = %d/%d/%d, want 2/0/0", result.Accepted, result.Ignored, result.Failed)
	}
	if result.BatchID == "" {
		t.Error("BatchID should be set")
	}
	if len(sink.docs) != 2 {
		t.Fatalf("sink received %d docs, want 2", len(sink.docs))
	}
	for _, doc := range sink.docs {
		if doc.Index != "log-aws-cloudtrail" {
			t.Errorf("doc index = %q", doc.Index)
		}
		if doc.ID == "" {
			t.Error("doc id should be set")
		}
	}
}

func TestProcessObjectUnknownKeySkipped(t *testing.T) {
	fetcher := &mockFetcher{
		fetchFunc: func(context.Context, string, string) ([]byte, error) {
			return []byte("whatever"), nil
		},
	}
	sink := &mockSink{}
	l := testLoader(t, fetcher, sink)

	result, err := l.ProcessObject(context.Background(), intake.ObjectRef{Bucket: "logs", Key: "random/file.txt"})
	if err != nil {
		t.Fatalf("ProcessObject() error = %v", err)
	}
	if result.Reason == "" {
		t.Error("Reason should explain the skip")
	}
	if len(sink.docs) != 0 {
		t.Errorf("sink received %d docs, want 0", len(sink.docs))
	}
}

func TestProcessObjectSplitError(t *testing.T) {
	// classification accepts any fetched bytes; undetectable binary
	// content fails the batch at the splitting step
	fetcher := &mockFetcher{
		fetchFunc: func(context.Context, string, string) ([]byte, error) {
			return []byte{0x00, 0x01, 0x02, 0xff}, nil
		},
	}
	sink := &mockSink{}
	l := testLoader(t, fetcher, sink)

	_, err := l.ProcessObject(context.Background(), intake.ObjectRef{
		Bucket: "logs",
		Key:    "CloudTrail/garbage.bin",
	})
	if !errors.Is(err, adapter.ErrUnknownCompression) {
		t.Errorf("ProcessObject() error = %v, want %v", err, adapter.ErrUnknownCompression)
	}
	if len(sink.docs) != 0 {
		t.Errorf("sink received %d docs, want 0", len(sink.docs))
	}
}

func TestProcessObjectFetchError(t *testing.T) {
	wantErr := errors.New("no such key")
	fetcher := &mockFetcher{
		fetchFunc: func(context.Context, string, string) ([]byte, error) {
			return nil, wantErr
		},
	}
	l := testLoader(t, fetcher, &mockSink{})

	_, err := l.ProcessObject(context.Background(), intake.ObjectRef{Bucket: "b", Key: "k"})
	if !errors.Is(err, wantErr) {
		t.Errorf("ProcessObject() error = %v, want %v", err, wantErr)
	}
}

func TestProcessObjectCountsFailures(t *testing.T) {
	// linux-secure has an anchored pattern; the second event will not match
	sink := &mockSink{}
	l := testLoader(t, &mockFetcher{}, sink)

	envelope := map[string]any{
		"messageType": "DATA_MESSAGE",
		"owner":       "123456789012",
		"logGroup":    "/var/log/secure",
		"logStream":   "web01",
		"logEvents": []map[string]any{
			{"id": "1", "timestamp": 1718000000000, "message": "sshd: Accepted publickey"},
			{"id": "2", "timestamp": 1718000001000, "message": "malformed line without colon"},
		},
	}
	payload, _ := json.Marshal(envelope)

	result, err := l.ProcessStream(context.Background(), payload)
	if err != nil {
		t.Fatalf("ProcessStream() error = %v", err)
	}
	if result.Accepted != 1 || result.Failed != 1 {
		t.Errorf("counts = %d accepted %d failed, want 1/1", result.Accepted, result.Failed)
	}
	if len(sink.docs) != 1 {
		t.Errorf("sink received %d docs, want 1", len(sink.docs))
	}
}

func TestProcessStreamControlMessageSkipped(t *testing.T) {
	payload := []byte(`{"messageType": "CONTROL_MESSAGE", "logEvents": []}`)
	sink := &mockSink{}
	l := testLoader(t, &mockFetcher{}, sink)

	result, err := l.ProcessStream(context.Background(), payload)
	if err != nil {
		t.Fatalf("ProcessStream() error = %v", err)
	}
	if result.Reason == "" {
		t.Error("Reason should explain the skip")
	}
}

func TestProcessObjectSinkError(t *testing.T) {
	fetcher := &mockFetcher{
		fetchFunc: func(context.Context, string, string) ([]byte, error) {
			return []byte(`{"Records": [{"eventName": "x"}]}`), nil
		},
	}
	sink := &mockSink{
		addFunc: func(context.Context, delivery.Document) error {
			return errors.New("indexer closed")
		},
	}
	l := testLoader(t, fetcher, sink)

	_, err := l.ProcessObject(context.Background(), intake.ObjectRef{
		Bucket: "logs",
		Key:    "CloudTrail/x.json",
	})
	if err == nil || !strings.Contains(err.Error(), "indexer closed") {
		t.Errorf("ProcessObject() error = %v, want sink error", err)
	}
}
