package delivery

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchutil"

	"github.com/telhawk-systems/telhawk-loader/internal/config"
	"github.com/telhawk-systems/telhawk-loader/internal/logging"
)

// OpenSearchIndexerFactory creates a BulkIndexer.
type OpenSearchIndexerFactory func(cfg config.OpenSearchConfig) (opensearchutil.BulkIndexer, error)

// OpenSearchOption configures the OpenSearchSink.
type OpenSearchOption func(*OpenSearchSink)

// WithOpenSearchIndexerFactory sets a custom factory for creating the
// BulkIndexer. This is primarily used for testing to inject a mock indexer.
func WithOpenSearchIndexerFactory(f OpenSearchIndexerFactory) OpenSearchOption {
	return func(s *OpenSearchSink) {
		s.factory = f
	}
}

// OpenSearchSink writes documents to OpenSearch.
type OpenSearchSink struct {
	cfg     config.OpenSearchConfig
	log     *logging.Logger
	factory OpenSearchIndexerFactory
	indexer opensearchutil.BulkIndexer

	indexed atomic.Uint64
	failed  atomic.Uint64
}

// NewOpenSearchSink creates an OpenSearch delivery sink.
func NewOpenSearchSink(cfg config.OpenSearchConfig, log *logging.Logger, opts ...OpenSearchOption) *OpenSearchSink {
	s := &OpenSearchSink{cfg: cfg, log: log}

	// Default factory creates real client and indexer
	s.factory = func(cfg config.OpenSearchConfig) (opensearchutil.BulkIndexer, error) {
		httpClient := &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: cfg.TLSSkipVerify,
				},
			},
		}

		client, err := opensearch.NewClient(opensearch.Config{
			Addresses: []string{cfg.URL},
			Username:  cfg.Username,
			Password:  cfg.Password,
			Transport: httpClient.Transport,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create opensearch client: %w", err)
		}

		return opensearchutil.NewBulkIndexer(opensearchutil.BulkIndexerConfig{
			Client:        client,
			NumWorkers:    cfg.BulkWorkers,
			FlushBytes:    cfg.BulkFlushBytes,
			FlushInterval: cfg.BulkFlushInterval,
		})
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *OpenSearchSink) Name() string { return "opensearch" }

func (s *OpenSearchSink) Start(ctx context.Context) error {
	indexer, err := s.factory(s.cfg)
	if err != nil {
		return err
	}
	s.indexer = indexer
	return nil
}

func (s *OpenSearchSink) Add(ctx context.Context, doc Document) error {
	return s.indexer.Add(ctx, opensearchutil.BulkIndexerItem{
		Action:     "index",
		Index:      doc.Index,
		DocumentID: doc.ID,
		Body:       bytes.NewReader(doc.Body),
		OnSuccess: func(context.Context, opensearchutil.BulkIndexerItem, opensearchutil.BulkIndexerResponseItem) {
			s.indexed.Add(1)
		},
		OnFailure: func(_ context.Context, item opensearchutil.BulkIndexerItem, res opensearchutil.BulkIndexerResponseItem, err error) {
			s.failed.Add(1)
			if err != nil {
				s.log.Error("bulk index failed",
					logging.Index(item.Index), "doc_id", item.DocumentID, logging.Err(err))
				return
			}
			s.log.Error("bulk index rejected",
				logging.Index(item.Index), "doc_id", item.DocumentID,
				"type", res.Error.Type, "reason", res.Error.Reason)
		},
	})
}

func (s *OpenSearchSink) Close(ctx context.Context) error {
	if s.indexer == nil {
		return nil
	}
	return s.indexer.Close(ctx)
}

func (s *OpenSearchSink) Stats() Stats {
	return Stats{Indexed: s.indexed.Load(), Failed: s.failed.Load()}
}
