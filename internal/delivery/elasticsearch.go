package delivery

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"

	"github.com/telhawk-systems/telhawk-loader/internal/config"
	"github.com/telhawk-systems/telhawk-loader/internal/logging"
)

// ElasticsearchIndexerFactory creates an esutil.BulkIndexer.
type ElasticsearchIndexerFactory func(cfg config.ElasticsearchConfig) (esutil.BulkIndexer, error)

// ElasticsearchOption configures the ElasticsearchSink.
type ElasticsearchOption func(*ElasticsearchSink)

// WithElasticsearchIndexerFactory sets a custom factory for creating the
// BulkIndexer. This is primarily used for testing to inject a mock indexer.
func WithElasticsearchIndexerFactory(f ElasticsearchIndexerFactory) ElasticsearchOption {
	return func(s *ElasticsearchSink) {
		s.factory = f
	}
}

// ElasticsearchSink writes documents to Elasticsearch.
type ElasticsearchSink struct {
	cfg     config.ElasticsearchConfig
	log     *logging.Logger
	factory ElasticsearchIndexerFactory
	indexer esutil.BulkIndexer

	indexed atomic.Uint64
	failed  atomic.Uint64
}

// NewElasticsearchSink creates an Elasticsearch delivery sink.
func NewElasticsearchSink(cfg config.ElasticsearchConfig, log *logging.Logger, opts ...ElasticsearchOption) *ElasticsearchSink {
	s := &ElasticsearchSink{cfg: cfg, log: log}

	// Default factory creates real client and indexer
	s.factory = func(cfg config.ElasticsearchConfig) (esutil.BulkIndexer, error) {
		esCfg := elasticsearch.Config{
			Addresses: cfg.Addresses,
		}
		if cfg.APIKey != "" {
			esCfg.APIKey = cfg.APIKey
		}

		client, err := elasticsearch.NewClient(esCfg)
		if err != nil {
			return nil, fmt.Errorf("creating elasticsearch client: %w", err)
		}

		return esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
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

func (s *ElasticsearchSink) Name() string { return "elasticsearch" }

func (s *ElasticsearchSink) Start(ctx context.Context) error {
	indexer, err := s.factory(s.cfg)
	if err != nil {
		return err
	}
	s.indexer = indexer
	return nil
}

func (s *ElasticsearchSink) Add(ctx context.Context, doc Document) error {
	return s.indexer.Add(ctx, esutil.BulkIndexerItem{
		Action:     "index",
		Index:      doc.Index,
		DocumentID: doc.ID,
		Body:       bytes.NewReader(doc.Body),
		OnSuccess: func(context.Context, esutil.BulkIndexerItem, esutil.BulkIndexerResponseItem) {
			s.indexed.Add(1)
		},
		OnFailure: func(_ context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
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

func (s *ElasticsearchSink) Close(ctx context.Context) error {
	if s.indexer == nil {
		return nil
	}
	return s.indexer.Close(ctx)
}

func (s *ElasticsearchSink) Stats() Stats {
	return Stats{Indexed: s.indexed.Load(), Failed: s.failed.Load()}
}
