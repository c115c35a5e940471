// Package service orchestrates the load pipeline: fetch a batch, split it
// into entries, parse every entry, and hand accepted documents to the
// delivery sinks.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/telhawk-systems/telhawk-loader/internal/adapter"
	"github.com/telhawk-systems/telhawk-loader/internal/delivery"
	"github.com/telhawk-systems/telhawk-loader/internal/enrich"
	"github.com/telhawk-systems/telhawk-loader/internal/fetch"
	"github.com/telhawk-systems/telhawk-loader/internal/intake"
	"github.com/telhawk-systems/telhawk-loader/internal/logging"
	"github.com/telhawk-systems/telhawk-loader/internal/logtypes"
	"github.com/telhawk-systems/telhawk-loader/internal/metrics"
	"github.com/telhawk-systems/telhawk-loader/internal/models"
	"github.com/telhawk-systems/telhawk-loader/internal/parser"
	"github.com/telhawk-systems/telhawk-loader/internal/transform"
)

// BatchResult summarizes what happened to one batch.
type BatchResult struct {
	BatchID  string
	LogType  string
	Accepted int
	Ignored  int
	Failed   int

	// Reason is set when the whole batch was skipped.
	Reason string
}

// Loader runs batches through the parse pipeline.
type Loader struct {
	table      *logtypes.Table
	fetcher    fetch.ObjectFetcher
	sink       delivery.Sink
	enricher   enrich.Enricher
	transforms *transform.Registry
	log        *logging.Logger
	workers    int

	mu      sync.Mutex
	parsers map[string]*parser.Parser
}

// NewLoader assembles the pipeline. The fetcher may be nil when only
// stream batches will be processed.
func NewLoader(table *logtypes.Table, fetcher fetch.ObjectFetcher, sink delivery.Sink,
	enricher enrich.Enricher, transforms *transform.Registry, workers int, log *logging.Logger) *Loader {
	if workers < 1 {
		workers = 1
	}
	if enricher == nil {
		enricher = enrich.Noop{}
	}
	if transforms == nil {
		transforms = transform.NewRegistry()
	}
	return &Loader{
		table:      table,
		fetcher:    fetcher,
		sink:       sink,
		enricher:   enricher,
		transforms: transforms,
		log:        log,
		workers:    workers,
		parsers:    make(map[string]*parser.Parser),
	}
}

// ProcessObject fetches one stored object and runs it through the
// pipeline.
func (l *Loader) ProcessObject(ctx context.Context, ref intake.ObjectRef) (BatchResult, error) {
	start := time.Now()

	data, err := l.fetcher.Fetch(ctx, ref.Bucket, ref.Key)
	if err != nil {
		metrics.FetchErrors.Inc()
		return BatchResult{}, err
	}
	metrics.FetchDuration.Observe(time.Since(start).Seconds())
	metrics.BatchBytesTotal.Add(float64(len(data)))

	batch := adapter.NewS3Batch(l.table, ref.Bucket, ref.Key, data)
	return l.run(ctx, batch, start)
}

// ProcessStream runs one compressed stream payload through the pipeline.
func (l *Loader) ProcessStream(ctx context.Context, payload []byte) (BatchResult, error) {
	start := time.Now()
	metrics.BatchBytesTotal.Add(float64(len(payload)))

	batch, err := adapter.NewStreamBatch(l.table, payload)
	if err != nil {
		return BatchResult{}, err
	}
	return l.run(ctx, batch, start)
}

func (l *Loader) run(ctx context.Context, batch adapter.SourceAdapter, start time.Time) (BatchResult, error) {
	meta := batch.Metadata()
	result := BatchResult{
		BatchID: uuid.New().String(),
		LogType: meta.LogType,
	}
	log := l.log.With(
		logging.BatchID(result.BatchID),
		logging.LogType(meta.LogType),
		logging.Channel(meta.Channel),
	)

	log.Debug("batch start", "source", meta.StartMessage())

	if reason := batch.IgnoreReason(); reason != "" {
		result.Reason = reason
		metrics.BatchesTotal.WithLabelValues(meta.Channel, meta.LogType, "skipped").Inc()
		log.Info("batch skipped", "reason", reason)
		return result, nil
	}

	entries, err := batch.Entries()
	if err != nil {
		metrics.BatchesTotal.WithLabelValues(meta.Channel, meta.LogType, "failed").Inc()
		return result, fmt.Errorf("splitting batch %s: %w", result.BatchID, err)
	}
	// splitting fills in metadata captured mid-batch, like the csv header
	meta = batch.Metadata()

	p, err := l.parserFor(meta.LogType)
	if err != nil {
		metrics.BatchesTotal.WithLabelValues(meta.Channel, meta.LogType, "failed").Inc()
		return result, err
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)

	for _, entry := range entries {
		entry := entry
		g.Go(func() error {
			parseStart := time.Now()
			outcome := p.Parse(entry, meta)
			metrics.ParseDuration.Observe(time.Since(parseStart).Seconds())
			metrics.EntriesTotal.WithLabelValues(meta.LogType, outcome.Kind.String()).Inc()

			switch outcome.Kind {
			case models.OutcomeAccepted:
				if err := l.sink.Add(gctx, delivery.Document{
					Index: outcome.Index,
					ID:    outcome.DocID,
					Body:  outcome.Document,
				}); err != nil {
					metrics.DeliveryErrors.WithLabelValues(l.sink.Name()).Inc()
					return fmt.Errorf("queueing document %s: %w", outcome.DocID, err)
				}
				metrics.DocumentsDelivered.WithLabelValues(l.sink.Name()).Inc()
				mu.Lock()
				result.Accepted++
				mu.Unlock()

			case models.OutcomeIgnored:
				mu.Lock()
				result.Ignored++
				mu.Unlock()

			case models.OutcomeFailed:
				log.Warn("entry failed", logging.Err(outcome.Err))
				mu.Lock()
				result.Failed++
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		metrics.BatchesTotal.WithLabelValues(meta.Channel, meta.LogType, "failed").Inc()
		return result, err
	}

	metrics.BatchesTotal.WithLabelValues(meta.Channel, meta.LogType, "ok").Inc()
	metrics.BatchDuration.Observe(time.Since(start).Seconds())
	log.Info("batch processed",
		"accepted", result.Accepted,
		"ignored", result.Ignored,
		"failed", result.Failed,
		"duration", time.Since(start).String(),
	)
	return result, nil
}

// parserFor returns the cached parser for a log type, building it on
// first use.
func (l *Loader) parserFor(name string) (*parser.Parser, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if p, ok := l.parsers[name]; ok {
		return p, nil
	}
	lt := l.table.Get(name)
	if lt == nil {
		return nil, fmt.Errorf("no log type definition for %q", name)
	}
	p := parser.New(lt,
		parser.WithEnricher(l.enricher),
		parser.WithTransforms(l.transforms),
	)
	l.parsers[name] = p
	return p, nil
}
