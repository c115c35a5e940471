// Package delivery ships accepted documents to the configured search
// backends through their bulk APIs.
package delivery

import (
	"context"
)

// Document is one serialized record bound for an index.
type Document struct {
	Index string
	ID    string
	Body  []byte
}

// Stats reports the running totals of one sink.
type Stats struct {
	Indexed uint64
	Failed  uint64
}

// Sink accepts documents for asynchronous bulk delivery.
type Sink interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	// Start initializes the backend client and bulk machinery.
	Start(ctx context.Context) error

	// Add queues one document. Delivery is asynchronous; failures are
	// reported through Stats and the sink's logger.
	Add(ctx context.Context, doc Document) error

	// Close flushes pending documents and releases the backend.
	Close(ctx context.Context) error

	// Stats returns delivery totals since Start.
	Stats() Stats
}

// Fanout delivers every document to each member sink.
type Fanout struct {
	sinks []Sink
}

// NewFanout wraps a set of sinks behind a single Sink.
func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Name() string { return "fanout" }

func (f *Fanout) Start(ctx context.Context) error {
	for _, s := range f.sinks {
		if err := s.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fanout) Add(ctx context.Context, doc Document) error {
	for _, s := range f.sinks {
		if err := s.Add(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fanout) Close(ctx context.Context) error {
	var firstErr error
	for _, s := range f.sinks {
		if err := s.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f *Fanout) Stats() Stats {
	var total Stats
	for _, s := range f.sinks {
		st := s.Stats()
		total.Indexed += st.Indexed
		total.Failed += st.Failed
	}
	return total
}
