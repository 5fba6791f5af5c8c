// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/eventq/lib/record"
	"github.com/bureau-foundation/eventq/lib/version"
)

// Batch is one accepted upload.
type Batch struct {
	Stream     record.Stream
	APIKey     string
	Library    version.Library
	UploadTime int64

	// UserID is the envelope id of an identify batch.
	UserID string

	Records []record.Payload
}

// Sink receives accepted batches. An error answers 500, so the client
// retries the batch.
type Sink interface {
	Accept(ctx context.Context, batch Batch) error
}

// MemorySink keeps every batch in memory.
type MemorySink struct {
	mu       sync.Mutex
	batches  []Batch
	accepted chan Batch
}

// NewMemorySink returns a sink that also publishes each batch on
// Accepted, dropping the notification when nobody keeps up with a
// buffer of size buffer.
func NewMemorySink(buffer int) *MemorySink {
	return &MemorySink{accepted: make(chan Batch, buffer)}
}

func (s *MemorySink) Accept(ctx context.Context, batch Batch) error {
	s.mu.Lock()
	s.batches = append(s.batches, batch)
	s.mu.Unlock()
	select {
	case s.accepted <- batch:
	default:
	}
	return nil
}

// Accepted delivers batches as they arrive.
func (s *MemorySink) Accepted() <-chan Batch { return s.accepted }

// Batches returns every batch accepted so far.
func (s *MemorySink) Batches() []Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Batch(nil), s.batches...)
}

// Records returns the records of stream across all batches, in
// arrival order.
func (s *MemorySink) Records(stream record.Stream) []record.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	var records []record.Payload
	for _, batch := range s.batches {
		if batch.Stream == stream {
			records = append(records, batch.Records...)
		}
	}
	return records
}

// LogSink writes one log line per record.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Accept(ctx context.Context, batch Batch) error {
	for _, payload := range batch.Records {
		attrs := []any{
			"stream", batch.Stream.String(),
			"library", batch.Library.Name + "/" + batch.Library.Version,
		}
		if name, ok := payload.String(record.FieldCollection); ok {
			attrs = append(attrs, "event", name)
		}
		if batch.UserID != "" {
			attrs = append(attrs, "user", batch.UserID)
		}
		attrs = append(attrs, "record", map[string]any(payload))
		s.Logger.InfoContext(ctx, "record received", attrs...)
	}
	return nil
}
