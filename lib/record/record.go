// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"fmt"
	"math"
)

// Stream names one of the two append-only record streams.
type Stream int

const (
	// Events holds tracked events, uploaded to the event batch
	// endpoint.
	Events Stream = iota

	// Identifies holds user property mutations, uploaded to the user
	// batch endpoint.
	Identifies
)

// Streams lists every stream in upload priority order.
var Streams = []Stream{Events, Identifies}

// String returns the stream name used in logs and as the table name.
func (s Stream) String() string {
	switch s {
	case Events:
		return "events"
	case Identifies:
		return "identifies"
	default:
		return fmt.Sprintf("stream(%d)", int(s))
	}
}

// Valid reports whether s is Events or Identifies.
func (s Stream) Valid() bool {
	return s == Events || s == Identifies
}

// Endpoint is the collector path, relative to the API base URL, that
// accepts batches from s.
func (s Stream) Endpoint() string {
	if s == Identifies {
		return "user/batch"
	}
	return "event/batch"
}

// EnvelopeKey is the upload body key holding the record array.
func (s Stream) EnvelopeKey() string {
	if s == Identifies {
		return "data"
	}
	return "events"
}

// LastIDKey is the bookkeeping key holding the last local id assigned
// in s.
func (s Stream) LastIDKey() string {
	if s == Identifies {
		return KeyLastIdentifyID
	}
	return KeyLastEventID
}

// Record is one stored payload and the local id the store assigned it.
type Record struct {
	LocalID int64
	Payload Payload
}

// Payload is a record body: a JSON-shaped tree of map[string]any,
// []any, string, int64, float64, bool and nil. Payloads built by the
// enrichment step are never mutated afterwards; anything that needs a
// changed copy calls Clone.
type Payload map[string]any

// Clone returns a deep copy of p.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	return Payload(cloneMap(p))
}

// Int64 returns the integer stored at key. Values decoded from JSON
// arrive as float64 and are accepted when integral.
func (p Payload) Int64(key string) (int64, bool) {
	return AsInt64(p[key])
}

// String returns the string stored at key.
func (p Payload) String(key string) (string, bool) {
	value, ok := p[key].(string)
	return value, ok
}

// Map returns the nested map stored at key.
func (p Payload) Map(key string) (map[string]any, bool) {
	switch value := p[key].(type) {
	case map[string]any:
		return value, true
	case Payload:
		return value, true
	default:
		return nil, false
	}
}

// AsInt64 converts the integer representations produced by CBOR and
// JSON decoding to int64.
func AsInt64(value any) (int64, bool) {
	switch typed := value.(type) {
	case int64:
		return typed, true
	case int:
		return int64(typed), true
	case int32:
		return int64(typed), true
	case uint64:
		if typed <= math.MaxInt64 {
			return int64(typed), true
		}
	case float64:
		if typed >= -(1<<63) && typed < 1<<63 && typed == float64(int64(typed)) {
			return int64(typed), true
		}
	}
	return 0, false
}

// CloneValue deep-copies a payload value.
func CloneValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return cloneMap(typed)
	case Payload:
		return cloneMap(typed)
	case []any:
		cloned := make([]any, len(typed))
		for i, element := range typed {
			cloned[i] = CloneValue(element)
		}
		return cloned
	default:
		return value
	}
}

func cloneMap(source map[string]any) map[string]any {
	cloned := make(map[string]any, len(source))
	for key, value := range source {
		cloned[key] = CloneValue(value)
	}
	return cloned
}
