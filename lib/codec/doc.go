// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR configuration used for everything the
// client persists: record payloads in the events and identifies tables
// and every value in the key-value table.
//
// JSON is reserved for the wire (upload bodies and collector
// responses). CBOR is the on-disk format:
//
//	data, err := codec.Marshal(payload)
//	err = codec.Unmarshal(data, &payload)
//
// Decoding into an any-typed target yields map[string]any for maps and
// int64 for every integer, so a payload read back from the store has
// the same shape the enrichment step built.
package codec
