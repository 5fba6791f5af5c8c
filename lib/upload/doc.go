// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package upload delivers stored records to the collector.
//
// The [Uploader] decides when to flush (threshold multiples, a
// debounced period timer, explicit requests), reads one batch at a
// time from the store, hands it to a [Sender] on the http queue, and
// applies the collector's answer back on the log queue: prune on
// success, drop on a malformed batch, shrink the batch on "payload too
// large", and leave everything in place on transient and network
// failures. One atomic flag keeps at most one request in flight across
// both streams.
//
// [HTTPSender] is the production Sender. It encodes the batch
// envelope as JSON, optionally compresses it (gzip, zstd or lz4) and
// attaches a BLAKE3 checksum of the uncompressed body.
package upload
