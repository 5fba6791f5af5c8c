// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package collector is a reference collector for the upload protocol.
// It serves POST /event/batch and POST /user/batch, answers with the
// bodies the uploader classifies, and hands accepted batches to a
// Sink.
//
// The collector checks, in order: body size (413), Content-Encoding
// (400), the checksum header when present ("bad_checksum"), the JSON
// envelope (400), and the API key (403). An accepted batch answers
// "1".
package collector
