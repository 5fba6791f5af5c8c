// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package record defines what the client stores and uploads: the two
// record streams, the Payload value type, and the field, operation and
// bookkeeping key names shared by the store, the enrichment step, the
// uploader and the reference collector.
package record
