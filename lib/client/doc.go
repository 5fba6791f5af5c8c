// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package client is the embeddable telemetry client.
//
// A [Client] records events and user property mutations durably in a
// local SQLite store and uploads them to a collector in batches. All
// state (store access, session tracking, identity, scheduling) is owned
// by a serial "log" queue; network requests run on a separate "http"
// queue and hand their results back to the log queue. Public methods
// post work to the log queue and return immediately, except for the
// ones that take a context, which wait for the log queue to reach them.
//
// Methods that wait must not be called from Options.OnUploadResult,
// which itself runs on the log queue.
//
// [Registry] holds named client instances, each with its own database.
package client
