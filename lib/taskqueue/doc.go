// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package taskqueue provides the serial executors the client is built
// on.
//
// A client owns two queues. The "log" queue owns the record store, the
// session tracker and the upload scheduler state; every public client
// call becomes a task on it. The "http" queue owns the network: it runs
// one upload request at a time and hands the outcome back by posting a
// task to the log queue. The queues never share mutable state, only
// immutable values captured in posted closures.
package taskqueue
