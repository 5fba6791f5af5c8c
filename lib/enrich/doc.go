// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package enrich turns caller input into stored record payloads.
//
// Caller properties are normalized to a JSON-shaped tree, merged over
// the persisted super properties, capped in count, stamped with the
// standard fields (_id, _local_id, _time, _user, _device_id,
// _session_id, platform and library identity) and device metadata, and
// finally truncated so that no string exceeds the configured length.
// The result is a fresh value that shares nothing with the caller's
// maps.
package enrich
