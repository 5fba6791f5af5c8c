// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version carries build information and the library identity
// stamped on uploaded records.
//
// Build variables are injected with -ldflags, for example:
//
//	go build -ldflags "-X github.com/bureau-foundation/eventq/lib/version.Version=1.2.0"
package version
