// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive], [RequireNoReceive] and [RequireClosed] are the only
// place tests wait on the wall clock; everything time-dependent in the
// client runs against clock.Fake. [UniqueID] and [DatabasePath] hand
// out collision-free names.
package testutil
