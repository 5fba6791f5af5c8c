// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package identify builds user property mutations.
//
// An [Identify] accumulates operations (set, set once, add, append,
// unset, clear all) against named user properties. Each property may
// appear in only one operation; a later operation on a property that is
// already used is ignored and logged. Clearing all properties excludes
// every other operation. [Identify.Operations] returns the wire form
// stored in the identifies stream.
package identify
