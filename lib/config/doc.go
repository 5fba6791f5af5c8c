// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads eventq configuration.
//
// Configuration is loaded from a single YAML file named by:
//   - the EVENTQ_CONFIG environment variable, or
//   - the --config flag passed to a command
//
// There is no automatic discovery. Values not present in the file keep
// the defaults from [Default], which mirror the client's built-in
// constants. The file may carry development, staging and production
// sections whose non-empty fields override the api and upload sections
// when the environment matches.
//
// Paths support ${HOME}, ${EVENTQ_DATA} and ${VAR:-default} expansion.
package config
