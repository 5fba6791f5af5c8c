// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Eventq records telemetry from the command line. Each invocation
// opens the instance's record store, applies one command, and closes
// it; records not uploaded yet stay in the store and go out with a
// later invocation.
//
//	eventq [global flags] <command> [command flags]
//
// Commands:
//
//	log <name>      record an event
//	revenue         record a _revenue event
//	identify        record user property operations
//	flush           upload everything pending and wait
//	status          print client state as JSON
//	device-id       print, set, or regenerate the device id
//	opt-out on|off  stop or resume recording
//
// Configuration comes from --config or the EVENTQ_CONFIG environment
// variable.
package main
