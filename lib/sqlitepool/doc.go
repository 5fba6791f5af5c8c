// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool wraps zombiezen.com/go/sqlite with the settings
// the record store depends on.
//
// Every connection runs in WAL mode with a five second busy timeout.
// The synchronous pragma defaults to FULL so that a committed append
// is on disk before the call returns; SynchronousNormal trades that
// for throughput and still survives a process crash.
//
// Callers write plain SQL through sqlitex:
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:   filepath.Join(dir, "eventq.db"),
//	    Schema: schema,
//	    Logger: logger,
//	})
//	...
//	err = pool.Write(ctx, func(conn *sqlite.Conn) error {
//	    return sqlitex.Execute(conn, "INSERT INTO events (payload) VALUES (?)",
//	        &sqlitex.ExecOptions{Args: []any{data}})
//	})
package sqlitepool
