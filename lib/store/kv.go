// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/eventq/lib/codec"
)

// Get decodes the value stored under key into target and reports
// whether the key exists. target is left untouched when it does not.
func (s *Store) Get(ctx context.Context, key string, target any) (bool, error) {
	var data []byte
	found := false
	err := s.pool.Read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, "SELECT value FROM kv WHERE key = ?", &sqlitex.ExecOptions{
			Args: []any{key},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				data = make([]byte, stmt.ColumnLen(0))
				stmt.ColumnBytes(0, data)
				return nil
			},
		})
	})
	if err != nil {
		return false, fmt.Errorf("store: get %s: %w", key, err)
	}
	if !found {
		return false, nil
	}
	if err := codec.Unmarshal(data, target); err != nil {
		return false, fmt.Errorf("store: decoding %s: %w", key, err)
	}
	return true, nil
}

// Set stores value under key, replacing any previous value. A nil
// value deletes the key.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	err := s.pool.Write(ctx, func(conn *sqlite.Conn) error {
		return setValue(conn, key, value)
	})
	if err != nil {
		return fmt.Errorf("store: set %s: %w", key, err)
	}
	return nil
}

func setValue(conn *sqlite.Conn, key string, value any) error {
	if value == nil {
		return sqlitex.Execute(conn, "DELETE FROM kv WHERE key = ?", &sqlitex.ExecOptions{
			Args: []any{key},
		})
	}
	data, err := codec.Marshal(value)
	if err != nil {
		return fmt.Errorf("store: encoding %s: %w", key, err)
	}
	return sqlitex.Execute(conn, "INSERT OR REPLACE INTO kv (key, value) VALUES (?, ?)", &sqlitex.ExecOptions{
		Args: []any{key, data},
	})
}

// GetInt64 returns the integer stored under key, or fallback when the
// key is absent.
func (s *Store) GetInt64(ctx context.Context, key string, fallback int64) (int64, error) {
	value := fallback
	if _, err := s.Get(ctx, key, &value); err != nil {
		return fallback, err
	}
	return value, nil
}

// GetString returns the string stored under key and whether it exists.
func (s *Store) GetString(ctx context.Context, key string) (string, bool, error) {
	var value string
	found, err := s.Get(ctx, key, &value)
	return value, found, err
}
