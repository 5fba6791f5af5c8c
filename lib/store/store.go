// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/eventq/lib/codec"
	"github.com/bureau-foundation/eventq/lib/record"
	"github.com/bureau-foundation/eventq/lib/sqlitepool"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	payload BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS identifies (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	payload BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value BLOB NOT NULL
);
`

// ErrUnknownStream is returned for a record.Stream that is neither
// Events nor Identifies.
var ErrUnknownStream = errors.New("store: unknown stream")

// CorruptRecordError reports a stored payload that no longer decodes.
// ReadBatch stops at the corrupt record and returns the records before
// it; the caller decides whether to drop it with Delete.
type CorruptRecordError struct {
	Stream  record.Stream
	LocalID int64
	Err     error
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("store: %s record %d does not decode: %v", e.Stream, e.LocalID, e.Err)
}

func (e *CorruptRecordError) Unwrap() error { return e.Err }

// Config holds the parameters for opening a Store.
type Config struct {
	// Path is the SQLite database file. Required.
	Path string

	// Synchronous defaults to sqlitepool.SynchronousFull.
	Synchronous sqlitepool.Synchronous

	// Logger defaults to a discard logger.
	Logger *slog.Logger
}

// EvictionPolicy bounds the size of a stream.
type EvictionPolicy struct {
	// MaxCount is the most records a stream keeps. Zero or negative
	// disables eviction.
	MaxCount int64

	// RemoveBatchSize caps how many records one eviction removes.
	RemoveBatchSize int64
}

// BatchSize returns min(max(1, MaxCount/10), RemoveBatchSize).
func (p EvictionPolicy) BatchSize() int64 {
	size := max(1, p.MaxCount/10)
	if p.RemoveBatchSize > 0 {
		size = min(size, p.RemoveBatchSize)
	}
	return size
}

// AppendResult describes one Append.
type AppendResult struct {
	// LocalID is the id assigned to the new record.
	LocalID int64

	// Evicted counts the oldest records removed to honor the policy.
	Evicted int64

	// Count is the stream's record count after the append and any
	// eviction.
	Count int64
}

// Store is the durable record store: two append-only record streams
// and a key-value table for bookkeeping scalars. All methods are safe
// for concurrent use; the client calls them only from its log queue.
type Store struct {
	pool   *sqlitepool.Pool
	logger *slog.Logger
}

// Open opens or creates the database at cfg.Path.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("store: Path is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:        cfg.Path,
		Synchronous: cfg.Synchronous,
		Schema:      schema,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Append assigns the next local id in stream, calls build with it, and
// durably stores the returned payload. The id is stamped into the
// payload by build, so the stored record and its row agree. The
// stream's last-id bookkeeping key is updated in the same transaction,
// and the oldest records are evicted if the stream exceeds the policy.
//
// Local ids are never reused, even after the records holding them are
// pruned or evicted.
func (s *Store) Append(ctx context.Context, stream record.Stream, policy EvictionPolicy, build func(localID int64) (record.Payload, error)) (AppendResult, error) {
	if !stream.Valid() {
		return AppendResult{}, ErrUnknownStream
	}
	table := stream.String()

	var result AppendResult
	err := s.pool.Write(ctx, func(conn *sqlite.Conn) error {
		localID, err := nextLocalID(conn, table)
		if err != nil {
			return err
		}

		payload, err := build(localID)
		if err != nil {
			return err
		}
		data, err := codec.Marshal(payload)
		if err != nil {
			return fmt.Errorf("store: encoding %s payload: %w", stream, err)
		}

		err = sqlitex.Execute(conn, "INSERT INTO "+table+" (id, payload) VALUES (?, ?)", &sqlitex.ExecOptions{
			Args: []any{localID, data},
		})
		if err != nil {
			return fmt.Errorf("store: inserting into %s: %w", table, err)
		}
		if err := setValue(conn, stream.LastIDKey(), localID); err != nil {
			return err
		}

		count, err := countRows(conn, table)
		if err != nil {
			return err
		}
		var evicted int64
		if policy.MaxCount > 0 && count > policy.MaxCount {
			// A lowered MaxCount can leave the stream far over the
			// bound; remove at least the excess.
			evicted = max(policy.BatchSize(), count-policy.MaxCount)
			err = sqlitex.Execute(conn,
				"DELETE FROM "+table+" WHERE id IN (SELECT id FROM "+table+" ORDER BY id ASC LIMIT ?)",
				&sqlitex.ExecOptions{Args: []any{evicted}})
			if err != nil {
				return fmt.Errorf("store: evicting from %s: %w", table, err)
			}
			evicted = int64(conn.Changes())
			count -= evicted
		}

		result = AppendResult{LocalID: localID, Evicted: evicted, Count: count}
		return nil
	})
	if err != nil {
		return AppendResult{}, err
	}

	if result.Evicted > 0 {
		s.logger.Warn("record store over capacity, evicted oldest records",
			"stream", stream.String(),
			"evicted", result.Evicted,
			"max_count", policy.MaxCount,
		)
	}
	return result, nil
}

// nextLocalID returns one more than the largest id ever assigned in
// table. sqlite_sequence remembers ids of deleted rows; MAX(id) covers
// a table whose sequence row has not been written yet.
func nextLocalID(conn *sqlite.Conn, table string) (int64, error) {
	var highest int64
	err := sqlitex.Execute(conn,
		`SELECT MAX(
			COALESCE((SELECT seq FROM sqlite_sequence WHERE name = ?), 0),
			COALESCE((SELECT MAX(id) FROM `+table+`), 0))`,
		&sqlitex.ExecOptions{
			Args: []any{table},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				highest = stmt.ColumnInt64(0)
				return nil
			},
		})
	if err != nil {
		return 0, fmt.Errorf("store: reading %s sequence: %w", table, err)
	}
	return highest + 1, nil
}

// ReadBatch returns up to limit records of stream with local id
// greater than after, in ascending id order. If a payload fails to
// decode, ReadBatch returns the records before it together with a
// *CorruptRecordError.
func (s *Store) ReadBatch(ctx context.Context, stream record.Stream, after int64, limit int) ([]record.Record, error) {
	if !stream.Valid() {
		return nil, ErrUnknownStream
	}
	if limit <= 0 {
		return nil, nil
	}

	var records []record.Record
	var corrupt *CorruptRecordError
	err := s.pool.Read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			"SELECT id, payload FROM "+stream.String()+" WHERE id > ? ORDER BY id ASC LIMIT ?",
			&sqlitex.ExecOptions{
				Args: []any{after, limit},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					if corrupt != nil {
						return nil
					}
					localID := stmt.ColumnInt64(0)
					data := make([]byte, stmt.ColumnLen(1))
					stmt.ColumnBytes(1, data)

					var payload record.Payload
					if err := codec.Unmarshal(data, &payload); err != nil || payload == nil {
						if err == nil {
							err = errors.New("payload is not a map")
						}
						corrupt = &CorruptRecordError{Stream: stream, LocalID: localID, Err: err}
						return nil
					}
					records = append(records, record.Record{LocalID: localID, Payload: payload})
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("store: reading %s batch: %w", stream, err)
	}
	if corrupt != nil {
		return records, corrupt
	}
	return records, nil
}

// PruneUpTo deletes every record of stream with local id <= localID
// and returns how many were removed. Pruning an already-pruned range
// removes nothing.
func (s *Store) PruneUpTo(ctx context.Context, stream record.Stream, localID int64) (int64, error) {
	return s.deleteWhere(ctx, stream, "id <= ?", localID)
}

// Delete removes the single record with the given local id.
func (s *Store) Delete(ctx context.Context, stream record.Stream, localID int64) (int64, error) {
	return s.deleteWhere(ctx, stream, "id = ?", localID)
}

func (s *Store) deleteWhere(ctx context.Context, stream record.Stream, condition string, localID int64) (int64, error) {
	if !stream.Valid() {
		return 0, ErrUnknownStream
	}
	var removed int64
	err := s.pool.Write(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, "DELETE FROM "+stream.String()+" WHERE "+condition, &sqlitex.ExecOptions{
			Args: []any{localID},
		})
		removed = int64(conn.Changes())
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("store: deleting from %s: %w", stream, err)
	}
	return removed, nil
}

// Count returns the number of records in stream.
func (s *Store) Count(ctx context.Context, stream record.Stream) (int64, error) {
	if !stream.Valid() {
		return 0, ErrUnknownStream
	}
	var count int64
	err := s.pool.Read(ctx, func(conn *sqlite.Conn) error {
		var err error
		count, err = countRows(conn, stream.String())
		return err
	})
	return count, err
}

// TotalCount returns the number of records across both streams.
func (s *Store) TotalCount(ctx context.Context) (int64, error) {
	var total int64
	err := s.pool.Read(ctx, func(conn *sqlite.Conn) error {
		for _, stream := range record.Streams {
			count, err := countRows(conn, stream.String())
			if err != nil {
				return err
			}
			total += count
		}
		return nil
	})
	return total, err
}

func countRows(conn *sqlite.Conn, table string) (int64, error) {
	var count int64
	err := sqlitex.Execute(conn, "SELECT COUNT(*) FROM "+table, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			count = stmt.ColumnInt64(0)
			return nil
		},
	})
	if err != nil {
		return 0, fmt.Errorf("store: counting %s: %w", table, err)
	}
	return count, nil
}

// Reset deletes every record and bookkeeping entry. Local id sequences
// are kept so ids are still never reused.
func (s *Store) Reset(ctx context.Context) error {
	err := s.pool.Write(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.ExecuteScript(conn, "DELETE FROM events; DELETE FROM identifies; DELETE FROM kv;", nil)
	})
	if err != nil {
		return fmt.Errorf("store: reset: %w", err)
	}
	return nil
}
