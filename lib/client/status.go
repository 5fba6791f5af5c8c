// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"errors"

	"github.com/bureau-foundation/eventq/lib/record"
	"github.com/bureau-foundation/eventq/lib/upload"
)

// Status is a snapshot of client state.
type Status struct {
	SessionID     int64
	LastEventTime int64
	InForeground  bool

	UserID   string
	DeviceID string

	OptedOut bool
	Offline  bool

	PendingEvents     int64
	PendingIdentifies int64

	Settings          upload.Settings
	EventsBackoff     upload.Backoff
	IdentifiesBackoff upload.Backoff
	Upload            upload.Stats
}

// Status returns a snapshot taken on the log queue, after every
// previously posted task.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var status Status
	var countErr error
	err := c.do(ctx, func() {
		status = Status{
			SessionID:         c.tracker.SessionID(),
			LastEventTime:     c.tracker.LastEventTime(),
			InForeground:      c.tracker.InForeground(),
			UserID:            c.userID,
			DeviceID:          c.deviceID,
			OptedOut:          c.optOut,
			Offline:           c.offline,
			Settings:          c.uploader.Settings(),
			EventsBackoff:     c.uploader.Backoff(record.Events),
			IdentifiesBackoff: c.uploader.Backoff(record.Identifies),
		}
		var eventsErr, identifiesErr error
		status.PendingEvents, eventsErr = c.store.Count(ctx, record.Events)
		status.PendingIdentifies, identifiesErr = c.store.Count(ctx, record.Identifies)
		countErr = errors.Join(eventsErr, identifiesErr)
	})
	if err != nil {
		return Status{}, err
	}
	status.Upload = c.uploader.Stats()
	return status, countErr
}

// SessionID returns the active session id, or -1.
func (c *Client) SessionID(ctx context.Context) (int64, error) {
	var sessionID int64
	err := c.do(ctx, func() { sessionID = c.tracker.SessionID() })
	return sessionID, err
}

// UploadNow starts an upload without waiting for the threshold or the
// timer.
func (c *Client) UploadNow() error {
	return c.post(func() { c.uploader.Flush() })
}

// Sync waits until every task posted before it has run.
func (c *Client) Sync(ctx context.Context) error {
	return c.do(ctx, func() {})
}
