// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

// Lifecycle receives host foreground and background transitions.
// Timestamps are Unix milliseconds.
type Lifecycle interface {
	OnForeground(timestamp int64)
	OnBackground(timestamp int64)
}

var _ Lifecycle = (*Client)(nil)

// OnForeground applies the session rule at timestamp and marks the
// host as in the foreground.
func (c *Client) OnForeground(timestamp int64) {
	err := c.post(func() {
		if c.optOut {
			return
		}
		c.emitTransitionOnLogQueue(c.tracker.EnterForeground(timestamp))
	})
	if err != nil {
		c.logger.Warn("client: foreground transition dropped", "error", err)
	}
}

// OnBackground records activity at timestamp, marks the host as in
// the background, and starts an upload.
func (c *Client) OnBackground(timestamp int64) {
	err := c.post(func() {
		c.tracker.ExitForeground(timestamp)
		c.uploader.Flush()
	})
	if err != nil {
		c.logger.Warn("client: background transition dropped", "error", err)
	}
}
