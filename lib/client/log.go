// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"time"

	"github.com/bureau-foundation/eventq/lib/enrich"
	"github.com/bureau-foundation/eventq/lib/record"
	"github.com/bureau-foundation/eventq/lib/session"
)

// EventOptions are the optional parts of an event.
type EventOptions struct {
	Properties map[string]any

	// Timestamp defaults to the current time.
	Timestamp time.Time

	// OutOfSession records the event with session id -1 and leaves
	// session state alone.
	OutOfSession bool
}

// LogEvent records an event asynchronously. Validation errors are
// returned immediately; storage errors are logged.
func (c *Client) LogEvent(name string, properties map[string]any) error {
	return c.LogEventWith(name, EventOptions{Properties: properties})
}

// LogEventWith records an event asynchronously.
func (c *Client) LogEventWith(name string, options EventOptions) error {
	properties, timestamp, err := c.prepareEvent(name, options)
	if err != nil {
		return err
	}
	return c.post(func() {
		c.logEventOnLogQueue(name, properties, timestamp, options.OutOfSession)
	})
}

// LogEventSync records an event and waits until it is stored. It
// returns the local id, or -1 when the client is opted out. If ctx
// ends first the event is still recorded and ctx.Err() is returned.
func (c *Client) LogEventSync(ctx context.Context, name string, options EventOptions) (int64, error) {
	properties, timestamp, err := c.prepareEvent(name, options)
	if err != nil {
		return -1, err
	}
	localID := int64(-1)
	var appendErr error
	err = c.do(ctx, func() {
		localID, appendErr = c.logEventOnLogQueue(name, properties, timestamp, options.OutOfSession)
	})
	if err != nil {
		return -1, err
	}
	return localID, appendErr
}

// LogEventJSON records an event whose properties are a JSON object.
// Comments and trailing commas are accepted.
func (c *Client) LogEventJSON(name string, properties []byte) error {
	parsed, err := enrich.ParseProperties(properties)
	if err != nil {
		c.logger.Warn("client: event rejected", "event", name, "error", err)
		return err
	}
	return c.LogEvent(name, parsed)
}

// prepareEvent validates the name and normalizes the properties on
// the caller's goroutine, so the queued task holds its own copy.
func (c *Client) prepareEvent(name string, options EventOptions) (map[string]any, int64, error) {
	if err := enrich.ValidateEventName(name); err != nil {
		c.logger.Warn("client: event rejected", "error", err)
		return nil, 0, err
	}
	properties, err := enrich.NormalizeProperties(options.Properties)
	if err != nil {
		c.logger.Warn("client: event rejected", "event", name, "error", err)
		return nil, 0, err
	}
	timestamp := c.now()
	if !options.Timestamp.IsZero() {
		timestamp = options.Timestamp.UnixMilli()
	}
	return properties, timestamp, nil
}

// logEventOnLogQueue runs the session rule and stores the event.
func (c *Client) logEventOnLogQueue(name string, properties map[string]any, timestamp int64, outOfSession bool) (int64, error) {
	if c.optOut {
		return -1, nil
	}
	sessionID := c.observeOnLogQueue(name, timestamp, outOfSession)
	return c.appendEventOnLogQueue(name, properties, timestamp, sessionID)
}

// observeOnLogQueue applies the session rule for a record at
// timestamp and returns the session id to stamp on it.
func (c *Client) observeOnLogQueue(name string, timestamp int64, outOfSession bool) int64 {
	if outOfSession {
		return session.NoSession
	}
	if name == record.SessionStartEvent || name == record.SessionEndEvent {
		return c.tracker.SessionID()
	}
	c.emitTransitionOnLogQueue(c.tracker.Observe(timestamp))
	return c.tracker.SessionID()
}

// emitTransitionOnLogQueue records session boundary events when
// session event tracking is on.
func (c *Client) emitTransitionOnLogQueue(transition session.Transition) {
	if !c.trackSessionEvents {
		return
	}
	if transition.Ended {
		c.appendEventOnLogQueue(record.SessionEndEvent, nil, transition.EndedAt, transition.EndedSessionID)
	}
	if transition.Started {
		c.appendEventOnLogQueue(record.SessionStartEvent, nil, transition.StartedAt, transition.StartedAt)
	}
}

func (c *Client) appendEventOnLogQueue(name string, properties map[string]any, timestamp, sessionID int64) (int64, error) {
	result, err := c.store.Append(context.Background(), record.Events, c.policy, func(localID int64) (record.Payload, error) {
		return c.enricher.Event(name, properties, c.superProperties, c.recordContext(timestamp, sessionID), localID), nil
	})
	if err != nil {
		c.logger.Error("client: storing event failed", "event", name, "error", err)
		return -1, err
	}
	c.afterAppendOnLogQueue()
	return result.LocalID, nil
}
