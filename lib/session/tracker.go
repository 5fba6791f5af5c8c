// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"log/slog"
	"time"
)

// NoSession is the session id of records logged outside any session.
const NoSession int64 = -1

// Config controls how sessions are delimited.
type Config struct {
	// Timeout ends a session after this much inactivity when the
	// host does not report foreground and background transitions.
	Timeout time.Duration

	// MinTimeBetweenSessions ends a session when the host has been in
	// the background at least this long. Used when ForegroundTracking
	// is on.
	MinTimeBetweenSessions time.Duration

	// ForegroundTracking selects MinTimeBetweenSessions as the session
	// limit. Enable it when the host calls EnterForeground and
	// ExitForeground.
	ForegroundTracking bool
}

// Limit returns the active session limit in milliseconds.
func (c Config) Limit() int64 {
	if c.ForegroundTracking {
		return c.MinTimeBetweenSessions.Milliseconds()
	}
	return c.Timeout.Milliseconds()
}

// State is the persisted part of the tracker.
type State struct {
	// LastEventTime is the timestamp (ms) of the most recent activity,
	// or -1.
	LastEventTime int64

	// PreviousSessionID is the id of the most recently started
	// session, or -1.
	PreviousSessionID int64
}

// Persistence saves tracker state as it changes. Failures are logged
// and the in-memory state stays authoritative for this process.
type Persistence interface {
	SaveLastEventTime(timestamp int64) error
	SavePreviousSessionID(sessionID int64) error
}

// Transition reports the session boundaries crossed by one call.
type Transition struct {
	// Ended is true when an active session was closed.
	Ended bool

	// EndedSessionID is the id of the closed session.
	EndedSessionID int64

	// EndedAt is the last activity time of the closed session, the
	// timestamp its end record carries.
	EndedAt int64

	// Started is true when a new session began. Its id equals
	// StartedAt.
	Started bool

	// StartedAt is the timestamp that started the new session.
	StartedAt int64
}

// Tracker derives session boundaries from event timestamps and
// foreground signals. It is not safe for concurrent use; the client
// calls it only from its log queue.
type Tracker struct {
	config       Config
	sessionID    int64
	lastEvent    int64
	previousID   int64
	inForeground bool
	persistence  Persistence
	logger       *slog.Logger
}

// NewTracker restores a tracker from persisted state. A previous
// session is reinstated as the active session; the next event decides
// whether it continues or ends.
func NewTracker(config Config, state State, persistence Persistence, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	tracker := &Tracker{
		config:      config,
		sessionID:   NoSession,
		lastEvent:   state.LastEventTime,
		previousID:  state.PreviousSessionID,
		persistence: persistence,
		logger:      logger,
	}
	if state.PreviousSessionID >= 0 {
		tracker.sessionID = state.PreviousSessionID
	}
	return tracker
}

// SetConfig replaces the session configuration. The change applies
// from the next event.
func (t *Tracker) SetConfig(config Config) { t.config = config }

// Config returns the current configuration.
func (t *Tracker) Config() Config { return t.config }

// SessionID returns the active session id, or NoSession.
func (t *Tracker) SessionID() int64 { return t.sessionID }

// LastEventTime returns the last recorded activity time (ms), or -1.
func (t *Tracker) LastEventTime() int64 { return t.lastEvent }

// InForeground reports whether the host is in the foreground.
func (t *Tracker) InForeground() bool { return t.inForeground }

// Observe runs before an in-session event at timestamp is recorded.
// In the foreground the session was already established by
// EnterForeground, so only the activity time moves.
func (t *Tracker) Observe(timestamp int64) Transition {
	if t.inForeground {
		t.refresh(timestamp)
		return Transition{}
	}
	return t.StartIfNeeded(timestamp)
}

// StartIfNeeded applies the session rule at timestamp: continue or
// silently resume a session whose last activity is within the limit,
// otherwise end it and start a new one.
func (t *Tracker) StartIfNeeded(timestamp int64) Transition {
	within := timestamp-t.lastEvent < t.config.Limit()

	if t.sessionID >= 0 {
		if within {
			t.refresh(timestamp)
			return Transition{}
		}
		return t.startNew(timestamp)
	}

	if within && t.previousID >= 0 {
		t.sessionID = t.previousID
		t.refresh(timestamp)
		return Transition{}
	}
	return t.startNew(timestamp)
}

// EnterForeground applies the session rule and marks the host as in
// the foreground.
func (t *Tracker) EnterForeground(timestamp int64) Transition {
	transition := t.StartIfNeeded(timestamp)
	t.inForeground = true
	return transition
}

// ExitForeground records activity at timestamp and marks the host as
// in the background. The session stays open.
func (t *Tracker) ExitForeground(timestamp int64) {
	t.refresh(timestamp)
	t.inForeground = false
}

func (t *Tracker) startNew(timestamp int64) Transition {
	var transition Transition
	if t.sessionID >= 0 {
		transition.Ended = true
		transition.EndedSessionID = t.sessionID
		transition.EndedAt = t.lastEvent
	}

	t.sessionID = timestamp
	t.previousID = timestamp
	if t.persistence != nil {
		if err := t.persistence.SavePreviousSessionID(timestamp); err != nil {
			t.logger.Warn("persisting previous session id failed", "session_id", timestamp, "error", err)
		}
	}
	t.refresh(timestamp)

	transition.Started = true
	transition.StartedAt = timestamp
	return transition
}

// refresh advances the activity time of the active session. Out of
// order timestamps never move it backwards.
func (t *Tracker) refresh(timestamp int64) {
	if t.sessionID < 0 || timestamp < t.lastEvent {
		return
	}
	t.lastEvent = timestamp
	if t.persistence != nil {
		if err := t.persistence.SaveLastEventTime(timestamp); err != nil {
			t.logger.Warn("persisting last event time failed", "timestamp", timestamp, "error", err)
		}
	}
}
