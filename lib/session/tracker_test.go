// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"testing"
	"time"
)

type fakePersistence struct {
	lastEventTime     int64
	previousSessionID int64
	err               error
}

func (f *fakePersistence) SaveLastEventTime(timestamp int64) error {
	f.lastEventTime = timestamp
	return f.err
}

func (f *fakePersistence) SavePreviousSessionID(sessionID int64) error {
	f.previousSessionID = sessionID
	return f.err
}

var fresh = State{LastEventTime: -1, PreviousSessionID: -1}

func timeoutConfig(timeout time.Duration) Config {
	return Config{Timeout: timeout, MinTimeBetweenSessions: 5 * time.Minute}
}

func TestFirstEventStartsSession(t *testing.T) {
	tracker := NewTracker(timeoutConfig(5*time.Second), fresh, nil, nil)

	transition := tracker.Observe(1000)
	if !transition.Started || transition.Ended {
		t.Fatalf("transition = %+v, want start only", transition)
	}
	if tracker.SessionID() != 1000 {
		t.Errorf("SessionID = %d, want 1000", tracker.SessionID())
	}
}

func TestTimeoutBoundary(t *testing.T) {
	tracker := NewTracker(timeoutConfig(5000*time.Millisecond), fresh, nil, nil)

	tracker.Observe(0)
	if transition := tracker.Observe(4999); transition.Started || transition.Ended {
		t.Fatalf("event 4999ms after the last shares the session, got %+v", transition)
	}
	if tracker.SessionID() != 0 {
		t.Fatalf("SessionID = %d, want 0", tracker.SessionID())
	}

	// Exactly the timeout after the last activity.
	transition := tracker.Observe(9999)
	want := Transition{Ended: true, EndedSessionID: 0, EndedAt: 4999, Started: true, StartedAt: 9999}
	if transition != want {
		t.Fatalf("transition = %+v, want %+v", transition, want)
	}
	if tracker.SessionID() != 9999 {
		t.Errorf("SessionID = %d, want 9999", tracker.SessionID())
	}
}

func TestGapEqualToTimeoutStartsNewSession(t *testing.T) {
	tracker := NewTracker(timeoutConfig(5000*time.Millisecond), fresh, nil, nil)

	tracker.Observe(0)
	transition := tracker.Observe(5000)
	if !transition.Ended || !transition.Started {
		t.Fatalf("transition = %+v, want end and start", transition)
	}
	if transition.EndedSessionID != 0 || transition.EndedAt != 0 || transition.StartedAt != 5000 {
		t.Errorf("transition = %+v", transition)
	}
}

func TestSharedSessionProperty(t *testing.T) {
	const timeout = 1000
	gaps := []int64{1, 999, 1000, 1001, 500, 2500, 0, 999}

	tracker := NewTracker(timeoutConfig(timeout*time.Millisecond), fresh, nil, nil)
	timestamp := int64(10_000)
	tracker.Observe(timestamp)
	for _, gap := range gaps {
		before := tracker.SessionID()
		timestamp += gap
		tracker.Observe(timestamp)
		shared := tracker.SessionID() == before
		if gap < timeout && !shared {
			t.Errorf("gap %d < timeout split the session", gap)
		}
		if gap >= timeout && shared {
			t.Errorf("gap %d >= timeout kept the session", gap)
		}
	}
}

func TestRestoredSessionContinuesOrEnds(t *testing.T) {
	persisted := State{LastEventTime: 100_000, PreviousSessionID: 90_000}

	tracker := NewTracker(timeoutConfig(time.Minute), persisted, nil, nil)
	if tracker.SessionID() != 90_000 {
		t.Fatalf("restored SessionID = %d, want 90000", tracker.SessionID())
	}
	if transition := tracker.Observe(130_000); transition.Started {
		t.Fatalf("event within timeout of restored session started a new one: %+v", transition)
	}

	tracker = NewTracker(timeoutConfig(time.Minute), persisted, nil, nil)
	transition := tracker.Observe(200_000)
	want := Transition{Ended: true, EndedSessionID: 90_000, EndedAt: 100_000, Started: true, StartedAt: 200_000}
	if transition != want {
		t.Fatalf("transition = %+v, want %+v", transition, want)
	}
}

func TestSilentResume(t *testing.T) {
	// No active session, but a recent previous one.
	tracker := &Tracker{
		config:     timeoutConfig(time.Minute),
		sessionID:  NoSession,
		lastEvent:  100_000,
		previousID: 90_000,
	}

	if transition := tracker.StartIfNeeded(110_000); transition.Started || transition.Ended {
		t.Fatalf("resume emitted boundaries: %+v", transition)
	}
	if tracker.SessionID() != 90_000 {
		t.Errorf("SessionID = %d, want resumed 90000", tracker.SessionID())
	}
	if tracker.LastEventTime() != 110_000 {
		t.Errorf("LastEventTime = %d, want 110000", tracker.LastEventTime())
	}
}

func TestForegroundTracking(t *testing.T) {
	config := Config{Timeout: time.Hour, MinTimeBetweenSessions: 5 * time.Second, ForegroundTracking: true}
	tracker := NewTracker(config, fresh, nil, nil)

	if transition := tracker.EnterForeground(1000); !transition.Started {
		t.Fatalf("EnterForeground did not start a session: %+v", transition)
	}
	if !tracker.InForeground() {
		t.Fatal("InForeground = false after EnterForeground")
	}

	// In the foreground, long gaps only refresh.
	if transition := tracker.Observe(60_000); transition.Started {
		t.Fatalf("foreground event started a session: %+v", transition)
	}
	if tracker.SessionID() != 1000 {
		t.Fatalf("SessionID = %d, want 1000", tracker.SessionID())
	}

	tracker.ExitForeground(61_000)
	if tracker.InForeground() {
		t.Fatal("InForeground = true after ExitForeground")
	}
	if tracker.SessionID() != 1000 {
		t.Fatal("ExitForeground ended the session")
	}

	// Short background stay keeps the session.
	if transition := tracker.EnterForeground(64_000); transition.Started {
		t.Fatalf("short background started a session: %+v", transition)
	}
	tracker.ExitForeground(65_000)

	// A long one replaces it, using MinTimeBetweenSessions.
	transition := tracker.EnterForeground(70_000)
	want := Transition{Ended: true, EndedSessionID: 1000, EndedAt: 65_000, Started: true, StartedAt: 70_000}
	if transition != want {
		t.Fatalf("transition = %+v, want %+v", transition, want)
	}
}

func TestPersistence(t *testing.T) {
	persistence := &fakePersistence{}
	tracker := NewTracker(timeoutConfig(time.Minute), fresh, persistence, nil)

	tracker.Observe(5000)
	if persistence.previousSessionID != 5000 {
		t.Errorf("persisted previous session id = %d, want 5000", persistence.previousSessionID)
	}
	tracker.Observe(6000)
	if persistence.lastEventTime != 6000 {
		t.Errorf("persisted last event time = %d, want 6000", persistence.lastEventTime)
	}
}

func TestPersistenceFailureKeepsMemoryState(t *testing.T) {
	persistence := &fakePersistence{err: errors.New("disk full")}
	tracker := NewTracker(timeoutConfig(time.Minute), fresh, persistence, nil)

	tracker.Observe(5000)
	if tracker.SessionID() != 5000 || tracker.LastEventTime() != 5000 {
		t.Fatalf("state = %d/%d after persistence failure", tracker.SessionID(), tracker.LastEventTime())
	}
}

func TestLastEventTimeNeverDecreases(t *testing.T) {
	tracker := NewTracker(timeoutConfig(time.Minute), fresh, nil, nil)
	tracker.Observe(10_000)
	tracker.Observe(9_000)
	if tracker.LastEventTime() != 10_000 {
		t.Errorf("LastEventTime = %d, want 10000", tracker.LastEventTime())
	}
}
