// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

type recordingT struct {
	failed  bool
	message string
}

func (r *recordingT) Helper() {}

func (r *recordingT) Fatalf(format string, args ...any) {
	r.failed = true
	r.message = fmt.Sprintf(format, args...)
}

func TestRequireReceive(t *testing.T) {
	ch := make(chan int, 1)
	ch <- 42
	if got := RequireReceive(t, ch, time.Second, "value"); got != 42 {
		t.Fatalf("RequireReceive = %d, want 42", got)
	}
}

func TestRequireReceiveTimeout(t *testing.T) {
	recorder := &recordingT{}
	func() {
		defer func() { recover() }()
		RequireReceive(recorder, make(chan int), time.Millisecond, "waiting for %s", "batch")
	}()
	if !recorder.failed {
		t.Fatal("RequireReceive did not fail on timeout")
	}
	if !strings.Contains(recorder.message, "waiting for batch") {
		t.Errorf("message = %q", recorder.message)
	}
}

func TestRequireClosed(t *testing.T) {
	ch := make(chan struct{})
	close(ch)
	RequireClosed(t, ch, time.Second, "closed")
}

func TestUniqueID(t *testing.T) {
	first := UniqueID("event")
	second := UniqueID("event")
	if first == second {
		t.Fatalf("UniqueID returned %q twice", first)
	}
	if !strings.HasPrefix(first, "event-") {
		t.Errorf("UniqueID = %q, want event- prefix", first)
	}
}
