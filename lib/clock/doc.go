// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Everything in the client that reads the time or arms a timer takes a
// Clock: the session tracker stamps events with Millis, the upload
// scheduler arms its debounce timer with AfterFunc, and the HTTP
// sender's tests wait with After. Tests use Fake:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	client := open(t, c)
//	client.LogEvent("tap", nil)
//	c.WaitForTimers(1)          // the upload timer is armed
//	c.Advance(30 * time.Second) // fire it deterministically
package clock
