// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session groups events into sessions.
//
// A session id is the millisecond timestamp that started it. An event
// closer than the session limit to the previous activity continues the
// current session; a larger gap ends it and starts a new one, and the
// caller may record _session_end and _session_start events from the
// returned Transition. The limit is the inactivity timeout, or the
// minimum background time when the host reports foreground changes.
package session
