// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides bounded HTTP body reads and network error
// classification shared by the uploader and the reference collector.
package netutil

import (
	"errors"
	"fmt"
	"io"
	"net"
)

// MaxResponseSize bounds collector response reads. A well-behaved
// collector answers with a sentinel of a few bytes.
const MaxResponseSize int64 = 1 << 20

// ErrTooLarge is returned by ReadLimited when the body exceeds the
// limit.
var ErrTooLarge = errors.New("netutil: body exceeds size limit")

// ReadResponse reads a response body up to MaxResponseSize bytes.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// ErrorBody reads a response body for use in an error message. Read
// errors are ignored.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, MaxResponseSize))
	return string(data)
}

// ReadLimited reads at most limit bytes. A body longer than limit
// returns ErrTooLarge instead of a truncated slice.
func ReadLimited(body io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("netutil: reading body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}

// IsTimeout reports whether err is a network timeout, including a
// client-side http.Client.Timeout expiry.
func IsTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
