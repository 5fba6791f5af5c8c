// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestReadResponse(t *testing.T) {
	data, err := ReadResponse(strings.NewReader("1"))
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	if string(data) != "1" {
		t.Errorf("ReadResponse = %q, want %q", data, "1")
	}
}

func TestErrorBody(t *testing.T) {
	if got := ErrorBody(strings.NewReader("bad_checksum")); got != "bad_checksum" {
		t.Errorf("ErrorBody = %q", got)
	}
}

func TestReadLimited(t *testing.T) {
	data, err := ReadLimited(strings.NewReader("abcd"), 4)
	if err != nil {
		t.Fatalf("ReadLimited at limit: %v", err)
	}
	if string(data) != "abcd" {
		t.Errorf("ReadLimited = %q", data)
	}

	_, err = ReadLimited(strings.NewReader("abcde"), 4)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("ReadLimited over limit error = %v, want ErrTooLarge", err)
	}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestIsTimeout(t *testing.T) {
	if !IsTimeout(fmt.Errorf("post: %w", timeoutError{})) {
		t.Error("wrapped timeout not detected")
	}
	if IsTimeout(errors.New("connection refused")) {
		t.Error("plain error reported as timeout")
	}
	if IsTimeout(nil) {
		t.Error("nil reported as timeout")
	}
}
