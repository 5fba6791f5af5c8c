// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package upload

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		response Response
		err      error
		want     Outcome
	}{
		{"success sentinel", Response{200, []byte("1")}, nil, Success},
		{"success with newline", Response{200, []byte("1\n")}, nil, Success},
		{"sentinel wins over status", Response{500, []byte("1")}, nil, Success},
		{"forbidden", Response{403, []byte("invalid key")}, nil, InvalidCredentials},
		{"bad request", Response{400, nil}, nil, Malformed},
		{"bad checksum", Response{200, []byte("bad_checksum")}, nil, Transient},
		{"server error", Response{500, nil}, nil, Transient},
		{"too large", Response{413, nil}, nil, TooLarge},
		{"ok without sentinel", Response{200, []byte("ok")}, nil, Unexpected},
		{"transport error", Response{}, errors.New("dial tcp: refused"), NetworkError},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Classify(test.response, test.err); got != test.want {
				t.Errorf("Classify = %v, want %v", got, test.want)
			}
		})
	}
}

func TestBackoffShrink(t *testing.T) {
	var backoff Backoff
	if got := backoff.Limit(100); got != 100 {
		t.Fatalf("inactive limit = %d, want 100", got)
	}

	// Pending smaller than the batch size: halve from pending.
	backoff.Shrink(7, 100)
	if !backoff.Active || backoff.Size != 4 {
		t.Fatalf("after first shrink: %+v, want active size 4", backoff)
	}

	previous := backoff.Size
	for range 10 {
		backoff.Shrink(1000, 100)
		if backoff.Size > previous {
			t.Fatalf("size grew from %d to %d", previous, backoff.Size)
		}
		if backoff.Size < 1 {
			t.Fatalf("size fell below 1: %d", backoff.Size)
		}
		previous = backoff.Size
	}
	if !backoff.DropsNext() {
		t.Errorf("backoff at size 1 should drop next: %+v", backoff)
	}

	backoff.Shrink(0, 100)
	if backoff.Size != 1 {
		t.Errorf("shrink with nothing pending: size %d, want 1", backoff.Size)
	}

	backoff.Reset()
	if backoff.Active || backoff.Limit(50) != 50 {
		t.Errorf("after reset: %+v", backoff)
	}
}
