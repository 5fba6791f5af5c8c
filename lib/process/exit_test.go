// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

func TestCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain", errors.New("boom"), 1},
		{"usage", Usage("unknown command %q", "x"), 2},
		{"wrapped usage", fmt.Errorf("parsing: %w", Usage("bad flag")), 2},
	}
	for _, test := range tests {
		if got := Code(test.err); got != test.want {
			t.Errorf("%s: Code = %d, want %d", test.name, got, test.want)
		}
	}
}

func TestReport(t *testing.T) {
	var buffer bytes.Buffer
	Report(&buffer, Usage("missing event name"))
	if got := buffer.String(); got != "error: missing event name\n" {
		t.Errorf("Report wrote %q", got)
	}
}
