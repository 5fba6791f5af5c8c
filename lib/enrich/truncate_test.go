// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package enrich

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/bureau-foundation/eventq/lib/record"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		maxLength int
		want      string
	}{
		{"short", "abc", 5, "abc"},
		{"exact", "abcde", 5, "abcde"},
		{"long", "abcdefgh", 5, "abcde"},
		{"multibyte", "héllo wörld", 4, "héll"},
		{"emoji", "🙂🙂🙂", 2, "🙂🙂"},
		{"unlimited", "abcdefgh", 0, "abcdefgh"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := Truncate(test.input, test.maxLength)
			if got != test.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", test.input, test.maxLength, got, test.want)
			}
		})
	}
}

func TestTruncateNested(t *testing.T) {
	long := strings.Repeat("x", 2000)
	input := map[string]any{
		"top": long,
		"nested": map[string]any{
			"deep": []any{long, int64(7), map[string]any{"deeper": long}},
		},
		"number": int64(1),
	}

	got := Truncate(input, DefaultMaxStringLength).(map[string]any)

	if length := len(got["top"].(string)); length != DefaultMaxStringLength {
		t.Errorf("top length = %d, want %d", length, DefaultMaxStringLength)
	}
	deep := got["nested"].(map[string]any)["deep"].([]any)
	if length := len(deep[0].(string)); length != DefaultMaxStringLength {
		t.Errorf("array element length = %d, want %d", length, DefaultMaxStringLength)
	}
	if deep[1] != int64(7) {
		t.Errorf("number in array = %v, want 7", deep[1])
	}
	if length := len(deep[2].(map[string]any)["deeper"].(string)); length != DefaultMaxStringLength {
		t.Errorf("nested map length = %d, want %d", length, DefaultMaxStringLength)
	}

	// The input is untouched.
	if len(input["top"].(string)) != 2000 {
		t.Error("Truncate modified its input")
	}
}

func TestTruncateIdempotent(t *testing.T) {
	input := record.Payload{
		"a": strings.Repeat("é", 50),
		"b": []any{strings.Repeat("z", 60), "short"},
	}
	once := TruncatePayload(input, 10)
	twice := TruncatePayload(once, 10)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("truncating twice changed the result:\nonce:  %v\ntwice: %v", once, twice)
	}
	if count := utf8.RuneCountInString(once["a"].(string)); count != 10 {
		t.Errorf("rune count = %d, want 10", count)
	}
}

func TestTruncatePayloadNil(t *testing.T) {
	if got := TruncatePayload(nil, 10); got != nil {
		t.Errorf("TruncatePayload(nil) = %v, want nil", got)
	}
}
