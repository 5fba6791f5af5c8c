// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package enrich

import (
	"unicode/utf8"

	"github.com/bureau-foundation/eventq/lib/record"
)

// DefaultMaxStringLength is the longest string, in runes, kept in a
// stored payload.
const DefaultMaxStringLength = 1024

// Truncate returns a deep copy of value in which every string longer
// than maxLength runes is cut to maxLength runes. Strings inside maps
// and slices at any depth are cut; map keys are not. Truncate is
// idempotent. A non-positive maxLength copies without cutting.
func Truncate(value any, maxLength int) any {
	switch typed := value.(type) {
	case string:
		return truncateString(typed, maxLength)
	case map[string]any:
		return truncateMap(typed, maxLength)
	case record.Payload:
		return record.Payload(truncateMap(typed, maxLength))
	case []any:
		cut := make([]any, len(typed))
		for i, element := range typed {
			cut[i] = Truncate(element, maxLength)
		}
		return cut
	default:
		return value
	}
}

// TruncatePayload is Truncate for a whole payload.
func TruncatePayload(payload record.Payload, maxLength int) record.Payload {
	if payload == nil {
		return nil
	}
	return record.Payload(truncateMap(payload, maxLength))
}

func truncateMap(source map[string]any, maxLength int) map[string]any {
	cut := make(map[string]any, len(source))
	for key, value := range source {
		cut[key] = Truncate(value, maxLength)
	}
	return cut
}

func truncateString(s string, maxLength int) string {
	if maxLength <= 0 || len(s) <= maxLength {
		return s
	}
	if utf8.RuneCountInString(s) <= maxLength {
		return s
	}
	count := 0
	for index := range s {
		if count == maxLength {
			return s[:index]
		}
		count++
	}
	return s
}
