// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/bureau-foundation/eventq/lib/process"
)

// parseAssignment splits "key=value" and infers the value type.
func parseAssignment(assignment string) (string, any, error) {
	key, raw, found := strings.Cut(assignment, "=")
	key = strings.TrimSpace(key)
	if !found || key == "" {
		return "", nil, process.Usage("expected key=value, got %q", assignment)
	}
	return key, parseValue(raw), nil
}

// parseValue reads integers, floats, booleans, null, and JSON objects
// or arrays. Anything else is a string.
func parseValue(raw string) any {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	switch raw {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	if strings.HasPrefix(raw, "{") || strings.HasPrefix(raw, "[") {
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err == nil {
			return value
		}
	}
	return raw
}
