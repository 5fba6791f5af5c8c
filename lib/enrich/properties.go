// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package enrich

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/tidwall/jsonc"
)

// DefaultMaxPropertyCount is the most properties one event keeps.
const DefaultMaxPropertyCount = 1000

var (
	// ErrInvalidEventName rejects an empty or blank event name.
	ErrInvalidEventName = errors.New("enrich: event name is empty")

	// ErrMalformedProperties rejects caller property JSON that does
	// not parse to an object.
	ErrMalformedProperties = errors.New("enrich: malformed properties")
)

// ValidateEventName returns ErrInvalidEventName for a blank name.
func ValidateEventName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidEventName
	}
	return nil
}

// ParseProperties parses a JSON object of caller properties. Comments
// and trailing commas are accepted. Numbers become int64 when
// integral and float64 otherwise. Empty input yields an empty map.
func ParseProperties(data []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}
	value, err := parseJSONValue(jsonc.ToJSON(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedProperties, err)
	}
	properties, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: top level is %T, not an object", ErrMalformedProperties, value)
	}
	return properties, nil
}

func parseJSONValue(data []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if decoder.More() {
		return nil, errors.New("trailing data after JSON value")
	}
	return Normalize(value)
}

// Merge returns superProperties overlaid with properties: on a key
// collision the caller's value wins. Neither input is modified.
func Merge(properties, superProperties map[string]any) map[string]any {
	merged := make(map[string]any, len(properties)+len(superProperties))
	for key, value := range superProperties {
		merged[key] = value
	}
	for key, value := range properties {
		merged[key] = value
	}
	return merged
}

// CapProperties keeps the first maxCount keys of properties in sorted
// order and returns the kept map and how many keys were dropped. A
// non-positive maxCount keeps everything.
func CapProperties(properties map[string]any, maxCount int) (map[string]any, int) {
	if maxCount <= 0 || len(properties) <= maxCount {
		return properties, 0
	}
	keys := slices.Sorted(maps.Keys(properties))
	kept := make(map[string]any, maxCount)
	for _, key := range keys[:maxCount] {
		kept[key] = properties[key]
	}
	return kept, len(properties) - maxCount
}
