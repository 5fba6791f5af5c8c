// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package enrich

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/bureau-foundation/eventq/lib/record"
)

// Normalize converts a caller-supplied value into payload form: nil,
// bool, int64, float64, string, []any or map[string]any. Typed maps
// with string keys and typed slices are converted element by element;
// structs go through their JSON encoding. time.Time becomes Unix
// milliseconds. Unsigned integers above math.MaxInt64 become float64.
// Channels, functions and non-finite floats are rejected.
func Normalize(value any) (any, error) {
	switch typed := value.(type) {
	case nil, bool, string, int64, float64:
		if f, ok := typed.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			return nil, fmt.Errorf("enrich: non-finite number %v", f)
		}
		return typed, nil
	case int:
		return int64(typed), nil
	case int8:
		return int64(typed), nil
	case int16:
		return int64(typed), nil
	case int32:
		return int64(typed), nil
	case uint:
		return normalizeUnsigned(uint64(typed)), nil
	case uint8:
		return int64(typed), nil
	case uint16:
		return int64(typed), nil
	case uint32:
		return int64(typed), nil
	case uint64:
		return normalizeUnsigned(typed), nil
	case float32:
		return Normalize(float64(typed))
	case json.Number:
		if integer, err := typed.Int64(); err == nil {
			return integer, nil
		}
		f, err := typed.Float64()
		if err != nil {
			return nil, fmt.Errorf("enrich: number %q: %w", typed, err)
		}
		return Normalize(f)
	case time.Time:
		return typed.UnixMilli(), nil
	case time.Duration:
		return typed.Milliseconds(), nil
	case map[string]any:
		return normalizeMap(typed)
	case record.Payload:
		return normalizeMap(typed)
	case []any:
		normalized := make([]any, len(typed))
		for i, element := range typed {
			converted, err := Normalize(element)
			if err != nil {
				return nil, err
			}
			normalized[i] = converted
		}
		return normalized, nil
	}
	return normalizeReflect(reflect.ValueOf(value))
}

// NormalizeProperties normalizes every value of a property map. A nil
// map normalizes to an empty one.
func NormalizeProperties(properties map[string]any) (map[string]any, error) {
	if properties == nil {
		return map[string]any{}, nil
	}
	return normalizeMap(properties)
}

func normalizeMap(source map[string]any) (map[string]any, error) {
	normalized := make(map[string]any, len(source))
	for key, value := range source {
		converted, err := Normalize(value)
		if err != nil {
			return nil, fmt.Errorf("%w (property %q)", err, key)
		}
		normalized[key] = converted
	}
	return normalized, nil
}

// normalizeUnsigned keeps unsigned values that fit in int64 exact;
// larger ones become float64 rather than wrapping negative.
func normalizeUnsigned(value uint64) any {
	if value > math.MaxInt64 {
		return float64(value)
	}
	return int64(value)
}

func normalizeReflect(value reflect.Value) (any, error) {
	switch value.Kind() {
	case reflect.Pointer, reflect.Interface:
		if value.IsNil() {
			return nil, nil
		}
		return Normalize(value.Elem().Interface())
	case reflect.String:
		return value.String(), nil
	case reflect.Bool:
		return value.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return value.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return normalizeUnsigned(value.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return Normalize(value.Float())
	case reflect.Slice, reflect.Array:
		if value.Kind() == reflect.Slice && value.IsNil() {
			return nil, nil
		}
		normalized := make([]any, value.Len())
		for i := range value.Len() {
			converted, err := Normalize(value.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			normalized[i] = converted
		}
		return normalized, nil
	case reflect.Map:
		if value.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("enrich: map key type %s is not a string", value.Type().Key())
		}
		if value.IsNil() {
			return nil, nil
		}
		normalized := make(map[string]any, value.Len())
		iterator := value.MapRange()
		for iterator.Next() {
			converted, err := Normalize(iterator.Value().Interface())
			if err != nil {
				return nil, err
			}
			normalized[iterator.Key().String()] = converted
		}
		return normalized, nil
	case reflect.Struct:
		data, err := json.Marshal(value.Interface())
		if err != nil {
			return nil, fmt.Errorf("enrich: encoding %s: %w", value.Type(), err)
		}
		return parseJSONValue(data)
	default:
		return nil, fmt.Errorf("enrich: unsupported property type %s", value.Type())
	}
}
