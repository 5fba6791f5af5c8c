// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package identify

import (
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/bureau-foundation/eventq/lib/enrich"
	"github.com/bureau-foundation/eventq/lib/record"
)

// clearAllSentinel is the value carried by clear_all_properties.
const clearAllSentinel int64 = 1

// Identify is a builder of user property operations. The zero value is
// not usable; call New. An Identify is not safe for concurrent use.
type Identify struct {
	logger     *slog.Logger
	operations map[string]any
	used       map[string]string
	clearAll   bool
}

// New returns an empty builder. Ignored operations are logged at Warn
// on logger; nil discards them.
func New(logger *slog.Logger) *Identify {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Identify{
		logger:     logger,
		operations: make(map[string]any),
		used:       make(map[string]string),
	}
}

// Set assigns value to property.
func (i *Identify) Set(property string, value any) *Identify {
	return i.assign(record.OpSet, property, value)
}

// SetOnce assigns value to property unless the property already has a
// value on the server.
func (i *Identify) SetOnce(property string, value any) *Identify {
	return i.assign(record.OpSetOnce, property, value)
}

// Add increments a numeric property by delta. Non-numeric deltas are
// ignored.
func (i *Identify) Add(property string, delta any) *Identify {
	normalized, err := enrich.Normalize(delta)
	if err != nil {
		i.ignore(record.OpAdd, property, "value cannot be stored", "error", err)
		return i
	}
	switch normalized.(type) {
	case int64, float64:
	default:
		i.ignore(record.OpAdd, property, "increment is not a number", "value_type", typeName(normalized))
		return i
	}
	return i.assignNormalized(record.OpAdd, property, normalized)
}

// Append adds value to the list held by property.
func (i *Identify) Append(property string, value any) *Identify {
	return i.assign(record.OpAppend, property, value)
}

// Unset removes property.
func (i *Identify) Unset(property string) *Identify {
	if !i.claim(record.OpUnset, property) {
		return i
	}
	names, _ := i.operations[record.OpUnset].([]any)
	i.operations[record.OpUnset] = append(names, property)
	return i
}

// ClearAll removes every user property. It is ignored when other
// operations are already present, and every later operation is ignored.
func (i *Identify) ClearAll() *Identify {
	if i.clearAll {
		return i
	}
	if len(i.operations) > 0 {
		i.logger.Warn("identify: clear all ignored, other operations already present",
			"operation", record.OpClearAll,
		)
		return i
	}
	i.clearAll = true
	i.operations[record.OpClearAll] = clearAllSentinel
	return i
}

// Empty reports whether no operation has been accepted.
func (i *Identify) Empty() bool {
	return len(i.operations) == 0
}

// Operations returns a deep copy of the accepted operations in wire
// form: property maps for the assigning operations, a list of names
// for unset_properties, and 1 for clear_all_properties.
func (i *Identify) Operations() map[string]any {
	return record.CloneValue(i.operations).(map[string]any)
}

// FromProperties returns an Identify that sets every entry of
// properties, in sorted key order.
func FromProperties(properties map[string]any, logger *slog.Logger) *Identify {
	builder := New(logger)
	for _, key := range slices.Sorted(maps.Keys(properties)) {
		builder.Set(key, properties[key])
	}
	return builder
}

func (i *Identify) assign(operation, property string, value any) *Identify {
	normalized, err := enrich.Normalize(value)
	if err != nil {
		i.ignore(operation, property, "value cannot be stored", "error", err)
		return i
	}
	return i.assignNormalized(operation, property, normalized)
}

func (i *Identify) assignNormalized(operation, property string, value any) *Identify {
	if !i.claim(operation, property) {
		return i
	}
	properties, ok := i.operations[operation].(map[string]any)
	if !ok {
		properties = make(map[string]any)
		i.operations[operation] = properties
	}
	properties[property] = value
	return i
}

// claim reserves property for operation, logging and returning false
// when the builder refuses it.
func (i *Identify) claim(operation, property string) bool {
	if strings.TrimSpace(property) == "" {
		i.ignore(operation, property, "property name is empty")
		return false
	}
	if i.clearAll {
		i.ignore(operation, property, "clear all already requested")
		return false
	}
	if previous, taken := i.used[property]; taken {
		i.ignore(operation, property, "property already used", "previous_operation", previous)
		return false
	}
	i.used[property] = operation
	return true
}

func (i *Identify) ignore(operation, property, reason string, attrs ...any) {
	args := append([]any{"operation", operation, "property", property, "reason", reason}, attrs...)
	i.logger.Warn("identify: operation ignored", args...)
}
