// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package identify

import (
	"bytes"
	"log/slog"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/bureau-foundation/eventq/lib/record"
)

func TestOperations(t *testing.T) {
	operations := New(nil).
		Set("plan", "pro").
		SetOnce("signup", int64(100)).
		Add("logins", 1).
		Append("tags", "beta").
		Unset("legacy").
		Unset("old").
		Operations()

	want := map[string]any{
		record.OpSet:     map[string]any{"plan": "pro"},
		record.OpSetOnce: map[string]any{"signup": int64(100)},
		record.OpAdd:     map[string]any{"logins": int64(1)},
		record.OpAppend:  map[string]any{"tags": "beta"},
		record.OpUnset:   []any{"legacy", "old"},
	}
	if !reflect.DeepEqual(operations, want) {
		t.Errorf("Operations = %#v\nwant %#v", operations, want)
	}
}

func TestDuplicatePropertyIgnored(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	operations := New(logger).
		Set("plan", "pro").
		Add("plan", 5).
		Unset("plan").
		Operations()

	want := map[string]any{record.OpSet: map[string]any{"plan": "pro"}}
	if !reflect.DeepEqual(operations, want) {
		t.Errorf("Operations = %#v, want %#v", operations, want)
	}
	if count := strings.Count(logs.String(), "property already used"); count != 2 {
		t.Errorf("logged %d duplicate warnings, want 2:\n%s", count, logs.String())
	}
}

func TestClearAll(t *testing.T) {
	operations := New(nil).ClearAll().Set("plan", "pro").Operations()
	want := map[string]any{record.OpClearAll: int64(1)}
	if !reflect.DeepEqual(operations, want) {
		t.Errorf("Operations = %#v, want %#v", operations, want)
	}
}

func TestClearAllAfterOtherOperationsIgnored(t *testing.T) {
	operations := New(nil).Set("plan", "pro").ClearAll().Operations()
	if _, present := operations[record.OpClearAll]; present {
		t.Errorf("clear_all accepted alongside set: %v", operations)
	}
}

func TestAddRejectsNonNumbers(t *testing.T) {
	builder := New(nil).Add("count", "three").Add("score", 2.5)
	operations := builder.Operations()
	want := map[string]any{record.OpAdd: map[string]any{"score": 2.5}}
	if !reflect.DeepEqual(operations, want) {
		t.Errorf("Operations = %#v, want %#v", operations, want)
	}
}

func TestAddKeepsLargeUnsignedPositive(t *testing.T) {
	operations := New(nil).Add("bytes", uint64(math.MaxUint64)).Operations()
	delta := operations[record.OpAdd].(map[string]any)["bytes"]
	if delta != float64(math.MaxUint64) {
		t.Errorf("delta = %#v, want %v", delta, float64(math.MaxUint64))
	}
}

func TestEmptyPropertyNameIgnored(t *testing.T) {
	builder := New(nil).Set("", 1).Unset("  ")
	if !builder.Empty() {
		t.Errorf("builder accepted an empty property name: %v", builder.Operations())
	}
}

func TestOperationsIsACopy(t *testing.T) {
	builder := New(nil).Set("profile", map[string]any{"age": 30})
	first := builder.Operations()
	first[record.OpSet].(map[string]any)["profile"].(map[string]any)["age"] = 99

	second := builder.Operations()
	age := second[record.OpSet].(map[string]any)["profile"].(map[string]any)["age"]
	if age != int64(30) {
		t.Errorf("age = %v after mutating a previous copy, want 30", age)
	}
}

func TestFromProperties(t *testing.T) {
	operations := FromProperties(map[string]any{"b": 2, "a": "x"}, nil).Operations()
	want := map[string]any{record.OpSet: map[string]any{"a": "x", "b": int64(2)}}
	if !reflect.DeepEqual(operations, want) {
		t.Errorf("Operations = %#v, want %#v", operations, want)
	}
}
