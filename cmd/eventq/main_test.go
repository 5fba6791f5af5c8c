// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/bureau-foundation/eventq/lib/collector"
	"github.com/bureau-foundation/eventq/lib/process"
	"github.com/bureau-foundation/eventq/lib/record"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{"42", int64(42)},
		{"-7", int64(-7)},
		{"2.5", 2.5},
		{"true", true},
		{"false", false},
		{"null", nil},
		{`["a","b"]`, []any{"a", "b"}},
		{`{"k":1}`, map[string]any{"k": float64(1)}},
		{"pro", "pro"},
		{"Inf", "Inf"},
		{"{not json", "{not json"},
		{"", ""},
	}
	for _, test := range tests {
		if got := parseValue(test.raw); !reflect.DeepEqual(got, test.want) {
			t.Errorf("parseValue(%q) = %#v, want %#v", test.raw, got, test.want)
		}
	}
}

func TestParseAssignment(t *testing.T) {
	key, value, err := parseAssignment("plan = pro=max")
	if err != nil || key != "plan" || value != " pro=max" {
		t.Errorf("parseAssignment = %q, %#v, %v", key, value, err)
	}
	for _, bad := range []string{"novalue", "=x"} {
		if _, _, err := parseAssignment(bad); process.Code(err) != 2 {
			t.Errorf("parseAssignment(%q) = %v, want a usage error", bad, err)
		}
	}
}

func TestUsageErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	tests := [][]string{
		{},
		{"explode"},
		{"--no-such-flag", "log"},
	}
	for _, args := range tests {
		err := run(context.Background(), args, &stdout, &stderr)
		if process.Code(err) != 2 {
			t.Errorf("run(%v) = %v, want a usage error", args, err)
		}
	}
}

// harness runs commands against a collector on a test server.
type harness struct {
	t          *testing.T
	sink       *collector.MemorySink
	configPath string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	sink := collector.NewMemorySink(16)
	server, err := collector.New(collector.Config{APIKeys: []string{"cli-key"}, Sink: sink})
	if err != nil {
		t.Fatalf("collector.New: %v", err)
	}
	httpServer := httptest.NewServer(server.Handler())
	t.Cleanup(httpServer.Close)

	dir := t.TempDir()
	configPath := filepath.Join(dir, "eventq.yaml")
	content := fmt.Sprintf(`api:
  url: %s
  key: cli-key
storage:
  dir: %s
upload:
  compression: gzip
  checksum: true
`, httpServer.URL, filepath.Join(dir, "data"))
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return &harness{t: t, sink: sink, configPath: configPath}
}

func (h *harness) run(args ...string) string {
	h.t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"--config", h.configPath}, args...)
	if err := run(context.Background(), full, &stdout, &stderr); err != nil {
		h.t.Fatalf("eventq %s: %v\nstderr:\n%s", strings.Join(args, " "), err, stderr.String())
	}
	return strings.TrimSpace(stdout.String())
}

func TestLogAndWait(t *testing.T) {
	h := newHarness(t)
	localID := h.run("--user", "dana", "--wait", "10s", "log", "app_start",
		"--properties", `{"build": 42, /* nightly */ "channel": "beta",}`)
	if localID != "1" {
		t.Errorf("printed local id %q, want 1", localID)
	}

	events := h.sink.Records(record.Events)
	if len(events) != 1 {
		t.Fatalf("collector received %d events, want 1", len(events))
	}
	properties, _ := events[0].Map(record.FieldProperties)
	if properties["channel"] != "beta" || properties["build"] != float64(42) || properties[record.FieldUser] != "dana" {
		t.Errorf("properties = %v", properties)
	}
}

func TestRecordsPersistBetweenRuns(t *testing.T) {
	h := newHarness(t)
	h.run("log", "first")
	h.run("identify", "--set", "plan=pro", "--add", "logins=1", "--unset", "trial")
	if batches := h.sink.Batches(); len(batches) != 0 {
		t.Fatalf("uploaded %d batches before flush", len(batches))
	}

	h.run("flush")
	if events := h.sink.Records(record.Events); len(events) != 1 {
		t.Errorf("events after flush = %d, want 1", len(events))
	}
	identifies := h.sink.Records(record.Identifies)
	if len(identifies) != 1 {
		t.Fatalf("identifies after flush = %d, want 1", len(identifies))
	}
	set, _ := identifies[0].Map(record.OpSet)
	add, _ := identifies[0].Map(record.OpAdd)
	if set["plan"] != "pro" || add["logins"] != float64(1) {
		t.Errorf("identify = %v", identifies[0])
	}

	var status struct {
		PendingEvents     int64
		PendingIdentifies int64
	}
	if err := json.Unmarshal([]byte(h.run("status")), &status); err != nil {
		t.Fatalf("status output: %v", err)
	}
	if status.PendingEvents != 0 || status.PendingIdentifies != 0 {
		t.Errorf("pending after flush = %+v", status)
	}
}

func TestDeviceIDCommand(t *testing.T) {
	h := newHarness(t)
	original := h.run("device-id")
	if original == "" {
		t.Fatal("empty device id")
	}
	if again := h.run("device-id"); again != original {
		t.Errorf("device id changed between runs: %q then %q", original, again)
	}
	if set := h.run("device-id", "--set", "workstation-7"); set != "workstation-7" {
		t.Errorf("device-id --set printed %q", set)
	}
	if regenerated := h.run("device-id", "--regenerate"); regenerated == "workstation-7" {
		t.Error("device-id --regenerate kept the old id")
	}
}

func TestOptOutCommand(t *testing.T) {
	h := newHarness(t)
	h.run("opt-out", "on")
	if output := h.run("log", "ignored"); output != "" {
		t.Errorf("log while opted out printed %q", output)
	}
	h.run("opt-out", "off")
	if output := h.run("log", "kept"); output != "1" {
		t.Errorf("log after opting back in printed %q, want 1", output)
	}
}

func TestRevenueCommand(t *testing.T) {
	h := newHarness(t)
	h.run("--wait", "10s", "revenue", "--price", "3.5", "--quantity", "2", "--product", "sku-9")

	events := h.sink.Records(record.Events)
	if len(events) != 1 || events[0][record.FieldCollection] != record.RevenueEvent {
		t.Fatalf("events = %v", events)
	}
	properties, _ := events[0].Map(record.FieldProperties)
	if properties[record.FieldPrice] != 3.5 || properties[record.FieldQuantity] != float64(2) || properties[record.FieldProductID] != "sku-9" {
		t.Errorf("properties = %v", properties)
	}

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"--config", h.configPath, "revenue"}, &stdout, &stderr)
	if process.Code(err) != 2 {
		t.Errorf("revenue without --price = %v, want a usage error", err)
	}
}
