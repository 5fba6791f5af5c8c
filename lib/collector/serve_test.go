// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/eventq/lib/record"
	"github.com/bureau-foundation/eventq/lib/testutil"
)

func TestServeShutsDownOnCancel(t *testing.T) {
	server := newTestServer(t, NewMemorySink(1), 0)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- server.Serve(ctx, listener) }()

	response, err := http.Get("http://" + listener.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	response.Body.Close()
	if response.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", response.StatusCode)
	}

	cancel()
	if err := testutil.RequireReceive(t, served, 5*time.Second, "waiting for Serve to return"); err != nil {
		t.Errorf("Serve = %v, want nil after cancel", err)
	}
}

func TestLogSink(t *testing.T) {
	var buffer bytes.Buffer
	sink := LogSink{Logger: slog.New(slog.NewJSONHandler(&buffer, nil))}
	err := sink.Accept(context.Background(), Batch{
		Stream: record.Events,
		Records: []record.Payload{
			{record.FieldCollection: "open"},
			{record.FieldCollection: "close"},
		},
	})
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buffer.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("logged %d lines, want 2:\n%s", len(lines), buffer.String())
	}
	if !strings.Contains(lines[1], `"event":"close"`) {
		t.Errorf("second line = %s", lines[1])
	}
}
