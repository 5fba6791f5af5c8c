// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/bureau-foundation/eventq/lib/clock"
	"github.com/bureau-foundation/eventq/lib/config"
	"github.com/bureau-foundation/eventq/lib/sqlitepool"
	"github.com/bureau-foundation/eventq/lib/upload"
)

func TestNormalizeInstanceName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"", DefaultInstance},
		{"   ", DefaultInstance},
		{"$DEFAULT_INSTANCE", DefaultInstance},
		{"Mobile", "mobile"},
		{" web ", "web"},
	}
	for _, test := range tests {
		if got := NormalizeInstanceName(test.name); got != test.want {
			t.Errorf("NormalizeInstanceName(%q) = %q, want %q", test.name, got, test.want)
		}
	}
}

func TestDatabaseFile(t *testing.T) {
	tests := map[string]string{
		"":             "eventq.db",
		"Mobile":       "eventq_mobile.db",
		"team/app one": "eventq_team_app_one.db",
		"a-b_c9":       "eventq_a-b_c9.db",
	}
	for instance, want := range tests {
		if got := DatabaseFile(instance); got != want {
			t.Errorf("DatabaseFile(%q) = %q, want %q", instance, got, want)
		}
	}
}

func TestRegistrySeparatesInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	registry := NewRegistry(dir, Config{}, Options{
		Sender: newRecordingSender(),
		Clock:  clock.Fake(epoch),
	})
	t.Cleanup(func() {
		if err := registry.CloseAll(); err != nil {
			t.Errorf("CloseAll: %v", err)
		}
	})

	defaultClient, err := registry.Open(ctx, "")
	if err != nil {
		t.Fatalf("Open(default): %v", err)
	}
	mobile, err := registry.Open(ctx, "Mobile")
	if err != nil {
		t.Fatalf("Open(Mobile): %v", err)
	}
	again, err := registry.Open(ctx, "mobile")
	if err != nil {
		t.Fatalf("Open(mobile): %v", err)
	}
	if again != mobile {
		t.Error("instance names differing only in case opened separate clients")
	}
	if mobile == defaultClient {
		t.Error("named instance shares the default client")
	}

	for _, file := range []string{"eventq.db", "eventq_mobile.db"} {
		if _, err := os.Stat(filepath.Join(dir, file)); err != nil {
			t.Errorf("database %s: %v", file, err)
		}
	}

	mobile.SetUserID("mobile-user")
	if userID, _ := defaultClient.UserID(ctx); userID != "" {
		t.Errorf("default instance user id = %q, want it untouched", userID)
	}

	names := registry.Names()
	slices.Sort(names)
	if want := []string{DefaultInstance, "mobile"}; !slices.Equal(names, want) {
		t.Errorf("Names = %v, want %v", names, want)
	}

	if err := registry.Close("MOBILE"); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := registry.Get("mobile"); ok {
		t.Error("closed instance still registered")
	}
	if err := mobile.LogEvent("late", nil); err != ErrClosed {
		t.Errorf("closed instance LogEvent = %v, want ErrClosed", err)
	}
	if err := registry.Close("never-opened"); err != nil {
		t.Errorf("Close(unknown) = %v", err)
	}
}

func TestFromFile(t *testing.T) {
	cfg := config.Default()
	cfg.Instance = "Web"
	cfg.Storage.Dir = "/var/lib/eventq"
	cfg.Storage.Synchronous = "normal"
	cfg.API.URL = "https://collector.example"
	cfg.API.Key = "key"
	cfg.Upload.Compression = "zstd"

	converted, err := FromFile(cfg)
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	if converted.DatabasePath != "/var/lib/eventq/eventq_web.db" {
		t.Errorf("DatabasePath = %q", converted.DatabasePath)
	}
	if converted.Synchronous != sqlitepool.SynchronousNormal {
		t.Errorf("Synchronous = %q, want NORMAL", converted.Synchronous)
	}
	if converted.Compression != upload.CompressionZstd {
		t.Errorf("Compression = %q, want zstd", converted.Compression)
	}
	if converted.APIURL != cfg.API.URL || converted.APIKey != cfg.API.Key {
		t.Errorf("API = %q %q", converted.APIURL, converted.APIKey)
	}

	cfg.Upload.Compression = "brotli"
	if _, err := FromFile(cfg); err == nil {
		t.Error("FromFile accepted an unknown compression")
	}
}
