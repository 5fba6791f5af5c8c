// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"testing"

	"github.com/bureau-foundation/eventq/lib/record"
)

func TestKVRoundTripTypes(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, record.KeyDeviceID, "device-1R"); err != nil {
		t.Fatalf("Set device_id: %v", err)
	}
	if err := store.Set(ctx, record.KeyOptOut, true); err != nil {
		t.Fatalf("Set opt_out: %v", err)
	}
	if err := store.Set(ctx, record.KeySuperProperties, map[string]any{"plan": "pro", "seats": 3}); err != nil {
		t.Fatalf("Set super_properties: %v", err)
	}

	deviceID, found, err := store.GetString(ctx, record.KeyDeviceID)
	if err != nil || !found || deviceID != "device-1R" {
		t.Errorf("GetString(device_id) = %q, %v, %v", deviceID, found, err)
	}

	var optOut bool
	if found, err := store.Get(ctx, record.KeyOptOut, &optOut); err != nil || !found || !optOut {
		t.Errorf("Get(opt_out) = %v, %v, %v", optOut, found, err)
	}

	var superProperties map[string]any
	if _, err := store.Get(ctx, record.KeySuperProperties, &superProperties); err != nil {
		t.Fatalf("Get(super_properties): %v", err)
	}
	if superProperties["plan"] != "pro" || superProperties["seats"] != int64(3) {
		t.Errorf("super_properties = %#v", superProperties)
	}
}

func TestKVAbsentAndDelete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	value, err := store.GetInt64(ctx, record.KeyPreviousSessionID, -1)
	if err != nil {
		t.Fatalf("GetInt64: %v", err)
	}
	if value != -1 {
		t.Errorf("absent previous_session_id = %d, want -1", value)
	}

	if err := store.Set(ctx, record.KeyPreviousSessionID, int64(1767225600000)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	value, _ = store.GetInt64(ctx, record.KeyPreviousSessionID, -1)
	if value != 1767225600000 {
		t.Errorf("previous_session_id = %d", value)
	}

	if err := store.Set(ctx, record.KeyPreviousSessionID, nil); err != nil {
		t.Fatalf("Set nil: %v", err)
	}
	if found, _ := store.Get(ctx, record.KeyPreviousSessionID, new(int64)); found {
		t.Error("key still present after Set(nil)")
	}
}

func TestKVOverwrite(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	store.Set(ctx, record.KeyUserID, "alice")
	store.Set(ctx, record.KeyUserID, "bob")
	userID, _, _ := store.GetString(ctx, record.KeyUserID)
	if userID != "bob" {
		t.Errorf("user_id = %q, want bob", userID)
	}
}
