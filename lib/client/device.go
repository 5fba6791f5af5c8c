// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/google/uuid"

	"github.com/bureau-foundation/eventq/lib/enrich"
	"github.com/bureau-foundation/eventq/lib/record"
)

// ErrInvalidDeviceID rejects device ids that identify no device:
// empty, placeholder values, and ids known to be shared by many
// devices.
var ErrInvalidDeviceID = errors.New("client: invalid device id")

// RandomDeviceIDSuffix marks device ids generated by the client rather
// than reported by the host.
const RandomDeviceIDSuffix = "R"

var invalidDeviceIDs = map[string]bool{
	"":                 true,
	"9774d56d682e549c": true,
	"unknown":          true,
	"000000000000000":  true,
	"Android":          true,
	"DEFACE":           true,
	"00000000-0000-0000-0000-000000000000": true,
}

// ValidDeviceID reports whether id can identify a device.
func ValidDeviceID(id string) bool {
	return !invalidDeviceIDs[strings.TrimSpace(id)]
}

// RandomDeviceID returns a fresh random device id.
func RandomDeviceID() string {
	return uuid.NewString() + RandomDeviceIDSuffix
}

// DeviceProvider reports host device details. It is called once,
// during Open, with a bounded context.
type DeviceProvider interface {
	Device(ctx context.Context) (enrich.DeviceInfo, error)
}

// DeviceProviderFunc adapts a function to DeviceProvider.
type DeviceProviderFunc func(ctx context.Context) (enrich.DeviceInfo, error)

func (f DeviceProviderFunc) Device(ctx context.Context) (enrich.DeviceInfo, error) { return f(ctx) }

// HostDevice describes the machine the process runs on, from the Go
// runtime and the locale environment.
func HostDevice() enrich.DeviceInfo {
	info := enrich.DeviceInfo{
		OSName: runtime.GOOS,
		Model:  runtime.GOARCH,
	}
	language, country := parseLocale(firstNonEmpty(os.Getenv("LC_ALL"), os.Getenv("LANG")))
	info.Language = language
	info.Country = country
	return info
}

// parseLocale splits a POSIX locale such as "en_US.UTF-8" into
// language and country.
func parseLocale(locale string) (language, country string) {
	if index := strings.IndexAny(locale, ".@"); index >= 0 {
		locale = locale[:index]
	}
	if locale == "" || locale == "C" || locale == "POSIX" {
		return "", ""
	}
	language, country, _ = strings.Cut(locale, "_")
	return language, country
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

// resolveDevice asks the provider for device details, falling back to
// fallback on error or timeout.
func resolveDevice(ctx context.Context, fallback enrich.DeviceInfo, options Options, logger *slog.Logger) enrich.DeviceInfo {
	if options.DeviceProvider == nil {
		return fallback
	}
	timeout := options.DeviceProviderTimeout
	if timeout <= 0 {
		timeout = DefaultDeviceProviderTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type answer struct {
		info enrich.DeviceInfo
		err  error
	}
	answered := make(chan answer, 1)
	go func() {
		info, err := options.DeviceProvider.Device(ctx)
		answered <- answer{info, err}
	}()

	select {
	case result := <-answered:
		if result.err != nil {
			logger.Warn("client: device provider failed, using configured device", "error", result.err)
			return fallback
		}
		return result.info
	case <-ctx.Done():
		logger.Warn("client: device provider did not answer, using configured device",
			"timeout", timeout, "error", ctx.Err())
		return fallback
	}
}

// resolveDeviceID picks the device id: a valid stored id, then the
// advertising id when configured, then a random id. The choice is
// persisted.
func (c *Client) resolveDeviceID(ctx context.Context, advertisingID string) (string, error) {
	stored, found, err := getString(ctx, c.store, record.KeyDeviceID)
	if err != nil {
		return "", fmt.Errorf("client: %w", err)
	}
	if found && ValidDeviceID(stored) {
		return stored, nil
	}

	deviceID := RandomDeviceID()
	if c.config.UseAdvertisingIDForDeviceID && ValidDeviceID(advertisingID) {
		deviceID = advertisingID
	}
	if err := c.store.Set(ctx, record.KeyDeviceID, deviceID); err != nil {
		return "", fmt.Errorf("client: %w", err)
	}
	return deviceID, nil
}
