// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package enrich

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/bureau-foundation/eventq/lib/record"
	"github.com/bureau-foundation/eventq/lib/version"
)

// DeviceInfo is the static description of the host, resolved once at
// startup. Empty strings are sent as null.
type DeviceInfo struct {
	Platform        string
	VersionName     string
	OSName          string
	OSVersion       string
	Brand           string
	Manufacturer    string
	Model           string
	Carrier         string
	Country         string
	Language        string
	AdvertisingID   string
	LimitAdTracking bool
}

// Location is a geographic position.
type Location struct {
	Latitude  float64
	Longitude float64
}

// Locator reports the most recent known location. ok is false when no
// location is available.
type Locator interface {
	Location() (location Location, ok bool)
}

// Context is the per-record state the client supplies.
type Context struct {
	Timestamp int64
	UserID    string
	DeviceID  string
	SessionID int64
}

// Config configures an Enricher.
type Config struct {
	// MaxStringLength defaults to DefaultMaxStringLength.
	MaxStringLength int

	// MaxPropertyCount defaults to DefaultMaxPropertyCount.
	MaxPropertyCount int

	Device DeviceInfo

	// Locator is optional.
	Locator Locator

	// NewID generates record ids. Defaults to random UUIDs.
	NewID func() string

	Logger *slog.Logger
}

// Enricher builds record payloads.
type Enricher struct {
	maxStringLength  int
	maxPropertyCount int
	device           DeviceInfo
	locator          Locator
	locationOff      bool
	newID            func() string
	logger           *slog.Logger
}

// New returns an Enricher with defaults applied.
func New(config Config) *Enricher {
	enricher := &Enricher{
		maxStringLength:  config.MaxStringLength,
		maxPropertyCount: config.MaxPropertyCount,
		device:           config.Device,
		locator:          config.Locator,
		newID:            config.NewID,
		logger:           config.Logger,
	}
	if enricher.maxStringLength <= 0 {
		enricher.maxStringLength = DefaultMaxStringLength
	}
	if enricher.maxPropertyCount <= 0 {
		enricher.maxPropertyCount = DefaultMaxPropertyCount
	}
	if enricher.device.Platform == "" {
		enricher.device.Platform = version.Platform
	}
	if enricher.newID == nil {
		enricher.newID = func() string { return uuid.NewString() }
	}
	if enricher.logger == nil {
		enricher.logger = slog.New(slog.DiscardHandler)
	}
	return enricher
}

// MaxStringLength returns the truncation limit in effect.
func (e *Enricher) MaxStringLength() int { return e.maxStringLength }

// Event builds the payload of an event record. properties must already
// be normalized (see NormalizeProperties); superProperties are the
// persisted defaults, overridden by properties on collision. The
// returned payload shares nothing with its inputs.
func (e *Enricher) Event(name string, properties, superProperties map[string]any, ctx Context, localID int64) record.Payload {
	merged := Merge(properties, superProperties)
	merged, dropped := CapProperties(merged, e.maxPropertyCount)
	if dropped > 0 {
		e.logger.Warn("event has too many properties, dropped the excess",
			"event", name,
			"dropped", dropped,
			"max_property_count", e.maxPropertyCount,
		)
	}

	// Standard fields win over caller keys of the same name: the
	// uploader relies on _local_id and the collector on _time.
	for key, value := range e.standardFields(ctx, localID) {
		merged[key] = value
	}
	for key, value := range e.deviceFields() {
		if _, set := merged[key]; !set {
			merged[key] = value
		}
	}

	payload := record.Payload{
		record.FieldType:       record.TypeEvent,
		record.FieldCollection: name,
		record.FieldProperties: merged,
	}
	return TruncatePayload(payload, e.maxStringLength)
}

// Identify builds the payload of an identify record from its
// operation map.
func (e *Enricher) Identify(operations map[string]any, ctx Context, localID int64) record.Payload {
	payload := make(record.Payload, len(operations)+10)
	for operation, value := range operations {
		payload[operation] = value
	}
	for key, value := range e.standardFields(ctx, localID) {
		payload[key] = value
	}
	payload[record.FieldType] = record.TypeIdentify
	return TruncatePayload(payload, e.maxStringLength)
}

func (e *Enricher) standardFields(ctx Context, localID int64) map[string]any {
	return map[string]any{
		record.FieldID:             e.newID(),
		record.FieldLocalID:        localID,
		record.FieldTime:           ctx.Timestamp,
		record.FieldUser:           nullable(ctx.UserID),
		record.FieldDeviceID:       nullable(ctx.DeviceID),
		record.FieldSessionID:      ctx.SessionID,
		record.FieldPlatform:       e.device.Platform,
		record.FieldLibraryName:    version.LibraryName,
		record.FieldLibraryVersion: version.Version,
	}
}

func (e *Enricher) deviceFields() map[string]any {
	fields := map[string]any{
		record.FieldVersionName:        nullable(e.device.VersionName),
		record.FieldOSName:             nullable(e.device.OSName),
		record.FieldOSVersion:          nullable(e.device.OSVersion),
		record.FieldDeviceBrand:        nullable(e.device.Brand),
		record.FieldDeviceManufacturer: nullable(e.device.Manufacturer),
		record.FieldDeviceModel:        nullable(e.device.Model),
		record.FieldCarrier:            nullable(e.device.Carrier),
		record.FieldCountryCode:        nullable(e.device.Country),
		record.FieldLanguage:           nullable(e.device.Language),
		record.FieldIP:                 true,
		record.FieldLimitAdTracking:    e.device.LimitAdTracking,
	}
	if e.device.AdvertisingID != "" {
		fields[record.FieldAdvertisingID] = e.device.AdvertisingID
	}
	if e.locator != nil && !e.locationOff {
		if location, ok := e.locator.Location(); ok {
			fields[record.FieldLatitude] = location.Latitude
			fields[record.FieldLongitude] = location.Longitude
		}
	}
	return fields
}

// SetLocationListening turns location fields on (the default) or
// off for subsequent payloads. It has no effect without a Locator.
func (e *Enricher) SetLocationListening(enabled bool) {
	e.locationOff = !enabled
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
