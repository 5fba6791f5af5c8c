// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"path/filepath"

	"github.com/bureau-foundation/eventq/lib/config"
	"github.com/bureau-foundation/eventq/lib/session"
	"github.com/bureau-foundation/eventq/lib/sqlitepool"
	"github.com/bureau-foundation/eventq/lib/upload"
)

// FromFile converts a loaded configuration file into a client Config.
// The database path is the instance's file under storage.dir.
func FromFile(cfg *config.Config) (Config, error) {
	compression, err := upload.ParseCompression(cfg.Upload.Compression)
	if err != nil {
		return Config{}, err
	}
	synchronous := sqlitepool.SynchronousFull
	if cfg.Storage.Synchronous == "normal" {
		synchronous = sqlitepool.SynchronousNormal
	}
	return Config{
		APIURL:          cfg.API.URL,
		APIKey:          cfg.API.Key,
		DatabasePath:    filepath.Join(cfg.Storage.Dir, DatabaseFile(cfg.Instance)),
		Synchronous:     synchronous,
		MaxEventCount:   cfg.Storage.MaxEventCount,
		RemoveBatchSize: cfg.Storage.RemoveBatchSize,
		Upload: upload.Settings{
			Threshold:    cfg.Upload.Threshold,
			MaxBatchSize: cfg.Upload.MaxBatchSize,
			Period:       cfg.Upload.Period,
		},
		Session: session.Config{
			Timeout:                cfg.Session.Timeout,
			MinTimeBetweenSessions: cfg.Session.MinTimeBetweenSessions,
			ForegroundTracking:     cfg.Session.ForegroundTracking,
		},
		TrackSessionEvents:          cfg.Session.TrackSessionEvents,
		OptOut:                      cfg.Privacy.OptOut,
		Offline:                     cfg.Privacy.Offline,
		UseAdvertisingIDForDeviceID: cfg.Privacy.UseAdvertisingIDForDeviceID,
		MaxStringLength:             cfg.Limits.MaxStringLength,
		MaxPropertyCount:            cfg.Limits.MaxPropertyCount,
		Compression:                 compression,
		Checksum:                    cfg.Upload.Checksum,
		Timeout:                     cfg.Upload.Timeout,
	}, nil
}
