// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"time"

	"github.com/bureau-foundation/eventq/lib/enrich"
	"github.com/bureau-foundation/eventq/lib/record"
	"github.com/bureau-foundation/eventq/lib/upload"
)

// SetSuperProperties replaces the properties merged into every
// subsequent event. Event properties win on collision.
func (c *Client) SetSuperProperties(properties map[string]any) error {
	normalized, err := enrich.NormalizeProperties(properties)
	if err != nil {
		c.logger.Warn("client: super properties rejected", "error", err)
		return err
	}
	return c.post(func() {
		if len(normalized) == 0 {
			c.clearSuperPropertiesOnLogQueue()
			return
		}
		c.superProperties = normalized
		c.persist(record.KeySuperProperties, normalized)
	})
}

// ClearSuperProperties removes all super properties.
func (c *Client) ClearSuperProperties() error {
	return c.post(c.clearSuperPropertiesOnLogQueue)
}

func (c *Client) clearSuperPropertiesOnLogQueue() {
	c.superProperties = nil
	c.persist(record.KeySuperProperties, nil)
}

// SuperProperties returns a copy of the super properties.
func (c *Client) SuperProperties(ctx context.Context) (map[string]any, error) {
	properties := map[string]any{}
	err := c.do(ctx, func() {
		if c.superProperties != nil {
			properties = record.CloneValue(c.superProperties).(map[string]any)
		}
	})
	return properties, err
}

// SetOptOut stops (true) or resumes (false) recording and uploading.
// The choice is persisted.
func (c *Client) SetOptOut(optOut bool) error {
	return c.post(func() {
		c.optOut = optOut
		c.persist(record.KeyOptOut, optOut)
	})
}

// OptedOut reports the opt-out state.
func (c *Client) OptedOut(ctx context.Context) (bool, error) {
	var optOut bool
	err := c.do(ctx, func() { optOut = c.optOut })
	return optOut, err
}

// SetOffline stops (true) or resumes (false) uploading. Records are
// still stored while offline; going online starts an upload.
func (c *Client) SetOffline(offline bool) error {
	return c.post(func() {
		c.offline = offline
		if !offline {
			c.uploader.Flush()
		}
	})
}

// SetLocationListening adds (true) or omits (false) the Locator's
// coordinates on subsequent events.
func (c *Client) SetLocationListening(enabled bool) error {
	return c.post(func() { c.enricher.SetLocationListening(enabled) })
}

// SetUploadThreshold sets the pending count whose multiples trigger
// an upload.
func (c *Client) SetUploadThreshold(threshold int64) error {
	return c.updateUploadSettings(func(settings *upload.Settings) { settings.Threshold = threshold })
}

// SetMaxBatchSize sets the largest batch. It also ends any backoff.
func (c *Client) SetMaxBatchSize(size int) error {
	return c.updateUploadSettings(func(settings *upload.Settings) { settings.MaxBatchSize = size })
}

// SetUploadPeriod sets the delay of scheduled uploads.
func (c *Client) SetUploadPeriod(period time.Duration) error {
	return c.updateUploadSettings(func(settings *upload.Settings) { settings.Period = period })
}

func (c *Client) updateUploadSettings(change func(*upload.Settings)) error {
	return c.post(func() {
		settings := c.uploader.Settings()
		change(&settings)
		c.uploader.SetSettings(settings)
	})
}

// SetMaxEventCount sets how many records each stream keeps before the
// oldest are evicted.
func (c *Client) SetMaxEventCount(count int64) error {
	if count <= 0 {
		count = DefaultMaxEventCount
	}
	return c.post(func() { c.policy.MaxCount = count })
}

// SetSessionTimeout sets the inactivity gap that ends a session.
func (c *Client) SetSessionTimeout(timeout time.Duration) error {
	return c.post(func() {
		config := c.tracker.Config()
		config.Timeout = timeout
		c.tracker.SetConfig(config)
	})
}

// SetMinTimeBetweenSessions sets the background time that ends a
// session under foreground tracking.
func (c *Client) SetMinTimeBetweenSessions(gap time.Duration) error {
	return c.post(func() {
		config := c.tracker.Config()
		config.MinTimeBetweenSessions = gap
		c.tracker.SetConfig(config)
	})
}

// SetForegroundTracking selects foreground-driven sessions.
func (c *Client) SetForegroundTracking(enabled bool) error {
	return c.post(func() {
		config := c.tracker.Config()
		config.ForegroundTracking = enabled
		c.tracker.SetConfig(config)
	})
}

// SetTrackSessionEvents turns _session_start and _session_end
// records on or off.
func (c *Client) SetTrackSessionEvents(enabled bool) error {
	return c.post(func() { c.trackSessionEvents = enabled })
}
