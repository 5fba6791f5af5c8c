// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"strings"

	"github.com/bureau-foundation/eventq/lib/identify"
	"github.com/bureau-foundation/eventq/lib/record"
)

// Identify records the user property operations of builder. An empty
// builder records nothing.
func (c *Client) Identify(builder *identify.Identify) error {
	return c.identify(builder, false)
}

// IdentifyOutOfSession is Identify without touching session state.
func (c *Client) IdentifyOutOfSession(builder *identify.Identify) error {
	return c.identify(builder, true)
}

func (c *Client) identify(builder *identify.Identify, outOfSession bool) error {
	if builder == nil || builder.Empty() {
		c.logger.Warn("client: empty identify ignored")
		return nil
	}
	operations := builder.Operations()
	timestamp := c.now()
	return c.post(func() {
		c.identifyOnLogQueue(operations, timestamp, outOfSession)
	})
}

// SetUserProperties sets every entry of properties on the user.
func (c *Client) SetUserProperties(properties map[string]any) error {
	if len(properties) == 0 {
		return nil
	}
	return c.Identify(identify.FromProperties(properties, c.logger))
}

// ClearUserProperties removes every property of the user.
func (c *Client) ClearUserProperties() error {
	return c.Identify(identify.New(c.logger).ClearAll())
}

func (c *Client) identifyOnLogQueue(operations map[string]any, timestamp int64, outOfSession bool) (int64, error) {
	if c.optOut {
		return -1, nil
	}
	sessionID := c.observeOnLogQueue("", timestamp, outOfSession)
	result, err := c.store.Append(context.Background(), record.Identifies, c.policy, func(localID int64) (record.Payload, error) {
		return c.enricher.Identify(operations, c.recordContext(timestamp, sessionID), localID), nil
	})
	if err != nil {
		c.logger.Error("client: storing identify failed", "error", err)
		return -1, err
	}
	c.afterAppendOnLogQueue()
	return result.LocalID, nil
}

// SetUserID sets the user id stamped on subsequent records. An empty
// id clears it.
func (c *Client) SetUserID(userID string) error {
	userID = strings.TrimSpace(userID)
	return c.post(func() {
		c.userID = userID
		if userID == "" {
			c.persist(record.KeyUserID, nil)
			return
		}
		c.persist(record.KeyUserID, userID)
	})
}

// UserID returns the current user id, empty if none.
func (c *Client) UserID(ctx context.Context) (string, error) {
	var userID string
	err := c.do(ctx, func() { userID = c.userID })
	return userID, err
}

// SetDeviceID replaces the device id. Invalid ids return
// ErrInvalidDeviceID and change nothing.
func (c *Client) SetDeviceID(deviceID string) error {
	if !ValidDeviceID(deviceID) {
		c.logger.Warn("client: device id rejected", "device_id", deviceID)
		return ErrInvalidDeviceID
	}
	return c.post(func() { c.setDeviceIDOnLogQueue(deviceID) })
}

// RegenerateDeviceID replaces the device id with a fresh random one.
// Combined with SetUserID(""), the next records look like a new user.
func (c *Client) RegenerateDeviceID() error {
	deviceID := RandomDeviceID()
	return c.post(func() { c.setDeviceIDOnLogQueue(deviceID) })
}

func (c *Client) setDeviceIDOnLogQueue(deviceID string) {
	c.deviceID = deviceID
	c.persist(record.KeyDeviceID, deviceID)
}

// DeviceID returns the current device id.
func (c *Client) DeviceID(ctx context.Context) (string, error) {
	var deviceID string
	err := c.do(ctx, func() { deviceID = c.deviceID })
	return deviceID, err
}
