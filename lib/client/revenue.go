// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/bureau-foundation/eventq/lib/record"
)

// ErrInvalidRevenue rejects a Revenue that fails Validate.
var ErrInvalidRevenue = errors.New("client: invalid revenue")

// Revenue is one purchase.
type Revenue struct {
	ProductID string

	// Quantity defaults to 1.
	Quantity int

	// Price is the unit price. Required.
	Price *float64

	RevenueType string

	// Receipt and ReceiptSignature carry store verification data.
	Receipt          string
	ReceiptSignature string

	// Properties are extra event properties; the revenue fields win
	// on collision.
	Properties map[string]any
}

// Price returns a pointer for Revenue.Price.
func Price(value float64) *float64 { return &value }

// Validate checks that the revenue can be recorded.
func (r Revenue) Validate() error {
	if r.Price == nil {
		return fmt.Errorf("%w: price is required", ErrInvalidRevenue)
	}
	if math.IsNaN(*r.Price) || math.IsInf(*r.Price, 0) {
		return fmt.Errorf("%w: price %v is not finite", ErrInvalidRevenue, *r.Price)
	}
	if r.Quantity < 0 {
		return fmt.Errorf("%w: quantity %d is negative", ErrInvalidRevenue, r.Quantity)
	}
	if (r.Receipt == "") != (r.ReceiptSignature == "") {
		return fmt.Errorf("%w: receipt and receipt signature must be given together", ErrInvalidRevenue)
	}
	return nil
}

// properties returns the _revenue event properties.
func (r Revenue) properties() map[string]any {
	properties := make(map[string]any, len(r.Properties)+6)
	for key, value := range r.Properties {
		properties[key] = value
	}
	quantity := r.Quantity
	if quantity == 0 {
		quantity = 1
	}
	properties[record.FieldQuantity] = quantity
	properties[record.FieldPrice] = *r.Price
	setIfPresent(properties, record.FieldProductID, r.ProductID)
	setIfPresent(properties, record.FieldRevenueType, r.RevenueType)
	setIfPresent(properties, record.FieldReceipt, r.Receipt)
	setIfPresent(properties, record.FieldReceiptSig, r.ReceiptSignature)
	return properties
}

func setIfPresent(properties map[string]any, key, value string) {
	if strings.TrimSpace(value) != "" {
		properties[key] = value
	}
}

// LogRevenue records a _revenue event.
func (c *Client) LogRevenue(revenue Revenue) error {
	if err := revenue.Validate(); err != nil {
		c.logger.Warn("client: revenue rejected", "error", err)
		return err
	}
	return c.LogEvent(record.RevenueEvent, revenue.properties())
}
