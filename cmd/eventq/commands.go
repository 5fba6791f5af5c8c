// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/eventq/lib/client"
	"github.com/bureau-foundation/eventq/lib/enrich"
	"github.com/bureau-foundation/eventq/lib/identify"
	"github.com/bureau-foundation/eventq/lib/process"
)

const pollInterval = 50 * time.Millisecond

// errHelpShown ends a command after it printed its own help.
var errHelpShown = errors.New("help shown")

func parseCommandFlags(env *environment, flagSet *pflag.FlagSet, args []string) error {
	flagSet.SetOutput(env.stdout)
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return errHelpShown
		}
		return process.Usage("%s: %v", flagSet.Name(), err)
	}
	return nil
}

func helpOK(err error) error {
	if errors.Is(err, errHelpShown) {
		return nil
	}
	return err
}

func parseProperties(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	properties, err := enrich.ParseProperties([]byte(raw))
	if err != nil {
		return nil, process.Usage("--properties: %v", err)
	}
	return properties, nil
}

func runLog(ctx context.Context, env *environment, args []string) error {
	flagSet := pflag.NewFlagSet("log", pflag.ContinueOnError)
	rawProperties := flagSet.String("properties", "", "event properties as a JSON object (comments allowed)")
	outOfSession := flagSet.Bool("out-of-session", false, "record without touching the session")
	at := flagSet.String("time", "", "event time, RFC 3339 (default: now)")
	if err := parseCommandFlags(env, flagSet, args); err != nil {
		return helpOK(err)
	}
	if flagSet.NArg() != 1 {
		return process.Usage("log: expected one event name, got %d arguments", flagSet.NArg())
	}

	properties, err := parseProperties(*rawProperties)
	if err != nil {
		return err
	}
	options := client.EventOptions{Properties: properties, OutOfSession: *outOfSession}
	if *at != "" {
		options.Timestamp, err = time.Parse(time.RFC3339, *at)
		if err != nil {
			return process.Usage("log: --time: %v", err)
		}
	}

	localID, err := env.client.LogEventSync(ctx, flagSet.Arg(0), options)
	if err != nil {
		return err
	}
	if localID < 0 {
		env.logger.Info("opted out, event not recorded", "event", flagSet.Arg(0))
		return nil
	}
	fmt.Fprintln(env.stdout, localID)
	return nil
}

func runRevenue(ctx context.Context, env *environment, args []string) error {
	flagSet := pflag.NewFlagSet("revenue", pflag.ContinueOnError)
	price := flagSet.Float64("price", 0, "unit price (required)")
	quantity := flagSet.Int("quantity", 1, "number of units")
	productID := flagSet.String("product", "", "product id")
	revenueType := flagSet.String("type", "", "revenue type")
	receipt := flagSet.String("receipt", "", "store receipt")
	signature := flagSet.String("receipt-signature", "", "store receipt signature")
	rawProperties := flagSet.String("properties", "", "extra properties as a JSON object")
	if err := parseCommandFlags(env, flagSet, args); err != nil {
		return helpOK(err)
	}
	if !flagSet.Changed("price") {
		return process.Usage("revenue: --price is required")
	}
	properties, err := parseProperties(*rawProperties)
	if err != nil {
		return err
	}
	revenue := client.Revenue{
		ProductID:        *productID,
		Quantity:         *quantity,
		Price:            client.Price(*price),
		RevenueType:      *revenueType,
		Receipt:          *receipt,
		ReceiptSignature: *signature,
		Properties:       properties,
	}
	if err := env.client.LogRevenue(revenue); err != nil {
		return err
	}
	return env.client.Sync(ctx)
}

func runIdentify(ctx context.Context, env *environment, args []string) error {
	flagSet := pflag.NewFlagSet("identify", pflag.ContinueOnError)
	set := flagSet.StringArray("set", nil, "set a property, key=value (repeatable)")
	setOnce := flagSet.StringArray("set-once", nil, "set a property unless already set, key=value")
	add := flagSet.StringArray("add", nil, "add a number to a property, key=number")
	appendItems := flagSet.StringArray("append", nil, "append to a list property, key=value")
	unset := flagSet.StringArray("unset", nil, "remove a property")
	clearAll := flagSet.Bool("clear-all", false, "remove every property")
	outOfSession := flagSet.Bool("out-of-session", false, "record without touching the session")
	if err := parseCommandFlags(env, flagSet, args); err != nil {
		return helpOK(err)
	}
	if flagSet.NArg() != 0 {
		return process.Usage("identify: unexpected argument %q", flagSet.Arg(0))
	}

	builder := identify.New(env.logger)
	apply := func(assignments []string, operation func(key string, value any) *identify.Identify) error {
		for _, assignment := range assignments {
			key, value, err := parseAssignment(assignment)
			if err != nil {
				return err
			}
			operation(key, value)
		}
		return nil
	}
	if *clearAll {
		builder.ClearAll()
	}
	for _, step := range []struct {
		assignments []string
		operation   func(string, any) *identify.Identify
	}{
		{*set, builder.Set},
		{*setOnce, builder.SetOnce},
		{*add, builder.Add},
		{*appendItems, builder.Append},
	} {
		if err := apply(step.assignments, step.operation); err != nil {
			return err
		}
	}
	for _, key := range *unset {
		builder.Unset(key)
	}
	if builder.Empty() {
		return process.Usage("identify: no operations given")
	}

	if *outOfSession {
		err := env.client.IdentifyOutOfSession(builder)
		if err != nil {
			return err
		}
	} else if err := env.client.Identify(builder); err != nil {
		return err
	}
	return env.client.Sync(ctx)
}

func runFlush(ctx context.Context, env *environment, args []string) error {
	flagSet := pflag.NewFlagSet("flush", pflag.ContinueOnError)
	timeout := flagSet.Duration("timeout", 0, "give up after this long (default: upload.timeout)")
	if err := parseCommandFlags(env, flagSet, args); err != nil {
		return helpOK(err)
	}
	wait := *timeout
	if wait <= 0 {
		wait = env.config.Upload.Timeout
	}
	return waitForUpload(ctx, env.client, wait)
}

func runStatus(ctx context.Context, env *environment, args []string) error {
	flagSet := pflag.NewFlagSet("status", pflag.ContinueOnError)
	if err := parseCommandFlags(env, flagSet, args); err != nil {
		return helpOK(err)
	}
	status, err := env.client.Status(ctx)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding status: %w", err)
	}
	fmt.Fprintln(env.stdout, string(data))
	return nil
}

func runDeviceID(ctx context.Context, env *environment, args []string) error {
	flagSet := pflag.NewFlagSet("device-id", pflag.ContinueOnError)
	set := flagSet.String("set", "", "replace the device id")
	regenerate := flagSet.Bool("regenerate", false, "replace the device id with a random one")
	if err := parseCommandFlags(env, flagSet, args); err != nil {
		return helpOK(err)
	}
	switch {
	case *set != "" && *regenerate:
		return process.Usage("device-id: --set and --regenerate are exclusive")
	case *set != "":
		if err := env.client.SetDeviceID(*set); err != nil {
			return err
		}
	case *regenerate:
		if err := env.client.RegenerateDeviceID(); err != nil {
			return err
		}
	}
	deviceID, err := env.client.DeviceID(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(env.stdout, deviceID)
	return nil
}

func runOptOut(ctx context.Context, env *environment, args []string) error {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		return process.Usage("opt-out: expected on or off")
	}
	if err := env.client.SetOptOut(args[0] == "on"); err != nil {
		return err
	}
	return env.client.Sync(ctx)
}

// waitForUpload starts an upload and polls until nothing is pending or
// wait passes. Each accepted batch triggers the next one, so both
// streams drain without waiting for the upload timer.
func waitForUpload(ctx context.Context, c *client.Client, wait time.Duration) error {
	if err := c.UploadNow(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var last client.Status
	for {
		status, err := c.Status(ctx)
		if err != nil && ctx.Err() == nil {
			return err
		}
		if err == nil {
			pending := status.PendingEvents + status.PendingIdentifies
			if pending == 0 && !status.Upload.Uploading {
				return nil
			}
			if !status.Upload.Uploading && status.Upload.Uploaded > last.Upload.Uploaded {
				if err := c.UploadNow(); err != nil {
					return err
				}
			}
			last = status
		}
		select {
		case <-ctx.Done():
			pending := last.PendingEvents + last.PendingIdentifies
			if last.Upload.LastError != "" {
				return fmt.Errorf("%d records still pending after %s: %s", pending, wait, last.Upload.LastError)
			}
			return fmt.Errorf("%d records still pending after %s", pending, wait)
		case <-ticker.C:
		}
	}
}
