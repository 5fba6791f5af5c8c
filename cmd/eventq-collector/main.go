// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Eventq-collector is a reference collector for the eventq upload
// protocol. It accepts event and identify batches over HTTP and logs
// every record as a structured log line. Listen address, accepted API
// keys, and the body size limit come from the collector section of
// eventq.yaml.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/eventq/lib/collector"
	"github.com/bureau-foundation/eventq/lib/config"
	"github.com/bureau-foundation/eventq/lib/process"
	"github.com/bureau-foundation/eventq/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var configPath, listen string
	var showVersion bool
	flagSet := pflag.NewFlagSet("eventq-collector", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to eventq.yaml (default: $"+config.EnvVar+")")
	flagSet.StringVar(&listen, "listen", "", "address to serve on (overrides collector.listen)")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return process.Usage("%v", err)
	}
	if showVersion {
		version.Print("eventq-collector")
		return nil
	}

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Collector.Listen = listen
	}
	if err := cfg.ValidateCollector(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	var handler slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, nil)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, nil)
	}
	logger := slog.New(handler).With("service", "eventq-collector")

	server, err := collector.New(collector.Config{
		APIKeys:     cfg.CollectorKeys(),
		MaxBodySize: cfg.Collector.MaxBodySize,
		Sink:        collector.LogSink{Logger: logger},
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := server.ListenAndServe(ctx, cfg.Collector.Listen); err != nil {
		return err
	}
	logger.Info("collector stopped")
	return nil
}
