// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/eventq/lib/client"
	"github.com/bureau-foundation/eventq/lib/config"
	"github.com/bureau-foundation/eventq/lib/process"
	"github.com/bureau-foundation/eventq/lib/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		process.Fatal(err)
	}
}

// globalOptions are the flags before the command name.
type globalOptions struct {
	configPath string
	instance   string
	userID     string
	wait       time.Duration
	verbose    bool
}

// environment is what a command runs against.
type environment struct {
	client *client.Client
	config *config.Config
	logger *slog.Logger
	stdout io.Writer
}

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, env *environment, args []string) error

	// uploads marks commands that record something, so --wait
	// applies.
	uploads bool
}

var commands = []command{
	{name: "log", summary: "record an event", run: runLog, uploads: true},
	{name: "revenue", summary: "record a _revenue event", run: runRevenue, uploads: true},
	{name: "identify", summary: "record user property operations", run: runIdentify, uploads: true},
	{name: "flush", summary: "upload everything pending and wait", run: runFlush},
	{name: "status", summary: "print client state as JSON", run: runStatus},
	{name: "device-id", summary: "print, set, or regenerate the device id", run: runDeviceID},
	{name: "opt-out", summary: "stop (on) or resume (off) recording", run: runOptOut},
}

func lookupCommand(name string) (command, bool) {
	for _, candidate := range commands {
		if candidate.name == name {
			return candidate, true
		}
	}
	return command{}, false
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var options globalOptions
	flagSet := pflag.NewFlagSet("eventq", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&options.configPath, "config", "", "path to eventq.yaml (default: $"+config.EnvVar+")")
	flagSet.StringVar(&options.instance, "instance", "", "client instance name (overrides the config file)")
	flagSet.StringVar(&options.userID, "user", "", "set the user id before running the command")
	flagSet.DurationVar(&options.wait, "wait", 0, "after recording, upload and wait up to this long")
	flagSet.BoolVarP(&options.verbose, "verbose", "v", false, "log at debug level")
	showVersion := flagSet.Bool("version", false, "print version information and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(stderr, flagSet)
			return nil
		}
		return process.Usage("%v", err)
	}
	if *showVersion {
		version.Print("eventq")
		return nil
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(stderr, flagSet)
		return nil
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		printHelp(stderr, flagSet)
		return process.Usage("a command is required")
	}
	selected, ok := lookupCommand(rest[0])
	if !ok {
		return process.Usage("unknown command %q", rest[0])
	}

	cfg, err := loadConfig(options)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if options.verbose {
		level = slog.LevelDebug
	}
	logger := newCommandLogger(stderr, level).With("command", selected.name, "instance", client.NormalizeInstanceName(cfg.Instance))

	clientConfig, err := client.FromFile(cfg)
	if err != nil {
		return err
	}
	clientConfig.Device = client.HostDevice()
	c, err := client.Open(ctx, clientConfig, client.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer c.Close()

	if options.userID != "" {
		if err := c.SetUserID(options.userID); err != nil {
			return err
		}
	}

	env := &environment{client: c, config: cfg, logger: logger, stdout: stdout}
	if err := selected.run(ctx, env, rest[1:]); err != nil {
		return err
	}
	if selected.uploads && options.wait > 0 {
		return waitForUpload(ctx, c, options.wait)
	}
	return nil
}

func loadConfig(options globalOptions) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if options.configPath != "" {
		cfg, err = config.LoadFile(options.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if options.instance != "" {
		cfg.Instance = options.instance
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsurePaths(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `eventq records telemetry events and uploads them to a collector.

Usage:
  eventq [global flags] <command> [command flags]

Commands:
`)
	for _, c := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", c.name, c.summary)
	}
	fmt.Fprintf(w, `
Examples:
  eventq log app_start --properties '{"build": 42}'
  eventq --user alice identify --set plan=pro --add logins=1
  eventq flush

Global flags:
`)
	flagSet.SetOutput(w)
	flagSet.PrintDefaults()
}
