// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/eventq/lib/clock"
	"github.com/bureau-foundation/eventq/lib/enrich"
	"github.com/bureau-foundation/eventq/lib/record"
	"github.com/bureau-foundation/eventq/lib/session"
	"github.com/bureau-foundation/eventq/lib/sqlitepool"
	"github.com/bureau-foundation/eventq/lib/store"
	"github.com/bureau-foundation/eventq/lib/taskqueue"
	"github.com/bureau-foundation/eventq/lib/upload"
)

// Defaults for Config fields left zero.
const (
	DefaultMaxEventCount          = 1000
	DefaultRemoveBatchSize        = 20
	DefaultSessionTimeout         = 30 * time.Minute
	DefaultMinTimeBetweenSessions = 5 * time.Minute
	DefaultQueueCapacity          = 4096
	DefaultDeviceProviderTimeout  = 5 * time.Second
)

// ErrClosed is returned by every method after Close.
var ErrClosed = errors.New("client: closed")

// Config holds the client settings. Zero values take defaults.
type Config struct {
	// APIURL is the collector base URL. Required unless
	// Options.Sender is set.
	APIURL string

	// APIKey identifies the project. Required unless Options.Sender
	// is set.
	APIKey string

	// DatabasePath is the SQLite file. Required unless Options.Store
	// is set.
	DatabasePath string

	Synchronous sqlitepool.Synchronous

	// MaxEventCount bounds each stream.
	MaxEventCount int64

	// RemoveBatchSize caps one eviction.
	RemoveBatchSize int64

	Upload upload.Settings

	// Session limits. Zero durations take the defaults.
	Session session.Config

	// TrackSessionEvents records _session_start and _session_end.
	TrackSessionEvents bool

	// OptOut, when true, opts out at open. False leaves the persisted
	// choice in place.
	OptOut bool

	// Offline starts the client without uploading.
	Offline bool

	// UseAdvertisingIDForDeviceID prefers the advertising id over a
	// random id when no device id is stored.
	UseAdvertisingIDForDeviceID bool

	MaxStringLength  int
	MaxPropertyCount int

	Compression upload.Compression
	Checksum    bool

	// Timeout bounds one upload request.
	Timeout time.Duration

	// Device is the static device description, used when no
	// DeviceProvider is configured or it fails.
	Device enrich.DeviceInfo
}

func (c Config) withDefaults() Config {
	if c.MaxEventCount <= 0 {
		c.MaxEventCount = DefaultMaxEventCount
	}
	if c.RemoveBatchSize <= 0 {
		c.RemoveBatchSize = DefaultRemoveBatchSize
	}
	if c.Session.Timeout <= 0 {
		c.Session.Timeout = DefaultSessionTimeout
	}
	if c.Session.MinTimeBetweenSessions <= 0 {
		c.Session.MinTimeBetweenSessions = DefaultMinTimeBetweenSessions
	}
	if c.Timeout <= 0 {
		c.Timeout = upload.DefaultTimeout
	}
	return c
}

// RecordStore is the storage the client needs. *store.Store
// implements it.
type RecordStore interface {
	upload.Store
	Append(ctx context.Context, stream record.Stream, policy store.EvictionPolicy, build func(localID int64) (record.Payload, error)) (store.AppendResult, error)
	Get(ctx context.Context, key string, target any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Close() error
}

// Options are the injectable dependencies.
type Options struct {
	Clock  clock.Clock
	Logger *slog.Logger

	// Sender replaces the HTTP sender.
	Sender upload.Sender

	// Store replaces the SQLite store opened from DatabasePath. The
	// client closes it on Close.
	Store RecordStore

	// DeviceProvider is asked once, during Open, for device details.
	DeviceProvider DeviceProvider

	// DeviceProviderTimeout bounds the DeviceProvider call.
	DeviceProviderTimeout time.Duration

	// Locator supplies coordinates for events; see
	// SetLocationListening.
	Locator enrich.Locator

	// OnUploadResult is called on the log queue after every upload
	// attempt.
	OnUploadResult func(upload.Result)

	// QueueCapacity bounds each task queue.
	QueueCapacity int

	// NewID generates record ids.
	NewID func() string
}

// Client records and uploads telemetry. All exported methods are safe
// for concurrent use.
type Client struct {
	config    Config
	clock     clock.Clock
	logger    *slog.Logger
	store     RecordStore
	logQueue  *taskqueue.Queue
	httpQueue *taskqueue.Queue
	uploader  *upload.Uploader
	enricher  *enrich.Enricher

	// Owned by the log queue.
	tracker            *session.Tracker
	policy             store.EvictionPolicy
	trackSessionEvents bool
	userID             string
	deviceID           string
	superProperties    map[string]any
	optOut             bool
	offline            bool

	closeOnce sync.Once
	closeErr  error
}

// Open opens the store, restores persisted state, resolves the device
// id, and starts the queues.
func Open(ctx context.Context, config Config, options Options) (*Client, error) {
	config = config.withDefaults()
	if options.Sender == nil {
		if config.APIURL == "" {
			return nil, errors.New("client: APIURL is required")
		}
		if config.APIKey == "" {
			return nil, errors.New("client: APIKey is required")
		}
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}
	if options.QueueCapacity <= 0 {
		options.QueueCapacity = DefaultQueueCapacity
	}
	logger := options.Logger

	recordStore := options.Store
	if recordStore == nil {
		if config.DatabasePath == "" {
			return nil, errors.New("client: DatabasePath is required")
		}
		opened, err := store.Open(store.Config{
			Path:        config.DatabasePath,
			Synchronous: config.Synchronous,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("client: %w", err)
		}
		recordStore = opened
	}

	c := &Client{
		config: config,
		clock:  options.Clock,
		logger: logger,
		store:  recordStore,
		policy: store.EvictionPolicy{
			MaxCount:        config.MaxEventCount,
			RemoveBatchSize: config.RemoveBatchSize,
		},
		trackSessionEvents: config.TrackSessionEvents,
		offline:            config.Offline,
	}

	if err := c.restore(ctx, config, options); err != nil {
		recordStore.Close()
		return nil, err
	}

	sender := options.Sender
	if sender == nil {
		httpSender, err := upload.NewHTTPSender(upload.HTTPSenderConfig{
			BaseURL:     config.APIURL,
			APIKey:      config.APIKey,
			Timeout:     config.Timeout,
			Compression: config.Compression,
			Checksum:    config.Checksum,
		})
		if err != nil {
			recordStore.Close()
			return nil, fmt.Errorf("client: %w", err)
		}
		sender = httpSender
	}

	c.logQueue = taskqueue.New("log", options.QueueCapacity, logger)
	c.httpQueue = taskqueue.New("http", options.QueueCapacity, logger)

	uploader, err := upload.New(upload.Config{
		Store:     recordStore,
		Sender:    sender,
		LogQueue:  c.logQueue,
		HTTPQueue: c.httpQueue,
		Clock:     c.clock,
		Settings:  config.Upload,
		Allowed:   func() bool { return !c.optOut && !c.offline },
		UserID:    func() string { return c.userID },
		OnResult:  options.OnUploadResult,
		Logger:    logger,
	})
	if err != nil {
		c.httpQueue.Close()
		c.logQueue.Close()
		recordStore.Close()
		return nil, fmt.Errorf("client: %w", err)
	}
	c.uploader = uploader

	// Records left over from a previous run drain on the timer.
	if err := c.post(c.scheduleLeftoversOnLogQueue); err != nil {
		logger.Warn("client: scheduling leftover upload failed", "error", err)
	}

	logger.Info("client opened",
		"database", config.DatabasePath,
		"device_id", c.deviceID,
		"session_id", c.tracker.SessionID(),
	)
	return c, nil
}

// restore loads the persisted bookkeeping and builds the enricher and
// session tracker.
func (c *Client) restore(ctx context.Context, config Config, options Options) error {
	var err error
	if c.userID, _, err = getString(ctx, c.store, record.KeyUserID); err != nil {
		return fmt.Errorf("client: %w", err)
	}
	if _, err := c.store.Get(ctx, record.KeyOptOut, &c.optOut); err != nil {
		return fmt.Errorf("client: %w", err)
	}
	if config.OptOut && !c.optOut {
		c.optOut = true
		if err := c.store.Set(ctx, record.KeyOptOut, true); err != nil {
			return fmt.Errorf("client: %w", err)
		}
	}
	var superProperties map[string]any
	if _, err := c.store.Get(ctx, record.KeySuperProperties, &superProperties); err != nil {
		c.logger.Warn("client: discarding unreadable super properties", "error", err)
		superProperties = nil
	}
	c.superProperties = superProperties

	state := session.State{LastEventTime: -1, PreviousSessionID: session.NoSession}
	if state.LastEventTime, err = getInt64(ctx, c.store, record.KeyLastEventTime, -1); err != nil {
		return fmt.Errorf("client: %w", err)
	}
	if state.PreviousSessionID, err = getInt64(ctx, c.store, record.KeyPreviousSessionID, session.NoSession); err != nil {
		return fmt.Errorf("client: %w", err)
	}
	c.tracker = session.NewTracker(config.Session, state, trackerPersistence{store: c.store}, c.logger)

	device := resolveDevice(ctx, config.Device, options, c.logger)
	c.deviceID, err = c.resolveDeviceID(ctx, device.AdvertisingID)
	if err != nil {
		return err
	}

	c.enricher = enrich.New(enrich.Config{
		MaxStringLength:  config.MaxStringLength,
		MaxPropertyCount: config.MaxPropertyCount,
		Device:           device,
		Locator:          options.Locator,
		NewID:            options.NewID,
		Logger:           c.logger,
	})
	return nil
}

func (c *Client) scheduleLeftoversOnLogQueue() {
	total, err := c.store.TotalCount(context.Background())
	if err != nil {
		c.logger.Warn("client: counting leftover records failed", "error", err)
		return
	}
	if total > 0 {
		c.uploader.ScheduleLater()
	}
}

// Close uploads nothing further, drains both queues, and closes the
// store. Records not yet uploaded stay in the store for the next run.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		// Stop the timer and cancel any request in flight, then let
		// both queues drain so every posted task runs.
		if err := c.logQueue.Post(c.uploader.Close); err != nil {
			c.logger.Warn("client: stopping uploader failed", "error", err)
		}
		c.httpQueue.Close()
		c.logQueue.Close()
		c.closeErr = c.store.Close()
		c.logger.Info("client closed")
	})
	return c.closeErr
}

// post runs task on the log queue without waiting.
func (c *Client) post(task func()) error {
	if err := c.logQueue.Post(task); err != nil {
		if errors.Is(err, taskqueue.ErrClosed) {
			return ErrClosed
		}
		return fmt.Errorf("client: %w", err)
	}
	return nil
}

// do runs task on the log queue and waits for it.
func (c *Client) do(ctx context.Context, task func()) error {
	if err := c.logQueue.Do(ctx, task); err != nil {
		if errors.Is(err, taskqueue.ErrClosed) {
			return ErrClosed
		}
		return err
	}
	return nil
}

func (c *Client) now() int64 {
	return clock.Millis(c.clock)
}

func (c *Client) recordContext(timestamp, sessionID int64) enrich.Context {
	return enrich.Context{
		Timestamp: timestamp,
		UserID:    c.userID,
		DeviceID:  c.deviceID,
		SessionID: sessionID,
	}
}

// afterAppendOnLogQueue applies the upload threshold rule.
func (c *Client) afterAppendOnLogQueue() {
	total, err := c.store.TotalCount(context.Background())
	if err != nil {
		c.logger.Warn("client: counting pending records failed", "error", err)
		c.uploader.ScheduleLater()
		return
	}
	c.uploader.AfterAppend(total)
}

// persist writes a bookkeeping value, logging failures. The in-memory
// value stays authoritative for this process.
func (c *Client) persist(key string, value any) {
	if err := c.store.Set(context.Background(), key, value); err != nil {
		c.logger.Warn("client: persisting state failed", "key", key, "error", err)
	}
}

func getString(ctx context.Context, s RecordStore, key string) (string, bool, error) {
	var value string
	found, err := s.Get(ctx, key, &value)
	return value, found, err
}

func getInt64(ctx context.Context, s RecordStore, key string, fallback int64) (int64, error) {
	value := fallback
	if _, err := s.Get(ctx, key, &value); err != nil {
		return fallback, err
	}
	return value, nil
}

// trackerPersistence saves session state through the record store.
type trackerPersistence struct {
	store RecordStore
}

func (p trackerPersistence) SaveLastEventTime(timestamp int64) error {
	return p.store.Set(context.Background(), record.KeyLastEventTime, timestamp)
}

func (p trackerPersistence) SavePreviousSessionID(sessionID int64) error {
	return p.store.Set(context.Background(), record.KeyPreviousSessionID, sessionID)
}
