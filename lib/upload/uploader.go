// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/eventq/lib/clock"
	"github.com/bureau-foundation/eventq/lib/record"
	"github.com/bureau-foundation/eventq/lib/store"
	"github.com/bureau-foundation/eventq/lib/taskqueue"
)

// Scheduling defaults.
const (
	DefaultThreshold    = 30
	DefaultMaxBatchSize = 100
	DefaultPeriod       = 30 * time.Second
)

// maxCorruptSkips bounds how many undecodable records one flush
// deletes before giving up on the stream until the next trigger.
const maxCorruptSkips = 16

// maxLoggedBody caps the response bytes kept in a Result.
const maxLoggedBody = 256

// Store is the subset of *store.Store the uploader reads and prunes.
type Store interface {
	ReadBatch(ctx context.Context, stream record.Stream, after int64, limit int) ([]record.Record, error)
	PruneUpTo(ctx context.Context, stream record.Stream, localID int64) (int64, error)
	Delete(ctx context.Context, stream record.Stream, localID int64) (int64, error)
	Count(ctx context.Context, stream record.Stream) (int64, error)
	TotalCount(ctx context.Context) (int64, error)
}

// Settings are the runtime-adjustable scheduling parameters.
type Settings struct {
	// Threshold flushes whenever the pending record count across both
	// streams reaches a positive multiple of it.
	Threshold int64

	// MaxBatchSize caps the records in one request.
	MaxBatchSize int

	// Period is the debounce delay of ScheduleLater.
	Period time.Duration
}

// DefaultSettings returns the scheduling defaults.
func DefaultSettings() Settings {
	return Settings{Threshold: DefaultThreshold, MaxBatchSize: DefaultMaxBatchSize, Period: DefaultPeriod}
}

func (s Settings) withDefaults() Settings {
	if s.Threshold <= 0 {
		s.Threshold = DefaultThreshold
	}
	if s.MaxBatchSize <= 0 {
		s.MaxBatchSize = DefaultMaxBatchSize
	}
	if s.Period <= 0 {
		s.Period = DefaultPeriod
	}
	return s
}

// Result describes one completed upload attempt.
type Result struct {
	Stream     record.Stream
	Outcome    Outcome
	Count      int
	MaxLocalID int64
	StatusCode int
	Err        error

	// Body is the start of the response body, for diagnostics.
	Body string

	// Pruned is how many records the attempt removed from the store.
	Pruned int64
}

// Stats are cumulative upload counters.
type Stats struct {
	// Uploaded counts records the collector acknowledged.
	Uploaded int64

	// Dropped counts records removed without acknowledgement: rejected
	// as malformed, oversized single records, and undecodable rows.
	Dropped int64

	// Attempts counts requests that produced a Result.
	Attempts int64

	Uploading bool
	Scheduled bool

	// LastError is the most recent network failure, empty if none.
	LastError string
}

// Config configures an Uploader.
type Config struct {
	Store     Store
	Sender    Sender
	LogQueue  *taskqueue.Queue
	HTTPQueue *taskqueue.Queue
	Clock     clock.Clock
	Settings  Settings

	// Allowed reports whether uploads may run (online and not opted
	// out). Called on the log queue. Nil always allows.
	Allowed func() bool

	// UserID returns the current user id for identify envelopes.
	// Called on the log queue. Nil sends no id.
	UserID func() string

	// OnResult, if set, is called on the log queue after every
	// completed attempt.
	OnResult func(Result)

	Logger *slog.Logger
}

// Uploader schedules and executes uploads. Methods documented as
// running on the log queue must only be called from a task on
// Config.LogQueue; the rest are safe from any goroutine.
type Uploader struct {
	store     Store
	sender    Sender
	logQueue  *taskqueue.Queue
	httpQueue *taskqueue.Queue
	clock     clock.Clock
	allowed   func() bool
	userID    func() string
	onResult  func(Result)
	logger    *slog.Logger

	// ctx scopes requests; Close cancels it.
	ctx    context.Context
	cancel context.CancelFunc

	// Owned by the log queue.
	settings Settings
	backoff  [2]Backoff
	timer    *clock.Timer

	uploading atomic.Bool
	scheduled atomic.Bool
	uploaded  atomic.Int64
	dropped   atomic.Int64
	attempts  atomic.Int64

	mu        sync.Mutex
	lastError error
}

// New validates config and returns an Uploader.
func New(config Config) (*Uploader, error) {
	if config.Store == nil {
		return nil, errors.New("upload: store is required")
	}
	if config.Sender == nil {
		return nil, errors.New("upload: sender is required")
	}
	if config.LogQueue == nil || config.HTTPQueue == nil {
		return nil, errors.New("upload: log and http queues are required")
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Allowed == nil {
		config.Allowed = func() bool { return true }
	}
	if config.UserID == nil {
		config.UserID = func() string { return "" }
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Uploader{
		store:     config.Store,
		sender:    config.Sender,
		logQueue:  config.LogQueue,
		httpQueue: config.HTTPQueue,
		clock:     config.Clock,
		allowed:   config.Allowed,
		userID:    config.UserID,
		onResult:  config.OnResult,
		logger:    config.Logger,
		ctx:       ctx,
		cancel:    cancel,
		settings:  config.Settings.withDefaults(),
	}, nil
}

// Settings returns the current settings. Runs on the log queue.
func (u *Uploader) Settings() Settings { return u.settings }

// SetSettings replaces the settings; zero fields take defaults. A
// changed MaxBatchSize resets backoff. Runs on the log queue.
func (u *Uploader) SetSettings(settings Settings) {
	settings = settings.withDefaults()
	if settings.MaxBatchSize != u.settings.MaxBatchSize {
		for i := range u.backoff {
			u.backoff[i].Reset()
		}
	}
	u.settings = settings
}

// Backoff returns the backoff state of stream. Runs on the log queue.
func (u *Uploader) Backoff(stream record.Stream) Backoff {
	return u.backoff[stream]
}

// AfterAppend applies the threshold rule after a record was stored:
// flush when the pending total is a positive multiple of the
// threshold, otherwise arm the period timer. Runs on the log queue.
func (u *Uploader) AfterAppend(total int64) {
	if total > 0 && total%u.settings.Threshold == 0 {
		u.Flush()
		return
	}
	u.ScheduleLater()
}

// ScheduleLater arms the period timer unless it is already armed.
// Runs on the log queue.
func (u *Uploader) ScheduleLater() {
	if !u.scheduled.CompareAndSwap(false, true) {
		return
	}
	u.timer = u.logQueue.PostAfter(u.clock, u.settings.Period, func() {
		u.scheduled.Store(false)
		u.Flush()
	}, func(error) {
		// The next append or trigger re-arms the timer.
		u.scheduled.Store(false)
	})
}

// Flush starts one upload attempt if none is in flight: events first,
// identifies when there are no events. It is a no-op while uploads
// are not allowed. Runs on the log queue.
func (u *Uploader) Flush() {
	if !u.allowed() {
		return
	}
	if !u.uploading.CompareAndSwap(false, true) {
		return
	}
	for _, stream := range record.Streams {
		if u.start(stream) {
			return
		}
	}
	u.uploading.Store(false)
}

// start reads a batch from stream and hands it to the http queue. It
// returns false, leaving the flag to the caller, when nothing was
// sent.
func (u *Uploader) start(stream record.Stream) bool {
	pending, err := u.store.Count(context.Background(), stream)
	if err != nil {
		u.logger.Warn("upload: counting pending records failed, retrying later",
			"stream", stream.String(), "error", err)
		return false
	}
	limit := min(int64(u.backoff[stream].Limit(u.settings.MaxBatchSize)), pending)
	if limit <= 0 {
		return false
	}

	records, err := u.readBatch(stream, int(limit))
	if err != nil {
		u.logger.Warn("upload: reading batch failed, retrying later",
			"stream", stream.String(), "error", err)
		return false
	}
	if len(records) == 0 {
		return false
	}

	maxLocalID := records[len(records)-1].LocalID
	batch := Batch{
		Stream:     stream,
		Records:    make([]record.Payload, len(records)),
		UploadTime: clock.Millis(u.clock),
	}
	for i, stored := range records {
		batch.Records[i] = stripLocalID(stored.Payload)
	}
	if stream == record.Identifies {
		batch.UserID = u.userID()
	}

	if err := u.httpQueue.Post(func() { u.send(batch, maxLocalID) }); err != nil {
		u.logger.Warn("upload: http queue rejected batch",
			"stream", stream.String(), "error", err)
		return false
	}
	return true
}

// readBatch reads up to limit records, deleting undecodable rows it
// runs into.
func (u *Uploader) readBatch(stream record.Stream, limit int) ([]record.Record, error) {
	for range maxCorruptSkips {
		records, err := u.store.ReadBatch(context.Background(), stream, 0, limit)
		var corrupt *store.CorruptRecordError
		if !errors.As(err, &corrupt) {
			return records, err
		}
		u.dropCorrupt(corrupt)
		if len(records) > 0 {
			return records, nil
		}
	}
	return nil, fmt.Errorf("upload: more than %d undecodable %s records", maxCorruptSkips, stream)
}

func (u *Uploader) dropCorrupt(corrupt *store.CorruptRecordError) {
	removed, err := u.store.Delete(context.Background(), corrupt.Stream, corrupt.LocalID)
	if err != nil {
		u.logger.Error("upload: deleting undecodable record failed",
			"stream", corrupt.Stream.String(), "local_id", corrupt.LocalID, "error", err)
		return
	}
	u.dropped.Add(removed)
	u.logger.Error("upload: dropped undecodable record",
		"stream", corrupt.Stream.String(), "local_id", corrupt.LocalID, "error", corrupt.Err)
}

// send runs on the http queue. The completion goes back to the log
// queue; if that fails the flag is released here.
func (u *Uploader) send(batch Batch, maxLocalID int64) {
	handedOff := false
	defer func() {
		if !handedOff {
			u.uploading.Store(false)
		}
	}()

	response, err := u.deliver(batch)
	result := Result{
		Stream:     batch.Stream,
		Outcome:    Classify(response, err),
		Count:      len(batch.Records),
		MaxLocalID: maxLocalID,
		StatusCode: response.StatusCode,
		Err:        err,
		Body:       string(response.Body[:min(len(response.Body), maxLoggedBody)]),
	}
	if postErr := u.logQueue.Post(func() { u.complete(result) }); postErr != nil {
		u.logger.Warn("upload: log queue rejected upload result",
			"stream", batch.Stream.String(), "outcome", result.Outcome.String(), "error", postErr)
		return
	}
	handedOff = true
}

func (u *Uploader) deliver(batch Batch) (response Response, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("upload: sender panicked: %v", recovered)
		}
	}()
	return u.sender.Send(u.ctx, batch)
}

// complete applies an upload result. Runs on the log queue.
func (u *Uploader) complete(result Result) {
	u.attempts.Add(1)
	stream := result.Stream
	attrs := []any{
		"stream", stream.String(),
		"batch_size", result.Count,
		"max_local_id", result.MaxLocalID,
		"status", result.StatusCode,
	}

	followUp := false
	switch result.Outcome {
	case Success:
		result.Pruned = u.prune(stream, result.MaxLocalID)
		u.uploaded.Add(int64(result.Count))
		u.logger.Debug("upload: batch accepted", attrs...)
		total, err := u.store.TotalCount(context.Background())
		if err != nil {
			u.logger.Warn("upload: counting pending records failed", "error", err)
			break
		}
		if total > u.settings.Threshold {
			followUp = true
		} else {
			u.backoff[stream].Reset()
			if total > 0 {
				u.ScheduleLater()
			}
		}

	case InvalidCredentials:
		u.logger.Error("upload: collector rejected the API key", attrs...)

	case Malformed:
		result.Pruned = u.prune(stream, result.MaxLocalID)
		u.dropped.Add(int64(result.Count))
		u.logger.Error("upload: collector rejected batch as malformed, batch dropped", attrs...)

	case Transient, Unexpected:
		u.logger.Warn("upload: collector failed transiently, retrying later",
			append(attrs, "outcome", result.Outcome.String(), "body", result.Body)...)

	case TooLarge:
		if u.backoff[stream].DropsNext() && result.Count == 1 {
			result.Pruned = u.prune(stream, result.MaxLocalID)
			u.dropped.Add(int64(result.Count))
			u.logger.Warn("upload: single record exceeds collector limit, record dropped", attrs...)
		}
		pending, err := u.store.Count(context.Background(), stream)
		if err != nil {
			u.logger.Warn("upload: counting pending records failed", "error", err)
			pending = int64(result.Count)
		}
		u.backoff[stream].Shrink(pending, u.settings.MaxBatchSize)
		u.logger.Info("upload: batch too large, shrinking",
			append(attrs, "next_batch_size", u.backoff[stream].Size)...)
		followUp = true

	case NetworkError:
		u.mu.Lock()
		u.lastError = result.Err
		u.mu.Unlock()
		u.logger.Warn("upload: request failed, retrying later", append(attrs, "error", result.Err)...)
	}

	u.uploading.Store(false)
	if u.onResult != nil {
		u.onResult(result)
	}
	if followUp {
		u.Flush()
	}
}

func (u *Uploader) prune(stream record.Stream, maxLocalID int64) int64 {
	pruned, err := u.store.PruneUpTo(context.Background(), stream, maxLocalID)
	if err != nil {
		u.logger.Error("upload: pruning delivered records failed",
			"stream", stream.String(), "max_local_id", maxLocalID, "error", err)
	}
	return pruned
}

// Stats returns the cumulative counters.
func (u *Uploader) Stats() Stats {
	stats := Stats{
		Uploaded:  u.uploaded.Load(),
		Dropped:   u.dropped.Load(),
		Attempts:  u.attempts.Load(),
		Uploading: u.uploading.Load(),
		Scheduled: u.scheduled.Load(),
	}
	u.mu.Lock()
	if u.lastError != nil {
		stats.LastError = u.lastError.Error()
	}
	u.mu.Unlock()
	return stats
}

// Close stops the period timer and cancels in-flight requests. Runs
// on the log queue.
func (u *Uploader) Close() {
	if u.timer != nil {
		u.timer.Stop()
		u.timer = nil
	}
	u.scheduled.Store(false)
	u.cancel()
}

// stripLocalID returns payload without _local_id at the top level or
// inside properties. The stored payload is not modified.
func stripLocalID(payload record.Payload) record.Payload {
	stripped := make(record.Payload, len(payload))
	for key, value := range payload {
		if key != record.FieldLocalID {
			stripped[key] = value
		}
	}
	if properties, ok := payload.Map(record.FieldProperties); ok {
		if _, present := properties[record.FieldLocalID]; present {
			copied := make(map[string]any, len(properties))
			for key, value := range properties {
				if key != record.FieldLocalID {
					copied[key] = value
				}
			}
			stripped[record.FieldProperties] = copied
		}
	}
	return stripped
}
