// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package taskqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/eventq/lib/clock"
)

var (
	// ErrClosed is returned by Post after Close has been called.
	ErrClosed = errors.New("taskqueue: queue closed")

	// ErrFull is returned by Post when the queue holds capacity
	// pending tasks.
	ErrFull = errors.New("taskqueue: queue full")
)

// Task is a unit of work. Tasks run one at a time, in Post order, on
// the queue's goroutine.
type Task func()

// Queue is a bounded FIFO of tasks executed by one dedicated
// goroutine. Everything a task touches that no other queue touches
// needs no locking.
//
// Post never blocks, so a running task may post follow-up work to its
// own queue. A task must not call Do on its own queue: it would wait
// for itself.
type Queue struct {
	name     string
	logger   *slog.Logger
	capacity int

	mu      sync.Mutex
	pending []Task
	closed  bool

	notify chan struct{}
	done   chan struct{}
}

// New starts a queue holding at most capacity pending tasks. Panics if
// capacity is not positive.
func New(name string, capacity int, logger *slog.Logger) *Queue {
	if capacity <= 0 {
		panic(fmt.Sprintf("taskqueue: capacity must be positive, got %d", capacity))
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	q := &Queue{
		name:     name,
		logger:   logger.With("queue", name),
		capacity: capacity,
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go q.run()
	return q
}

// Name returns the name given to New.
func (q *Queue) Name() string { return q.name }

// Post appends task to the queue.
func (q *Queue) Post(task Task) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	if len(q.pending) >= q.capacity {
		q.mu.Unlock()
		return ErrFull
	}
	q.pending = append(q.pending, task)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// PostAfter posts task once d has elapsed on clk. A Post failure at
// fire time (closed or full) is logged, the task is dropped, and
// dropped, when non-nil, is called with the error on the timer's
// goroutine.
func (q *Queue) PostAfter(clk clock.Clock, d time.Duration, task Task, dropped func(error)) *clock.Timer {
	return clk.AfterFunc(d, func() {
		if err := q.Post(task); err != nil {
			q.logger.Warn("delayed task dropped", "delay", d, "error", err)
			if dropped != nil {
				dropped(err)
			}
		}
	})
}

// Do posts task and waits for it to finish. If ctx ends first, Do
// returns ctx.Err() and the task still runs when its turn comes.
func (q *Queue) Do(ctx context.Context, task Task) error {
	finished := make(chan struct{})
	err := q.Post(func() {
		defer close(finished)
		task()
	})
	if err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of tasks waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close stops accepting tasks, runs everything already posted, and
// returns once the queue goroutine has exited. Close is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	<-q.done
}

// Done is closed when the queue goroutine exits.
func (q *Queue) Done() <-chan struct{} { return q.done }

func (q *Queue) run() {
	defer close(q.done)
	for range q.notify {
		for {
			task, ok, closed := q.next()
			if !ok {
				if closed {
					return
				}
				break
			}
			q.execute(task)
		}
	}
}

// next pops the oldest task. ok is false when nothing is pending;
// closed reports whether the queue will never receive more work.
func (q *Queue) next() (task Task, ok bool, closed bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil, false, q.closed
	}
	task = q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	return task, true, q.closed
}

func (q *Queue) execute(task Task) {
	defer func() {
		if recovered := recover(); recovered != nil {
			q.logger.Error("task panicked", "panic", recovered)
		}
	}()
	task()
}
