// Package eventloop serialises every presence and relationship mutation onto
// one goroutine. Transport workers, REST handlers and NATS subscribers submit
// jobs with Do and wait for them; a job runs to completion before the next
// one starts, so state owned by the loop needs no locks.
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/arcade/lobby/internal/metrics"
)

// ErrStopped is returned by Do once the loop has exited.
var ErrStopped = errors.New("eventloop: stopped")

// Func is one unit of work. The context is the submitter's.
type Func func(ctx context.Context) error

// Executor runs jobs with exclusive access to loop-owned state.
type Executor interface {
	Do(ctx context.Context, fn Func) error
}

type job struct {
	ctx       context.Context
	fn        Func
	submitted time.Time
	done      chan error
}

// Loop is a single-goroutine job queue.
type Loop struct {
	jobs    chan job
	stopped chan struct{}
}

// New returns a Loop whose queue holds up to size pending jobs. Submitters
// block while the queue is full.
func New(size int) *Loop {
	if size <= 0 {
		size = 1
	}
	return &Loop{
		jobs:    make(chan job, size),
		stopped: make(chan struct{}),
	}
}

// Run processes jobs until ctx is cancelled. Jobs still queued at that point
// fail with ErrStopped.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.stopped)
	log.Info().Str("component", "eventloop").Int("queue", cap(l.jobs)).Msg("event loop started")

	for {
		select {
		case <-ctx.Done():
			l.drain()
			log.Info().Str("component", "eventloop").Msg("event loop stopped")
			return
		case j := <-l.jobs:
			l.run(j)
		}
	}
}

func (l *Loop) run(j job) {
	defer func() {
		metrics.EventLoopLatency.Observe(time.Since(j.submitted).Seconds())
	}()

	// The submitter gave up while the job was queued.
	if err := j.ctx.Err(); err != nil {
		j.done <- err
		return
	}

	j.done <- safeCall(j.ctx, j.fn)
}

func (l *Loop) drain() {
	for {
		select {
		case j := <-l.jobs:
			j.done <- ErrStopped
		default:
			return
		}
	}
}

func safeCall(ctx context.Context, fn Func) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("component", "eventloop").Interface("panic", r).Msg("job panicked")
			err = fmt.Errorf("eventloop: job panicked: %v", r)
		}
	}()
	return fn(ctx)
}

// Do submits fn and waits for its result. It returns ctx.Err() if ctx ends
// before the job is queued, and ErrStopped if the loop is not running.
// Once queued a job always runs unless its context is already done when
// it reaches the front.
func (l *Loop) Do(ctx context.Context, fn Func) error {
	j := job{ctx: ctx, fn: fn, submitted: time.Now(), done: make(chan error, 1)}

	select {
	case <-l.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	case l.jobs <- j:
	}

	select {
	case err := <-j.done:
		return err
	case <-l.stopped:
		// Run may have finished the job just before exiting.
		select {
		case err := <-j.done:
			return err
		default:
			return ErrStopped
		}
	}
}

// Inline runs jobs on the caller's goroutine. It is for tests and tools
// that are already single threaded.
type Inline struct{}

// Do calls fn directly.
func (Inline) Do(ctx context.Context, fn Func) error {
	return safeCall(ctx, fn)
}
