// Package task runs background jobs one at a time with cooperative cancellation.
package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lexandro/contextor-mcp/metrics"
)

// ErrClosed is returned by Submit after Close, and carried by tasks dropped on Close.
var ErrClosed = errors.New("task runner closed")

// Status is the final state of a submitted task.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Outcome is delivered exactly once per submission.
type Outcome[T any] struct {
	Name    string
	Value   T
	Status  Status
	Err     error
	Elapsed time.Duration
}

// Work is the body of a task. It must return promptly once ctx is done. An error
// wrapping context.Canceled or context.DeadlineExceeded also reports the task as cancelled.
type Work[T any] func(ctx context.Context) (T, error)

const defaultProgressBuffer = 16

// Options configures a Runner.
type Options struct {
	Logger *slog.Logger
	// OnProgress receives status messages at task start and end. Messages are
	// dropped when the receiver falls behind.
	OnProgress     func(message string)
	ProgressBuffer int
	// Dispatch runs completion callbacks, e.g. on a UI event loop.
	// Nil runs them on the worker goroutine.
	Dispatch func(func())
}

type job[T any] struct {
	name       string
	work       Work[T]
	onComplete func(Outcome[T])
	cancelled  bool
}

// Runner executes submitted tasks sequentially, in submission order, on a single
// worker goroutine.
type Runner[T any] struct {
	logger     *slog.Logger
	onProgress func(string)
	dispatch   func(func())

	mu            sync.Mutex
	queue         []*job[T]
	running       bool
	cancelRunning context.CancelFunc
	closed        bool

	notify   chan struct{}
	done     chan struct{}
	progress chan string

	workerDone   chan struct{}
	progressDone chan struct{}
}

// NewRunner starts the worker goroutine.
func NewRunner[T any](options Options) *Runner[T] {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	buffer := options.ProgressBuffer
	if buffer <= 0 {
		buffer = defaultProgressBuffer
	}

	r := newRunner[T](logger, buffer, options)
	go r.deliverProgress()
	go r.loop()
	return r
}

func newRunner[T any](logger *slog.Logger, buffer int, options Options) *Runner[T] {
	return &Runner[T]{
		logger:       logger,
		onProgress:   options.OnProgress,
		dispatch:     options.Dispatch,
		notify:       make(chan struct{}, 1),
		done:         make(chan struct{}),
		progress:     make(chan string, buffer),
		workerDone:   make(chan struct{}),
		progressDone: make(chan struct{}),
	}
}

// Submit queues work. onComplete may be nil.
func (r *Runner[T]) Submit(name string, work Work[T], onComplete func(Outcome[T])) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	r.queue = append(r.queue, &job[T]{name: name, work: work, onComplete: onComplete})

	select {
	case r.notify <- struct{}{}:
	default:
	}
	return nil
}

// Cancel stops the running task or, when idle, the next queued one. It reports
// whether there was anything to cancel. A cancelled task still completes once,
// with StatusCancelled. Later submissions are unaffected.
func (r *Runner[T]) Cancel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running && r.cancelRunning != nil {
		r.cancelRunning()
		return true
	}
	for _, j := range r.queue {
		if !j.cancelled {
			j.cancelled = true
			return true
		}
	}
	return false
}

// Busy reports whether a task is executing.
func (r *Runner[T]) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Pending returns the number of queued tasks not yet started.
func (r *Runner[T]) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

// Close cancels the running task, completes queued tasks as cancelled and waits
// for the worker to exit.
func (r *Runner[T]) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.workerDone
		<-r.progressDone
		return
	}
	r.closed = true
	if r.cancelRunning != nil {
		r.cancelRunning()
	}
	close(r.done)
	r.mu.Unlock()

	<-r.workerDone
	close(r.progress)
	<-r.progressDone
}

func (r *Runner[T]) loop() {
	defer close(r.workerDone)

	for {
		next, ctx, closing := r.dequeue()
		if closing {
			r.drain()
			return
		}
		if next == nil {
			select {
			case <-r.notify:
			case <-r.done:
			}
			continue
		}

		outcome := r.execute(ctx, next)

		// Cleared before the callback: a Cancel from here on targets the next queued task.
		r.mu.Lock()
		r.running = false
		r.cancelRunning()
		r.cancelRunning = nil
		r.mu.Unlock()

		r.complete(next, outcome)
	}
}

// dequeue pops the head of the queue and marks it running.
func (r *Runner[T]) dequeue() (*job[T], context.Context, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, nil, true
	}
	if len(r.queue) == 0 {
		return nil, nil, false
	}

	next := r.queue[0]
	r.queue[0] = nil
	r.queue = r.queue[1:]

	ctx, cancel := context.WithCancel(context.Background())
	if next.cancelled {
		cancel()
	}
	r.running = true
	r.cancelRunning = cancel
	return next, ctx, false
}

func (r *Runner[T]) execute(ctx context.Context, j *job[T]) Outcome[T] {
	start := time.Now()
	outcome := Outcome[T]{Name: j.name}

	if ctx.Err() != nil {
		outcome.Status = StatusCancelled
		outcome.Err = ctx.Err()
	} else {
		r.report(fmt.Sprintf("Started %s", j.name))
		value, err := r.run(ctx, j)
		switch {
		case ctx.Err() != nil:
			outcome.Status = StatusCancelled
			outcome.Err = ctx.Err()
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			outcome.Status = StatusCancelled
			outcome.Err = err
		case err != nil:
			outcome.Status = StatusFailed
			outcome.Err = err
			r.logger.Error("task failed", "task", j.name, "error", err)
		default:
			outcome.Status = StatusCompleted
			outcome.Value = value
		}
	}
	outcome.Elapsed = time.Since(start)

	r.logger.Debug("task finished", "task", j.name, "status", outcome.Status, "elapsed", outcome.Elapsed)
	r.report(fmt.Sprintf("Finished %s (%s)", j.name, outcome.Status))
	metrics.RecordTask(string(outcome.Status), outcome.Elapsed)
	return outcome
}

// run calls the work function, converting a panic into an error.
func (r *Runner[T]) run(ctx context.Context, j *job[T]) (value T, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task %s panicked: %v", j.name, p)
		}
	}()
	return j.work(ctx)
}

func (r *Runner[T]) complete(j *job[T], outcome Outcome[T]) {
	if j.onComplete == nil {
		return
	}
	call := func() {
		defer func() {
			if p := recover(); p != nil {
				r.logger.Error("completion callback panicked", "task", j.name, "panic", p)
			}
		}()
		j.onComplete(outcome)
	}
	if r.dispatch != nil {
		r.dispatch(call)
		return
	}
	call()
}

// drain completes every queued task as cancelled after Close.
func (r *Runner[T]) drain() {
	r.mu.Lock()
	pending := r.queue
	r.queue = nil
	r.mu.Unlock()

	for _, j := range pending {
		metrics.RecordTask(string(StatusCancelled), 0)
		r.complete(j, Outcome[T]{Name: j.name, Status: StatusCancelled, Err: ErrClosed})
	}
}

func (r *Runner[T]) report(message string) {
	if r.onProgress == nil {
		return
	}
	select {
	case r.progress <- message:
	default:
		r.logger.Debug("progress message dropped", "message", message)
	}
}

func (r *Runner[T]) deliverProgress() {
	defer close(r.progressDone)
	for message := range r.progress {
		r.onProgress(message)
	}
}
