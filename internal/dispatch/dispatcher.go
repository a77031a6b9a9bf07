package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"menuviz/internal/logging"
	"menuviz/internal/services"
)

// DefaultConcurrency and DefaultReleaseDelay match the stock configuration.
const (
	DefaultConcurrency  = 6
	DefaultReleaseDelay = 300 * time.Millisecond
)

// Task carries what is needed to (re)run enrichment for one item.
type Task struct {
	ID          string
	Name        string
	Description string
}

// Runner performs the enrichment call for a task.
type Runner func(ctx context.Context, task Task) (string, error)

// SettleFunc receives each task's outcome. It runs on the task's goroutine
// before the slot release is scheduled.
type SettleFunc func(task Task, ref string, err error)

// Stats is a point-in-time view of the dispatcher.
type Stats struct {
	Pending  int
	InFlight int
	Cap      int
}

// SelectNextBatch returns the head of queue that may start given inFlight
// running tasks and the concurrency cap. It never mutates queue.
func SelectNextBatch(queue []Task, inFlight, limit int) []Task {
	free := limit - inFlight
	if free <= 0 || len(queue) == 0 {
		return nil
	}
	if free > len(queue) {
		free = len(queue)
	}
	return queue[:free:free]
}

// Dispatcher runs enrichment tasks FIFO with at most Cap in flight. A task id
// stays active from Enqueue until its slot is released, and duplicate enqueues
// for an active id are dropped.
type Dispatcher struct {
	mu       sync.Mutex
	queue    []Task
	active   map[string]struct{}
	inFlight int
	waiters  []chan struct{}

	ctx          context.Context
	limit        int
	releaseDelay time.Duration
	run          Runner
	settle       SettleFunc
	afterFunc    func(time.Duration, func())
	logger       *slog.Logger
}

// Option customizes a dispatcher.
type Option func(*Dispatcher)

// WithConcurrency sets the in-flight cap.
func WithConcurrency(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.limit = n
		}
	}
}

// WithReleaseDelay sets the grace period between a task settling and its slot
// being released. Zero releases immediately.
func WithReleaseDelay(delay time.Duration) Option {
	return func(d *Dispatcher) {
		if delay >= 0 {
			d.releaseDelay = delay
		}
	}
}

// WithAfterFunc replaces time.AfterFunc for scheduling slot releases.
func WithAfterFunc(fn func(time.Duration, func())) Option {
	return func(d *Dispatcher) {
		if fn != nil {
			d.afterFunc = fn
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logging.NewComponentLogger(logger, "dispatcher")
	}
}

// WithContext sets the context handed to runners. Defaults to Background.
func WithContext(ctx context.Context) Option {
	return func(d *Dispatcher) {
		if ctx != nil {
			d.ctx = ctx
		}
	}
}

// New creates a dispatcher that executes run and reports outcomes to settle.
func New(run Runner, settle SettleFunc, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		active:       make(map[string]struct{}),
		ctx:          context.Background(),
		limit:        DefaultConcurrency,
		releaseDelay: DefaultReleaseDelay,
		run:          run,
		settle:       settle,
		afterFunc:    func(delay time.Duration, fn func()) { time.AfterFunc(delay, fn) },
		logger:       logging.NewComponentLogger(nil, "dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Enqueue appends task unless its id is already pending or in flight. It
// reports whether the task was accepted.
func (d *Dispatcher) Enqueue(task Task) bool {
	d.mu.Lock()
	if _, busy := d.active[task.ID]; busy {
		d.mu.Unlock()
		d.logger.Debug("duplicate enqueue dropped", logging.String(logging.FieldItemID, task.ID))
		return false
	}
	d.active[task.ID] = struct{}{}
	d.queue = append(d.queue, task)
	d.pumpLocked()
	d.mu.Unlock()
	return true
}

// Active reports whether id is pending or holds a slot.
func (d *Dispatcher) Active(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.active[id]
	return ok
}

// Reset drops every pending task. In-flight tasks run to completion and keep
// their slots until released.
func (d *Dispatcher) Reset() int {
	d.mu.Lock()
	dropped := len(d.queue)
	for _, task := range d.queue {
		delete(d.active, task.ID)
	}
	d.queue = nil
	d.notifyIdleLocked()
	d.mu.Unlock()
	if dropped > 0 {
		d.logger.Info("pending tasks dropped", logging.Int("dropped", dropped))
	}
	return dropped
}

// Stats returns the current queue depth and in-flight count.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Stats{Pending: len(d.queue), InFlight: d.inFlight, Cap: d.limit}
}

// Wait blocks until nothing is pending or in flight, or ctx ends.
func (d *Dispatcher) Wait(ctx context.Context) error {
	d.mu.Lock()
	if len(d.queue) == 0 && d.inFlight == 0 {
		d.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	d.waiters = append(d.waiters, ch)
	d.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		d.mu.Lock()
		d.waiters = dropWaiter(d.waiters, ch)
		d.mu.Unlock()
		return ctx.Err()
	}
}

// dropWaiter removes ch from waiters if it is still registered.
func dropWaiter(waiters []chan struct{}, ch chan struct{}) []chan struct{} {
	if i := slices.Index(waiters, ch); i >= 0 {
		return slices.Delete(waiters, i, i+1)
	}
	return waiters
}

// pumpLocked starts as many head tasks as the cap allows.
func (d *Dispatcher) pumpLocked() {
	batch := SelectNextBatch(d.queue, d.inFlight, d.limit)
	if len(batch) == 0 {
		return
	}
	d.queue = d.queue[len(batch):]
	d.inFlight += len(batch)
	for _, task := range batch {
		go d.execute(task)
	}
}

func (d *Dispatcher) execute(task Task) {
	ref, err := d.runSafely(task)
	if err != nil {
		logging.WarnWithContext(d.logger, "enrichment failed", "enrichment_failed",
			logging.String(logging.FieldItemID, task.ID),
			logging.String(logging.FieldScope, string(services.ScopeItem)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, services.Hint(err)),
			logging.String(logging.FieldImpact, "item marked failed; retry available"),
		)
	} else {
		d.logger.Debug("enrichment settled", logging.String(logging.FieldItemID, task.ID))
	}
	if d.settle != nil {
		d.settle(task, ref, err)
	}

	if d.releaseDelay <= 0 {
		d.release(task.ID)
		return
	}
	d.afterFunc(d.releaseDelay, func() { d.release(task.ID) })
}

func (d *Dispatcher) runSafely(task Task) (ref string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = services.Wrap(services.ErrTransient, "dispatcher", "run", fmt.Sprintf("task panicked: %v", r), nil)
		}
	}()
	ctx := services.WithItemID(d.ctx, task.ID)
	return d.run(ctx, task)
}

func (d *Dispatcher) release(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inFlight--
	delete(d.active, id)
	d.pumpLocked()
	d.notifyIdleLocked()
}

func (d *Dispatcher) notifyIdleLocked() {
	if len(d.queue) != 0 || d.inFlight != 0 {
		return
	}
	for _, ch := range d.waiters {
		close(ch)
	}
	d.waiters = nil
}
