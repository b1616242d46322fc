package engine

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

const (
	// concurrencyCap bounds handler execution across all events.
	concurrencyCap = 10

	// joinBatchSize is how many pending tasks one join round awaits
	// before re-checking the queue for transitively published work.
	joinBatchSize = 100
)

// HandlerFunc consumes one event payload. The payload's concrete type is
// fixed per event kind; handlers assert it.
type HandlerFunc func(ctx context.Context, payload any) error

type registration struct {
	name string
	fn   HandlerFunc
}

// task is one fired event in flight. done is closed when every handler
// for the event has run; err holds the first handler failure.
type task struct {
	done chan struct{}
	err  error
}

// Dispatcher is the publish/subscribe executor: handlers register per
// event kind, Fire schedules an event without awaiting it, and Join
// drains all pending work including work published by running handlers.
type Dispatcher struct {
	logger *slog.Logger
	sem    *semaphore.Weighted

	mu          sync.Mutex
	handlers    map[Kind][]registration
	tasks       []*task
	countByKind map[Kind]int
	submitted   int
	processed   int
}

// NewDispatcher creates a dispatcher with the standard concurrency cap.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		logger:      logger,
		sem:         semaphore.NewWeighted(concurrencyCap),
		handlers:    make(map[Kind][]registration),
		countByKind: make(map[Kind]int),
	}
}

// Subscribe registers a named handler for an event kind. Registration
// has set semantics: subscribing the same name twice for a kind is a
// no-op.
func (d *Dispatcher) Subscribe(kind Kind, name string, fn HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, reg := range d.handlers[kind] {
		if reg.name == name {
			return
		}
	}

	d.handlers[kind] = append(d.handlers[kind], registration{name: name, fn: fn})
}

// Fire publishes an event and returns immediately. The event's handlers
// run asynchronously under the concurrency cap, sequentially in
// registration order within the event.
func (d *Dispatcher) Fire(ctx context.Context, kind Kind, payload any) {
	t := &task{done: make(chan struct{})}

	d.mu.Lock()
	regs := d.handlers[kind]
	d.tasks = append(d.tasks, t)
	d.countByKind[kind]++
	d.submitted++
	d.mu.Unlock()

	d.logger.Debug("engine: event fired", slog.String("kind", string(kind)))

	go func() {
		defer close(t.done)

		if err := d.sem.Acquire(ctx, 1); err != nil {
			t.err = err
			return
		}
		defer d.sem.Release(1)

		for _, reg := range regs {
			if err := reg.fn(ctx, payload); err != nil {
				d.logger.Error("engine: handler failed",
					slog.String("kind", string(kind)),
					slog.String("handler", reg.name),
					slog.String("error", err.Error()),
				)

				t.err = err

				return
			}
		}

		d.mu.Lock()
		d.processed++
		d.mu.Unlock()
	}()
}

// Join drains every pending task, including tasks published by handlers
// that run during the drain, and returns the first handler error. The
// loop awaits batches so the queue can be re-checked for fan-out.
func (d *Dispatcher) Join(ctx context.Context) error {
	var firstErr error

	for {
		d.mu.Lock()

		if len(d.tasks) == 0 {
			d.mu.Unlock()
			return firstErr
		}

		n := len(d.tasks)
		if n > joinBatchSize {
			n = joinBatchSize
		}

		batch := d.tasks[:n]
		d.tasks = d.tasks[n:]

		d.mu.Unlock()

		for _, t := range batch {
			select {
			case <-t.done:
			case <-ctx.Done():
				return ctx.Err()
			}

			if t.err != nil && firstErr == nil {
				firstErr = t.err
			}
		}
	}
}

// Counts returns a copy of the per-kind event counters.
func (d *Dispatcher) Counts() map[Kind]int {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[Kind]int, len(d.countByKind))
	for kind, n := range d.countByKind {
		out[kind] = n
	}

	return out
}

// Submitted returns how many events have been fired.
func (d *Dispatcher) Submitted() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.submitted
}

// Processed returns how many events completed all handlers successfully.
func (d *Dispatcher) Processed() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.processed
}
