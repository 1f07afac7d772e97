package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/achilleasa/gridtrace/log"
)

// A unit of work submitted to a device queue.
type Command func(ctx context.Context) error

// An Event tracks the completion of an enqueued command. Commands that list
// an event in their wait list do not start before the event completes.
type Event struct {
	name string
	done chan struct{}

	// Written by the command goroutine before done is closed.
	err      error
	skipped  bool
	started  time.Time
	finished time.Time
}

// Create an event that is already complete. A nil error yields a successful
// event; this is useful for seeding wait lists.
func CompletedEvent(name string, err error) *Event {
	ev := &Event{
		name: name,
		done: make(chan struct{}),
		err:  err,
	}
	ev.started = time.Now()
	ev.finished = ev.started
	close(ev.done)
	return ev
}

// Get the name of the command associated with this event.
func (e *Event) Name() string {
	return e.name
}

// Done returns a channel that is closed when the command completes.
func (e *Event) Done() <-chan struct{} {
	return e.done
}

// Err returns the command error once the event is complete and nil while the
// command is still pending or running.
func (e *Event) Err() error {
	select {
	case <-e.done:
		return e.err
	default:
		return nil
	}
}

// Wait blocks until the command completes or ctx is cancelled.
func (e *Event) Wait(ctx context.Context) error {
	select {
	case <-e.done:
		return e.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Skipped returns true if the command never ran because a dependency failed
// or the queue context was cancelled.
func (e *Event) Skipped() bool {
	<-e.done
	return e.skipped
}

// Get the command execution time. Blocks until the command completes.
func (e *Event) Duration() time.Duration {
	<-e.done
	if e.skipped {
		return 0
	}
	return e.finished.Sub(e.started)
}

// An out-of-order command queue. Commands start as soon as all events in
// their wait list have completed successfully; ordering between commands is
// expressed only through wait lists.
type Queue struct {
	logger log.Logger
	device *Device

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

func newQueue(d *Device) *Queue {
	return &Queue{
		logger: log.New(fmt.Sprintf("queue (%s)", d.Name)),
		device: d,
	}
}

// Enqueue a command that runs after every event in waitList completes. The
// call never blocks. If a dependency fails, the command is skipped and its
// event reports the dependency error; if ctx is cancelled before the command
// starts, the event reports the context error.
func (q *Queue) Enqueue(ctx context.Context, name string, cmd Command, waitList ...*Event) *Event {
	ev := &Event{
		name: name,
		done: make(chan struct{}),
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		ev.err = fmt.Errorf("device (%s): could not enqueue %s: %w", q.device.Name, name, ErrQueueClosed)
		ev.skipped = true
		close(ev.done)
		return ev
	}
	q.wg.Add(1)
	q.mu.Unlock()

	go func() {
		defer q.wg.Done()
		defer close(ev.done)

		for _, dep := range waitList {
			if dep == nil {
				continue
			}

			select {
			case <-dep.done:
				if dep.err != nil {
					ev.err = dep.err
					ev.skipped = true
					q.logger.Debugf("skipping %s; dependency %s failed", name, dep.name)
					return
				}
			case <-ctx.Done():
				ev.err = fmt.Errorf("device (%s): %s: %w", q.device.Name, name, ctx.Err())
				ev.skipped = true
				return
			}
		}

		if err := ctx.Err(); err != nil {
			ev.err = fmt.Errorf("device (%s): %s: %w", q.device.Name, name, err)
			ev.skipped = true
			return
		}

		ev.started = time.Now()
		err := cmd(ctx)
		ev.finished = time.Now()
		if err != nil {
			ev.err = fmt.Errorf("device (%s): %s failed: %w", q.device.Name, name, err)
			q.logger.Debugf("%s failed after %s: %v", name, ev.finished.Sub(ev.started), err)
			return
		}

		q.logger.Debugf("%s completed in %s", name, ev.finished.Sub(ev.started))
	}()

	return ev
}

// Block until all enqueued commands have completed.
func (q *Queue) Finish() {
	q.wg.Wait()
}

// Stop accepting commands and wait for the pending ones.
func (q *Queue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.wg.Wait()
}
