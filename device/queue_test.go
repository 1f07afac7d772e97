package device

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestQueueOrdering(t *testing.T) {
	dev, err := createCpuTestDevice()
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()

	queue, err := dev.Queue()
	if err != nil {
		t.Fatal(err)
	}

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string, delay time.Duration) Command {
		return func(ctx context.Context) error {
			time.Sleep(delay)
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}

	ctx := context.Background()
	first := queue.Enqueue(ctx, "first", record("first", 20*time.Millisecond))
	second := queue.Enqueue(ctx, "second", record("second", 0), first)
	third := queue.Enqueue(ctx, "third", record("third", 0), second, nil)

	if err = third.Wait(ctx); err != nil {
		t.Fatal(err)
	}

	expOrder := []string{"first", "second", "third"}
	if len(order) != len(expOrder) {
		t.Fatalf("expected %d commands to run; got %v", len(expOrder), order)
	}
	for i, name := range expOrder {
		if order[i] != name {
			t.Fatalf("expected command order %v; got %v", expOrder, order)
		}
	}

	if first.Duration() < 20*time.Millisecond {
		t.Fatalf("expected first command duration to be at least 20ms; got %s", first.Duration())
	}
	if third.Skipped() {
		t.Fatal("expected third command to run")
	}
}

func TestQueueDependencyFailure(t *testing.T) {
	dev, err := createCpuTestDevice()
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()

	queue, err := dev.Queue()
	if err != nil {
		t.Fatal(err)
	}

	rootErr := errors.New("out of cheese")
	ran := false

	ctx := context.Background()
	failing := queue.Enqueue(ctx, "failing", func(context.Context) error { return rootErr })
	dependent := queue.Enqueue(ctx, "dependent", func(context.Context) error {
		ran = true
		return nil
	}, failing)
	transitive := queue.Enqueue(ctx, "transitive", func(context.Context) error { return nil }, dependent)

	err = transitive.Wait(ctx)
	if !errors.Is(err, rootErr) {
		t.Fatalf("expected root error to propagate to transitive dependents; got %v", err)
	}
	if ran {
		t.Fatal("expected dependent command to be skipped")
	}
	if !dependent.Skipped() || !transitive.Skipped() {
		t.Fatal("expected dependents to be reported as skipped")
	}
	if failing.Skipped() {
		t.Fatal("expected failing command to be reported as executed")
	}
	if dependent.Duration() != 0 {
		t.Fatalf("expected skipped command duration to be 0; got %s", dependent.Duration())
	}
}

func TestQueueCancelledContext(t *testing.T) {
	dev, err := createCpuTestDevice()
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()

	queue, err := dev.Queue()
	if err != nil {
		t.Fatal(err)
	}

	release := make(chan struct{})
	blocker := queue.Enqueue(context.Background(), "blocker", func(context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	waiting := queue.Enqueue(ctx, "waiting", func(context.Context) error { return nil }, blocker)

	// Err does not block while the command is pending
	if waiting.Err() != nil {
		t.Fatal("expected pending event to report no error")
	}

	cancel()
	if err = waiting.Wait(context.Background()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled; got %v", err)
	}

	close(release)
	queue.Finish()
	if err = blocker.Err(); err != nil {
		t.Fatalf("expected blocker to complete successfully; got %v", err)
	}
}

func TestQueueClosed(t *testing.T) {
	dev, err := createCpuTestDevice()
	if err != nil {
		t.Fatal(err)
	}

	queue, err := dev.Queue()
	if err != nil {
		t.Fatal(err)
	}
	dev.Close()

	ev := queue.Enqueue(context.Background(), "late", func(context.Context) error { return nil })
	if err = ev.Wait(context.Background()); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed; got %v", err)
	}
}

func TestCompletedEvent(t *testing.T) {
	ok := CompletedEvent("ok", nil)
	if err := ok.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}

	failErr := errors.New("failed")
	failed := CompletedEvent("failed", failErr)
	if !errors.Is(failed.Err(), failErr) {
		t.Fatalf("expected completed event to report its error; got %v", failed.Err())
	}
	if failed.Name() != "failed" {
		t.Fatalf("expected event name to be 'failed'; got %s", failed.Name())
	}

	select {
	case <-failed.Done():
	default:
		t.Fatal("expected completed event to be done")
	}
}
