package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWaitDropsWaiterWhenContextEnds(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	d := New(func(ctx context.Context, _ Task) (string, error) {
		started <- struct{}{}
		<-release
		return "ok", nil
	}, nil, WithReleaseDelay(0))
	d.Enqueue(Task{ID: "slow"})
	<-started

	for range 3 {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		if err := d.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline exceeded, got %v", err)
		}
		cancel()
	}
	d.mu.Lock()
	left := len(d.waiters)
	d.mu.Unlock()
	if left != 0 {
		t.Fatalf("abandoned waiters kept: %d", left)
	}

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestDropWaiter(t *testing.T) {
	a, b := make(chan struct{}), make(chan struct{})
	got := dropWaiter([]chan struct{}{a, b}, a)
	if len(got) != 1 || got[0] != b {
		t.Fatalf("unexpected waiters after drop: %d", len(got))
	}
	if got = dropWaiter(got, a); len(got) != 1 {
		t.Fatal("dropping an unknown waiter changed the slice")
	}
}
