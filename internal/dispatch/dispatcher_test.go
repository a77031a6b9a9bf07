package dispatch_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jaswdr/faker"

	"menuviz/internal/dispatch"
)

const waitTimeout = 2 * time.Second

// gate is a runner whose tasks block until the test lets them finish.
type gate struct {
	mu      sync.Mutex
	started chan string
	release map[string]chan error
	running atomic.Int32
	maxSeen atomic.Int32
}

func newGate() *gate {
	return &gate{started: make(chan string, 64), release: make(map[string]chan error)}
}

func (g *gate) ch(id string) chan error {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.release[id]
	if !ok {
		ch = make(chan error, 1)
		g.release[id] = ch
	}
	return ch
}

func (g *gate) run(_ context.Context, task dispatch.Task) (string, error) {
	n := g.running.Add(1)
	for {
		prev := g.maxSeen.Load()
		if n <= prev || g.maxSeen.CompareAndSwap(prev, n) {
			break
		}
	}
	g.started <- task.ID
	err := <-g.ch(task.ID)
	g.running.Add(-1)
	if err != nil {
		return "", err
	}
	return "img://" + task.ID, nil
}

func (g *gate) finish(id string, err error) { g.ch(id) <- err }

func expectStarted(t *testing.T, g *gate, n int) []string {
	t.Helper()
	var ids []string
	for len(ids) < n {
		select {
		case id := <-g.started:
			ids = append(ids, id)
		case <-time.After(waitTimeout):
			t.Fatalf("timed out waiting for %d starts, got %v", n, ids)
		}
	}
	return ids
}

func expectNoStart(t *testing.T, g *gate) {
	t.Helper()
	select {
	case id := <-g.started:
		t.Fatalf("unexpected start of %s", id)
	case <-time.After(50 * time.Millisecond):
	}
}

type settled struct {
	mu      sync.Mutex
	refs    map[string]string
	errs    map[string]error
	settles chan string
}

func newSettled() *settled {
	return &settled{refs: map[string]string{}, errs: map[string]error{}, settles: make(chan string, 64)}
}

func (s *settled) fn(task dispatch.Task, ref string, err error) {
	s.mu.Lock()
	s.refs[task.ID] = ref
	s.errs[task.ID] = err
	s.mu.Unlock()
	s.settles <- task.ID
}

func (s *settled) await(t *testing.T, id string) {
	t.Helper()
	select {
	case got := <-s.settles:
		if got != id {
			t.Fatalf("expected %s to settle, got %s", id, got)
		}
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting for %s to settle", id)
	}
}

// manualClock collects release callbacks so tests control when slots free up.
type manualClock struct {
	mu        sync.Mutex
	pending   []func()
	delays    []time.Duration
	scheduled chan struct{}
}

func newManualClock() *manualClock {
	return &manualClock{scheduled: make(chan struct{}, 64)}
}

func (m *manualClock) afterFunc(d time.Duration, fn func()) {
	m.mu.Lock()
	m.pending = append(m.pending, fn)
	m.delays = append(m.delays, d)
	m.mu.Unlock()
	m.scheduled <- struct{}{}
}

func (m *manualClock) awaitScheduled(t *testing.T) {
	t.Helper()
	select {
	case <-m.scheduled:
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a release to be scheduled")
	}
}

func (m *manualClock) fireAll() {
	m.mu.Lock()
	fns := m.pending
	m.pending = nil
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func tasks(n int) []dispatch.Task {
	fake := faker.New()
	out := make([]dispatch.Task, n)
	for i := range out {
		out[i] = dispatch.Task{
			ID:          fmt.Sprintf("dish-%d", i),
			Name:        fake.Lorem().Word(),
			Description: fake.Lorem().Sentence(6),
		}
	}
	return out
}

func TestSelectNextBatch(t *testing.T) {
	queue := tasks(5)
	tests := []struct {
		name     string
		inFlight int
		limit    int
		want     int
	}{
		{"empty slots", 6, 6, 0},
		{"over cap", 7, 6, 0},
		{"partial", 4, 6, 2},
		{"more slots than work", 0, 10, 5},
		{"zero cap", 0, 0, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := dispatch.SelectNextBatch(queue, tc.inFlight, tc.limit)
			if len(got) != tc.want {
				t.Fatalf("expected %d tasks, got %d", tc.want, len(got))
			}
			for i := range got {
				if got[i].ID != queue[i].ID {
					t.Fatalf("batch must be the queue head in order")
				}
			}
		})
	}
	if got := dispatch.SelectNextBatch(nil, 0, 6); got != nil {
		t.Fatalf("expected nil for empty queue, got %v", got)
	}
}

func TestCapLimitsInFlight(t *testing.T) {
	g := newGate()
	s := newSettled()
	d := dispatch.New(g.run, s.fn, dispatch.WithConcurrency(6), dispatch.WithReleaseDelay(0))

	items := tasks(10)
	for _, task := range items {
		if !d.Enqueue(task) {
			t.Fatalf("enqueue %s rejected", task.ID)
		}
	}

	first := expectStarted(t, g, 6)
	for _, task := range items[:6] {
		if !contains(first, task.ID) {
			t.Fatalf("first wave must be the first six tasks, got %v", first)
		}
	}
	expectNoStart(t, g)
	if stats := d.Stats(); stats.InFlight != 6 || stats.Pending != 4 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	// Each settle frees exactly one slot.
	for i := 0; i < 4; i++ {
		g.finish(first[i], nil)
		s.await(t, first[i])
		next := expectStarted(t, g, 1)
		if next[0] != items[6+i].ID {
			t.Fatalf("expected FIFO start of %s, got %s", items[6+i].ID, next[0])
		}
	}
	g.finish(first[4], nil)
	g.finish(first[5], nil)
	for _, task := range items[6:] {
		g.finish(task.ID, nil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	if err := d.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if g.maxSeen.Load() > 6 {
		t.Fatalf("in-flight exceeded cap: %d", g.maxSeen.Load())
	}
	if len(s.refs) != 10 {
		t.Fatalf("expected 10 settled tasks, got %d", len(s.refs))
	}
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func TestDuplicateEnqueueDroppedUntilRelease(t *testing.T) {
	g := newGate()
	s := newSettled()
	clock := newManualClock()
	d := dispatch.New(g.run, s.fn,
		dispatch.WithConcurrency(1),
		dispatch.WithReleaseDelay(300*time.Millisecond),
		dispatch.WithAfterFunc(clock.afterFunc),
	)

	items := tasks(2)
	d.Enqueue(items[0])
	d.Enqueue(items[1])
	expectStarted(t, g, 1)

	if d.Enqueue(items[0]) {
		t.Fatal("in-flight id must be rejected")
	}
	if d.Enqueue(items[1]) {
		t.Fatal("pending id must be rejected")
	}

	g.finish(items[0].ID, nil)
	s.await(t, items[0].ID)
	// Settled but not released: still active and still holding the slot.
	if d.Enqueue(items[0]) {
		t.Fatal("settled id must stay active until its slot is released")
	}
	expectNoStart(t, g)

	clock.awaitScheduled(t)
	clock.fireAll()
	expectStarted(t, g, 1)
	if clock.delays[0] != 300*time.Millisecond {
		t.Fatalf("unexpected release delay %s", clock.delays[0])
	}
	if !d.Enqueue(items[0]) {
		t.Fatal("released id must be accepted again")
	}

	g.finish(items[1].ID, nil)
	s.await(t, items[1].ID)
	clock.awaitScheduled(t)
	clock.fireAll()
	expectStarted(t, g, 1)
	g.finish(items[0].ID, nil)
	s.await(t, items[0].ID)
	clock.awaitScheduled(t)
	clock.fireAll()

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	if err := d.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestFailureIsolatedToOneItem(t *testing.T) {
	g := newGate()
	s := newSettled()
	d := dispatch.New(g.run, s.fn, dispatch.WithReleaseDelay(0))

	items := tasks(5)
	for _, task := range items {
		d.Enqueue(task)
	}
	expectStarted(t, g, 5)
	for i, task := range items {
		var err error
		if i == 2 {
			err = errors.New("backend exploded")
		}
		g.finish(task.ID, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	if err := d.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, task := range items {
		if i == 2 {
			if s.errs[task.ID] == nil || s.refs[task.ID] != "" {
				t.Fatalf("expected failure for %s", task.ID)
			}
			continue
		}
		if s.errs[task.ID] != nil || s.refs[task.ID] == "" {
			t.Fatalf("expected success for %s, err=%v", task.ID, s.errs[task.ID])
		}
	}
	if d.Active(items[2].ID) {
		t.Fatal("failed task must be released and retryable")
	}
}

func TestPanicBecomesFailure(t *testing.T) {
	s := newSettled()
	d := dispatch.New(func(context.Context, dispatch.Task) (string, error) {
		panic("boom")
	}, s.fn, dispatch.WithReleaseDelay(0))

	d.Enqueue(dispatch.Task{ID: "dish-0"})
	s.await(t, "dish-0")
	s.mu.Lock()
	err := s.errs["dish-0"]
	s.mu.Unlock()
	if err == nil {
		t.Fatal("expected panic to surface as an error")
	}

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	if err := d.Wait(ctx); err != nil {
		t.Fatalf("dispatcher must keep working after a panic: %v", err)
	}
}

func TestResetDropsPendingButKeepsInFlightSlots(t *testing.T) {
	g := newGate()
	s := newSettled()
	d := dispatch.New(g.run, s.fn, dispatch.WithConcurrency(2), dispatch.WithReleaseDelay(0))

	items := tasks(5)
	for _, task := range items {
		d.Enqueue(task)
	}
	started := expectStarted(t, g, 2)

	if dropped := d.Reset(); dropped != 3 {
		t.Fatalf("expected 3 dropped, got %d", dropped)
	}
	if stats := d.Stats(); stats.Pending != 0 || stats.InFlight != 2 {
		t.Fatalf("unexpected stats after reset %+v", stats)
	}
	if d.Active(items[4].ID) {
		t.Fatal("dropped task must no longer be active")
	}

	fresh := dispatch.Task{ID: "dish-new"}
	d.Enqueue(fresh)
	expectNoStart(t, g)

	g.finish(started[0], nil)
	s.await(t, started[0])
	if got := expectStarted(t, g, 1); got[0] != fresh.ID {
		t.Fatalf("expected fresh task after slot release, got %v", got)
	}
	g.finish(started[1], nil)
	g.finish(fresh.ID, nil)

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	if err := d.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestWaitHonoursContext(t *testing.T) {
	g := newGate()
	d := dispatch.New(g.run, nil, dispatch.WithReleaseDelay(0))
	d.Enqueue(dispatch.Task{ID: "slow"})
	expectStarted(t, g, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	g.finish("slow", nil)
}
