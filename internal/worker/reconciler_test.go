package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// stubSweeper counts invocations and can be told to fail.
type stubSweeper struct {
	calls atomic.Int64
	fail  atomic.Bool
}

func (s *stubSweeper) Cleanup(ctx context.Context) (int, error) {
	n := s.calls.Add(1)
	if s.fail.Load() {
		return 0, errors.New("sweep blew up")
	}
	return int(n), nil
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestReconcilerSweepsImmediatelyAndOnTicks(t *testing.T) {
	t.Parallel()

	s := &stubSweeper{}
	r := NewReconciler(s, 20*time.Millisecond)
	r.Start(context.Background())
	defer r.Stop()

	// First sweep runs right away, before the first tick elapses.
	waitFor(t, time.Second, func() bool { return s.calls.Load() >= 1 })
	// Then the ticker keeps it going.
	waitFor(t, time.Second, func() bool { return s.calls.Load() >= 3 })
}

func TestReconcilerStopHaltsSweeping(t *testing.T) {
	t.Parallel()

	s := &stubSweeper{}
	r := NewReconciler(s, 10*time.Millisecond)
	r.Start(context.Background())

	waitFor(t, time.Second, func() bool { return s.calls.Load() >= 2 })
	r.Stop()

	after := s.calls.Load()
	time.Sleep(50 * time.Millisecond)
	if got := s.calls.Load(); got != after {
		t.Fatalf("sweeps continued after Stop: %d -> %d", after, got)
	}

	// Stop is idempotent.
	r.Stop()
}

func TestReconcilerStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	s := &stubSweeper{}
	r := NewReconciler(s, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)

	waitFor(t, time.Second, func() bool { return s.calls.Load() >= 1 })
	cancel()

	time.Sleep(30 * time.Millisecond)
	after := s.calls.Load()
	time.Sleep(50 * time.Millisecond)
	if got := s.calls.Load(); got != after {
		t.Fatalf("sweeps continued after context cancel: %d -> %d", after, got)
	}
	r.Stop()
}

func TestReconcilerSurvivesSweepFailure(t *testing.T) {
	t.Parallel()

	s := &stubSweeper{}
	s.fail.Store(true)
	r := NewReconciler(s, 10*time.Millisecond)
	r.Start(context.Background())
	defer r.Stop()

	// Failed sweeps are logged and the loop keeps ticking.
	waitFor(t, time.Second, func() bool { return s.calls.Load() >= 3 })
}

func TestReconcilerDoubleStartIsNoop(t *testing.T) {
	t.Parallel()

	s := &stubSweeper{}
	r := NewReconciler(s, time.Hour)
	r.Start(context.Background())
	r.Start(context.Background())
	defer r.Stop()

	waitFor(t, time.Second, func() bool { return s.calls.Load() >= 1 })
	time.Sleep(30 * time.Millisecond)
	if got := s.calls.Load(); got != 1 {
		t.Fatalf("expected exactly one immediate sweep, got %d", got)
	}
}
