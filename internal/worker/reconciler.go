// Package worker owns the recurring background tasks of the booking
// service.  The only one today is the expiration reconciler.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Sweeper is the slice of the order repository the reconciler needs.
// It is an interface so tests can drive the scheduler with a stub.
type Sweeper interface {
	Cleanup(ctx context.Context) (int, error)
}

// Reconciler periodically expires stale pending holds and purges
// cancelled orders.  It is an explicitly owned background task: the
// process entry point calls Start once after wiring and Stop during
// shutdown.  One sweep also runs immediately at startup so a restart
// never leaves expired holds lingering until the first tick.
type Reconciler struct {
	sweeper  Sweeper
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewReconciler returns a reconciler sweeping at the given interval.
func NewReconciler(sweeper Sweeper, interval time.Duration) *Reconciler {
	return &Reconciler{sweeper: sweeper, interval: interval}
}

// Start launches the sweep loop.  Calling Start on a running
// reconciler is a no-op.
func (r *Reconciler) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		logrus.Warn("reconciler already running")
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	go r.run(ctx)
	logrus.WithField("interval", r.interval.String()).Info("reconciler started")
}

// Stop cancels the sweep loop and waits for the in-flight sweep, if
// any, to finish.  Safe to call on a stopped reconciler.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	logrus.Info("reconciler stopped")
}

func (r *Reconciler) run(ctx context.Context) {
	defer close(r.done)

	r.sweep(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reconciler) sweep(ctx context.Context) {
	start := time.Now()
	n, err := r.sweeper.Cleanup(ctx)
	if err != nil {
		logrus.WithError(err).Error("reconciler sweep failed")
		return
	}
	if n > 0 {
		logrus.WithFields(logrus.Fields{
			"orders":  n,
			"elapsed": time.Since(start).Round(time.Millisecond).String(),
		}).Info("reconciler sweep completed")
	}
}
