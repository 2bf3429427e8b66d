// internal/app/system/workers/reconcile.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/supportdesk/internal/app/system/membership"
	"go.uber.org/zap"
)

// Reconciler is the part of the membership manager the worker drives.
type Reconciler interface {
	Reconcile(ctx context.Context) (membership.ReconcileReport, error)
}

// Reconcile is a background worker that periodically repairs drift between
// profiles and project member lists.
type Reconcile struct {
	target   Reconciler
	log      *zap.Logger
	interval time.Duration
	timeout  time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewReconcile creates a reconcile worker.
//
// Parameters:
//   - target: usually the *membership.Manager
//   - logger: zap logger for logging
//   - interval: how often to run a pass (e.g., 10 minutes)
func NewReconcile(target Reconciler, logger *zap.Logger, interval time.Duration) *Reconcile {
	return &Reconcile{
		target:   target,
		log:      logger,
		interval: interval,
		timeout:  2 * time.Minute,
		stopCh:   make(chan struct{}),
	}
}

// Start runs one pass immediately, then one per interval.
func (w *Reconcile) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("reconcile worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *Reconcile) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	w.log.Info("reconcile worker stopped")
}

func (w *Reconcile) run() {
	defer w.wg.Done()

	w.RunOnce()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.RunOnce()
		}
	}
}

// RunOnce performs a single pass.
func (w *Reconcile) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	rep, err := w.target.Reconcile(ctx)
	if err != nil {
		w.log.Error("reconcile pass failed", zap.Error(err), zap.Int("repaired", rep.Repaired))
		return
	}
	if rep.Repaired > 0 {
		w.log.Info("reconcile pass repaired profiles",
			zap.Int("repaired", rep.Repaired),
			zap.Int("profiles", rep.Profiles),
			zap.Int("projects", rep.Projects))
	}
}
