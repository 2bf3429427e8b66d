package workers_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalemusser/supportdesk/internal/app/system/membership"
	"github.com/dalemusser/supportdesk/internal/app/system/workers"
	"go.uber.org/zap"
)

type countingReconciler struct {
	calls atomic.Int32
	err   error
}

func (c *countingReconciler) Reconcile(context.Context) (membership.ReconcileReport, error) {
	c.calls.Add(1)
	return membership.ReconcileReport{Repaired: 1}, c.err
}

func TestReconcile_RunsImmediatelyAndOnTick(t *testing.T) {
	target := &countingReconciler{}
	w := workers.NewReconcile(target, zap.NewNop(), 10*time.Millisecond)
	w.Start()

	deadline := time.Now().Add(2 * time.Second)
	for target.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	w.Stop()
	w.Stop() // idempotent

	if n := target.calls.Load(); n < 3 {
		t.Errorf("calls = %d, want at least 3", n)
	}
	after := target.calls.Load()
	time.Sleep(30 * time.Millisecond)
	if target.calls.Load() != after {
		t.Error("worker kept running after Stop")
	}
}

func TestReconcile_ErrorDoesNotStopWorker(t *testing.T) {
	target := &countingReconciler{err: errors.New("db down")}
	w := workers.NewReconcile(target, zap.NewNop(), time.Hour)
	w.RunOnce()
	w.RunOnce()
	if target.calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", target.calls.Load())
	}
}
