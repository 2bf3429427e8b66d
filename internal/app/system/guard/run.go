package guard

import (
	"context"
	"sync"

	"github.com/dalemusser/supportdesk/internal/app/system/session"
)

// Run drives p over src. It emits Loading, then one Result per session state
// once its role lookup completes. A newer state supersedes a lookup still in
// flight for an older one.
//
// The returned stop unsubscribes from src and cancels pending lookups. Once
// stop returns, emit is not called again. stop is idempotent and is also
// invoked when ctx ends. emit must not call stop itself.
func Run(ctx context.Context, p Policy, src session.Source, roles RoleResolver, emit func(Result)) (stop func()) {
	runCtx, cancel := context.WithCancel(ctx)
	r := &runner{policy: p, roles: roles, emit: emit, ctx: runCtx}

	r.mu.Lock()
	emit(loading())
	r.mu.Unlock()

	unsubscribe := src.Subscribe(r.onState)

	var once sync.Once
	done := make(chan struct{})
	stop = func() {
		once.Do(func() {
			r.mu.Lock()
			r.stopped = true
			r.mu.Unlock()
			cancel()
			unsubscribe()
			close(done)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-done:
		}
	}()
	return stop
}

type runner struct {
	policy Policy
	roles  RoleResolver
	emit   func(Result)
	ctx    context.Context

	mu      sync.Mutex
	gen     uint64
	stopped bool
}

func (r *runner) onState(st session.State) {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.gen++
	gen := r.gen
	r.mu.Unlock()

	go func() {
		res := r.policy.Decide(r.ctx, st, r.roles)

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.stopped || gen != r.gen {
			return
		}
		r.emit(res)
	}()
}
