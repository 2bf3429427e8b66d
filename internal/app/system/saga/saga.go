// Package saga runs ordered, non-atomic write sequences.
//
// A Saga has no compensation: steps run in order, the first failing step
// stops the sequence, and the returned *Failure names the steps that had
// already committed so callers can report the partial state honestly.
// Drift left behind is repaired by the reconciliation worker.
package saga

import (
	"context"
	"fmt"
	"strings"
)

// Step is one write in a sequence.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Saga is an ordered list of steps for one logical operation.
type Saga struct {
	Op    string
	steps []Step
}

// New starts an empty saga for the named operation.
func New(op string) *Saga {
	return &Saga{Op: op}
}

// Add appends a step and returns the saga for chaining.
func (s *Saga) Add(name string, run func(ctx context.Context) error) *Saga {
	s.steps = append(s.steps, Step{Name: name, Run: run})
	return s
}

// Len returns the number of queued steps.
func (s *Saga) Len() int { return len(s.steps) }

// Execute runs the steps in order. It returns nil when every step
// succeeded, otherwise a *Failure.
func (s *Saga) Execute(ctx context.Context) error {
	done := make([]string, 0, len(s.steps))
	for _, st := range s.steps {
		if err := ctx.Err(); err != nil {
			return &Failure{Op: s.Op, Step: st.Name, Completed: done, Err: err}
		}
		if err := st.Run(ctx); err != nil {
			return &Failure{Op: s.Op, Step: st.Name, Completed: done, Err: err}
		}
		done = append(done, st.Name)
	}
	return nil
}

// Failure reports where a saga stopped.
type Failure struct {
	Op        string
	Step      string   // step that failed
	Completed []string // steps that committed before it
	Err       error
}

func (f *Failure) Error() string {
	if len(f.Completed) == 0 {
		return fmt.Sprintf("%s: step %q failed: %v", f.Op, f.Step, f.Err)
	}
	return fmt.Sprintf("%s: step %q failed after [%s]: %v",
		f.Op, f.Step, strings.Join(f.Completed, ", "), f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Partial reports whether any step committed before the failure.
func (f *Failure) Partial() bool { return len(f.Completed) > 0 }
