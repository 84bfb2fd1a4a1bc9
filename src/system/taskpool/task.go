// Package taskpool runs stored executions. Immediate tasks are handed
// to a shared worker pool at insert time; lazy tasks run inline in the
// first consumer that touches their slot. Either way a task body runs
// at most once and its result is memoized.
package taskpool

import (
	"fmt"
	"sync/atomic"

	"github.com/petermattis/goid"

	"github.com/voodooEntity/pathspace/src/system/core"
)

// task lifecycle states
const (
	stateUnscheduled int32 = iota
	stateRunning
	stateDone
)

// Task is one stored execution. Fields are set before the task is
// published and immutable afterwards; state transitions go through
// atomic operations only.
type Task struct {
	fn       func() (any, error)
	category core.ExecutionCategory

	state       atomic.Int32
	runningGoid atomic.Int64
	dropped     atomic.Bool
	done        chan struct{}

	result any
	err    error

	// onDone publishes the memoized result back into the store. Called
	// exactly once, after state reaches done and before the done channel
	// closes, unless the task was dropped first.
	onDone func(t *Task)
}

// NewTask wraps fn for execution under category. onDone may be nil.
func NewTask(fn func() (any, error), category core.ExecutionCategory, onDone func(t *Task)) *Task {
	return &Task{
		fn:       fn,
		category: category,
		done:     make(chan struct{}),
		onDone:   onDone,
	}
}

// Category returns when the task is meant to run.
func (t *Task) Category() core.ExecutionCategory { return t.category }

// Drop marks the task orphaned. A dropped task that has not started
// never will; a running one finishes but its result is discarded.
func (t *Task) Drop() { t.dropped.Store(true) }

// Dropped reports whether the task was orphaned.
func (t *Task) Dropped() bool { return t.dropped.Load() }

// Started reports whether execution has begun or finished.
func (t *Task) Started() bool { return t.state.Load() != stateUnscheduled }

// IsDone reports whether the result is available.
func (t *Task) IsDone() bool { return t.state.Load() == stateDone }

// Done returns a channel closed once the result is memoized.
func (t *Task) Done() <-chan struct{} { return t.done }

// Result returns the memoized outcome. Only valid after IsDone.
func (t *Task) Result() (any, error) { return t.result, t.err }

// Run executes the task body if no one has yet. The second caller and
// every later one gets false and must await Done instead. Panics in
// the body are converted to errors.
func (t *Task) Run() bool {
	if !t.state.CompareAndSwap(stateUnscheduled, stateRunning) {
		return false
	}
	t.runningGoid.Store(goid.Get())

	func() {
		defer func() {
			if r := recover(); r != nil {
				t.result = nil
				t.err = core.NewError(core.UnknownError, fmt.Sprintf("task panicked: %v", r))
			}
		}()
		t.result, t.err = t.fn()
	}()

	t.runningGoid.Store(0)
	// publish before the done state flips so an observer that sees
	// IsDone also sees the published result
	if t.onDone != nil && !t.dropped.Load() {
		t.onDone(t)
	}
	t.state.Store(stateDone)
	close(t.done)
	return true
}

// RunningInCurrentGoroutine reports whether this goroutine is the one
// executing the task body. Used to fail a recursive lazy read instead
// of deadlocking on our own result.
func (t *Task) RunningInCurrentGoroutine() bool {
	g := t.runningGoid.Load()
	return g != 0 && g == goid.Get()
}
