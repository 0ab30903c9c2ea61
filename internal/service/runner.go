package service

import (
	"sync"
	"sync/atomic"
)

// Runner drives a Hooks implementation through the state machine.
// Service calls Start from any state in which the runner is not running
// (Created, Stopped, Exited, Error), so a runner that enters Error is
// restartable.
type Runner interface {
	Start(hooks Hooks, stopChildren func()) HookResult
	Stop()
	State() State
}

// stateBox is a lock-free holder for the runner's current state, shared
// by both runner variants.
type stateBox struct {
	v int32
}

func (b *stateBox) load() State      { return State(atomic.LoadInt32(&b.v)) }
func (b *stateBox) store(s State)    { atomic.StoreInt32(&b.v, int32(s)) }
func (b *stateBox) cas(old, new State) bool {
	return atomic.CompareAndSwapInt32(&b.v, int32(old), int32(new))
}

// runLoop is the state machine shared by both runner variants: it runs
// pre_run_init, then process repeatedly until DONE/ERROR or a stop
// request is observed, then stop_children and post_run_cleanup. It
// returns the terminal HookResult (ERROR when the runner ends in Error,
// OK when it ends in Exited or Stopped). The caller is responsible for putting state into Starting
// before invoking runLoop, so the transition out of Created is visible
// synchronously rather than racing with the goroutine that runs this
// loop.
func runLoop(state *stateBox, hooks Hooks, stopChildren func()) HookResult {
	switch hooks.PreRunInit() {
	case HookDone:
		state.store(Exited)
		return HookOK
	case HookErr:
		state.store(Error)
		return HookErr
	}

	state.store(Active)

	for {
		if state.load() == StopRequested {
			break
		}
		switch hooks.Process() {
		case HookOK:
			continue
		case HookDone:
			goto cleanup
		case HookErr:
			if stopChildren != nil {
				stopChildren()
			}
			hooks.PostRunCleanup()
			state.store(Error)
			return HookErr
		}
	}

	state.store(Stopping)

cleanup:
	if stopChildren != nil {
		stopChildren()
	}
	hooks.PostRunCleanup()

	if state.load() == Stopping && state.cas(Stopping, Stopped) {
		return HookOK
	}
	state.store(Exited)
	return HookOK
}

// PassiveRunner is externally driven: start synchronously runs
// pre_run_init and transitions straight to Active (an external driver
// calls Process); stop runs stop_children then post_run_cleanup inline.
type PassiveRunner struct {
	state stateBox
	hooks Hooks
	stopChildren func()
}

// NewPassiveRunner creates a passive runner in state Created.
func NewPassiveRunner() *PassiveRunner {
	return &PassiveRunner{}
}

func (r *PassiveRunner) State() State { return r.state.load() }

// Start runs pre_run_init synchronously on the caller's goroutine.
func (r *PassiveRunner) Start(hooks Hooks, stopChildren func()) HookResult {
	r.hooks = hooks
	r.stopChildren = stopChildren
	r.state.store(Starting)
	switch hooks.PreRunInit() {
	case HookDone:
		r.state.store(Exited)
		return HookOK
	case HookErr:
		r.state.store(Error)
		return HookErr
	}
	r.state.store(Active)
	return HookOK
}

// Process is invoked by the external driver once per iteration. It
// returns false once the service has left Active (DONE, ERROR, or a
// stop request caught up with it).
func (r *PassiveRunner) Process() bool {
	if r.state.load() != Active {
		return false
	}
	switch r.hooks.Process() {
	case HookOK:
		return true
	case HookDone:
		r.finish()
		return false
	case HookErr:
		if r.stopChildren != nil {
			r.stopChildren()
		}
		r.hooks.PostRunCleanup()
		r.state.store(Error)
		return false
	}
	return false
}

// Stop requests termination. For a passive runner this runs
// stop_children and post_run_cleanup inline, since there is no
// background thread to observe the request asynchronously.
func (r *PassiveRunner) Stop() {
	if !r.state.cas(Active, StopRequested) {
		return
	}
	r.state.store(Stopping)
	r.finish()
}

func (r *PassiveRunner) finish() {
	if r.stopChildren != nil {
		r.stopChildren()
	}
	r.hooks.PostRunCleanup()
	if !r.state.cas(Stopping, Stopped) {
		r.state.store(Exited)
	}
}

// ActiveRunner spawns one goroutine per start that runs the full state
// machine to completion; stop is cooperative: it only flips the state
// to StopRequested, observed by the loop between Process calls. Stack size and priority are fixed at
// construction in the source; Go goroutines have neither knob, so both
// are accepted for interface parity and otherwise unused.
type ActiveRunner struct {
	state stateBox
	wg    sync.WaitGroup
}

// NewActiveRunner creates an active runner. stackBytes and priority are
// accepted for parity with the source's fixed-stack/fixed-priority
// threads; they are not stored and have no effect on the goroutine Go
// schedules.
func NewActiveRunner(stackBytes int, priority int) *ActiveRunner {
	return &ActiveRunner{}
}

func (r *ActiveRunner) State() State { return r.state.load() }

// Start puts the runner into Starting synchronously, then spawns the
// goroutine that drives the rest of the state machine and returns; the
// terminal result is not observable here; callers needing it should
// poll State() or use a passive runner. Setting Starting before the
// goroutine is scheduled means State() never reads a stale Created
// immediately after Start returns.
func (r *ActiveRunner) Start(hooks Hooks, stopChildren func()) HookResult {
	r.state.store(Starting)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		runLoop(&r.state, hooks, stopChildren)
	}()
	return HookOK
}

// Stop requests termination and blocks until the goroutine has observed
// it and finished running post_run_cleanup.
func (r *ActiveRunner) Stop() {
	r.state.cas(Active, StopRequested)
	r.wg.Wait()
}
