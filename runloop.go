package moxie

import "context"

// RunLoop binds a runtime to a root function and drives revisions on demand:
// one revision immediately per Run call, then one whenever a state change
// wakes the loop. It is the channel-based analog of polling a runtime from
// an external scheduler.
type RunLoop[Out any] struct {
	rt   *Runtime
	root func() Out
	wake chan struct{}
}

// NewRunLoop creates a run loop around a fresh runtime. The runtime's
// state-change waker is wired to the loop; replacing it detaches the loop
// from state changes.
func NewRunLoop[Out any](root func() Out, opts ...Option) *RunLoop[Out] {
	l := &RunLoop[Out]{
		rt:   NewRuntime(opts...),
		root: root,
		wake: make(chan struct{}, 1),
	}
	l.rt.SetStateChangeWaker(WakerFunc(func() {
		select {
		case l.wake <- struct{}{}:
		default:
		}
	}))
	return l
}

// Runtime returns the loop's underlying runtime.
func (l *RunLoop[Out]) Runtime() *Runtime {
	return l.rt
}

// RunOnce runs a single revision of the root function.
func (l *RunLoop[Out]) RunOnce() Out {
	return RunOnce(l.rt, l.root)
}

// Run drives revisions until ctx is done or each returns false. each is
// called with every revision's result; pass nil to run unconditionally.
// Between revisions the loop blocks until a state change wakes it.
func (l *RunLoop[Out]) Run(ctx context.Context, each func(Revision, Out) bool) error {
	for {
		out := l.RunOnce()
		if each != nil && !each(l.rt.Revision(), out) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}
