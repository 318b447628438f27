package moxie

import (
	"fmt"
	"time"

	"github.com/moxie-fn/moxie-go/dyncache"
	"github.com/moxie-fn/moxie-go/topo"
)

// Revision measures moxie's notion of time passing. Each Runtime increments
// its revision on every iteration; commits to state variables are tagged
// with the revision at which they became current.
type Revision uint64

func (r Revision) String() string {
	return fmt.Sprintf("r%d", uint64(r))
}

// CurrentRevision returns the revision of the runtime currently executing,
// or 0 when called outside of a runtime's revision.
func CurrentRevision() Revision {
	if h, ok := topo.EnvGet[*runtimeHandle](); ok {
		return h.revision
	}
	return 0
}

// Waker signals an embedding event loop that state has changed and another
// revision should be scheduled.
type Waker interface {
	Wake()
}

// WakerFunc adapts a plain function to the Waker interface.
type WakerFunc func()

func (f WakerFunc) Wake() { f() }

type noopWaker struct{}

func (noopWaker) Wake() {}

// Runtime is the primary integration point between moxie and an embedding
// environment. It owns the cache and state for one moxie application; each
// instance is independent.
//
// RunOnce must not be called recursively and a single goroutine must drive
// revisions at a time. State keys obtained during a revision may be used
// from any goroutine.
type Runtime struct {
	revision   Revision
	cache      *dyncache.Cache
	waker      Waker
	extensions []Extension
	witness    topo.Witness
}

// Option configures a Runtime at construction.
type Option func(*Runtime)

// WithWaker sets the state-change waker; see SetStateChangeWaker.
func WithWaker(w Waker) Option {
	return func(rt *Runtime) { rt.waker = w }
}

// WithExtension registers an extension; see Use.
func WithExtension(ext Extension) Option {
	return func(rt *Runtime) { rt.Use(ext) }
}

// NewRuntime constructs a runtime with blank storage and a no-op waker.
func NewRuntime(opts ...Option) *Runtime {
	rt := &Runtime{
		cache: dyncache.NewCache(),
		waker: noopWaker{},
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Revision returns how many times RunOnce has been invoked.
func (rt *Runtime) Revision() Revision {
	return rt.revision
}

// SetStateChangeWaker sets the waker invoked when state variables receive
// commits. The default no-ops, which is the desired behavior when the
// embedder calls RunOnce on a regular cadence regardless of state changes.
func (rt *Runtime) SetStateChangeWaker(w Waker) {
	if w == nil {
		w = noopWaker{}
	}
	rt.waker = w
}

// Use registers an extension. Extensions implementing topo.Witness are also
// installed as the call witness for the duration of each revision.
func (rt *Runtime) Use(ext Extension) {
	rt.extensions = append(rt.extensions, ext)
	if w, ok := ext.(topo.Witness); ok && rt.witness == nil {
		rt.witness = w
	}
}

// RunOnce increments the runtime's revision, runs root once with access to
// memoization storage, and drops any cached values that the run did not
// touch. A panic in root propagates to the caller; the implicit environment
// is restored on the way out so the next revision starts clean, but no GC
// runs for the aborted revision.
func RunOnce[Out any](rt *Runtime, root func() Out) Out {
	rt.revision++
	started := time.Now()
	for _, ext := range rt.extensions {
		ext.OnRevisionStart(rt.revision)
	}

	if rt.witness != nil {
		prev := topo.SetWitness(rt.witness)
		defer topo.SetWitness(prev)
	}

	var out Out
	handle := &runtimeHandle{revision: rt.revision, cache: rt.cache, waker: rt.waker}
	topo.Root(func() { out = root() }, handle)

	rt.cache.GC()
	for i := len(rt.extensions) - 1; i >= 0; i-- {
		rt.extensions[i].OnRevisionEnd(rt.revision, time.Since(started))
	}
	return out
}

// RunUntil calls RunOnce in a loop until done returns true for a revision's
// output, returning that output. It never blocks between revisions; use a
// RunLoop to wait for state changes instead of spinning.
func RunUntil[Out any](rt *Runtime, root func() Out, done func(Out) bool) Out {
	for {
		if out := RunOnce(rt, root); done(out) {
			return out
		}
	}
}

// RunUntilRevision calls RunOnce in a loop until the runtime's revision is
// at least rev. Always runs at least one revision.
func RunUntilRevision[Out any](rt *Runtime, rev Revision, root func() Out) Out {
	for {
		out := RunOnce(rt, root)
		if rt.revision >= rev {
			return out
		}
	}
}

// runtimeHandle is offered to nested calls through the implicit environment,
// giving memoized functions access to the current revision, the cache, and
// the runtime's waker without explicit parameter threading.
type runtimeHandle struct {
	revision Revision
	cache    *dyncache.Cache
	waker    Waker
}

func currentHandle(op string) *runtimeHandle {
	h, ok := topo.EnvGet[*runtimeHandle]()
	if !ok {
		panic("moxie: " + op + " called outside of a runtime's revision")
	}
	return h
}
