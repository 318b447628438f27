package moxie

import (
	"fmt"
	"sync"

	"github.com/moxie-fn/moxie-go/dyncache"
	"github.com/moxie-fn/moxie-go/topo"
)

// Commit is a read-only snapshot of a state variable's value at a particular
// revision. Reads through a commit are not guaranteed to be the latest value
// known to the runtime: commits are stable for the duration of the revision
// in which they were obtained and should be re-loaded from the state
// variable each revision.
type Commit[State any] struct {
	rev   Revision
	value State
}

// Revision returns the revision at which this commit became current.
func (c *Commit[State]) Revision() Revision {
	return c.rev
}

// Value returns the snapshotted value.
func (c *Commit[State]) Value() State {
	return c.value
}

func (c *Commit[State]) String() string {
	return fmt.Sprintf("%v@%v", c.value, c.rev)
}

// stateVar is the underlying container of a state variable. It is owned by
// the runtime's cache; keys hold a reference that goes inert when the cache
// evicts the variable.
type stateVar[State any] struct {
	mu       sync.Mutex
	id       topo.CallId
	current  *Commit[State]
	pending  *Commit[State]
	waker    Waker
	rootedAt Revision
	dead     bool
}

func newStateVar[State any](id topo.CallId, waker Waker, rev Revision, initial State) *stateVar[State] {
	return &stateVar[State]{
		id:      id,
		waker:   waker,
		current: &Commit[State]{rev: rev, value: initial},
	}
}

// root attaches the variable to its callsite for this revision: any pending
// commit becomes current (tagged with the new revision) and the visible
// commit is returned. The waker is refreshed so later updates reach the
// runtime's current embedder.
func (v *stateVar[State]) root(rev Revision, waker Waker) *Commit[State] {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.pending != nil {
		v.pending.rev = rev
		v.current = v.pending
		v.pending = nil
	}
	v.rootedAt = rev
	v.waker = waker
	return v.current
}

// latestLocked returns the pending value if one is staged, else the current
// one. Callers must hold v.mu.
func (v *stateVar[State]) latestLocked() State {
	if v.pending != nil {
		return v.pending.value
	}
	return v.current.value
}

// update applies updater to the latest value and, if updater commits,
// stages the result as the pending commit (replacing any earlier unflushed
// one) and wakes the runtime. Reports the revision at which the variable
// was last rooted, or false if the variable has been evicted.
func (v *stateVar[State]) update(updater func(State) (State, bool)) (Revision, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.dead {
		return 0, false
	}
	if next, ok := updater(v.latestLocked()); ok {
		v.pending = &Commit[State]{value: next}
		v.waker.Wake()
	}
	return v.rootedAt, true
}

// OnEvict marks the variable dead when its callsite stops being visited and
// the cache drops it. Outstanding keys become inert rather than keeping the
// variable alive.
func (v *stateVar[State]) OnEvict() {
	v.mu.Lock()
	v.dead = true
	v.pending = nil
	v.mu.Unlock()
}

var _ dyncache.Evictee = (*stateVar[int])(nil)

// Key offers access to a state variable from outside the traversal, e.g.
// from event handlers. Reads go through the commit snapshotted when the key
// was created; writes are staged with Update or Set and become visible the
// next time the owning callsite is visited.
type Key[State any] struct {
	id topo.CallId
	at *Commit[State]
	v  *stateVar[State]
}

// Id returns the CallId at which the state variable is bound.
func (k *Key[State]) Id() topo.CallId {
	return k.id
}

// Value reads the snapshot taken when the key was created.
func (k *Key[State]) Value() State {
	return k.at.value
}

// Commit returns the snapshot taken when the key was created.
func (k *Key[State]) Commit() *Commit[State] {
	return k.at
}

// Update runs updater with the state variable's latest value (pending or
// current) and stages the result as a pending commit when updater reports a
// change, waking the runtime so the embedder schedules another revision.
// The staged value is observed only by revisions after the current one;
// in-flight reads are never perturbed.
//
// Reports the revision at which the variable was last rooted. If the
// variable's callsite stopped being visited and the runtime dropped it,
// Update is a silent no-op reporting false.
func (k *Key[State]) Update(updater func(State) (State, bool)) (Revision, bool) {
	return k.v.update(updater)
}

// Equal reports whether two keys point at the same state variable, even if
// they hold snapshots from different revisions.
func (k *Key[State]) Equal(other *Key[State]) bool {
	return other != nil && k.v == other.v
}

func (k *Key[State]) String() string {
	return k.at.String()
}

// Set stages next as the variable's pending commit unless it equals the
// latest value, in which case nothing is staged and the runtime is not
// woken.
func Set[State comparable](k *Key[State], next State) {
	k.Update(func(cur State) (State, bool) {
		if cur == next {
			var zero State
			return zero, false
		}
		return next, true
	})
}

// State memoizes a state variable at the caller's callsite, seeding it with
// init on first visit, and returns the currently-visible commit along with
// a key for staging changes. Each visit flushes any commit staged since the
// previous revision, so a handler firing between revisions becomes visible
// exactly at the next one.
//
// Must be called during a runtime's revision.
func State[S any](init func() S) (*Commit[S], *Key[S]) {
	return memoStateAt(topo.CallerSite(1), struct{}{}, func(struct{}) S { return init() })
}

// MemoState is State with a memoization argument: the variable is re-seeded
// from init whenever arg changes, exactly like Memo.
func MemoState[Arg comparable, S any](arg Arg, init func(Arg) S) (*Commit[S], *Key[S]) {
	return memoStateAt(topo.CallerSite(1), arg, init)
}

func memoStateAt[Arg comparable, S any](site topo.Callsite, arg Arg, init func(Arg) S) (*Commit[S], *Key[S]) {
	var key *Key[S]
	topo.CallAt(site, func() {
		h := currentHandle("state")
		id := topo.Current()
		v := dyncache.CacheValue(h.cache, id, arg, func(a Arg) *stateVar[S] {
			return newStateVar(id, h.waker, h.revision, init(a))
		})
		commit := v.root(h.revision, h.waker)
		key = &Key[S]{id: id, at: commit, v: v}
	})
	return key.at, key
}
