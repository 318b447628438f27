// Package moxie is an incremental computation runtime built around
// call-site-addressed memoization: values are cached not under explicit
// keys but under the identity of the call that produced them, derived from
// the runtime call tree. Re-running the same declarative closure revision
// after revision, unchanged work is skipped and abandoned work is dropped.
//
// # Overview
//
// Three layers cooperate:
//
//  1. topo derives a stable CallId for every topologically-nested call from
//     (parent id, source callsite, repetition slot).
//  2. dyncache stores the results of queries keyed on those ids, sharded by
//     type, with mark-and-sweep eviction of values not touched in a
//     revision.
//  3. moxie drives the loop: a Runtime runs a root closure once per
//     Revision, and Memo, State, and Load bind cached values and mutable
//     state variables to their callsites.
//
// # Basic usage
//
// Create a runtime and run a root closure per revision:
//
//	rt := moxie.NewRuntime()
//	out := moxie.RunOnce(rt, func() string {
//	    return moxie.Memo(input, expensiveRender)
//	})
//
// Memo re-runs expensiveRender only when input changes between revisions.
// Values whose callsite stops being visited are dropped at the end of the
// revision.
//
// # State variables
//
// State memoizes a mutable cell at its callsite and returns a snapshot plus
// a key for staging changes:
//
//	commit, key := moxie.State(func() int { return 0 })
//	onClick := func() { moxie.Set(key, commit.Value() + 1) }
//
// Writes through a key never mutate the revision in flight: they are staged
// as a pending commit, the runtime's waker is invoked so the embedder
// schedules another revision, and the next visit to the callsite flushes
// the pending value. Setting an equal value stages nothing and wakes
// nothing. If the callsite stops being visited, the variable is dropped and
// outstanding keys become silent no-ops.
//
// # Driving revisions
//
// Embedders that render on a cadence call RunOnce directly. Embedders that
// render on demand use a RunLoop, which blocks between revisions until a
// state change wakes it:
//
//	loop := moxie.NewRunLoop(render)
//	err := loop.Run(ctx, func(rev moxie.Revision, out string) bool {
//	    present(out)
//	    return true
//	})
//
// # Async work
//
// Load runs a function in its own goroutine once per callsite and arg, and
// lands the result through the state protocol:
//
//	user, done, err := moxie.Load(id, fetchUser)
//
// The task's context is cancelled when the callsite stops being visited or
// its argument changes, so abandoned loads are reclaimed with the rest of
// the cache.
//
// # Extensions
//
// Extensions hook revision boundaries for cross-cutting concerns; see the
// extensions package for structured logging and call-tree capture.
//
// # Concurrency
//
// One goroutine drives a runtime's revisions at a time; RunOnce is not
// re-entrant. Keys may be used from any goroutine, which is how event
// handlers and Load tasks stage changes from outside the traversal.
package moxie
