package moxie

import (
	"context"

	"github.com/moxie-fn/moxie-go/dyncache"
	"github.com/moxie-fn/moxie-go/topo"
)

// loadResult is the state a load callsite settles into once its task
// finishes.
type loadResult[Out any] struct {
	value Out
	err   error
	done  bool
}

// taskGuard cancels its task's context when the cache evicts it: a load
// whose callsite stops being visited, or whose argument changes, is
// cancelled rather than leaked.
type taskGuard struct {
	cancel context.CancelFunc
}

func (g *taskGuard) OnEvict() {
	g.cancel()
}

var _ dyncache.Evictee = (*taskGuard)(nil)

// Load starts run in its own goroutine once per callsite and arg, and
// reports its progress. Until the task finishes, done is false and value is
// the zero Out. When the task finishes it stages its result through the
// state protocol, waking the runtime; the revision after that observes
// done == true along with the task's value and error.
//
// Changing arg cancels the outstanding task's context and starts a new one.
// The task is likewise cancelled if its callsite goes a full revision
// without being visited.
//
// Must be called during a runtime's revision.
func Load[Arg comparable, Out any](arg Arg, run func(context.Context, Arg) (Out, error)) (value Out, done bool, err error) {
	return loadAt(topo.CallerSite(1), arg, run)
}

// LoadOnce is Load with a unit argument: run starts exactly once per
// callsite for the lifetime of its cache entry.
func LoadOnce[Out any](run func(context.Context) (Out, error)) (value Out, done bool, err error) {
	return loadAt(topo.CallerSite(1), struct{}{}, func(ctx context.Context, _ struct{}) (Out, error) {
		return run(ctx)
	})
}

func loadAt[Arg comparable, Out any](
	site topo.Callsite,
	arg Arg,
	run func(context.Context, Arg) (Out, error),
) (Out, bool, error) {
	var result loadResult[Out]
	topo.CallAt(site, func() {
		h := currentHandle("load")
		id := topo.Current()

		v := dyncache.CacheValue(h.cache, id, arg, func(Arg) *stateVar[loadResult[Out]] {
			return newStateVar(id, h.waker, h.revision, loadResult[Out]{})
		})
		commit := v.root(h.revision, h.waker)

		dyncache.Hold(h.cache, id, arg, func(a Arg) *taskGuard {
			ctx, cancel := context.WithCancel(context.Background())
			go func() {
				value, err := run(ctx, a)
				v.update(func(loadResult[Out]) (loadResult[Out], bool) {
					return loadResult[Out]{value: value, err: err, done: true}, true
				})
			}()
			return &taskGuard{cancel: cancel}
		})

		result = commit.value
	})
	return result.value, result.done, result.err
}
