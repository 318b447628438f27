package moxie

import (
	"github.com/moxie-fn/moxie-go/dyncache"
	"github.com/moxie-fn/moxie-go/topo"
)

// Memo caches the result of init once per callsite, re-running it only when
// arg changes between revisions (compared with ==). The cached value is
// dropped, and init re-run on the next visit, if the callsite goes a full
// revision without being visited.
//
// Must be called during a runtime's revision.
func Memo[Arg comparable, Stored any](arg Arg, init func(Arg) Stored) Stored {
	return memoWithAt(topo.CallerSite(1), arg, init, identity[Stored])
}

// MemoWith is Memo with a projection: with runs on the stored value before
// returning, so callers can derive a cheap result without another cache
// round trip.
func MemoWith[Arg comparable, Stored, Ret any](arg Arg, init func(Arg) Stored, with func(Stored) Ret) Ret {
	return memoWithAt(topo.CallerSite(1), arg, init, with)
}

// Once runs init exactly once per callsite for the lifetime of its cache
// entry: Memo with a unit argument.
func Once[Stored any](init func() Stored) Stored {
	return memoWithAt(topo.CallerSite(1), struct{}{}, func(struct{}) Stored { return init() }, identity[Stored])
}

func memoWithAt[Arg comparable, Stored, Ret any](
	site topo.Callsite,
	arg Arg,
	init func(Arg) Stored,
	with func(Stored) Ret,
) Ret {
	var ret Ret
	topo.CallAt(site, func() {
		h := currentHandle("memo")
		ret = dyncache.CacheWith(h.cache, topo.Current(), arg, init, with)
	})
	return ret
}

func identity[T any](v T) T { return v }
