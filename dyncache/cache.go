// Package dyncache stores the results of repeated function calls, sharded by
// the type of each query so that arbitrarily many result types live behind a
// single parent store.
//
// # Query types
//
// A query has three type parameters. The Scope is the value indexing storage
// within a namespace; each Scope corresponds to at most one (Input, Output)
// pair at a time. The Input determines when a query re-runs: a stored output
// is only returned while the current argument equals the previously-stored
// input. The Output is the cached value itself. The same Scope type can be
// used by many queries without collision as long as the input or output
// types differ.
//
// # Flavors
//
// [Cache] uses plain maps with no locking and must be confined to a single
// goroutine. [SendCache] guards the same storage with a mutex. Both implement
// [Shared], the interface accepted by the closure-based [CacheWith],
// [CacheValue], and [Hold] helpers.
//
// # Garbage collection
//
// Every value carries a liveness bit which is set when the value is stored
// and again each time it is read. Calling GC retains only values that are
// still live and re-marks the survivors dead: a simple mark-and-sweep where
// the "mark phase" is ordinary use of the cache between GC calls. Two
// consecutive GC calls with no access in between therefore drop everything.
//
// Outputs implementing [Evictee] are notified when a sweep (or a replacing
// store) drops them, which makes eviction usable for cancellation: cache a
// guard whose OnEvict tears down the resource, and the teardown runs exactly
// when the guard's callsite stops being visited.
package dyncache

import "fmt"

// Cache holds arbitrary query results namespaced by arbitrary scope types.
// It is not safe for concurrent use; see SendCache for the locked flavor.
type Cache struct {
	spaces map[uint64]store
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{spaces: make(map[uint64]store)}
}

// CacheMiss is returned by Get when no matching value is stored. It captures
// the query identity and scope key so the subsequent Store does not repeat
// the namespace lookup setup.
type CacheMiss[Scope comparable, Input comparable, Output any] struct {
	query Query[Scope, Input, Output]
	key   Scope
}

// CacheEntry is a freshly initialized result ready to be committed with
// Store. Produced by Init.
type CacheEntry[Scope comparable, Input comparable, Output any] struct {
	miss   CacheMiss[Scope, Input, Output]
	input  Input
	output Output
}

// Get returns the stored output for key if one exists and arg equals the
// previously-stored input, marking it live so the next GC retains it. On a
// miss the returned CacheMiss is passed to Init and then Store.
func Get[Scope comparable, Input comparable, Output any](c *Cache, key Scope, arg Input) (Output, CacheMiss[Scope, Input, Output], bool) {
	query := queryFor[Scope, Input, Output]()
	miss := CacheMiss[Scope, Input, Output]{query: query, key: key}
	if ns := namespaceFor(c, query, false); ns != nil {
		if out, ok := ns.get(key, arg); ok {
			return out, miss, true
		}
	}
	var zero Output
	return zero, miss, false
}

// Init runs the query's computation exactly once, producing both the output
// to cache and an arbitrary derived return value. The split lets callers
// compute a cheap projection of the output without re-reading the cache
// after Store.
func Init[Scope comparable, Input comparable, Output, Ret any](
	miss CacheMiss[Scope, Input, Output],
	arg Input,
	init func(Input) (Output, Ret),
) (CacheEntry[Scope, Input, Output], Ret) {
	output, ret := init(arg)
	return CacheEntry[Scope, Input, Output]{miss: miss, input: arg, output: output}, ret
}

// Store commits an initialized entry. The stored value is live and will not
// be dropped by the next GC.
func Store[Scope comparable, Input comparable, Output any](c *Cache, entry CacheEntry[Scope, Input, Output]) {
	namespaceFor(c, entry.miss.query, true).put(entry.miss.key, entry.input, entry.output)
}

// GC drops any values which have not been marked live since the last call
// and marks all remaining values to be dropped by default in the next call.
func (c *Cache) GC() {
	for _, ns := range c.spaces {
		ns.sweep()
	}
}

// namespaceFor recovers the concrete namespace for a query from type-erased
// storage. The query hash only routes the lookup; the full type triple is
// compared before the type assertion, so a hash collision across distinct
// triples is surfaced as a panic rather than corrupting unrelated storage.
func namespaceFor[Scope comparable, Input comparable, Output any](
	c *Cache,
	query Query[Scope, Input, Output],
	create bool,
) *namespace[Scope, Input, Output] {
	if erased, ok := c.spaces[query.hash]; ok {
		if erased.ty() != query.ty {
			panic(fmt.Sprintf("dyncache: hash collision between query types %v and %v", erased.ty(), query.ty))
		}
		ns, ok := erased.(*namespace[Scope, Input, Output])
		if !ok {
			panic(fmt.Sprintf("dyncache: namespace downcast failed for %v", query.ty))
		}
		return ns
	}
	if !create {
		return nil
	}
	ns := newNamespace[Scope, Input, Output](query.ty)
	c.spaces[query.hash] = ns
	return ns
}
