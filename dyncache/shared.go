package dyncache

import "sync"

// Shared is implemented by both cache flavors and accepted by the
// closure-based helpers. The single-goroutine Cache acquires itself for
// free; SendCache acquires by locking its mutex.
type Shared interface {
	acquire() *Cache
	release()
}

func (c *Cache) acquire() *Cache { return c }
func (c *Cache) release()        {}

// SendCache guards a Cache with a mutex so it can be shared across
// goroutines. The locking is coarse: one mutex for the whole type-sharded
// map. User computations passed to CacheWith run without the lock held, so
// nested cache use from inside an init closure does not deadlock.
type SendCache struct {
	mu    sync.Mutex
	inner Cache
}

// NewSendCache creates an empty mutex-guarded cache.
func NewSendCache() *SendCache {
	return &SendCache{inner: Cache{spaces: make(map[uint64]store)}}
}

func (c *SendCache) acquire() *Cache {
	c.mu.Lock()
	return &c.inner
}

func (c *SendCache) release() {
	c.mu.Unlock()
}

// GC forwards to the inner cache's GC under the lock.
func (c *SendCache) GC() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.GC()
}

// CacheWith caches the result of init(arg) once per key, re-running it when
// arg changes. with runs on the stored output before returning, letting
// callers derive a projection without touching the cache again.
func CacheWith[Scope comparable, Input comparable, Output, Ret any](
	c Shared,
	key Scope,
	arg Input,
	init func(Input) Output,
	with func(Output) Ret,
) Ret {
	inner := c.acquire()
	out, miss, ok := Get[Scope, Input, Output](inner, key, arg)
	c.release()
	if ok {
		return with(out)
	}

	entry, ret := Init(miss, arg, func(a Input) (Output, Ret) {
		stored := init(a)
		return stored, with(stored)
	})

	inner = c.acquire()
	Store(inner, entry)
	c.release()
	return ret
}

// CacheValue caches the result of init(arg) once per key, re-running it when
// arg changes, and returns a copy of the stored output.
func CacheValue[Scope comparable, Input comparable, Output any](
	c Shared,
	key Scope,
	arg Input,
	init func(Input) Output,
) Output {
	return CacheWith(c, key, arg, init, func(out Output) Output { return out })
}

// Hold caches the result of init(arg) once per key without returning it.
// Useful for values kept alive purely for their eviction side effects.
func Hold[Scope comparable, Input comparable, Output any](
	c Shared,
	key Scope,
	arg Input,
	init func(Input) Output,
) {
	CacheWith(c, key, arg, init, func(Output) struct{} { return struct{}{} })
}
