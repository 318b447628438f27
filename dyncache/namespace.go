package dyncache

// liveness describes the outcome for a cached value if a garbage collection
// were to occur when observed. Values which are initialized or read between
// two GC passes are live; everything else is dead.
type liveness uint8

const (
	live liveness = iota
	dead
)

// store is the type-erased face of a namespace held in a cache's top-level
// map. sweep drops dead entries and returns the container's own liveness;
// ty reports the namespace's full type identity for checked recovery.
type store interface {
	sweep() liveness
	ty() triple
}

// Evictee is implemented by cached outputs that need to observe their own
// eviction, whether from a GC sweep or from being replaced by a store to the
// same scope. Eviction callbacks run synchronously on the goroutine driving
// the sweep.
type Evictee interface {
	OnEvict()
}

func notifyEvicted(output any) {
	if e, ok := output.(Evictee); ok {
		e.OnEvict()
	}
}

// cacheCell is the storage for a single scope's input/output pair.
type cacheCell[Input comparable, Output any] struct {
	live   bool
	input  Input
	output Output
}

// get returns the output if arg equals the stored input, marking the cell
// live in the process. A mismatched arg leaves the cell's liveness untouched.
func (c *cacheCell[Input, Output]) get(arg Input) (Output, bool) {
	if arg == c.input {
		c.live = true
		return c.output, true
	}
	var zero Output
	return zero, false
}

// put replaces the cell's input/output and marks it live. The displaced
// output is notified of its eviction.
func (c *cacheCell[Input, Output]) put(input Input, output Output) {
	notifyEvicted(c.output)
	c.live = true
	c.input = input
	c.output = output
}

// namespace holds all cached values for a particular query type.
type namespace[Scope comparable, Input comparable, Output any] struct {
	types triple
	cells map[Scope]*cacheCell[Input, Output]
}

func newNamespace[Scope comparable, Input comparable, Output any](ty triple) *namespace[Scope, Input, Output] {
	return &namespace[Scope, Input, Output]{
		types: ty,
		cells: make(map[Scope]*cacheCell[Input, Output]),
	}
}

func (ns *namespace[Scope, Input, Output]) get(key Scope, arg Input) (Output, bool) {
	if cell, ok := ns.cells[key]; ok {
		return cell.get(arg)
	}
	var zero Output
	return zero, false
}

func (ns *namespace[Scope, Input, Output]) put(key Scope, input Input, output Output) {
	if cell, ok := ns.cells[key]; ok {
		cell.put(input, output)
		return
	}
	ns.cells[key] = &cacheCell[Input, Output]{live: true, input: input, output: output}
}

// sweep drops cells that were not marked live since the previous sweep and
// re-marks the survivors dead. Namespaces themselves are always retained;
// their allocations are worth keeping for the next revision.
func (ns *namespace[Scope, Input, Output]) sweep() liveness {
	for key, cell := range ns.cells {
		if !cell.live {
			notifyEvicted(cell.output)
			delete(ns.cells, key)
			continue
		}
		cell.live = false
	}
	return live
}

func (ns *namespace[Scope, Input, Output]) ty() triple {
	return ns.types
}
