// Package topo describes trees based on their runtime callgraph. Because
// normal synchronous control flow has a tree-shaped callgraph, the path of
// topologically-nested calls preceding the current activation record gives
// every call a natural, stable identity: its CallId. Running the same
// topological functions in a loop yields the same CallIds run after run,
// which is what lets a cache keyed on them observe change over time.
//
// The current point in the topology is package-level state manipulated with
// defer-based guards, mirroring the implicit environment of a render loop:
// a single goroutine drives the tree at a time, entries always restore their
// parent on the way out, and a panic in user code unwinds through the same
// guards.
package topo

import (
	"fmt"
	"reflect"
)

// point is the root of a sub-graph within the overall topology: the current
// CallId, the repetition counters for its child callsites, and the implicit
// environment visible to calls beneath it.
type point struct {
	id     CallId
	counts map[Callsite]uint32
	env    *envLayer
}

var currentPoint = &point{id: RootId}

// counterSlot returns the default slot for the next occurrence of site under
// this point and advances the counter.
func (p *point) counterSlot(site Callsite) OpaqueToken {
	if p.counts == nil {
		p.counts = make(map[Callsite]uint32)
	}
	n := p.counts[site]
	p.counts[site] = n + 1
	return counterSlotToken(n)
}

func enterChild(site Callsite, slot OpaqueToken, op func()) {
	parent := currentPoint
	child := &point{id: parent.id.child(site, slot), env: parent.env}

	if w := activeWitness; w != nil {
		w.OnEnter(parent.id, child.id, site)
		defer w.OnExit(child.id)
	}

	currentPoint = child
	defer func() { currentPoint = parent }()
	op()
}

// Call runs op in a child scope identified by Call's callsite. Sibling calls
// at the same callsite with no explicit key get successive slots, so a call
// in a loop is unique per iteration and stable across revisions as long as
// iteration order is stable.
func Call(op func()) {
	CallAt(CallerSite(1), op)
}

// CallAt is Call with an explicitly captured callsite, for wrappers which
// need identity attached to their own caller.
func CallAt(site Callsite, op func()) {
	enterChild(site, currentPoint.counterSlot(site), op)
}

// CallKeyed runs op in a child scope slotted by key instead of by repetition
// count, giving the scope a stable identity across revisions even when
// sibling order changes. Keys are interned through the default interner.
func CallKeyed[K comparable](key K, op func()) {
	CallKeyedAt(CallerSite(1), key, op)
}

// CallKeyedAt is CallKeyed with an explicitly captured callsite.
func CallKeyedAt[K comparable](site Callsite, key K, op func()) {
	tok := Intern(defaultInterner, key)
	enterChild(site, Opaque(defaultInterner, tok), op)
}

// Root runs op in a fresh root scope: ids restart from RootId while the
// implicit environment is inherited from the enclosing scope and extended
// with env values. Runtimes enter a Root once per revision so that ids are
// reproducible run over run.
func Root(op func(), env ...any) {
	parent := currentPoint
	currentPoint = &point{id: RootId, env: parent.env.extend(env)}
	defer func() { currentPoint = parent }()
	op()
}

// envLayer is one immutable layer of the type-indexed implicit environment.
// Each layer holds 0-1 values per concrete type; lookups walk toward the
// root.
type envLayer struct {
	parent *envLayer
	values map[reflect.Type]any
}

func (e *envLayer) extend(vals []any) *envLayer {
	if len(vals) == 0 {
		return e
	}
	m := make(map[reflect.Type]any, len(vals))
	for _, v := range vals {
		if v == nil {
			panic("topo: nil environment value")
		}
		m[reflect.TypeOf(v)] = v
	}
	return &envLayer{parent: e, values: m}
}

func (e *envLayer) lookup(ty reflect.Type) (any, bool) {
	for layer := e; layer != nil; layer = layer.parent {
		if v, ok := layer.values[ty]; ok {
			return v, true
		}
	}
	return nil, false
}

// EnvEnter runs op with the current environment extended by vals, keyed by
// each value's concrete type. The previous environment is restored when op
// returns, including on panic. Ids are unaffected.
func EnvEnter(op func(), vals ...any) {
	p := currentPoint
	saved := p.env
	p.env = saved.extend(vals)
	defer func() { p.env = saved }()
	op()
}

// EnvGet returns the value of concrete type T provided by an enclosing
// EnvEnter or Root, if any.
func EnvGet[T any]() (T, bool) {
	v, ok := currentPoint.env.lookup(reflect.TypeOf((*T)(nil)).Elem())
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// EnvExpect is EnvGet for values that must be present; it panics when the
// environment has no value of type T.
func EnvExpect[T any]() T {
	v, ok := EnvGet[T]()
	if !ok {
		panic(fmt.Sprintf("topo: expected a %v in the environment, found none",
			reflect.TypeOf((*T)(nil)).Elem()))
	}
	return v
}
