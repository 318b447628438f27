package topo

import (
	"reflect"
	"sync"

	"github.com/moxie-fn/moxie-go/dyncache"
)

// Token is a unique identifier for an interned slot value. Tokens for equal
// values of the same type always compare equal, so identity comparisons on
// the hot path cost a word compare instead of a value compare.
type Token[T comparable] struct {
	index uint32
}

// OpaqueToken is a type-erased token: the interner's dense index for the
// value's type paired with the value's index within that type. Token values
// of different types never collide. Type index 0 is reserved for the
// per-callsite repetition counters used as default slots.
type OpaqueToken struct {
	ty    uint32
	index uint32
}

// Interner assigns dense per-type indices to arbitrary comparable values.
// It is an explicit service object rather than a hidden global so tests can
// isolate their own instance; a process-wide default backs CallKeyed.
//
// Interned values are never evicted: memory use grows with the number of
// unique values ever seen. The backing store is a dyncache.Cache that is
// simply never GC'd.
type Interner struct {
	mu     sync.Mutex
	tokens *dyncache.Cache
	next   map[reflect.Type]uint32
	types  map[reflect.Type]uint32
	values map[OpaqueToken]any
}

// NewInterner creates an empty interner.
func NewInterner() *Interner {
	return &Interner{
		tokens: dyncache.NewCache(),
		next:   make(map[reflect.Type]uint32),
		types:  make(map[reflect.Type]uint32),
		values: make(map[OpaqueToken]any),
	}
}

var defaultInterner = NewInterner()

// DefaultInterner returns the process-wide interner used by CallKeyed.
func DefaultInterner() *Interner {
	return defaultInterner
}

// Intern returns the token for value, allocating a fresh index if the value
// has not been seen before. Safe for concurrent use.
func Intern[T comparable](in *Interner, value T) Token[T] {
	in.mu.Lock()
	defer in.mu.Unlock()

	tok, miss, ok := dyncache.Get[T, struct{}, Token[T]](in.tokens, value, struct{}{})
	if ok {
		return tok
	}

	ty := reflect.TypeOf((*T)(nil)).Elem()
	index := in.next[ty] + 1
	in.next[ty] = index
	tok = Token[T]{index: index}

	entry, _ := dyncache.Init(miss, struct{}{}, func(struct{}) (Token[T], struct{}) {
		return tok, struct{}{}
	})
	dyncache.Store(in.tokens, entry)
	in.values[OpaqueToken{ty: in.typeIndex(ty), index: tok.index}] = value
	return tok
}

// Opaque type-erases a token so tokens of different types can be compared
// and hashed together.
func Opaque[T comparable](in *Interner, tok Token[T]) OpaqueToken {
	in.mu.Lock()
	defer in.mu.Unlock()
	return OpaqueToken{ty: in.typeIndex(reflect.TypeOf((*T)(nil)).Elem()), index: tok.index}
}

// LookupToken returns the value a token was interned from, or false if the
// token did not come from this interner.
func LookupToken[T comparable](in *Interner, tok Token[T]) (T, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	v, ok := in.values[OpaqueToken{ty: in.typeIndex(reflect.TypeOf((*T)(nil)).Elem()), index: tok.index}]
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// typeIndex returns the dense index for a type, allocating one on first use.
// Index 0 is reserved for counter slots. Callers must hold in.mu.
func (in *Interner) typeIndex(ty reflect.Type) uint32 {
	if id, ok := in.types[ty]; ok {
		return id
	}
	id := uint32(len(in.types)) + 1
	in.types[ty] = id
	return id
}

// counterSlotToken builds the default slot for the nth repetition of a
// callsite within its parent.
func counterSlotToken(n uint32) OpaqueToken {
	return OpaqueToken{ty: 0, index: n}
}
