package dyncache

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// triple is the full type identity of a query: the concrete types of its
// scope, input, and output. Two queries share a namespace iff their triples
// are identical.
type triple struct {
	scope, input, output reflect.Type
}

func (t triple) String() string {
	return fmt.Sprintf("(%v, %v, %v)", t.scope, t.input, t.output)
}

// Query identifies the typed namespace holding all cached results for one
// (Scope, Input, Output) triple. The hash routes lookups in the cache's
// top-level map; the triple itself is re-checked before any namespace is
// recovered from type-erased storage.
type Query[Scope comparable, Input comparable, Output any] struct {
	hash uint64
	ty   triple
}

var queryHashes sync.Map // triple -> uint64

func queryFor[Scope comparable, Input comparable, Output any]() Query[Scope, Input, Output] {
	ty := triple{
		scope:  reflect.TypeOf((*Scope)(nil)).Elem(),
		input:  reflect.TypeOf((*Input)(nil)).Elem(),
		output: reflect.TypeOf((*Output)(nil)).Elem(),
	}
	if h, ok := queryHashes.Load(ty); ok {
		return Query[Scope, Input, Output]{hash: h.(uint64), ty: ty}
	}
	d := xxhash.New()
	for _, t := range []reflect.Type{ty.scope, ty.input, ty.output} {
		d.WriteString(t.PkgPath())
		d.WriteString(t.String())
		d.Write([]byte{0})
	}
	h := d.Sum64()
	queryHashes.Store(ty, h)
	return Query[Scope, Input, Output]{hash: h, ty: ty}
}
