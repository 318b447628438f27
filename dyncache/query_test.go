package dyncache

import "testing"

func TestQueryHashIsMemoized(t *testing.T) {
	a := queryFor[string, int, int]()
	b := queryFor[string, int, int]()
	if a.hash != b.hash || a.ty != b.ty {
		t.Fatal("identical queries should share identity")
	}
	if c := queryFor[string, int, string](); c.hash == a.hash {
		t.Fatal("distinct triples should hash apart")
	}
}

func TestHashCollisionBetweenQueryTypesPanics(t *testing.T) {
	c := NewCache()
	intQuery := queryFor[string, int, int]()
	strQuery := queryFor[string, int, string]()

	// Force two distinct triples into one bucket, as a hash collision would.
	c.spaces[strQuery.hash] = newNamespace[string, int, int](intQuery.ty)

	defer func() {
		if recover() == nil {
			t.Fatal("a colliding namespace must panic, not serve foreign storage")
		}
	}()
	Get[string, int, string](c, "k", 1)
}
