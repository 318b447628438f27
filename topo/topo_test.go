package topo_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/moxie-fn/moxie-go/topo"
)

func TestCurrentOutsideCallsIsRoot(t *testing.T) {
	if got := topo.Current(); got != topo.RootId {
		t.Fatalf("expected RootId outside of calls, got %v", got)
	}
}

func TestCallEntersChildScope(t *testing.T) {
	topo.Root(func() {
		outer := topo.Current()
		topo.Call(func() {
			if topo.Current() == outer {
				t.Fatal("nested call should have its own id")
			}
		})
		if topo.Current() != outer {
			t.Fatal("id not restored after nested call")
		}
	})
}

func TestLoopIterationsGetDistinctStableIds(t *testing.T) {
	run := func() []topo.CallId {
		var ids []topo.CallId
		topo.Root(func() {
			for i := 0; i < 3; i++ {
				topo.Call(func() {
					ids = append(ids, topo.Current())
				})
			}
		})
		return ids
	}

	first := run()
	seen := make(map[topo.CallId]bool)
	for _, id := range first {
		if seen[id] {
			t.Fatalf("duplicate id %v across loop iterations", id)
		}
		seen[id] = true
	}

	if diff := cmp.Diff(first, run()); diff != "" {
		t.Fatalf("ids not stable across runs (-first +second):\n%s", diff)
	}
}

func TestIdsDependOnParentScope(t *testing.T) {
	leaf := func() (id topo.CallId) {
		topo.Call(func() { id = topo.Current() })
		return
	}

	var a, b topo.CallId
	topo.Root(func() {
		topo.Call(func() { a = leaf() })
		topo.Call(func() { b = leaf() })
	})
	if a == b {
		t.Fatal("same callsite under different parents should get different ids")
	}
}

func TestKeyedSlotsStableUnderReorder(t *testing.T) {
	idsFor := func(keys []string) map[string]topo.CallId {
		out := make(map[string]topo.CallId)
		topo.Root(func() {
			for _, k := range keys {
				topo.CallKeyed(k, func() {
					out[k] = topo.Current()
				})
			}
		})
		return out
	}

	forward := idsFor([]string{"a", "b", "c"})
	shuffled := idsFor([]string{"c", "a", "b"})
	if diff := cmp.Diff(forward, shuffled); diff != "" {
		t.Fatalf("keyed ids should survive reordering (-forward +shuffled):\n%s", diff)
	}
}

func TestCounterSlotsKeepStablePrefix(t *testing.T) {
	// Without keys, identity is positional: a shorter run keeps the same
	// ids for the iterations it shares with a longer one.
	idsFor := func(n int) []topo.CallId {
		var ids []topo.CallId
		topo.Root(func() {
			for i := 0; i < n; i++ {
				topo.Call(func() { ids = append(ids, topo.Current()) })
			}
		})
		return ids
	}

	three := idsFor(3)
	two := idsFor(2)
	if three[0] != two[0] || three[1] != two[1] {
		t.Fatal("common prefix of counter slots should be stable")
	}
}

func TestRootResetsIdsButInheritsEnv(t *testing.T) {
	type marker struct{ label string }

	topo.Root(func() {
		topo.Call(func() {
			topo.Root(func() {
				if topo.Current() != topo.RootId {
					t.Fatal("nested Root should restart ids")
				}
				m, ok := topo.EnvGet[*marker]()
				if !ok || m.label != "outer" {
					t.Fatalf("nested Root should inherit environment, got %v ok=%v", m, ok)
				}
			})
		})
	}, &marker{label: "outer"})
}

func TestEnvEnterShadowsAndRestores(t *testing.T) {
	type conn struct{ addr string }

	if _, ok := topo.EnvGet[*conn](); ok {
		t.Fatal("environment should start empty")
	}

	topo.Root(func() {
		topo.EnvEnter(func() {
			c := topo.EnvExpect[*conn]()
			if c.addr != "inner" {
				t.Fatalf("expected shadowed value, got %q", c.addr)
			}
		}, &conn{addr: "inner"})

		if c := topo.EnvExpect[*conn](); c.addr != "outer" {
			t.Fatalf("outer value not restored, got %q", c.addr)
		}
	}, &conn{addr: "outer"})

	if _, ok := topo.EnvGet[*conn](); ok {
		t.Fatal("environment should be empty again after Root")
	}
}

func TestEnvExpectPanicsWhenMissing(t *testing.T) {
	type absent struct{}

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected a panic")
		}
		if msg, _ := r.(string); !strings.Contains(msg, "expected a") {
			t.Fatalf("unexpected panic value: %v", r)
		}
	}()
	topo.EnvExpect[*absent]()
}

type recordingWitness struct {
	parents []topo.CallId
	enters  []topo.CallId
	exits   []topo.CallId
}

func (w *recordingWitness) OnEnter(parent, child topo.CallId, _ topo.Callsite) {
	w.parents = append(w.parents, parent)
	w.enters = append(w.enters, child)
}

func (w *recordingWitness) OnExit(child topo.CallId) {
	w.exits = append(w.exits, child)
}

func TestWitnessObservesEntriesAndExits(t *testing.T) {
	w := &recordingWitness{}
	prev := topo.SetWitness(w)
	defer topo.SetWitness(prev)

	topo.Root(func() {
		topo.Call(func() {
			topo.Call(func() {})
		})
	})

	if len(w.enters) != 2 || len(w.exits) != 2 {
		t.Fatalf("expected 2 enters and exits, got %d/%d", len(w.enters), len(w.exits))
	}
	if w.parents[1] != w.enters[0] {
		t.Fatal("inner call's parent should be the outer call's id")
	}
	// Exits unwind innermost-first.
	if w.exits[0] != w.enters[1] || w.exits[1] != w.enters[0] {
		t.Fatalf("exit order wrong: enters=%v exits=%v", w.enters, w.exits)
	}
}

func TestCallsiteStringNamesFunction(t *testing.T) {
	site := topo.Here()
	s := site.String()
	if !strings.Contains(s, "TestCallsiteStringNamesFunction") {
		t.Fatalf("callsite %q should name the capturing function", s)
	}
	if (topo.Callsite{}).String() != "<unknown>" {
		t.Fatal("zero callsite should print as <unknown>")
	}
}
