package topo

// Witness observes scope entries and exits as they happen, letting tooling
// reconstruct the call tree of a revision without the tree itself being
// materialized anywhere. Callbacks run synchronously on the goroutine
// driving the topology.
type Witness interface {
	OnEnter(parent, child CallId, site Callsite)
	OnExit(child CallId)
}

var activeWitness Witness

// SetWitness installs w as the active witness and returns the previous one.
// Pass nil to stop witnessing. Like the rest of the topology, the witness is
// scoped to the goroutine driving calls.
func SetWitness(w Witness) Witness {
	prev := activeWitness
	activeWitness = w
	return prev
}
