package moxie

import "time"

// Extension provides hooks into the revision lifecycle for cross-cutting
// concerns like logging or call-tree capture. Extensions implementing
// topo.Witness additionally observe every scope entered during a revision.
type Extension interface {
	// Name returns the extension's name.
	Name() string

	// OnRevisionStart runs before the root closure, in registration order.
	OnRevisionStart(rev Revision)

	// OnRevisionEnd runs after GC, in reverse registration order. It is
	// skipped for revisions aborted by a panic.
	OnRevisionEnd(rev Revision, took time.Duration)
}

// BaseExtension provides default implementations for Extension methods.
type BaseExtension struct {
	name string
}

// NewBaseExtension creates a base extension with the given name.
func NewBaseExtension(name string) BaseExtension {
	return BaseExtension{name: name}
}

func (e *BaseExtension) Name() string {
	return e.name
}

func (e *BaseExtension) OnRevisionStart(Revision) {}

func (e *BaseExtension) OnRevisionEnd(Revision, time.Duration) {}
