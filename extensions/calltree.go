package extensions

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/m1gwings/treedrawer/tree"

	moxie "github.com/moxie-fn/moxie-go"
	"github.com/moxie-fn/moxie-go/topo"
)

// CallTreeExtension records the topological call tree of each revision
// through the topo witness hook and renders it as an ASCII drawing, logged
// at debug level after every revision. Useful for seeing which callsites a
// revision actually visited and how they nest.
type CallTreeExtension struct {
	moxie.BaseExtension
	logger *slog.Logger

	nodes   map[topo.CallId]*callNode
	roots   []*callNode
	drawing string
}

type callNode struct {
	id       topo.CallId
	site     topo.Callsite
	children []*callNode
}

// NewCallTreeExtension creates a call-tree extension logging to handler.
func NewCallTreeExtension(handler slog.Handler) *CallTreeExtension {
	return &CallTreeExtension{
		BaseExtension: moxie.NewBaseExtension("call-tree"),
		logger:        slog.New(handler),
	}
}

func (e *CallTreeExtension) OnRevisionStart(moxie.Revision) {
	e.nodes = make(map[topo.CallId]*callNode)
	e.roots = nil
}

// OnEnter implements topo.Witness.
func (e *CallTreeExtension) OnEnter(parent, child topo.CallId, site topo.Callsite) {
	n := &callNode{id: child, site: site}
	e.nodes[child] = n
	if p, ok := e.nodes[parent]; ok {
		p.children = append(p.children, n)
		return
	}
	e.roots = append(e.roots, n)
}

// OnExit implements topo.Witness.
func (e *CallTreeExtension) OnExit(topo.CallId) {}

func (e *CallTreeExtension) OnRevisionEnd(rev moxie.Revision, _ time.Duration) {
	t := tree.NewTree(tree.NodeString(rev.String()))
	for i, root := range e.roots {
		t.AddChild(tree.NodeString(label(root)))
		if sub, err := t.Child(i); err == nil {
			addChildren(sub, root)
		}
	}
	e.drawing = fmt.Sprint(t)
	e.logger.Debug("revision call tree", "revision", uint64(rev), "tree", e.drawing)
}

// Drawing returns the rendered call tree of the most recently completed
// revision.
func (e *CallTreeExtension) Drawing() string {
	return e.drawing
}

func addChildren(t *tree.Tree, n *callNode) {
	for i, c := range n.children {
		t.AddChild(tree.NodeString(label(c)))
		if sub, err := t.Child(i); err == nil {
			addChildren(sub, c)
		}
	}
}

func label(n *callNode) string {
	return fmt.Sprintf("%v (%v)", n.site, n.id)
}

var _ topo.Witness = (*CallTreeExtension)(nil)
