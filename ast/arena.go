package ast

// Ref is a stable integer handle into an Arena. The parser allocates the
// expression nodes of one compiled machine through a single arena
// (spec.md section 9's design note); the nodes still link to each other
// by pointer, and the state graph is kept outside the arena. Ref lets
// callers that need to survive serialization/debugging address a node by
// integer instead of by pointer.
type Ref int

// Arena owns every Node allocated while compiling one state machine
// definition. Nodes are never freed individually; the whole arena is
// dropped when the machine is torn down.
type Arena struct {
	nodes []*Node
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// New allocates a zero-valued Node in the arena and returns both its
// pointer (for building the tree) and its stable Ref (for lookups).
func (a *Arena) New(kind Kind) (*Node, Ref) {
	n := &Node{Kind: kind}
	a.nodes = append(a.nodes, n)
	return n, Ref(len(a.nodes) - 1)
}

// At resolves a Ref back to its Node.
func (a *Arena) At(r Ref) *Node {
	if int(r) < 0 || int(r) >= len(a.nodes) {
		return nil
	}
	return a.nodes[r]
}

// Len reports how many nodes have been allocated.
func (a *Arena) Len() int {
	return len(a.nodes)
}
