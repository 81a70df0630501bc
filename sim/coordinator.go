package sim

// self stands for "the branch itself" in routing tables, and for "no parent" on the root.
const self = -1

// routeKey identifies the source of an edge at one branch: a child (by arena index)
// emitting on an output port, or the branch itself (self) receiving on an input port.
type routeKey struct {
	from int
	port string
}

// route is the target side of an edge: a child input port, or the branch's own
// output port when to is self.
type route struct {
	to        int
	port      string
	transform *Transform
}

// coordinator is one node of the arena. Leaves own an Atomic and an inbox;
// branches own their children (by index) and the routing table of their level.
// parent is a non-owning back-reference used to propagate pending input upward.
type coordinator struct {
	name     string
	path     string
	parent   int
	def      *modelDef
	leaf     bool
	atomic   Atomic
	children []int
	routes   map[routeKey][]route

	tL Time // last event
	tN Time // next event; for a branch, min over children

	inbox   Bag  // leaf: inputs delivered this instant
	pending bool // branch: some descendant holds input this instant
}

// hasInput reports whether the node, or for a branch some descendant, holds input.
func (c *coordinator) hasInput() bool {
	if c.leaf {
		return len(c.inbox) > 0
	}
	return c.pending
}
