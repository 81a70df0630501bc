package sim

import (
	"fmt"
	"sort"
	"strings"
)

// Validate checks a model definition without building a simulator.
// It returns a *ConfigurationError listing every problem found.
func Validate(root Model) error {
	_, err := buildArena(root)
	return err
}

// builder flattens a definition tree into the coordinator arena.
// Index 0 is always the root.
type builder struct {
	nodes  []coordinator
	issues []Issue
	seen   map[Model]string
}

func buildArena(root Model) ([]coordinator, error) {
	if root == nil {
		return nil, &ConfigurationError{Issues: []Issue{{Model: "<nil>", Reason: "root model is nil"}}}
	}
	b := &builder{seen: make(map[Model]string)}
	b.add(root, self, "")
	if len(b.issues) == 0 {
		b.checkInstantaneousLoops()
	}
	if len(b.issues) > 0 {
		return nil, &ConfigurationError{Issues: b.issues}
	}
	return b.nodes, nil
}

func (b *builder) issue(model, port, format string, args ...any) {
	b.issues = append(b.issues, Issue{Model: model, Port: port, Reason: fmt.Sprintf(format, args...)})
}

// add appends m and its subtree, returning m's arena index or -1 if m was rejected.
func (b *builder) add(m Model, parent int, parentPath string) int {
	def := m.definition()
	path := def.name
	if parentPath != "" {
		path = parentPath + "." + def.name
	}
	switch {
	case def.name == "":
		b.issue(parentPath, "", "model name cannot be empty")
	case strings.Contains(def.name, "."):
		b.issue(path, "", "model name cannot contain '.'")
	}
	if prev, dup := b.seen[m]; dup {
		b.issue(path, "", "model is already part of the graph at %s", prev)
		return -1
	}
	b.seen[m] = path
	for _, issue := range def.errs {
		issue.Model = path
		b.issues = append(b.issues, issue)
	}

	idx := len(b.nodes)
	b.nodes = append(b.nodes, coordinator{name: def.name, path: path, parent: parent, def: def})
	switch v := m.(type) {
	case *Leaf:
		if v.atomic == nil {
			b.issue(path, "", "atomic behavior is nil")
		}
		b.nodes[idx].leaf = true
		b.nodes[idx].atomic = v.atomic
	case *Digraph:
		b.addChildren(idx, v)
	}
	return idx
}

type edgeID struct {
	from     int
	fromPort string
	to       int
	toPort   string
}

func (b *builder) addChildren(idx int, d *Digraph) {
	path := b.nodes[idx].path
	names := make(map[string]bool)
	arenaOf := make(map[Model]int)
	children := make([]int, 0, len(d.children))
	for _, child := range d.children {
		if child == nil {
			b.issue(path, "", "nil child model")
			continue
		}
		if names[child.Name()] {
			b.issue(path, "", "duplicate child name %q", child.Name())
			continue
		}
		names[child.Name()] = true
		ci := b.add(child, idx, path)
		if ci < 0 {
			continue
		}
		children = append(children, ci)
		arenaOf[child] = ci
	}

	routes := make(map[routeKey][]route)
	seen := make(map[edgeID]bool)
	for i, c := range d.couplings {
		where := fmt.Sprintf("coupling %d (%s -> %s)", i, describeEndpoint(c.From), describeEndpoint(c.To))
		from, fromPort, ok1 := b.resolve(path, where, d, arenaOf, c.From, true)
		to, toPort, ok2 := b.resolve(path, where, d, arenaOf, c.To, false)
		if !ok1 || !ok2 {
			continue
		}
		if from != self && from == to {
			b.issue(path, "", "%s: couples %s to itself", where, b.nodes[from].name)
			continue
		}
		valueType := fromPort.Type
		if tr := c.Transform; tr != nil {
			if !assignable(valueType, tr.in) {
				b.issue(path, "", "%s: source type %s does not match transform %s input %s",
					where, typeName(valueType), tr.name, typeName(tr.in))
				continue
			}
			valueType = tr.out
		}
		if !assignable(valueType, toPort.Type) {
			b.issue(path, "", "%s: type %s is not assignable to %s", where, typeName(valueType), typeName(toPort.Type))
			continue
		}
		id := edgeID{from: from, fromPort: fromPort.Name, to: to, toPort: toPort.Name}
		if c.Transform == nil {
			if seen[id] {
				b.issue(path, "", "%s: duplicate coupling", where)
				continue
			}
			seen[id] = true
		}
		key := routeKey{from: from, port: fromPort.Name}
		routes[key] = append(routes[key], route{to: to, port: toPort.Name, transform: c.Transform})
	}
	b.nodes[idx].children = children
	b.nodes[idx].routes = routes
}

// resolve maps a coupling endpoint to an arena index (or self) and the port it names.
// Sources must be child outputs or digraph inputs; targets child inputs or digraph outputs.
func (b *builder) resolve(path, where string, d *Digraph, arenaOf map[Model]int, ep Endpoint, source bool) (int, Port, bool) {
	if ep.Model == nil {
		b.issue(path, ep.Port, "%s: endpoint model is nil", where)
		return 0, Port{}, false
	}
	var (
		idx = self
		def *modelDef
		dir Direction
	)
	if ep.Model == Model(d) {
		def = &d.def
		dir = Output
		if source {
			dir = Input
		}
	} else {
		ci, ok := arenaOf[ep.Model]
		if !ok {
			b.issue(path, ep.Port, "%s: %s is not a child of %s", where, ep.Model.Name(), d.Name())
			return 0, Port{}, false
		}
		idx = ci
		def = b.nodes[ci].def
		dir = Input
		if source {
			dir = Output
		}
	}
	p, ok := def.port(dir, ep.Port)
	if !ok {
		b.issue(path, ep.Port, "%s: %s has no %s port %q", where, def.name, dir, ep.Port)
		return 0, Port{}, false
	}
	return idx, p, true
}

func describeEndpoint(ep Endpoint) string {
	if ep.Model == nil {
		return "<nil>." + ep.Port
	}
	return ep.Model.Name() + "." + ep.Port
}

// portNode is a port of an arena node, used for loop detection over couplings.
type portNode struct {
	idx  int
	dir  Direction
	port string
}

// checkInstantaneousLoops rejects coupling cycles that pass through no atomic model.
// Routing such a cycle would never terminate.
func (b *builder) checkInstantaneousLoops() {
	adj := make(map[portNode][]portNode)
	var starts []portNode
	for idx := range b.nodes {
		n := &b.nodes[idx]
		keys := make([]routeKey, 0, len(n.routes))
		for k := range n.routes {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].from != keys[j].from {
				return keys[i].from < keys[j].from
			}
			return keys[i].port < keys[j].port
		})
		for _, k := range keys {
			from := portNode{idx: k.from, dir: Output, port: k.port}
			if k.from == self {
				from = portNode{idx: idx, dir: Input, port: k.port}
			}
			for _, r := range n.routes[k] {
				to := portNode{idx: r.to, dir: Input, port: r.port}
				if r.to == self {
					to = portNode{idx: idx, dir: Output, port: r.port}
				}
				adj[from] = append(adj[from], to)
			}
			starts = append(starts, from)
		}
	}

	const (
		white = iota
		grey
		black
	)
	color := make(map[portNode]int)
	var visit func(p portNode)
	visit = func(p portNode) {
		color[p] = grey
		for _, next := range adj[p] {
			switch color[next] {
			case grey:
				b.issue(b.nodes[next.idx].path, next.port, "instantaneous coupling loop through %s port", next.dir)
			case white:
				visit(next)
			}
		}
		color[p] = black
	}
	for _, p := range starts {
		if color[p] == white {
			visit(p)
		}
	}
}
