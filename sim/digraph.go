package sim

import "reflect"

// Model is a node of a model definition: a *Leaf wrapping an Atomic, or a *Digraph
// composing other models. Definitions are plain data until NewSimulator builds them.
type Model interface {
	Name() string
	// Ports returns the model's declared ports in declaration order, inputs first.
	Ports() []Port
	definition() *modelDef
}

// modelDef holds what Leaf and Digraph have in common.
type modelDef struct {
	name string
	in   portSet
	out  portSet
	errs []Issue
}

func (d *modelDef) addPort(p Port) {
	set := &d.in
	if p.Direction == Output {
		set = &d.out
	}
	if err := set.add(p); err != nil {
		d.errs = append(d.errs, Issue{Model: d.name, Port: p.Name, Reason: err.Error()})
	}
}

func (d *modelDef) port(dir Direction, name string) (Port, bool) {
	if dir == Input {
		return d.in.get(name)
	}
	return d.out.get(name)
}

func (d *modelDef) ports() []Port {
	return append(d.in.list(), d.out.list()...)
}

// Leaf is an atomic model definition: the behavior plus its declared ports.
type Leaf struct {
	def    modelDef
	atomic Atomic
}

// NewLeaf wraps an atomic behavior under the given name.
func NewLeaf(name string, a Atomic) *Leaf {
	return &Leaf{def: modelDef{name: name}, atomic: a}
}

// AddInputPort declares an input port. A nil typ accepts any value.
func (l *Leaf) AddInputPort(name string, typ reflect.Type) *Leaf {
	l.def.addPort(Port{Name: name, Direction: Input, Type: typ})
	return l
}

// AddOutputPort declares an output port. A nil typ carries any value.
func (l *Leaf) AddOutputPort(name string, typ reflect.Type) *Leaf {
	l.def.addPort(Port{Name: name, Direction: Output, Type: typ})
	return l
}

func (l *Leaf) Name() string          { return l.def.name }
func (l *Leaf) Ports() []Port         { return l.def.ports() }
func (l *Leaf) Atomic() Atomic        { return l.atomic }
func (l *Leaf) definition() *modelDef { return &l.def }

// Endpoint names one side of a coupling.
type Endpoint struct {
	Model Model
	Port  string
}

// Coupling is a directed edge between two ports, with an optional transform.
type Coupling struct {
	From      Endpoint
	To        Endpoint
	Transform *Transform
}

// CouplingOption customizes a coupling added with Digraph.Couple.
type CouplingOption func(*Coupling)

// WithTransform applies tr to every value crossing the coupling.
func WithTransform(tr *Transform) CouplingOption {
	return func(c *Coupling) {
		c.Transform = tr
	}
}

// Digraph is a coupled model: child models plus the couplings among them and
// the digraph's own external ports.
type Digraph struct {
	def       modelDef
	children  []Model
	couplings []Coupling
}

// NewDigraph creates an empty coupled model.
func NewDigraph(name string) *Digraph {
	return &Digraph{def: modelDef{name: name}}
}

// AddInputPort declares an external input port of the digraph.
func (d *Digraph) AddInputPort(name string, typ reflect.Type) *Digraph {
	d.def.addPort(Port{Name: name, Direction: Input, Type: typ})
	return d
}

// AddOutputPort declares an external output port of the digraph.
func (d *Digraph) AddOutputPort(name string, typ reflect.Type) *Digraph {
	d.def.addPort(Port{Name: name, Direction: Output, Type: typ})
	return d
}

// Add appends child models. Declaration order is the tie-break order for
// simultaneous events.
func (d *Digraph) Add(models ...Model) *Digraph {
	d.children = append(d.children, models...)
	return d
}

// Couple connects src.srcPort to dst.dstPort. Pass the digraph itself as src to
// translate one of its input ports, or as dst to translate onto one of its output ports.
func (d *Digraph) Couple(src Model, srcPort string, dst Model, dstPort string, opts ...CouplingOption) *Digraph {
	c := Coupling{
		From: Endpoint{Model: src, Port: srcPort},
		To:   Endpoint{Model: dst, Port: dstPort},
	}
	for _, opt := range opts {
		opt(&c)
	}
	d.couplings = append(d.couplings, c)
	return d
}

func (d *Digraph) Name() string          { return d.def.name }
func (d *Digraph) Ports() []Port         { return d.def.ports() }
func (d *Digraph) definition() *modelDef { return &d.def }

// Children returns the child models in declaration order.
func (d *Digraph) Children() []Model {
	return append([]Model(nil), d.children...)
}

// Couplings returns the couplings in declaration order.
func (d *Digraph) Couplings() []Coupling {
	return append([]Coupling(nil), d.couplings...)
}
