package sim

import (
	"fmt"
	"reflect"
)

// Direction tags a port as input or output.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Input {
		return "input"
	}
	return "output"
}

// Port is a named, typed attachment point on a model.
// A nil Type accepts any value.
type Port struct {
	Name      string
	Direction Direction
	Type      reflect.Type
}

// TypeOf returns the reflect.Type of T, for declaring typed ports.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// typeName renders nil (untyped) ports as "any".
func typeName(t reflect.Type) string {
	if t == nil {
		return "any"
	}
	return t.String()
}

// assignable reports whether values of type from may flow into a port of type to.
func assignable(from, to reflect.Type) bool {
	if from == nil || to == nil {
		return true
	}
	return from.AssignableTo(to)
}

// fits reports whether the runtime value v may be carried by a port of type typ.
func fits(v any, typ reflect.Type) bool {
	if typ == nil {
		return true
	}
	if v == nil {
		switch typ.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return true
		}
		return false
	}
	return reflect.TypeOf(v).AssignableTo(typ)
}

// portSet keeps ports in declaration order with lookup by name.
type portSet struct {
	order  []string
	byName map[string]Port
}

func (ps *portSet) add(p Port) error {
	if ps.byName == nil {
		ps.byName = make(map[string]Port)
	}
	if p.Name == "" {
		return fmt.Errorf("%s port name cannot be empty", p.Direction)
	}
	if _, exists := ps.byName[p.Name]; exists {
		return fmt.Errorf("%s port %q declared twice", p.Direction, p.Name)
	}
	ps.byName[p.Name] = p
	ps.order = append(ps.order, p.Name)
	return nil
}

func (ps *portSet) get(name string) (Port, bool) {
	p, ok := ps.byName[name]
	return p, ok
}

func (ps *portSet) list() []Port {
	out := make([]Port, 0, len(ps.order))
	for _, name := range ps.order {
		out = append(out, ps.byName[name])
	}
	return out
}

// Transform rewrites a value as it crosses a coupling.
// In and Out declare the value types checked when the graph is built.
type Transform struct {
	name string
	in   reflect.Type
	out  reflect.Type
	fn   func(any) (any, error)
}

// NewTransform builds a transform from an untyped function.
// Nil in/out types accept and produce any value.
func NewTransform(name string, in, out reflect.Type, fn func(any) (any, error)) *Transform {
	if fn == nil {
		panic("sim.NewTransform: fn cannot be nil")
	}
	return &Transform{name: name, in: in, out: out, fn: fn}
}

// Map builds a typed transform from fn.
func Map[In, Out any](fn func(In) Out) *Transform {
	in, out := TypeOf[In](), TypeOf[Out]()
	return &Transform{
		name: fmt.Sprintf("map(%s->%s)", in, out),
		in:   in,
		out:  out,
		fn: func(v any) (any, error) {
			if v == nil {
				var zero In
				return fn(zero), nil
			}
			x, ok := v.(In)
			if !ok {
				return nil, fmt.Errorf("value of type %T is not %s", v, in)
			}
			return fn(x), nil
		},
	}
}

// Name returns the transform's display name.
func (tr *Transform) Name() string {
	return tr.name
}

func (tr *Transform) apply(v any) (any, error) {
	out, err := tr.fn(v)
	if err != nil {
		return nil, fmt.Errorf("transform %s: %w", tr.name, err)
	}
	return out, nil
}
