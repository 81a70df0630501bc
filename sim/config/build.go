package config

import (
	"fmt"
	"reflect"

	"github.com/sirupsen/logrus"

	"github.com/devsim/devsim/sim"
)

// Build turns a validated spec into a model definition. Unknown kinds, types,
// transforms and endpoints, factory failures and graph problems are all reported
// together as a *sim.ConfigurationError.
func Build(spec *ModelSpec) (sim.Model, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	b := &specBuilder{}
	root := b.component(&spec.Root, spec.Root.Name)
	if len(b.issues) > 0 {
		return nil, &sim.ConfigurationError{Issues: b.issues}
	}
	if err := sim.Validate(root); err != nil {
		return nil, err
	}
	return root, nil
}

// NewSimulator builds spec and constructs a simulator with its engine settings.
// opts are applied after the engine settings and may override them.
func NewSimulator(spec *ModelSpec, opts ...sim.Option) (*sim.Simulator, error) {
	root, err := Build(spec)
	if err != nil {
		return nil, err
	}
	engineOpts := []sim.Option{
		sim.WithMaxIterations(spec.Engine.MaxIterations),
		sim.WithStartTime(spec.Engine.Start),
	}
	if spec.Engine.Workers > 0 {
		engineOpts = append(engineOpts, sim.WithWorkers(spec.Engine.Workers))
	}
	logrus.Debugf("Engine settings: max_iterations=%d workers=%d start=%s until=%s",
		spec.Engine.MaxIterations, spec.Engine.Workers, spec.Engine.Start, spec.Engine.UntilTime())
	return sim.NewSimulator(root, append(engineOpts, opts...)...)
}

type specBuilder struct {
	issues []sim.Issue
}

func (b *specBuilder) issue(path, port, format string, args ...any) {
	b.issues = append(b.issues, sim.Issue{Model: path, Port: port, Reason: fmt.Sprintf(format, args...)})
}

func (b *specBuilder) component(c *ComponentSpec, path string) sim.Model {
	if c.IsAtomic() {
		return b.atomic(c, path)
	}
	d := sim.NewDigraph(c.Name)
	for _, p := range c.Inputs {
		if typ, ok := b.portType(path, p); ok {
			d.AddInputPort(p.Name, typ)
		}
	}
	for _, p := range c.Outputs {
		if typ, ok := b.portType(path, p); ok {
			d.AddOutputPort(p.Name, typ)
		}
	}
	children := make(map[string]sim.Model, len(c.Models))
	failed := make(map[string]bool)
	for i := range c.Models {
		child := &c.Models[i]
		m := b.component(child, path+"."+child.Name)
		if m == nil {
			failed[child.Name] = true
			continue
		}
		d.Add(m)
		children[child.Name] = m
	}
	for i, cp := range c.Couplings {
		where := fmt.Sprintf("coupling %d (%s -> %s)", i, cp.From, cp.To)
		src, srcPort, ok1 := b.endpoint(path, where, d, children, failed, cp.From)
		dst, dstPort, ok2 := b.endpoint(path, where, d, children, failed, cp.To)
		if !ok1 || !ok2 {
			continue
		}
		var opts []sim.CouplingOption
		if cp.Transform != "" {
			tr, ok := lookupTransform(cp.Transform)
			if !ok {
				b.issue(path, "", "%s: unknown transform %q (known: %v)", where, cp.Transform, TransformNames())
				continue
			}
			opts = append(opts, sim.WithTransform(tr))
		}
		d.Couple(src, srcPort, dst, dstPort, opts...)
	}
	return d
}

func (b *specBuilder) atomic(c *ComponentSpec, path string) sim.Model {
	factory, ok := lookupKind(c.Kind)
	if !ok {
		var names []string
		for _, k := range Kinds() {
			names = append(names, k.Name)
		}
		b.issue(path, "", "unknown kind %q (known: %v)", c.Kind, names)
		return nil
	}
	leaf, err := factory(c.Name, &c.Params)
	if err != nil {
		b.issue(path, "", "kind %s: %v", c.Kind, err)
		return nil
	}
	if leaf == nil {
		b.issue(path, "", "kind %s: factory returned no model", c.Kind)
		return nil
	}
	return leaf
}

func (b *specBuilder) portType(path string, p PortSpec) (reflect.Type, bool) {
	t, found := lookupType(p.Type)
	if !found {
		b.issue(path, p.Name, "unknown type %q (known: %v)", p.Type, TypeNames())
		return nil, false
	}
	return t, true
}

// endpoint resolves "model.port" against the children, or "port" against d itself.
// Endpoints on children that failed to build are skipped without a further issue.
func (b *specBuilder) endpoint(path, where string, d *sim.Digraph, children map[string]sim.Model, failed map[string]bool, ep string) (sim.Model, string, bool) {
	model, port, err := splitEndpoint(ep)
	if err != nil {
		b.issue(path, "", "%s: %v", where, err)
		return nil, "", false
	}
	if model == "" {
		return d, port, true
	}
	m, ok := children[model]
	if !ok {
		if failed[model] {
			return nil, "", false
		}
		b.issue(path, "", "%s: no model named %q", where, model)
		return nil, "", false
	}
	return m, port, true
}
