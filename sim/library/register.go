// register.go wires the library models into sim/config's kind registry.
// This init() runs when any package imports sim/library; the CLI imports it for
// its side effects.

package library

import (
	"gopkg.in/yaml.v3"

	"github.com/devsim/devsim/sim"
	"github.com/devsim/devsim/sim/config"
)

func init() {
	config.RegisterType("job", JobType)
	config.RegisterTransform("job-id", sim.Map(func(j Job) int { return j.ID }))

	config.Register("generator", "emits a job on out at start, then every period ticks, up to limit jobs", newGeneratorLeaf)
	config.Register("processor", "FIFO single server: in -> out after service_time; drops to drop beyond capacity", newProcessorLeaf)
	config.Register("delay", "re-emits every value delay ticks after it arrived", newDelayLeaf)
	config.Register("sink", "passive counter of received values", newSinkLeaf)
	config.Register("relay", "forwards any value from in to out in zero time", newRelayLeaf)
}

func newGeneratorLeaf(name string, params *yaml.Node) (*sim.Leaf, error) {
	p := GeneratorParams{Period: 1}
	if err := config.DecodeParams(params, &p); err != nil {
		return nil, err
	}
	return NewGenerator(p).Leaf(name), nil
}

func newProcessorLeaf(name string, params *yaml.Node) (*sim.Leaf, error) {
	p := ProcessorParams{ServiceTime: 1}
	if err := config.DecodeParams(params, &p); err != nil {
		return nil, err
	}
	return NewProcessor(p).Leaf(name), nil
}

func newDelayLeaf(name string, params *yaml.Node) (*sim.Leaf, error) {
	var p DelayParams
	if err := config.DecodeParams(params, &p); err != nil {
		return nil, err
	}
	return NewDelay(p).Leaf(name), nil
}

func newSinkLeaf(name string, params *yaml.Node) (*sim.Leaf, error) {
	var p SinkParams
	if err := config.DecodeParams(params, &p); err != nil {
		return nil, err
	}
	return NewSink(p).Leaf(name), nil
}

func newRelayLeaf(name string, params *yaml.Node) (*sim.Leaf, error) {
	var p struct{}
	if err := config.DecodeParams(params, &p); err != nil {
		return nil, err
	}
	return NewRelay().Leaf(name), nil
}
