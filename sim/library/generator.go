package library

import "github.com/devsim/devsim/sim"

// GeneratorParams configures a Generator.
type GeneratorParams struct {
	Period sim.Time `yaml:"period" validate:"gt=0"`
	Start  sim.Time `yaml:"start" validate:"gte=0"`
	Limit  int      `yaml:"limit" validate:"gte=0"` // 0 = unlimited
}

type generatorState struct {
	clock   sim.Time
	sigma   sim.Time
	emitted int
}

// Generator emits a new Job on "out" at Start, then every Period ticks,
// until Limit jobs were emitted.
type Generator struct {
	params GeneratorParams
	state  generatorState
}

// NewGenerator creates a generator whose first job is due at p.Start.
func NewGenerator(p GeneratorParams) *Generator {
	return &Generator{params: p, state: generatorState{sigma: p.Start}}
}

// Leaf wraps the generator with its ports.
func (g *Generator) Leaf(name string) *sim.Leaf {
	return sim.NewLeaf(name, g).AddOutputPort(PortOut, JobType)
}

// Emitted returns the number of jobs emitted so far.
func (g *Generator) Emitted() int {
	return g.state.emitted
}

func (g *Generator) TimeAdvance() sim.Time {
	if g.params.Limit > 0 && g.state.emitted >= g.params.Limit {
		return sim.Infinity
	}
	return g.state.sigma
}

func (g *Generator) Output() (sim.Bag, error) {
	job := Job{ID: g.state.emitted + 1, Created: g.state.clock.Add(g.state.sigma)}
	return sim.Emit(PortOut, job), nil
}

func (g *Generator) InternalTransition() error {
	g.state.clock = g.state.clock.Add(g.state.sigma)
	g.state.emitted++
	g.state.sigma = g.params.Period
	return nil
}

func (g *Generator) ExternalTransition(elapsed sim.Time, _ sim.Bag) error {
	g.state.clock = g.state.clock.Add(elapsed)
	g.state.sigma = g.state.sigma.Sub(elapsed)
	return nil
}

func (g *Generator) Snapshot() any {
	return g.state
}

func (g *Generator) Restore(snapshot any) {
	g.state = snapshot.(generatorState)
}
