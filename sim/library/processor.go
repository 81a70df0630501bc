package library

import (
	"fmt"
	"slices"

	"github.com/devsim/devsim/sim"
)

// ProcessorParams configures a Processor.
type ProcessorParams struct {
	ServiceTime sim.Time `yaml:"service_time" validate:"gt=0"`
	Capacity    int      `yaml:"capacity" validate:"gte=0"` // jobs held, including the one in service; 0 = unbounded
}

type processorState struct {
	queue      []Job
	sigma      sim.Time
	served     int
	dropped    int
	collisions int
}

// Processor is a FIFO single server. Each job takes ServiceTime ticks and then
// leaves on "out". Jobs arriving at a full processor leave immediately on "drop".
type Processor struct {
	params  ProcessorParams
	state   processorState
	refused []Job // jobs refused by the last external transition, emitted next
}

// NewProcessor creates an idle processor with an empty queue.
func NewProcessor(p ProcessorParams) *Processor {
	return &Processor{params: p, state: processorState{sigma: sim.Infinity}}
}

// Leaf wraps the processor with its ports.
func (p *Processor) Leaf(name string) *sim.Leaf {
	return sim.NewLeaf(name, p).
		AddInputPort(PortIn, JobType).
		AddOutputPort(PortOut, JobType).
		AddOutputPort(PortDrop, JobType)
}

// Stats returns jobs served, jobs dropped and the number of confluent transitions.
func (p *Processor) Stats() (served, dropped, collisions int) {
	return p.state.served, p.state.dropped, p.state.collisions
}

// QueueLen returns the number of jobs held, including the one in service.
func (p *Processor) QueueLen() int {
	return len(p.state.queue)
}

func (p *Processor) TimeAdvance() sim.Time {
	if len(p.refused) > 0 {
		return 0
	}
	return p.state.sigma
}

func (p *Processor) Output() (sim.Bag, error) {
	var bag sim.Bag
	for _, job := range p.refused {
		bag = append(bag, sim.Event{Port: PortDrop, Value: job})
	}
	if len(p.refused) == 0 || p.state.sigma == 0 {
		bag = append(bag, sim.Event{Port: PortOut, Value: p.state.queue[0]})
	}
	return bag, nil
}

func (p *Processor) InternalTransition() error {
	if len(p.refused) > 0 {
		p.refused = nil
		if p.state.sigma != 0 {
			return nil
		}
	}
	if len(p.state.queue) == 0 {
		return fmt.Errorf("internal transition with an empty queue")
	}
	p.state.queue = p.state.queue[1:]
	p.state.served++
	p.state.sigma = sim.Infinity
	if len(p.state.queue) > 0 {
		p.state.sigma = p.params.ServiceTime
	}
	return nil
}

func (p *Processor) ExternalTransition(elapsed sim.Time, inputs sim.Bag) error {
	if len(p.state.queue) > 0 {
		p.state.sigma = p.state.sigma.Sub(elapsed)
	}
	p.accept(inputs)
	return nil
}

// ConfluentTransition completes the departing job before admitting the arrivals,
// so a job finishing service frees its slot for them.
func (p *Processor) ConfluentTransition(inputs sim.Bag) error {
	p.state.collisions++
	if err := p.InternalTransition(); err != nil {
		return err
	}
	p.accept(inputs)
	return nil
}

func (p *Processor) accept(inputs sim.Bag) {
	for _, v := range inputs.Values(PortIn) {
		job := v.(Job)
		if p.params.Capacity > 0 && len(p.state.queue) >= p.params.Capacity {
			p.state.dropped++
			p.refused = append(p.refused, job)
			continue
		}
		p.state.queue = append(p.state.queue, job)
		if len(p.state.queue) == 1 {
			p.state.sigma = p.params.ServiceTime
		}
	}
}

func (p *Processor) Snapshot() any {
	s := p.state
	s.queue = slices.Clone(p.state.queue)
	return processorSnapshot{state: s, refused: slices.Clone(p.refused)}
}

func (p *Processor) Restore(snapshot any) {
	s := snapshot.(processorSnapshot)
	p.state = s.state
	p.refused = s.refused
}

type processorSnapshot struct {
	state   processorState
	refused []Job
}
