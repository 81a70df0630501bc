package library

import (
	"slices"

	"github.com/devsim/devsim/sim"
)

// DelayParams configures a Delay.
type DelayParams struct {
	Delay sim.Time `yaml:"delay" validate:"gte=0"`
}

type delayed struct {
	due   sim.Time
	value any
}

// Delay re-emits every value received on "in" exactly Delay ticks later on "out".
// Any number of values may be in flight; values due together leave in arrival order.
type Delay struct {
	params DelayParams
	clock  sim.Time
	queue  []delayed
}

// NewDelay creates a delay holding no values.
func NewDelay(p DelayParams) *Delay {
	return &Delay{params: p}
}

// Leaf wraps the delay with untyped ports.
func (d *Delay) Leaf(name string) *sim.Leaf {
	return sim.NewLeaf(name, d).AddInputPort(PortIn, nil).AddOutputPort(PortOut, nil)
}

// InFlight returns the number of values waiting to leave.
func (d *Delay) InFlight() int {
	return len(d.queue)
}

func (d *Delay) TimeAdvance() sim.Time {
	if len(d.queue) == 0 {
		return sim.Infinity
	}
	return d.queue[0].due - d.clock
}

func (d *Delay) Output() (sim.Bag, error) {
	var bag sim.Bag
	for _, item := range d.queue {
		if item.due != d.queue[0].due {
			break
		}
		bag = append(bag, sim.Event{Port: PortOut, Value: item.value})
	}
	return bag, nil
}

func (d *Delay) InternalTransition() error {
	d.clock = d.queue[0].due
	n := 0
	for n < len(d.queue) && d.queue[n].due == d.clock {
		n++
	}
	d.queue = d.queue[n:]
	return nil
}

func (d *Delay) ExternalTransition(elapsed sim.Time, inputs sim.Bag) error {
	d.clock = d.clock.Add(elapsed)
	for _, v := range inputs.Values(PortIn) {
		d.queue = append(d.queue, delayed{due: d.clock.Add(d.params.Delay), value: v})
	}
	return nil
}

func (d *Delay) Snapshot() any {
	return delaySnapshot{clock: d.clock, queue: slices.Clone(d.queue)}
}

func (d *Delay) Restore(snapshot any) {
	s := snapshot.(delaySnapshot)
	d.clock, d.queue = s.clock, s.queue
}

type delaySnapshot struct {
	clock sim.Time
	queue []delayed
}
