package library

import (
	"slices"

	"github.com/devsim/devsim/sim"
)

// Relay forwards whatever it receives on "in" to "out" in the same instant.
type Relay struct {
	pending []any
	relayed int
}

// NewRelay creates a passive relay.
func NewRelay() *Relay {
	return &Relay{}
}

// Leaf wraps the relay with untyped ports.
func (r *Relay) Leaf(name string) *sim.Leaf {
	return sim.NewLeaf(name, r).AddInputPort(PortIn, nil).AddOutputPort(PortOut, nil)
}

// Relayed returns the number of values forwarded so far.
func (r *Relay) Relayed() int {
	return r.relayed
}

func (r *Relay) TimeAdvance() sim.Time {
	if len(r.pending) == 0 {
		return sim.Infinity
	}
	return 0
}

func (r *Relay) Output() (sim.Bag, error) {
	bag := make(sim.Bag, len(r.pending))
	for i, v := range r.pending {
		bag[i] = sim.Event{Port: PortOut, Value: v}
	}
	return bag, nil
}

func (r *Relay) InternalTransition() error {
	r.relayed += len(r.pending)
	r.pending = nil
	return nil
}

func (r *Relay) ExternalTransition(_ sim.Time, inputs sim.Bag) error {
	r.pending = append(r.pending, inputs.Values(PortIn)...)
	return nil
}

func (r *Relay) Snapshot() any {
	return relaySnapshot{pending: slices.Clone(r.pending), relayed: r.relayed}
}

func (r *Relay) Restore(snapshot any) {
	s := snapshot.(relaySnapshot)
	r.pending, r.relayed = s.pending, s.relayed
}

type relaySnapshot struct {
	pending []any
	relayed int
}
