package library

import (
	"gonum.org/v1/gonum/stat"

	"github.com/devsim/devsim/sim"
)

// SinkParams configures a Sink.
type SinkParams struct {
	Keep bool `yaml:"keep"` // retain every received value
}

// Sink is passive. It counts the values received on "in" and, for jobs, the
// time each spent in the system.
type Sink struct {
	params   SinkParams
	clock    sim.Time
	count    int
	values   []any
	sojourns []float64
}

// NewSink creates a sink that has received nothing.
func NewSink(p SinkParams) *Sink {
	return &Sink{params: p}
}

// Leaf wraps the sink with an untyped input port.
func (s *Sink) Leaf(name string) *sim.Leaf {
	return sim.NewLeaf(name, s).AddInputPort(PortIn, nil)
}

// Count returns the number of values received.
func (s *Sink) Count() int {
	return s.count
}

// Values returns the retained values; empty unless Keep is set.
func (s *Sink) Values() []any {
	return s.values
}

// MeanSojourn returns the mean time jobs spent between creation and arrival here,
// 0 when no job arrived.
func (s *Sink) MeanSojourn() float64 {
	if len(s.sojourns) == 0 {
		return 0
	}
	return stat.Mean(s.sojourns, nil)
}

func (s *Sink) TimeAdvance() sim.Time { return sim.Infinity }

func (s *Sink) Output() (sim.Bag, error) { return nil, nil }

func (s *Sink) InternalTransition() error { return nil }

func (s *Sink) ExternalTransition(elapsed sim.Time, inputs sim.Bag) error {
	s.clock = s.clock.Add(elapsed)
	for _, v := range inputs.Values(PortIn) {
		s.count++
		if job, ok := v.(Job); ok {
			s.sojourns = append(s.sojourns, float64(s.clock-job.Created))
		}
		if s.params.Keep {
			s.values = append(s.values, v)
		}
	}
	return nil
}

// Snapshot records lengths only; values and sojourns are append-only.
func (s *Sink) Snapshot() any {
	return sinkSnapshot{clock: s.clock, count: s.count, values: len(s.values), sojourns: len(s.sojourns)}
}

func (s *Sink) Restore(snapshot any) {
	snap := snapshot.(sinkSnapshot)
	s.clock, s.count = snap.clock, snap.count
	s.values = s.values[:snap.values]
	s.sojourns = s.sojourns[:snap.sojourns]
}

type sinkSnapshot struct {
	clock    sim.Time
	count    int
	values   int
	sojourns int
}
