package sim

import (
	"errors"
	"fmt"

	"github.com/devsim/devsim/sim/trace"
)

var errBoom = errors.New("boom")

// ticker emits an incrementing counter on "out" every period ticks,
// optionally stopping after limit outputs.
type ticker struct {
	period Time
	limit  int
	count  int
}

func (m *ticker) TimeAdvance() Time {
	if m.limit > 0 && m.count >= m.limit {
		return Infinity
	}
	return m.period
}

func (m *ticker) Output() (Bag, error) { return Emit("out", m.count+1), nil }
func (m *ticker) InternalTransition() error { m.count++; return nil }
func (m *ticker) ExternalTransition(_ Time, _ Bag) error { return nil }
func (m *ticker) Snapshot() any { return m.count }
func (m *ticker) Restore(snapshot any) { m.count = snapshot.(int) }

func newTicker(name string, period Time) (*Leaf, *ticker) {
	m := &ticker{period: period}
	return NewLeaf(name, m).AddOutputPort("out", TypeOf[int]()), m
}

// recorder is passive until input arrives. It records elapsed times and values
// and, when replyAfter is finite, re-emits what it received replyAfter ticks later.
type recorder struct {
	replyAfter Time
	sigma      Time
	pending    []any
	elapsed    []Time
	received   []any
	calls      []string
}

func (m *recorder) TimeAdvance() Time { return m.sigma }

func (m *recorder) Output() (Bag, error) {
	var bag Bag
	for _, v := range m.pending {
		bag = append(bag, Event{Port: "out", Value: v})
	}
	return bag, nil
}

func (m *recorder) InternalTransition() error {
	m.calls = append(m.calls, "int")
	m.pending = nil
	m.sigma = Infinity
	return nil
}

func (m *recorder) ExternalTransition(elapsed Time, inputs Bag) error {
	m.calls = append(m.calls, fmt.Sprintf("ext(e=%s,n=%d)", elapsed, len(inputs)))
	m.elapsed = append(m.elapsed, elapsed)
	values := inputs.Values("in")
	m.received = append(m.received, values...)
	if m.replyAfter.IsInf() {
		m.sigma = m.sigma.Sub(elapsed)
		return nil
	}
	m.pending = append(m.pending, values...)
	m.sigma = m.replyAfter
	return nil
}

func newRecorder(name string, replyAfter Time) (*Leaf, *recorder) {
	m := &recorder{replyAfter: replyAfter, sigma: Infinity}
	return NewLeaf(name, m).AddInputPort("in", nil).AddOutputPort("out", nil), m
}

// probe fires every period ticks and logs which transition functions ran.
type probe struct {
	period Time
	calls  []string
}

func (m *probe) TimeAdvance() Time { return m.period }
func (m *probe) Output() (Bag, error) { return Emit("out", "tick"), nil }
func (m *probe) InternalTransition() error { m.calls = append(m.calls, "int"); return nil }
func (m *probe) ExternalTransition(e Time, in Bag) error {
	m.calls = append(m.calls, fmt.Sprintf("ext(e=%s,n=%d)", e, len(in)))
	return nil
}

// confluentProbe resolves collisions itself.
type confluentProbe struct {
	probe
}

func (m *confluentProbe) ConfluentTransition(in Bag) error {
	m.calls = append(m.calls, fmt.Sprintf("conf(n=%d)", len(in)))
	return nil
}

// faulty fires every ta ticks and fails in the configured phase, by error or panic.
type faulty struct {
	ta       Time
	failIn   Phase
	panicMsg string
	badPort  bool
}

func (m *faulty) fail(p Phase) error {
	if m.failIn != p {
		return nil
	}
	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	return errBoom
}

func (m *faulty) TimeAdvance() Time { return m.ta }

func (m *faulty) Output() (Bag, error) {
	if m.badPort {
		return Emit("nope", 1), nil
	}
	return Emit("out", 1), m.fail(PhaseOutput)
}

func (m *faulty) InternalTransition() error { return m.fail(PhaseInternal) }
func (m *faulty) ExternalTransition(_ Time, _ Bag) error { return m.fail(PhaseExternal) }

// faulty holds no state of its own, so it is trivially restorable.
func (m *faulty) Snapshot() any { return nil }
func (m *faulty) Restore(any) {}

// oneShot emits once on "out" after 5 ticks, then goes passive. It does not
// implement Snapshotter.
type oneShot struct {
	fired int
}

func (m *oneShot) TimeAdvance() Time {
	if m.fired > 0 {
		return Infinity
	}
	return 5
}

func (m *oneShot) Output() (Bag, error) { return Emit("out", m.fired+1), nil }
func (m *oneShot) InternalTransition() error { m.fired++; return nil }
func (m *oneShot) ExternalTransition(_ Time, _ Bag) error { return nil }

// brittleTicker is a ticker whose Snapshot or Restore panics.
type brittleTicker struct {
	ticker
	panicIn Phase
}

func (m *brittleTicker) Snapshot() any {
	if m.panicIn == PhaseSnapshot {
		panic("snapshot broke")
	}
	return m.ticker.Snapshot()
}

func (m *brittleTicker) Restore(snapshot any) {
	if m.panicIn == PhaseRestore {
		panic("restore broke")
	}
	m.ticker.Restore(snapshot)
}

// scripted returns the time advances in script, one per state; the last repeats.
type scripted struct {
	script []Time
	state  int
}

func (m *scripted) TimeAdvance() Time {
	if m.state >= len(m.script) {
		return m.script[len(m.script)-1]
	}
	return m.script[m.state]
}

func (m *scripted) Output() (Bag, error) { return nil, nil }
func (m *scripted) InternalTransition() error { m.state++; return nil }
func (m *scripted) ExternalTransition(_ Time, _ Bag) error { return nil }

// fullTrace attaches a full-level trace to opts.
func fullTrace() (*trace.SimulationTrace, Option) {
	st := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelFull})
	return st, WithListener(NewTraceListener(st))
}
