// sim/simulator.go
package sim

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxIterations bounds the iterations spent resolving a single instant
// before the run fails with a DeadlockError.
const DefaultMaxIterations = 1000

// maxActiveReported caps the model list carried by a DeadlockError.
const maxActiveReported = 8

// Option configures a Simulator.
type Option func(*Simulator)

// WithMaxIterations overrides DefaultMaxIterations. Values below 1 keep the default.
func WithMaxIterations(n int) Option {
	return func(s *Simulator) {
		if n > 0 {
			s.maxIterations = n
		}
	}
}

// WithWorkers runs the output and transition calls of one iteration on up to n
// goroutines. Routing stays serial, so traces match a serial run. n <= 1 is serial.
func WithWorkers(n int) Option {
	return func(s *Simulator) {
		s.workers = n
	}
}

// WithListener attaches a listener at construction.
func WithListener(l Listener) Option {
	return func(s *Simulator) {
		s.listeners = append(s.listeners, l)
	}
}

// WithStartTime sets the initial clock. Defaults to 0.
func WithStartTime(t Time) Option {
	return func(s *Simulator) {
		s.clock = t
	}
}

// Simulator is the root coordinator and the driver-facing API. It holds the
// coordinator arena, the global clock and the queue of injected inputs.
// A Simulator is not safe for concurrent use.
type Simulator struct {
	nodes []coordinator
	index map[string]int // path → arena index
	clock Time

	maxIterations int
	workers       int
	listeners     []Listener

	injected *injectionHeap
	journal  *journal
	notices  []notice
	cycles   int
	halted   error // set when a failed instant could not be fully undone
}

// NewSimulator validates root, builds the coordinator tree and initializes every
// atomic model's next event time. Build problems are reported as *ConfigurationError.
func NewSimulator(root Model, opts ...Option) (*Simulator, error) {
	nodes, err := buildArena(root)
	if err != nil {
		return nil, err
	}
	s := &Simulator{
		nodes:         nodes,
		index:         make(map[string]int, len(nodes)),
		maxIterations: DefaultMaxIterations,
		workers:       1,
		injected:      newInjectionHeap(),
		journal:       newJournal(len(nodes)),
	}
	for _, opt := range opts {
		opt(s)
	}
	leaves := 0
	for idx := range s.nodes {
		s.index[s.nodes[idx].path] = idx
		if s.nodes[idx].leaf {
			leaves++
		}
	}
	if err := s.initNode(0); err != nil {
		return nil, err
	}
	logrus.Debugf("Built simulator for %s: %d coordinators, %d atomic, next event at %s",
		s.nodes[0].path, len(s.nodes), leaves, s.nodes[0].tN)
	return s, nil
}

func (s *Simulator) initNode(idx int) error {
	n := &s.nodes[idx]
	n.tL = s.clock
	if n.leaf {
		ta, err := s.timeAdvance(idx, s.clock)
		if err != nil {
			return err
		}
		n.tN = s.clock.Add(ta)
		return nil
	}
	n.tN = Infinity
	for _, c := range n.children {
		if err := s.initNode(c); err != nil {
			return err
		}
		n.tN = Min(n.tN, s.nodes[c].tN)
	}
	return nil
}

// AddListener attaches a listener. Listeners are notified in attachment order.
func (s *Simulator) AddListener(l Listener) {
	s.listeners = append(s.listeners, l)
}

// NextEventTime returns the time of the next cycle, or Infinity when nothing is scheduled.
func (s *Simulator) NextEventTime() Time {
	return Min(s.nodes[0].tN, s.injected.peekTime())
}

// CurrentTime returns the time of the last completed cycle (the start time before any).
func (s *Simulator) CurrentTime() Time {
	return s.clock
}

// Cycles returns the number of completed cycles.
func (s *Simulator) Cycles() int {
	return s.cycles
}

// Status returns the last and next event times of the model at path.
func (s *Simulator) Status(path string) (last, next Time, ok bool) {
	idx, ok := s.index[path]
	if !ok {
		return 0, 0, false
	}
	return s.nodes[idx].tL, s.nodes[idx].tN, true
}

// Paths returns the dotted path of every model, root first, in declared depth-first order.
func (s *Simulator) Paths() []string {
	paths := make([]string, len(s.nodes))
	for idx := range s.nodes {
		paths[idx] = s.nodes[idx].path
	}
	return paths
}

// Atomic returns the behavior of the atomic model at path.
func (s *Simulator) Atomic(path string) (Atomic, bool) {
	idx, ok := s.index[path]
	if !ok || !s.nodes[idx].leaf {
		return nil, false
	}
	return s.nodes[idx].atomic, true
}

// Inject queues value on the root model's input port for delivery at time t.
// t must be finite and not before the current time.
func (s *Simulator) Inject(t Time, port string, value any) error {
	root := &s.nodes[0]
	p, ok := root.def.in.get(port)
	if !ok {
		return fmt.Errorf("inject: %s has no input port %q", root.path, port)
	}
	if t.IsInf() || t < s.clock {
		return fmt.Errorf("inject: time %s is not in [%s, inf)", t, s.clock)
	}
	if !fits(value, p.Type) {
		return fmt.Errorf("inject: value of type %T does not fit port %q (%s)", value, port, typeName(p.Type))
	}
	s.injected.schedule(t, port, value)
	return nil
}

// Err returns the error that halted the simulator, or nil while it can still advance.
func (s *Simulator) Err() error {
	return s.halted
}

// AdvanceToNextEvent performs one cycle: it moves the clock to the next event time and
// resolves that instant completely, including zero-time chains. It returns the new
// next event time, Infinity when the run is complete.
//
// On error the instant is undone: coordinator bookkeeping is restored, models that
// implement Snapshotter are restored, and listeners see nothing from the instant.
// If a model without Snapshotter had already transitioned, or a Restore failed, the
// simulator halts: this and every later call return the same error.
func (s *Simulator) AdvanceToNextEvent() (Time, error) {
	if s.halted != nil {
		return s.NextEventTime(), s.halted
	}
	t := s.NextEventTime()
	if t.IsInf() {
		return Infinity, nil
	}
	prev := s.clock
	s.clock = t
	due := s.injected.popDue(t)
	if err := s.settle(t, due); err != nil {
		lost, restoreErrs := s.journal.rollback(s.nodes, t)
		for _, inj := range due {
			s.injected.requeue(inj)
		}
		s.notices = s.notices[:0]
		s.clock = prev
		if len(restoreErrs) > 0 {
			err = errors.Join(append([]error{err}, restoreErrs...)...)
		}
		logrus.Warnf("[tick %07d] Instant rolled back: %v", t, err)
		if len(lost) > 0 {
			s.halted = err
			logrus.Warnf("[tick %07d] Simulator halted: state of %s cannot be rolled back", t, strings.Join(lost, ", "))
		}
		return s.NextEventTime(), err
	}
	s.journal.reset()
	s.flush()
	s.cycles++
	return s.NextEventTime(), nil
}

// RunUntil advances while the next event time is at or before bound.
func (s *Simulator) RunUntil(bound Time) error {
	return s.Run(context.Background(), bound)
}

// Run is RunUntil with cancellation checked between cycles.
func (s *Simulator) Run(ctx context.Context, bound Time) error {
	if s.halted != nil {
		return s.halted
	}
	for {
		next := s.NextEventTime()
		if next.IsInf() || next > bound {
			logrus.Debugf("[tick %07d] Run stopped: next event at %s, bound %s", s.clock, next, bound)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.AdvanceToNextEvent(); err != nil {
			return err
		}
	}
}

// settle delivers due injections and iterates the instant until quiescence.
func (s *Simulator) settle(t Time, due []*injection) error {
	for _, inj := range due {
		if err := s.deliver(0, inj.port, inj.value, t); err != nil {
			return err
		}
	}
	for iter := 0; s.busy(t); iter++ {
		if iter == s.maxIterations {
			return &DeadlockError{Time: t, Iterations: iter, Active: s.activePaths(t)}
		}
		if err := s.iterate(t, iter); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulator) busy(t Time) bool {
	root := &s.nodes[0]
	return root.tN == t || root.hasInput()
}

// iterate runs one pass at instant t: outputs of imminent models, routing in
// declared order, then transitions of every model that is imminent or holds input.
func (s *Simulator) iterate(t Time, iter int) error {
	imminent := s.collectImminent(0, t, nil)
	bags, err := s.outputs(imminent, t)
	if err != nil {
		return err
	}
	for i, idx := range imminent {
		if err := s.route(idx, bags[i], t); err != nil {
			return err
		}
	}
	active := s.collectActive(0, t, nil)
	logrus.Debugf("[tick %07d] Iteration %d: %d imminent, %d active", t, iter, len(imminent), len(active))
	if err := s.transitions(active, t); err != nil {
		return err
	}
	s.refresh(0, t)
	return nil
}

// collectImminent appends, in declared depth-first order, the leaves under idx due at t.
// Branches whose next event is later are skipped whole.
func (s *Simulator) collectImminent(idx int, t Time, acc []int) []int {
	n := &s.nodes[idx]
	if n.tN != t {
		return acc
	}
	if n.leaf {
		return append(acc, idx)
	}
	for _, c := range n.children {
		acc = s.collectImminent(c, t, acc)
	}
	return acc
}

// collectActive appends the leaves under idx that are imminent at t or hold input.
func (s *Simulator) collectActive(idx int, t Time, acc []int) []int {
	n := &s.nodes[idx]
	if n.tN != t && !n.hasInput() {
		return acc
	}
	if n.leaf {
		return append(acc, idx)
	}
	for _, c := range n.children {
		acc = s.collectActive(c, t, acc)
	}
	return acc
}

func (s *Simulator) activePaths(t Time) []string {
	active := s.collectActive(0, t, nil)
	paths := make([]string, 0, min(len(active), maxActiveReported))
	for _, idx := range active {
		if len(paths) == maxActiveReported {
			paths = append(paths, fmt.Sprintf("and %d more", len(active)-maxActiveReported))
			break
		}
		paths = append(paths, s.nodes[idx].path)
	}
	return paths
}

// forEach runs fn for 0..count-1, serially or on the worker pool. It returns the
// error of the lowest failing index, so the reported error does not depend on scheduling.
func (s *Simulator) forEach(count int, fn func(i int) error) error {
	if s.workers <= 1 || count < 2 {
		for i := 0; i < count; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}
	errs := make([]error, count)
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i := 0; i < count; i++ {
		i := i
		g.Go(func() error {
			errs[i] = fn(i)
			return nil
		})
	}
	_ = g.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulator) outputs(imminent []int, t Time) ([]Bag, error) {
	bags := make([]Bag, len(imminent))
	err := s.forEach(len(imminent), func(i int) error {
		n := &s.nodes[imminent[i]]
		err := guard(func() error {
			var err error
			bags[i], err = n.atomic.Output()
			return err
		})
		if err != nil {
			return &ModelError{Model: n.path, Phase: PhaseOutput, Time: t, Err: err}
		}
		return nil
	})
	return bags, err
}

// route checks and propagates the bag a leaf emitted.
func (s *Simulator) route(idx int, bag Bag, t Time) error {
	n := &s.nodes[idx]
	for _, ev := range bag {
		p, ok := n.def.out.get(ev.Port)
		if !ok {
			return &ModelError{Model: n.path, Phase: PhaseOutput, Time: t,
				Err: fmt.Errorf("output on undeclared port %q", ev.Port)}
		}
		if !fits(ev.Value, p.Type) {
			return &ModelError{Model: n.path, Phase: PhaseOutput, Time: t,
				Err: fmt.Errorf("value of type %T does not fit output port %q (%s)", ev.Value, ev.Port, typeName(p.Type))}
		}
		s.notify(notice{kind: noticeOutput, ev: ModelEvent{
			Model: n.path,
			Root:  idx == 0,
			Event: Event{Port: ev.Port, Value: ev.Value, Time: t},
		}})
		if err := s.emit(idx, ev.Port, ev.Value, t); err != nil {
			return err
		}
	}
	return nil
}

// emit sends v out of node idx's output port through the parent's couplings.
// At the root, the value leaves the simulation and is reported to listeners.
func (s *Simulator) emit(idx int, port string, v any, t Time) error {
	n := &s.nodes[idx]
	if n.parent == self {
		if !n.leaf {
			s.notify(notice{kind: noticeOutput, ev: ModelEvent{
				Model: n.path,
				Root:  true,
				Event: Event{Port: port, Value: v, Time: t},
			}})
		}
		return nil
	}
	for _, r := range s.nodes[n.parent].routes[routeKey{from: idx, port: port}] {
		if err := s.follow(n.parent, r, v, t); err != nil {
			return err
		}
	}
	return nil
}

// deliver hands v to node idx's input port: into the inbox of a leaf, or down
// through the input couplings of a branch.
func (s *Simulator) deliver(idx int, port string, v any, t Time) error {
	n := &s.nodes[idx]
	if !n.leaf {
		for _, r := range n.routes[routeKey{from: self, port: port}] {
			if err := s.follow(idx, r, v, t); err != nil {
				return err
			}
		}
		return nil
	}
	p, _ := n.def.in.get(port)
	if !fits(v, p.Type) {
		return &ModelError{Model: n.path, Phase: PhaseRoute, Time: t,
			Err: fmt.Errorf("value of type %T does not fit input port %q (%s)", v, port, typeName(p.Type))}
	}
	if err := s.journal.touchLeaf(s.nodes, idx, t); err != nil {
		return err
	}
	n.inbox = append(n.inbox, Event{Port: port, Value: v, Time: t})
	s.notify(notice{kind: noticeInput, ev: ModelEvent{Model: n.path, Event: Event{Port: port, Value: v, Time: t}}})
	s.markPending(n.parent)
	return nil
}

// follow crosses one edge of branch's routing table.
func (s *Simulator) follow(branch int, r route, v any, t Time) error {
	if r.transform != nil {
		out, err := r.transform.apply(v)
		if err != nil {
			return &ModelError{Model: s.nodes[branch].path, Phase: PhaseRoute, Time: t, Err: err}
		}
		if !fits(out, r.transform.out) {
			return &ModelError{Model: s.nodes[branch].path, Phase: PhaseRoute, Time: t,
				Err: fmt.Errorf("transform %s returned %T, want %s", r.transform.name, out, typeName(r.transform.out))}
		}
		v = out
	}
	if r.to == self {
		return s.emit(branch, r.port, v, t)
	}
	return s.deliver(r.to, r.port, v, t)
}

// markPending flags idx and its ancestors as holding input, stopping at the first
// ancestor already flagged.
func (s *Simulator) markPending(idx int) {
	for idx != self && !s.nodes[idx].pending {
		s.journal.touch(s.nodes, idx)
		s.nodes[idx].pending = true
		idx = s.nodes[idx].parent
	}
}

func (s *Simulator) transitions(active []int, t Time) error {
	for _, idx := range active {
		if err := s.journal.touchLeaf(s.nodes, idx, t); err != nil {
			return err
		}
	}
	infos := make([]TransitionInfo, len(active))
	invoked := make([]bool, len(active))
	err := s.forEach(len(active), func(i int) error {
		invoked[i] = true
		info, err := s.transition(active[i], t)
		infos[i] = info
		return err
	})
	for i, idx := range active {
		if invoked[i] {
			s.journal.invoked(s.nodes, idx)
		}
	}
	if err != nil {
		return err
	}
	for _, info := range infos {
		logrus.Tracef("[tick %07d] %s %s transition, elapsed %s, next %s", t, info.Model, info.Kind, info.Elapsed, info.Next)
		s.notify(notice{kind: noticeTransition, tr: info})
	}
	return nil
}

// transition applies the internal, external or confluent transition of leaf idx
// and reschedules it.
func (s *Simulator) transition(idx int, t Time) (TransitionInfo, error) {
	n := &s.nodes[idx]
	inputs := n.inbox
	elapsed := t.Sub(n.tL)
	var (
		kind Phase
		call func() error
	)
	switch {
	case n.tN == t && len(inputs) > 0:
		kind = PhaseConfluent
		call = func() error { return confluent(n.atomic, inputs) }
	case n.tN == t:
		kind = PhaseInternal
		call = n.atomic.InternalTransition
	default:
		kind = PhaseExternal
		call = func() error { return n.atomic.ExternalTransition(elapsed, inputs) }
	}
	if err := guard(call); err != nil {
		return TransitionInfo{}, &ModelError{Model: n.path, Phase: kind, Time: t, Err: err}
	}
	ta, err := s.timeAdvance(idx, t)
	if err != nil {
		return TransitionInfo{}, err
	}
	n.tL, n.tN, n.inbox = t, t.Add(ta), nil
	return TransitionInfo{Model: n.path, Kind: kind, Time: t, Elapsed: elapsed, Next: n.tN}, nil
}

func (s *Simulator) timeAdvance(idx int, t Time) (Time, error) {
	n := &s.nodes[idx]
	var ta Time
	err := guard(func() error {
		ta = n.atomic.TimeAdvance()
		return nil
	})
	if err != nil {
		return 0, &ModelError{Model: n.path, Phase: PhaseTimeAdvance, Time: t, Err: err}
	}
	if ta < 0 {
		return 0, &InvalidTimeAdvanceError{Model: n.path, Value: ta, Time: t}
	}
	return ta, nil
}

// refresh recomputes the next event time of every branch touched at t, bottom-up.
func (s *Simulator) refresh(idx int, t Time) {
	n := &s.nodes[idx]
	if n.leaf || (n.tN != t && !n.pending) {
		return
	}
	s.journal.touch(s.nodes, idx)
	next := Infinity
	for _, c := range n.children {
		s.refresh(c, t)
		next = Min(next, s.nodes[c].tN)
	}
	n.tL, n.tN, n.pending = t, next, false
}

func (s *Simulator) notify(n notice) {
	if len(s.listeners) == 0 {
		return
	}
	s.notices = append(s.notices, n)
}

func (s *Simulator) flush() {
	for _, n := range s.notices {
		for _, l := range s.listeners {
			n.deliver(l)
		}
	}
	s.notices = s.notices[:0]
}
