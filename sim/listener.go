package sim

import "github.com/devsim/devsim/sim/trace"

// ModelEvent is an event observed on a model's port.
type ModelEvent struct {
	Model string // dotted path
	Root  bool   // emitted on the root model's output port
	Event
}

// TransitionInfo describes one state transition of an atomic model.
type TransitionInfo struct {
	Model   string
	Kind    Phase // PhaseInternal, PhaseExternal or PhaseConfluent
	Time    Time
	Elapsed Time
	Next    Time
}

// Listener observes a run. Notifications for an instant are delivered, in execution
// order, only after the instant completes; a failed instant notifies nothing.
type Listener interface {
	OnOutput(ev ModelEvent)
	OnInput(ev ModelEvent)
	OnTransition(tr TransitionInfo)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Output     func(ModelEvent)
	Input      func(ModelEvent)
	Transition func(TransitionInfo)
}

func (l ListenerFuncs) OnOutput(ev ModelEvent) {
	if l.Output != nil {
		l.Output(ev)
	}
}

func (l ListenerFuncs) OnInput(ev ModelEvent) {
	if l.Input != nil {
		l.Input(ev)
	}
}

func (l ListenerFuncs) OnTransition(tr TransitionInfo) {
	if l.Transition != nil {
		l.Transition(tr)
	}
}

// traceListener records notifications into a SimulationTrace according to its level.
type traceListener struct {
	st *trace.SimulationTrace
}

// NewTraceListener returns a Listener that records into st.
func NewTraceListener(st *trace.SimulationTrace) Listener {
	return &traceListener{st: st}
}

func (l *traceListener) OnOutput(ev ModelEvent) {
	if l.st.Config.WantsOutput(ev.Root) {
		l.st.RecordOutput(eventRecord(ev))
	}
}

func (l *traceListener) OnInput(ev ModelEvent) {
	if l.st.Config.WantsInputs() {
		l.st.RecordInput(eventRecord(ev))
	}
}

func (l *traceListener) OnTransition(tr TransitionInfo) {
	if !l.st.Config.WantsTransitions() {
		return
	}
	rec := trace.TransitionRecord{
		Clock:   int64(tr.Time),
		Model:   tr.Model,
		Kind:    string(tr.Kind),
		Elapsed: int64(tr.Elapsed),
	}
	if tr.Next.IsInf() {
		rec.Passive = true
	} else {
		rec.Next = int64(tr.Next)
	}
	l.st.RecordTransition(rec)
}

func eventRecord(ev ModelEvent) trace.EventRecord {
	return trace.EventRecord{
		Clock: int64(ev.Time),
		Model: ev.Model,
		Port:  ev.Port,
		Value: ev.Value,
		Root:  ev.Root,
	}
}

type noticeKind int

const (
	noticeOutput noticeKind = iota
	noticeInput
	noticeTransition
)

// notice is a buffered listener notification.
type notice struct {
	kind noticeKind
	ev   ModelEvent
	tr   TransitionInfo
}

func (n notice) deliver(l Listener) {
	switch n.kind {
	case noticeOutput:
		l.OnOutput(n.ev)
	case noticeInput:
		l.OnInput(n.ev)
	case noticeTransition:
		l.OnTransition(n.tr)
	}
}
