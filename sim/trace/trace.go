package trace

import "github.com/google/uuid"

// TraceLevel controls the verbosity of event tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelOutputs captures values leaving the root model.
	TraceLevelOutputs TraceLevel = "outputs"
	// TraceLevelEvents captures every model output and every delivered input.
	TraceLevelEvents TraceLevel = "events"
	// TraceLevelFull adds every state transition to TraceLevelEvents.
	TraceLevelFull TraceLevel = "full"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:    true,
	TraceLevelOutputs: true,
	TraceLevelEvents:  true,
	TraceLevelFull:    true,
	"":                true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// WantsOutput reports whether an output record should be kept.
// root marks outputs on the root model's own ports.
func (c TraceConfig) WantsOutput(root bool) bool {
	switch c.Level {
	case TraceLevelOutputs:
		return root
	case TraceLevelEvents, TraceLevelFull:
		return true
	}
	return false
}

// WantsInputs reports whether delivered inputs should be kept.
func (c TraceConfig) WantsInputs() bool {
	return c.Level == TraceLevelEvents || c.Level == TraceLevelFull
}

// WantsTransitions reports whether transitions should be kept.
func (c TraceConfig) WantsTransitions() bool {
	return c.Level == TraceLevelFull
}

// SimulationTrace collects event records during a simulation run.
type SimulationTrace struct {
	RunID       string             `yaml:"run_id" json:"run_id"`
	Config      TraceConfig        `yaml:"-" json:"-"`
	Outputs     []EventRecord      `yaml:"outputs" json:"outputs"`
	Inputs      []EventRecord      `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Transitions []TransitionRecord `yaml:"transitions,omitempty" json:"transitions,omitempty"`
}

// NewSimulationTrace creates a SimulationTrace ready for recording, with a fresh run ID.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		RunID:       uuid.New().String(),
		Config:      config,
		Outputs:     make([]EventRecord, 0),
		Inputs:      make([]EventRecord, 0),
		Transitions: make([]TransitionRecord, 0),
	}
}

// RecordOutput appends an output record.
func (st *SimulationTrace) RecordOutput(record EventRecord) {
	st.Outputs = append(st.Outputs, record)
}

// RecordInput appends an input record.
func (st *SimulationTrace) RecordInput(record EventRecord) {
	st.Inputs = append(st.Inputs, record)
}

// RecordTransition appends a transition record.
func (st *SimulationTrace) RecordTransition(record TransitionRecord) {
	st.Transitions = append(st.Transitions, record)
}

// RootOutputs returns the outputs emitted on the root model's ports, in order.
func (st *SimulationTrace) RootOutputs() []EventRecord {
	var out []EventRecord
	for _, r := range st.Outputs {
		if r.Root {
			out = append(out, r)
		}
	}
	return out
}
