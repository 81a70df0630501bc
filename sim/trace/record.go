// Package trace provides event-trace recording for simulation runs.
// This package has no dependencies on sim/; it stores pure data types.
package trace

// EventRecord captures one value crossing a port: an output emitted by a model,
// or an input delivered to an atomic model.
type EventRecord struct {
	Clock int64  `yaml:"clock" json:"clock"`
	Model string `yaml:"model" json:"model"`
	Port  string `yaml:"port" json:"port"`
	Value any    `yaml:"value" json:"value"`
	Root  bool   `yaml:"root,omitempty" json:"root,omitempty"` // emitted on the root model's output port
}

// TransitionRecord captures one state transition of an atomic model.
type TransitionRecord struct {
	Clock   int64  `yaml:"clock" json:"clock"`
	Model   string `yaml:"model" json:"model"`
	Kind    string `yaml:"kind" json:"kind"` // internal, external or confluent
	Elapsed int64  `yaml:"elapsed" json:"elapsed"`
	Next    int64  `yaml:"next,omitempty" json:"next,omitempty"` // unset when Passive
	Passive bool   `yaml:"passive,omitempty" json:"passive,omitempty"`
}
