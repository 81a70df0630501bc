package sim

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for errors.Is checks against the typed errors below.
var (
	// ErrConfiguration marks a malformed model or coupling graph, detected at build time.
	ErrConfiguration = errors.New("configuration error")
	// ErrInvalidTimeAdvance marks a negative time advance. Fatal to the run.
	ErrInvalidTimeAdvance = errors.New("invalid time advance")
	// ErrSimulationDeadlock marks a zero-time cycle that did not quiesce. Fatal to the run.
	ErrSimulationDeadlock = errors.New("simulation deadlock")
)

// Phase names the engine step during which a model was called.
type Phase string

const (
	PhaseOutput      Phase = "output"
	PhaseInternal    Phase = "internal"
	PhaseExternal    Phase = "external"
	PhaseConfluent   Phase = "confluent"
	PhaseRoute       Phase = "route"
	PhaseTimeAdvance Phase = "time-advance"
	PhaseSnapshot    Phase = "snapshot"
	PhaseRestore     Phase = "restore"
)

// Issue is a single problem found while validating a model graph.
type Issue struct {
	Model  string // dotted path of the model the problem belongs to
	Port   string // optional
	Reason string
}

func (i Issue) String() string {
	if i.Port != "" {
		return fmt.Sprintf("%s.%s: %s", i.Model, i.Port, i.Reason)
	}
	return fmt.Sprintf("%s: %s", i.Model, i.Reason)
}

// ConfigurationError aggregates every problem found in one build.
type ConfigurationError struct {
	Issues []Issue
}

func (e *ConfigurationError) Error() string {
	if len(e.Issues) == 1 {
		return fmt.Sprintf("configuration error: %s", e.Issues[0])
	}
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return fmt.Sprintf("configuration error: %d problems: %s", len(e.Issues), strings.Join(parts, "; "))
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// InvalidTimeAdvanceError reports a model whose TimeAdvance returned a negative duration.
type InvalidTimeAdvanceError struct {
	Model string
	Value Time
	Time  Time
}

func (e *InvalidTimeAdvanceError) Error() string {
	return fmt.Sprintf("invalid time advance: model %s returned %d at t=%s", e.Model, int64(e.Value), e.Time)
}

func (e *InvalidTimeAdvanceError) Is(target error) bool {
	return target == ErrInvalidTimeAdvance
}

// DeadlockError reports an instant that kept producing activity past the iteration bound.
type DeadlockError struct {
	Time       Time
	Iterations int
	Active     []string // models still imminent or holding input when the bound was hit
}

func (e *DeadlockError) Error() string {
	return fmt.Sprintf("simulation deadlock: no quiescence at t=%s after %d iterations (active: %s)",
		e.Time, e.Iterations, strings.Join(e.Active, ", "))
}

func (e *DeadlockError) Is(target error) bool {
	return target == ErrSimulationDeadlock
}

// ModelError wraps an error raised by a model's own function, tagged with the model's path.
type ModelError struct {
	Model string
	Phase Phase
	Time  Time
	Err   error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model %s failed in %s at t=%s: %v", e.Model, e.Phase, e.Time, e.Err)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}
