package sim

import "fmt"

// Atomic is the capability set every leaf behavior implements.
// The model owns its state; only the coordinator calls these methods, and never concurrently
// for the same model.
//
// Output is called once per imminent instant, immediately before InternalTransition or
// ConfluentTransition, and must not mutate state. Transition functions must not block.
type Atomic interface {
	// TimeAdvance returns how long the current state lasts absent input.
	// Infinity means passive. It must be a pure function of state.
	TimeAdvance() Time
	Output() (Bag, error)
	InternalTransition() error
	// ExternalTransition handles inputs arriving elapsed ticks after the last event.
	ExternalTransition(elapsed Time, inputs Bag) error
}

// Confluent is implemented by models that resolve simultaneous internal and
// external events themselves.
type Confluent interface {
	ConfluentTransition(inputs Bag) error
}

// Snapshotter lets the engine roll model state back when an instant fails.
// Restore receives a value previously returned by Snapshot.
type Snapshotter interface {
	Snapshot() any
	Restore(snapshot any)
}

// confluent applies the model's confluent transition, or internal then external
// with zero elapsed time when the model does not define one.
func confluent(m Atomic, inputs Bag) error {
	if c, ok := m.(Confluent); ok {
		return c.ConfluentTransition(inputs)
	}
	if err := m.InternalTransition(); err != nil {
		return err
	}
	return m.ExternalTransition(0, inputs)
}

// guard runs fn, converting a panic into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
