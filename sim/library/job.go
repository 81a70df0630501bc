// Package library provides ready-made atomic models and registers them as kinds
// in sim/config. Import it (blank import is enough) before building YAML models.
//
// Models keep a local clock that starts at 0 when the simulator is built and advances
// by the elapsed times the engine reports; Job.Created uses the same clock, so every
// model built in one simulator agrees on it.
package library

import (
	"reflect"

	"github.com/devsim/devsim/sim"
)

// Port names shared by the library models.
const (
	PortIn   = "in"
	PortOut  = "out"
	PortDrop = "drop"
)

// Job is the unit of work produced by Generator and consumed by Processor and Sink.
type Job struct {
	ID      int
	Created sim.Time
}

// JobType is the port type of Job-carrying ports.
var JobType = reflect.TypeOf((*Job)(nil)).Elem()
