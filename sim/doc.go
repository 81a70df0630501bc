// Package sim provides the discrete-event simulation engine for devsim: atomic
// models composed into coupled models, driven by a recursive coordinator.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - atomic.go: the Atomic capability set (time advance, output, internal/external/confluent transitions)
//   - digraph.go: Leaf and Digraph definitions, ports and couplings
//   - simulator.go: the driver (AdvanceToNextEvent, RunUntil) and the per-instant iteration
//
// # Architecture
//
// A model definition (a tree of *Leaf and *Digraph values) is validated once by
// build.go and flattened into an arena of coordinators addressed by index. Each
// coordinator keeps its last and next event times; a branch's next event time is the
// minimum over its children. Children keep their parent's index only to flag pending
// input upward.
//
// One cycle resolves one instant t. Each iteration collects the outputs of every
// atomic model due at t, in declared depth-first order, routes them through the
// coupling tables (climbing output translations, crossing internal couplings,
// descending input translations), then applies a confluent, internal or external
// transition to every model that is due or holds input. Iterations repeat while a
// model is still due at t; past WithMaxIterations the cycle fails with a DeadlockError.
// A failed cycle is undone as a whole (journal.go).
//
// Sub-packages:
//   - sim/config/: YAML model definitions and the kind registry
//   - sim/library/: ready-made atomic models registered into sim/config
//   - sim/trace/: event trace recording
package sim
