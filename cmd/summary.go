package cmd

import (
	"fmt"
	"time"

	"github.com/devsim/devsim/sim"
	"github.com/devsim/devsim/sim/library"
	"github.com/devsim/devsim/sim/trace"
)

// printSummary displays run statistics at the end of the simulation,
// followed by one line per sink and processor in the model.
func printSummary(name string, s *sim.Simulator, ts *trace.TraceSummary, wall time.Duration) {
	fmt.Println("=== Simulation Summary ===")
	fmt.Printf("Model                : %s\n", name)
	fmt.Printf("Final Time           : %s\n", s.CurrentTime())
	fmt.Printf("Next Event           : %s\n", s.NextEventTime())
	fmt.Printf("Cycles               : %d\n", s.Cycles())
	fmt.Printf("Root Outputs         : %d\n", ts.RootOutputs)
	if ts.RootOutputs > 0 {
		fmt.Printf("First/Last Output    : %d / %d\n", ts.FirstOutput, ts.LastOutput)
		fmt.Printf("Mean Output Gap      : %.2f ticks (stddev %.2f)\n", ts.MeanOutputGap, ts.StdDevOutputGap)
		fmt.Printf("Zero-Time Outputs    : %d\n", ts.ZeroTimeOutputs)
	}
	if ts.TotalTransitions > 0 {
		fmt.Printf("Transitions          : %d (internal %d, external %d, confluent %d)\n",
			ts.TotalTransitions, ts.TransitionsByKind["internal"], ts.TransitionsByKind["external"], ts.TransitionsByKind["confluent"])
	}
	fmt.Printf("Wall Time            : %s\n", wall.Round(time.Microsecond))

	for _, path := range s.Paths() {
		a, _ := s.Atomic(path)
		switch m := a.(type) {
		case *library.Sink:
			fmt.Printf("Sink %-15s : %d received, mean sojourn %.2f ticks\n", path, m.Count(), m.MeanSojourn())
		case *library.Processor:
			served, dropped, collisions := m.Stats()
			fmt.Printf("Processor %-10s : %d served, %d dropped, %d queued, %d collisions\n",
				path, served, dropped, m.QueueLen(), collisions)
		}
	}
}
