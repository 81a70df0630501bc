package trace

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalOutputs      int
	RootOutputs       int
	TotalInputs       int
	TotalTransitions  int
	TransitionsByKind map[string]int // internal/external/confluent → count
	OutputsByModel    map[string]int // model path → count of outputs emitted
	Models            []string       // models that emitted output, sorted
	FirstOutput       int64
	LastOutput        int64
	MeanOutputGap     float64 // mean ticks between consecutive root outputs
	StdDevOutputGap   float64
	ZeroTimeOutputs   int // root outputs sharing their instant with the previous one
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		TransitionsByKind: make(map[string]int),
		OutputsByModel:    make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalOutputs = len(st.Outputs)
	summary.TotalInputs = len(st.Inputs)
	summary.TotalTransitions = len(st.Transitions)
	for _, r := range st.Outputs {
		summary.OutputsByModel[r.Model]++
	}
	for _, r := range st.Transitions {
		summary.TransitionsByKind[r.Kind]++
	}
	for model := range summary.OutputsByModel {
		summary.Models = append(summary.Models, model)
	}
	sort.Strings(summary.Models)

	roots := st.RootOutputs()
	summary.RootOutputs = len(roots)
	if len(roots) == 0 {
		return summary
	}
	summary.FirstOutput = roots[0].Clock
	summary.LastOutput = roots[len(roots)-1].Clock
	if len(roots) > 1 {
		gaps := make([]float64, 0, len(roots)-1)
		for i := 1; i < len(roots); i++ {
			gap := roots[i].Clock - roots[i-1].Clock
			if gap == 0 {
				summary.ZeroTimeOutputs++
			}
			gaps = append(gaps, float64(gap))
		}
		if len(gaps) == 1 {
			summary.MeanOutputGap = gaps[0]
		} else {
			summary.MeanOutputGap, summary.StdDevOutputGap = stat.MeanStdDev(gaps, nil)
		}
	}
	return summary
}
