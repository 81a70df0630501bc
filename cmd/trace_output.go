package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/devsim/devsim/sim/trace"
)

// writeTrace serializes st to path as yaml or json.
func writeTrace(path, format string, st *trace.SimulationTrace) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case "json":
		data, err = json.MarshalIndent(st, "", "  ")
	case "yaml", "":
		data, err = yaml.Marshal(st)
	default:
		return fmt.Errorf("unknown trace format %q", format)
	}
	if err != nil {
		return fmt.Errorf("encoding trace: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing trace: %w", err)
	}
	return nil
}
