package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/devsim/devsim/sim/config"
)

// validateCmd builds a model definition without running it
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a model definition for configuration errors",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		if modelPath == "" {
			logrus.Fatalf("Model definition not provided. Use --model <file.yaml>.")
		}
		if err := validateModel(modelPath); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

// validateModel loads and builds the model at path and reports its shape on stdout.
func validateModel(path string) error {
	spec, err := config.LoadModelSpec(path)
	if err != nil {
		return err
	}
	s, err := config.NewSimulator(spec)
	if err != nil {
		return err
	}
	fmt.Printf("%s: ok (%d models, first event at %s)\n", path, len(s.Paths()), s.NextEventTime())
	for _, p := range s.Paths() {
		_, next, _ := s.Status(p)
		fmt.Printf("  %-30s next %s\n", p, next)
	}
	if next := s.NextEventTime(); next.IsInf() {
		logrus.Warnf("Model %s has no scheduled events", spec.Root.Name)
	} else if spec.Engine.Until != nil && next > *spec.Engine.Until {
		logrus.Warnf("First event at %s is past engine.until %s", next, *spec.Engine.Until)
	}
	return nil
}
