package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devsim/devsim/sim/config"
)

// kindsCmd lists what model definitions can refer to
var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List registered atomic kinds, port types and transforms",
	Run: func(cmd *cobra.Command, args []string) {
		printRegistry()
	},
}

func printRegistry() {
	fmt.Println("=== Atomic Kinds ===")
	for _, k := range config.Kinds() {
		fmt.Printf("%-20s : %s\n", k.Name, k.Description)
	}
	fmt.Println("=== Port Types ===")
	for _, name := range config.TypeNames() {
		fmt.Println(name)
	}
	fmt.Println("=== Transforms ===")
	for _, name := range config.TransformNames() {
		fmt.Println(name)
	}
}
