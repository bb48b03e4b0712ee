package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kosarica/purchase-optimizer/internal/solver"
)

var solversCmd = &cobra.Command{
	Use:   "solvers",
	Short: "List the available solvers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := solver.NewDefaultRegistry()
		defaultID := reg.Default()
		if cfg != nil && cfg.Solver.ID != "" {
			defaultID = cfg.Solver.ID
		}
		for _, id := range reg.Available() {
			marker := " "
			if id == defaultID {
				marker = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(solversCmd)
}
