package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "runs_import",
	Short: "Import runs from a CSV export into the runlog database",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func main() {
	rootCmd.AddCommand(newImportCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
