package main

import (
	"github.com/aretw0/tendril/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <definition-file>...",
	Short: "Validate workflow definition files",
	Long:  `Compiles each definition file and reports errors and lint warnings without running anything.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.Validate(cmd.Context(), cmd.OutOrStdout(), args...)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
