package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/tendril/internal/cli"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <graph-id|definition-file>",
	Short: "Execute a graph once and print the run",
	Long: `Executes a registered graph (such as code-review-workflow) or a definition
file and prints the run record. Exits non-zero when the run fails.

Example:
  tendril run code-review-workflow --state '{"code": "def f(): pass"}'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc := cli.NewSignalContext(context.Background())
		defer sc.Cancel()

		_, st, err := loadStack(sc, cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		state, _ := cmd.Flags().GetString("state")
		if file, _ := cmd.Flags().GetString("state-file"); file != "" {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			state = string(data)
		}
		format, _ := cmd.Flags().GetString("output")

		run, err := cli.Run(sc, st, cli.RunOptions{
			Target:    args[0],
			StateJSON: state,
			Format:    format,
			Output:    cmd.OutOrStdout(),
		})
		if err != nil {
			return err
		}
		if run.Status == domain.StatusFailed {
			return fmt.Errorf("run %s failed: %s", run.ID, run.Error)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("state", "", "Initial state as a JSON object")
	runCmd.Flags().String("state-file", "", "File holding the initial state as JSON")
	runCmd.Flags().StringP("output", "o", "auto", "Output format: auto, json or markdown")
}
