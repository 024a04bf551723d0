package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/tendril/internal/cli"
	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List registered tools",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, st, err := loadStack(context.Background(), cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		for _, t := range st.Engine.ListTools() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s\n", t.Name, t.Description)
		}
		return nil
	},
}

var toolsCallCmd = &cobra.Command{
	Use:   "call <tool> [json-args]",
	Short: "Invoke a tool directly and print its result",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		_, st, err := loadStack(ctx, cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		var raw string
		if len(args) == 2 {
			raw = args[1]
		}
		state, err := cli.ParseState(raw)
		if err != nil {
			return err
		}

		out, err := st.Engine.CallTool(ctx, args[0], state.Map())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
	toolsCmd.AddCommand(toolsCallCmd)
}
