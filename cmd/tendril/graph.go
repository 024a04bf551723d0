package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/tendril/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [graph-id]",
	Short: "List graphs or export one as a Mermaid diagram",
	Long: `Without arguments, lists every registered graph. With a graph id, outputs a
Mermaid diagram (graph TD) of its structure, or its description with --json.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		_, st, err := loadStack(ctx, cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		out := cmd.OutOrStdout()
		asJSON, _ := cmd.Flags().GetBool("json")

		if len(args) == 0 {
			infos := st.Engine.ListGraphs()
			if asJSON {
				return json.NewEncoder(out).Encode(infos)
			}
			for _, info := range infos {
				fmt.Fprintf(out, "%s\t%d nodes\t%s\n", info.ID, len(info.Nodes), info.Description)
			}
			return nil
		}

		info, err := st.Engine.DescribeGraph(args[0])
		if err != nil {
			return err
		}
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		}
		fmt.Fprint(out, graph.GenerateMermaid(info, nil))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().Bool("json", false, "Print the graph description as JSON")
}
