package main

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strings"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/workflows/codereview"
	"github.com/spf13/cobra"
)

type versionInfo struct {
	Version   string            `json:"version"`
	GoVersion string            `json:"go_version"`
	NodeKinds []domain.NodeKind `json:"node_kinds"`
	Workflows []string          `json:"workflows"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version, supported node kinds and built-in workflows",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := versionInfo{
			Version:   tendril.Version,
			GoVersion: runtime.Version(),
			NodeKinds: domain.NodeKinds(),
			Workflows: []string{codereview.WorkflowID, codereview.GateWorkflowID},
		}
		w := cmd.OutOrStdout()

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		}

		kinds := make([]string, len(info.NodeKinds))
		for i, k := range info.NodeKinds {
			kinds[i] = string(k)
		}
		fmt.Fprintf(w, "tendril version %s (%s)\n", info.Version, info.GoVersion)
		fmt.Fprintf(w, "node kinds: %s\n", strings.Join(kinds, ", "))
		fmt.Fprintf(w, "workflows:  %s\n", strings.Join(info.Workflows, ", "))
		return nil
	},
}

func init() {
	versionCmd.Flags().Bool("json", false, "Print as JSON")
	rootCmd.AddCommand(versionCmd)
}
