package tui

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
)

// RunMarkdown renders a run record as a markdown report.
func RunMarkdown(run *domain.Run) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Run `%s`\n\n", run.ID)
	fmt.Fprintf(&sb, "- **Graph:** `%s`\n", run.GraphID)
	fmt.Fprintf(&sb, "- **Status:** %s\n", run.Status)
	fmt.Fprintf(&sb, "- **Steps:** %d\n", len(run.Log))
	if run.StartedAt != nil && run.CompletedAt != nil {
		fmt.Fprintf(&sb, "- **Duration:** %s\n", run.CompletedAt.Sub(*run.StartedAt).Round(time.Microsecond))
	}
	if run.Error != "" {
		fmt.Fprintf(&sb, "- **Error:** %s (`%s`)\n", run.Error, run.ErrorKind)
	}

	if len(run.Log) > 0 {
		sb.WriteString("\n## Execution Log\n\n")
		sb.WriteString("| # | Node | Kind | Next | Changed | Duration |\n")
		sb.WriteString("|---|------|------|------|---------|----------|\n")
		for _, e := range run.Log {
			node := e.NodeID
			if e.Iteration > 0 {
				node = fmt.Sprintf("%s (pass %d)", node, e.Iteration)
			}
			next := e.Next
			if e.Failed() {
				next = "error: " + e.Error
			}
			fmt.Fprintf(&sb, "| %d | %s | %s | %s | %s | %s |\n",
				e.Seq, node, e.Kind, cell(next), cell(changedKeys(e.Changes)), e.Duration.Round(time.Microsecond))
		}
	}

	if run.State != nil && run.State.Len() > 0 {
		sb.WriteString("\n## Final State\n\n```json\n")
		data, err := json.MarshalIndent(run.State, "", "  ")
		if err != nil {
			data = []byte(err.Error())
		}
		sb.Write(data)
		sb.WriteString("\n```\n")
	}
	return sb.String()
}

func changedKeys(d *domain.StateDiff) string {
	if d == nil {
		return ""
	}
	keys := slices.Sorted(maps.Keys(d.Set))
	for _, k := range d.Removed {
		keys = append(keys, "-"+k)
	}
	return strings.Join(keys, ", ")
}

func cell(s string) string {
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(s, "|", "\\|")
}
