package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/tendril/internal/presentation/tui"
	"github.com/aretw0/tendril/pkg/domain"
)

// RunOptions configures a single command-line execution.
type RunOptions struct {
	// Target is a registered graph id or a definition file path.
	Target string
	// StateJSON is the initial state as a JSON object. Empty means no state.
	StateJSON string
	// Format selects the report: "auto", "json" or "markdown".
	Format string
	Output io.Writer
}

// Run executes Target on st and writes a report. The returned run is non-nil
// whenever execution started; a failed run is reported, not returned as error.
func Run(ctx context.Context, st *Stack, opts RunOptions) (*domain.Run, error) {
	graphID := opts.Target
	if _, ok := st.Engine.Graph(graphID); !ok {
		if _, err := os.Stat(opts.Target); err != nil {
			return nil, fmt.Errorf("%q is neither a registered graph nor a file: %w", opts.Target, domain.ErrGraphNotFound)
		}
		id, err := LoadWorkflow(ctx, st.Engine, opts.Target)
		if err != nil {
			return nil, err
		}
		graphID = id
	}

	initial, err := ParseState(opts.StateJSON)
	if err != nil {
		return nil, err
	}

	run, err := st.Engine.RunGraph(ctx, graphID, initial)
	if err != nil {
		return nil, err
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	return run, WriteRun(out, run, opts.Format)
}

// ParseState decodes a JSON object into a State, keeping key order.
func ParseState(raw string) (*domain.State, error) {
	state := domain.NewState()
	if strings.TrimSpace(raw) == "" {
		return state, nil
	}
	if err := json.Unmarshal([]byte(raw), state); err != nil {
		return nil, fmt.Errorf("%w: initial state: %v", domain.ErrInvalidState, err)
	}
	return state, nil
}

// WriteRun prints run as indented JSON or as a rendered markdown report.
// "auto" picks markdown for terminals and JSON otherwise.
func WriteRun(w io.Writer, run *domain.Run, format string) error {
	if format == "" || format == "auto" {
		format = "json"
		if tui.IsTerminal(w) {
			format = "markdown"
		}
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	case "markdown", "md":
		md := tui.RunMarkdown(run)
		if tui.IsTerminal(w) {
			if rendered, err := tui.NewRenderer()(md); err == nil {
				md = rendered
			}
		}
		_, err := io.WriteString(w, md)
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
