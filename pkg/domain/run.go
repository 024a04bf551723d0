package domain

import (
	"slices"
	"time"
)

// RunStatus is the lifecycle status of a run.
// Transitions are pending -> running -> completed | failed.
type RunStatus string

const (
	StatusPending   RunStatus = "pending"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// IsTerminal reports whether no further transition can happen.
func (s RunStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// LogEntry records one node execution.
type LogEntry struct {
	Seq    int      `json:"seq"`
	NodeID string   `json:"node_id"`
	Kind   NodeKind `json:"kind"`

	// Iteration is the 1-based pass number for loop nodes.
	Iteration int `json:"iteration,omitempty"`
	// Next is the node selected to run after this one. Empty on terminal
	// nodes and on failure.
	Next string `json:"next,omitempty"`

	Input   *State     `json:"input"`
	Output  *State     `json:"output,omitempty"`
	Changes *StateDiff `json:"changes,omitempty"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`

	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// Failed reports whether the node raised an error.
func (e LogEntry) Failed() bool {
	return e.Error != ""
}

// Run is the record of one graph execution.
type Run struct {
	ID      string    `json:"run_id"`
	GraphID string    `json:"graph_id"`
	Status  RunStatus `json:"status"`

	// CurrentNodeID is the node the cursor points to while running, and the
	// failing node once failed.
	CurrentNodeID string `json:"current_node,omitempty"`

	InitialState *State `json:"initial_state"`
	// State is the working state while running and the final state once
	// terminal. On failure it is the state after the last successful node.
	State *State `json:"final_state"`

	Log []LogEntry `json:"execution_log"`

	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	// Err keeps the typed error for in-process callers.
	Err error `json:"-"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Clone returns a deep copy so callers never share states or logs with the
// stored record.
func (r *Run) Clone() *Run {
	if r == nil {
		return nil
	}
	out := *r
	if r.InitialState != nil {
		out.InitialState = r.InitialState.Clone()
	}
	if r.State != nil {
		out.State = r.State.Clone()
	}
	out.Log = slices.Clone(r.Log)
	for i := range out.Log {
		e := &out.Log[i]
		if e.Input != nil {
			e.Input = e.Input.Clone()
		}
		if e.Output != nil {
			e.Output = e.Output.Clone()
		}
		e.Changes = e.Changes.Clone()
	}
	if r.StartedAt != nil {
		t := *r.StartedAt
		out.StartedAt = &t
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

// Path returns the node ids in execution order.
func (r *Run) Path() []string {
	path := make([]string, len(r.Log))
	for i, e := range r.Log {
		path[i] = e.NodeID
	}
	return path
}

// RunSummary is the lightweight listing form of a run.
type RunSummary struct {
	ID          string     `json:"run_id"`
	GraphID     string     `json:"graph_id"`
	Status      RunStatus  `json:"status"`
	Steps       int        `json:"steps"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Summary returns the listing form of r.
func (r *Run) Summary() RunSummary {
	return RunSummary{
		ID:          r.ID,
		GraphID:     r.GraphID,
		Status:      r.Status,
		Steps:       len(r.Log),
		CreatedAt:   r.CreatedAt,
		CompletedAt: r.CompletedAt,
	}
}
