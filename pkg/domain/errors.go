package domain

import (
	"errors"
	"fmt"
)

// Construction errors.
var (
	// ErrDuplicateNodeID is returned when a graph already holds a node with the same id.
	ErrDuplicateNodeID = errors.New("duplicate node id")
	// ErrMultipleStartNodes is returned when a second start node is declared.
	ErrMultipleStartNodes = errors.New("graph already has a start node")
	// ErrUnknownNode is returned when an edge references a node the graph does not hold.
	ErrUnknownNode = errors.New("unknown node")
	// ErrGraphSealed is returned when mutating a graph that was registered with an engine.
	ErrGraphSealed = errors.New("graph is sealed")
	// ErrInvalidGraph wraps structural validation failures.
	ErrInvalidGraph = errors.New("invalid graph")
	// ErrDuplicateTool is returned when a tool name is already registered.
	ErrDuplicateTool = errors.New("tool already registered")
	// ErrDuplicateGraph is returned when a graph id is already registered.
	ErrDuplicateGraph = errors.New("graph already registered")
)

// Lookup errors.
var (
	ErrToolNotFound  = errors.New("tool not found")
	ErrGraphNotFound = errors.New("graph not found")
	ErrRunNotFound   = errors.New("run not found")
)

// Execution errors. They end a run in the failed status and are never retried.
var (
	ErrToolExecution       = errors.New("tool execution failed")
	ErrNodeExecution       = errors.New("node execution failed")
	ErrNoMatchingBranch    = errors.New("no matching branch")
	ErrLoopLimitExceeded   = errors.New("loop iteration limit exceeded")
	ErrGraphCorruption     = errors.New("graph corruption")
	ErrStepLimitExceeded   = errors.New("step limit exceeded")
	ErrInvalidState        = errors.New("invalid state")
	ErrInvalidToolArgs     = errors.New("invalid tool arguments")
	ErrUnsupportedNodeKind = errors.New("unsupported node kind")
)

// Stable identifiers reported as LogEntry.ErrorKind.
const (
	KindToolNotFound      = "tool_not_found"
	KindToolExecution     = "tool_execution"
	KindNodeExecution     = "node_execution"
	KindNoMatchingBranch  = "no_matching_branch"
	KindLoopLimitExceeded = "loop_limit_exceeded"
	KindGraphCorruption   = "graph_corruption"
	KindStepLimitExceeded = "step_limit_exceeded"
	KindInvalidState      = "invalid_state"
	KindInternal          = "internal"
)

// kinded is implemented by every typed execution error.
type kinded interface {
	ErrorKind() string
}

// ErrorKind returns the stable identifier of the outermost typed execution
// error in err's chain, or KindInternal.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	var k kinded
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	return KindInternal
}

// DuplicateToolError is returned when registering a name twice.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q already registered", e.Name)
}

func (e *DuplicateToolError) Is(target error) bool { return target == ErrDuplicateTool }

// ToolNotFoundError indicates a tool name with no registered implementation.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("tool not found: %s", e.Name)
}

func (e *ToolNotFoundError) Is(target error) bool { return target == ErrToolNotFound }
func (e *ToolNotFoundError) ErrorKind() string { return KindToolNotFound }

// ToolExecutionError wraps a failure raised by a tool body, panics included.
type ToolExecutionError struct {
	Tool  string
	Cause error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.Tool, e.Cause)
}

func (e *ToolExecutionError) Unwrap() error { return e.Cause }
func (e *ToolExecutionError) Is(target error) bool { return target == ErrToolExecution }
func (e *ToolExecutionError) ErrorKind() string { return KindToolExecution }

// NodeExecutionError wraps a failure raised by a function node.
type NodeExecutionError struct {
	NodeID string
	Cause  error
}

func (e *NodeExecutionError) Error() string {
	return fmt.Sprintf("node %q failed: %v", e.NodeID, e.Cause)
}

func (e *NodeExecutionError) Unwrap() error { return e.Cause }
func (e *NodeExecutionError) Is(target error) bool { return target == ErrNodeExecution }
func (e *NodeExecutionError) ErrorKind() string { return KindNodeExecution }

// NoMatchingBranchError is returned by a decision node when no guard matched
// and no default edge exists.
type NoMatchingBranchError struct {
	NodeID string
	// Label is the selector output, when the decision routes by label.
	Label string
}

func (e *NoMatchingBranchError) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("decision %q: no branch for label %q", e.NodeID, e.Label)
	}
	return fmt.Sprintf("decision %q: no guard matched and no default branch", e.NodeID)
}

func (e *NoMatchingBranchError) Is(target error) bool { return target == ErrNoMatchingBranch }
func (e *NoMatchingBranchError) ErrorKind() string { return KindNoMatchingBranch }

// LoopLimitExceededError is returned when a loop asks for another pass after
// MaxIterations passes.
type LoopLimitExceededError struct {
	NodeID string
	Max    int
}

func (e *LoopLimitExceededError) Error() string {
	return fmt.Sprintf("loop %q exceeded %d iterations", e.NodeID, e.Max)
}

func (e *LoopLimitExceededError) Is(target error) bool { return target == ErrLoopLimitExceeded }
func (e *LoopLimitExceededError) ErrorKind() string { return KindLoopLimitExceeded }

// GraphCorruptionError is returned when the cursor points to a node the graph
// does not hold. Validation makes this unreachable for sealed graphs.
type GraphCorruptionError struct {
	GraphID string
	NodeID  string
}

func (e *GraphCorruptionError) Error() string {
	return fmt.Sprintf("graph %q: node %q does not exist", e.GraphID, e.NodeID)
}

func (e *GraphCorruptionError) Is(target error) bool { return target == ErrGraphCorruption }
func (e *GraphCorruptionError) ErrorKind() string { return KindGraphCorruption }

// StepLimitExceededError is returned when a run executes more node steps than allowed.
type StepLimitExceededError struct {
	Max int
}

func (e *StepLimitExceededError) Error() string {
	return fmt.Sprintf("run exceeded %d steps", e.Max)
}

func (e *StepLimitExceededError) Is(target error) bool { return target == ErrStepLimitExceeded }
func (e *StepLimitExceededError) ErrorKind() string { return KindStepLimitExceeded }

// InvalidStateError is returned when the initial state fails the graph schema.
type InvalidStateError struct {
	Cause error
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid initial state: %v", e.Cause)
}

func (e *InvalidStateError) Unwrap() error { return e.Cause }
func (e *InvalidStateError) Is(target error) bool { return target == ErrInvalidState }
func (e *InvalidStateError) ErrorKind() string { return KindInvalidState }
