package codereview

import (
	"context"
	"fmt"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/dsl"
	"github.com/aretw0/tendril/pkg/graph"
	"github.com/aretw0/tendril/pkg/registry"
	"github.com/aretw0/tendril/pkg/schema"
)

// Graph ids registered by Install.
const (
	WorkflowID     = "code-review-workflow"
	GateWorkflowID = "code-review-gate"
)

// DefaultThreshold is the quality score a review must reach to pass.
const DefaultThreshold = 7.0

func params(required []string, props map[string]any) map[string]any {
	return map[string]any{"type": "object", "properties": props, "required": required}
}

var codeParam = map[string]any{"code": map[string]any{"type": "string", "description": "Python source code"}}

// Tools describes the built-in tools.
var Tools = []struct {
	Meta domain.Tool
	Fn   registry.ToolFunction
}{
	{domain.Tool{Name: "extract_functions", Description: "Extract function definitions from code.", Parameters: params([]string{"code"}, codeParam)}, codeTool(ExtractFunctions)},
	{domain.Tool{Name: "check_complexity", Description: "Check code complexity using simple heuristics.", Parameters: params([]string{"code"}, codeParam)}, codeTool(CheckComplexity)},
	{domain.Tool{Name: "detect_issues", Description: "Detect basic code issues and anti-patterns.", Parameters: params([]string{"code"}, codeParam)}, codeTool(DetectIssues)},
	{domain.Tool{Name: "suggest_improvements", Description: "Suggest improvements based on detected issues.", Parameters: params([]string{"issues"}, map[string]any{
		"code":   map[string]any{"type": "string"},
		"issues": map[string]any{"type": "array", "items": map[string]any{"type": "object"}},
	})}, suggestTool},
	{domain.Tool{Name: "calculate_score", Description: "Calculate overall code quality score (0-10).", Parameters: params(
		[]string{"complexity_score", "issue_count", "has_critical_issues", "suggestion_count"},
		map[string]any{
			"complexity_score":    map[string]any{"type": "number"},
			"issue_count":         map[string]any{"type": "integer"},
			"has_critical_issues": map[string]any{"type": "boolean"},
			"suggestion_count":    map[string]any{"type": "integer"},
		})}, scoreTool},
}

// Register adds the built-in tools to reg.
func Register(reg *registry.Registry) error {
	for _, t := range Tools {
		if err := reg.RegisterTool(t.Meta, t.Fn); err != nil {
			return err
		}
	}
	return nil
}

// GenerateReport summarizes the analysis keys of the state under "report".
func GenerateReport(_ context.Context, s *domain.State) (*domain.State, error) {
	get := func(k string) any {
		v, _ := s.Get(k)
		return v
	}
	s.Set("report", map[string]any{
		"overall_quality_score": get("quality_score"),
		"rating":                get("rating"),
		"summary": map[string]any{
			"functions_found":         get("function_count"),
			"complexity_score":        get("complexity_score"),
			"total_issues":            get("issue_count"),
			"improvement_suggestions": get("suggestion_count"),
		},
	})
	return s, nil
}

func verdict(v string) graph.Func {
	return func(_ context.Context, s *domain.State) (*domain.State, error) {
		s.Set("verdict", v)
		return s, nil
	}
}

// analysis adds the five tool nodes shared by both workflows, ending at next.
func analysis(b *dsl.Builder, next string) {
	b.Expect(schema.Schema{
		"code":              schema.String(),
		"quality_threshold": schema.Optional(schema.Float()),
	})
	b.Add("extract_functions").Do("extract_functions").Map("code", "code").Go("check_complexity")
	b.Add("check_complexity").Do("check_complexity").Map("code", "code").Go("detect_issues")
	b.Add("detect_issues").Do("detect_issues").Map("code", "code").Go("suggest_improvements")
	b.Add("suggest_improvements").Do("suggest_improvements").
		Map("code", "code").
		Map("issues", "issues").
		Go("calculate_score")
	b.Add("calculate_score").Do("calculate_score").
		Map("complexity_score", "complexity_score").
		Map("issue_count", "issue_count").
		Map("has_critical_issues", "has_critical_issues").
		Map("suggestion_count", "suggestion_count").
		Go(next)
}

// Workflow returns the linear review graph: five analysis tools followed by
// the report.
func Workflow() (*graph.Graph, error) {
	b := dsl.New(WorkflowID).Describe("Review Python code: extract, analyse, score and report")
	analysis(b, "generate_report")
	b.Add("generate_report").Func(GenerateReport)
	return b.Build()
}

// GateWorkflow returns the review graph with a quality gate: the score is
// compared with quality_threshold before the report.
func GateWorkflow() (*graph.Graph, error) {
	b := dsl.New(GateWorkflowID).Describe("Review Python code and gate on quality_threshold")
	analysis(b, "quality_gate")
	b.Add("quality_gate").
		Branch("quality_score >= quality_threshold", "approve").
		Otherwise("request_changes")
	b.Add("approve").Func(verdict("approved")).Go("generate_report")
	b.Add("request_changes").Func(verdict("changes_requested")).Go("generate_report")
	b.Add("generate_report").Func(GenerateReport)
	return b.Build()
}

// InitialState builds the state a review run starts from.
func InitialState(code string, threshold float64) *domain.State {
	s := domain.NewState()
	s.Set("code", code)
	s.Set("quality_threshold", threshold)
	s.Set("iteration", 0)
	return s
}

// Install registers the tools, the report function and both graphs on eng.
func Install(eng *tendril.Engine) error {
	if err := Register(eng.Tools()); err != nil {
		return fmt.Errorf("failed to register code review tools: %w", err)
	}
	if err := eng.RegisterFunction("generate_report", GenerateReport); err != nil {
		return err
	}
	for _, build := range []func() (*graph.Graph, error){Workflow, GateWorkflow} {
		g, err := build()
		if err != nil {
			return err
		}
		if err := eng.AddGraph(g); err != nil {
			return err
		}
	}
	return nil
}
