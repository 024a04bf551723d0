package codereview

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/mitchellh/mapstructure"
)

const (
	maxLineLength       = 100
	complexityThreshold = 6
	docstringWindow     = 100
)

var (
	funcLine      = regexp.MustCompile(`^\s*def\s+(\w+)\s*\(`)
	funcSignature = regexp.MustCompile(`def\s+(\w+)\s*\([^)]*\):`)
	branchWord    = regexp.MustCompile(`\b(if|elif|else)\b`)
	loopWord      = regexp.MustCompile(`\b(for|while)\b`)
)

// Issue types reported by DetectIssues.
const (
	IssueLongLine         = "long_line"
	IssueMissingDocstring = "missing_docstring"
	IssueDebugPrint       = "debug_print"
	IssueBareExcept       = "bare_except"
)

// ExtractFunctions lists the function definitions in code with their
// 1-based line numbers.
func ExtractFunctions(code string) map[string]any {
	functions := []any{}
	for i, line := range strings.Split(code, "\n") {
		if m := funcLine.FindStringSubmatch(line); m != nil {
			functions = append(functions, map[string]any{
				"name": m[1],
				"line": i + 1,
				"code": strings.TrimSpace(line),
			})
		}
	}
	return map[string]any{
		"functions":         functions,
		"function_count":    len(functions),
		"extraction_status": "success",
	}
}

// CheckComplexity scores code from 0 to 10 using nesting depth (four spaces
// per level), branch keywords and loop keywords.
func CheckComplexity(code string) map[string]any {
	maxDepth := 0
	for _, line := range strings.Split(code, "\n") {
		indent := len(line) - len(strings.TrimLeftFunc(line, unicode.IsSpace))
		maxDepth = max(maxDepth, indent/4)
	}
	branches := len(branchWord.FindAllString(code, -1))
	loops := len(loopWord.FindAllString(code, -1))

	score := math.Min(10, float64(maxDepth)+float64(branches)*0.5+float64(loops)*0.5)
	return map[string]any{
		"complexity_score": round2(score),
		"nesting_depth":    maxDepth,
		"branch_count":     branches,
		"loop_count":       loops,
		"is_complex":       score > complexityThreshold,
	}
}

// DetectIssues reports long lines, functions without a docstring, print
// calls and bare except clauses.
func DetectIssues(code string) map[string]any {
	issues := []any{}
	lines := strings.Split(code, "\n")

	for i, line := range lines {
		if n := len([]rune(line)); n > maxLineLength {
			issues = append(issues, map[string]any{
				"type":     IssueLongLine,
				"line":     i + 1,
				"message":  fmt.Sprintf("Line %d is too long (%d chars)", i+1, n),
				"severity": "warning",
			})
		}
	}

	for _, loc := range funcSignature.FindAllStringSubmatchIndex(code, -1) {
		name := code[loc[2]:loc[3]]
		window := code[loc[1]:min(len(code), loc[1]+docstringWindow)]
		if !strings.Contains(window, `"""`) && !strings.Contains(window, `'''`) {
			issues = append(issues, map[string]any{
				"type":     IssueMissingDocstring,
				"function": name,
				"message":  fmt.Sprintf("Function '%s' missing docstring", name),
				"severity": "warning",
			})
		}
	}

	var printLines []any
	for i, line := range lines {
		if strings.Contains(line, "print(") {
			printLines = append(printLines, i+1)
		}
	}
	if len(printLines) > 0 {
		issues = append(issues, map[string]any{
			"type":     IssueDebugPrint,
			"lines":    printLines,
			"message":  "Found print statements (debugging?)",
			"severity": "info",
		})
	}

	if strings.Contains(code, "except:") {
		issues = append(issues, map[string]any{
			"type":     IssueBareExcept,
			"message":  "Bare except clause found - specify exception type",
			"severity": "error",
		})
	}

	critical := 0
	for _, is := range issues {
		if is.(map[string]any)["severity"] == "error" {
			critical++
		}
	}
	return map[string]any{
		"issues":              issues,
		"issue_count":         len(issues),
		"critical_count":      critical,
		"has_critical_issues": critical > 0,
	}
}

// Issue is the part of a detected issue SuggestImprovements reads.
type Issue struct {
	Type     string `json:"type" mapstructure:"type"`
	Severity string `json:"severity" mapstructure:"severity"`
}

var suggestionFor = []struct {
	issue      string
	suggestion map[string]any
}{
	{IssueLongLine, map[string]any{"priority": "high", "area": "style", "suggestion": "Break long lines into smaller, more readable chunks", "effort": "low"}},
	{IssueMissingDocstring, map[string]any{"priority": "medium", "area": "documentation", "suggestion": "Add docstrings to all functions following Google style", "effort": "low"}},
	{IssueDebugPrint, map[string]any{"priority": "medium", "area": "debugging", "suggestion": "Remove debug print statements or use proper logging", "effort": "low"}},
	{IssueBareExcept, map[string]any{"priority": "high", "area": "error_handling", "suggestion": "Specify exception types explicitly in except blocks", "effort": "medium"}},
}

// SuggestImprovements turns issue types into one suggestion each.
func SuggestImprovements(issues []Issue) map[string]any {
	present := make(map[string]bool, len(issues))
	for _, is := range issues {
		present[is.Type] = true
	}

	suggestions := []any{}
	recommended := []any{}
	for _, s := range suggestionFor {
		if !present[s.issue] {
			continue
		}
		item := make(map[string]any, len(s.suggestion))
		for k, v := range s.suggestion {
			item[k] = v
		}
		suggestions = append(suggestions, item)
		recommended = append(recommended, s.suggestion["suggestion"])
	}
	return map[string]any{
		"suggestions":              suggestions,
		"suggestion_count":         len(suggestions),
		"recommended_improvements": recommended,
	}
}

// ScoreInput holds the metrics CalculateScore combines.
type ScoreInput struct {
	ComplexityScore   float64 `mapstructure:"complexity_score"`
	IssueCount        int     `mapstructure:"issue_count"`
	HasCriticalIssues bool    `mapstructure:"has_critical_issues"`
	SuggestionCount   int     `mapstructure:"suggestion_count"`
}

// CalculateScore computes the 0-10 quality score and its rating.
func CalculateScore(in ScoreInput) map[string]any {
	score := 10.0
	score -= math.Min(3, in.ComplexityScore*0.3)
	score -= math.Min(3, float64(in.IssueCount)*0.2)
	if in.HasCriticalIssues {
		score -= 2
	}
	score -= math.Min(2, float64(in.SuggestionCount)*0.3)
	score = math.Max(0, round2(score))

	return map[string]any{
		"quality_score":    score,
		"rating":           Rating(score),
		"pass_threshold_7": score >= 7,
		"pass_threshold_8": score >= 8,
		"pass_threshold_5": score >= 5,
	}
}

// Rating maps a quality score to its label.
func Rating(score float64) string {
	switch {
	case score >= 8:
		return "Excellent"
	case score >= 7:
		return "Good"
	case score >= 5:
		return "Fair"
	case score >= 3:
		return "Poor"
	}
	return "Critical"
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// decode copies args into out, coercing loosely typed input (JSON numbers,
// "true") the way callers over HTTP send it. Every key in required must be present.
func decode(args map[string]any, out any, required ...string) error {
	for _, k := range required {
		if _, ok := args[k]; !ok {
			return fmt.Errorf("missing required argument %q", k)
		}
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

type codeArgs struct {
	Code string `mapstructure:"code"`
}

type suggestArgs struct {
	Code   string  `mapstructure:"code"`
	Issues []Issue `mapstructure:"issues"`
}

func codeTool(fn func(string) map[string]any) func(context.Context, map[string]any) (any, error) {
	return func(_ context.Context, args map[string]any) (any, error) {
		var in codeArgs
		if err := decode(args, &in, "code"); err != nil {
			return nil, err
		}
		return fn(in.Code), nil
	}
}

func suggestTool(_ context.Context, args map[string]any) (any, error) {
	var in suggestArgs
	if err := decode(args, &in, "issues"); err != nil {
		return nil, err
	}
	return SuggestImprovements(in.Issues), nil
}

func scoreTool(_ context.Context, args map[string]any) (any, error) {
	var in ScoreInput
	if err := decode(args, &in, "complexity_score", "issue_count", "has_critical_issues", "suggestion_count"); err != nil {
		return nil, err
	}
	return CalculateScore(in), nil
}
