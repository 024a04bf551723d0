/*
Package dsl provides a fluent builder for constructing Tendril graphs in Go.

It is the programmatic counterpart of pkg/definition: the same nodes and
edges, with type-checked functions instead of registered names. Errors are
collected and reported once by Build.

Example usage:

	b := dsl.New("review")

	b.Add("score").
		Do("calculate_score").
		Map("issues", "issues").
		Go("gate")

	b.Add("gate").
		Branch("quality_score >= 7", "report").
		Otherwise("improve")

	b.Add("improve").
		Repeat("quality_score < 7", 3).
		Do("suggest_improvements").
		Go("report")

	b.Add("report").
		Func(generateReport)

	g, err := b.Build()
	// ... pass g to engine.AddGraph(g)
*/
package dsl
