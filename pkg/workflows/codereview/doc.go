// Package codereview implements the code-review workflow: five analysis
// tools over Python source, a report function and the graphs that wire them.
package codereview
