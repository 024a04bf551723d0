/*
Package expr implements the predicates used by declarative decision and loop
guards. Guards are Lua expressions compiled once to bytecode and evaluated in
a sandbox without the io, os, debug and package libraries:

	score >= 7
	has_critical_issues == false and issue_count < 3
	not (rating == "Poor" or rating == "Critical")
	#functions > 0 and report.summary.total_issues <= 3

Every free name in an expression is bound as a local to the state value of
the same key, or nil when the key is absent. Keys the expression does not name
are never read, so unrelated state values cannot affect a guard.

Lua semantics apply: only nil and false are falsy, ordering nil against a
number raises an error, and numbers are float64.
*/
package expr
