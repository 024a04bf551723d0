/*
Package middleware wraps a ports.RunStore with cross-cutting behavior.

NewPIIMiddleware masks state values whose keys match a pattern before a run
record is stored, so the records served by GetRun, the HTTP API and the MCP
server never carry them:

	pii, err := middleware.NewPIIMiddleware([]string{"(?i)password", "token$"})
	store := pii(memory.NewStore())
*/
package middleware
