// Package mcp exposes the engine over the Model Context Protocol: management
// tools (run_graph, get_run, list_graphs, ...), every registered engine tool,
// and read-only resources listing graphs and tools.
package mcp
