/*
Package domain contains the core domain models of the Tendril workflow engine.

It defines the entities shared by the graph, the executor and the adapters.
This package is kept pure and free of external dependencies like I/O or
persistence, following Hexagonal Architecture principles.

# Key Entities

  - State: the ordered key-value store threaded through the nodes of a run.
  - Run: the record of one execution (status, states, execution log).
  - LogEntry: one node execution with input/output snapshots and a StateDiff.
  - LifecycleHooks: callbacks fired on run, node and tool events.
  - Errors: sentinels plus typed execution errors that match them via errors.Is.
*/
package domain
