/*
Package runs implements the run registry.

The registry hands out run identifiers, keeps every run record in a
ports.RunStore and serializes writes per run, so an executor checkpointing a
run and a poller reading it never observe a half-written record. Waiters can
block on a run until it reaches a terminal status.
*/
package runs
