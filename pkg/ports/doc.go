/*
Package ports defines the driven and driving ports (interfaces) of the Tendril engine.

These interfaces decouple the core logic from external implementations, allowing
the engine to work with various storage backends and the adapters to work with
any engine.

# Key Interfaces

  - RunStore: Responsible for keeping run records. RunRunStoreContract verifies implementations.
  - WorkflowService: What adapters (HTTP, MCP) need from the engine.
*/
package ports
