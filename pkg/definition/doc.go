/*
Package definition describes workflow graphs declaratively.

A definition is plain data (YAML or JSON) naming nodes by type and wiring them
with edges. It is compiled into a *graph.Graph by the engine.

	graph_id: review
	start_node: extract
	nodes:
	  - id: extract
	    type: tool
	    tool_name: extract_functions
	    state_keys: {code: code}
	  - id: gate
	    type: decision
	edges:
	  - {from_node: extract, to_node: gate}
	  - {from_node: gate, to_node: pass, when: "quality_score >= 7"}
	  - {from_node: gate, to_node: fail, default: true}

The node type "standard" is accepted as an alias of "tool".
*/
package definition
