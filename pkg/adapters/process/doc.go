// Package process exposes allow-listed local commands as engine tools.
//
// Commands come from a tools.yaml (or tools.json) file:
//
//	tools:
//	  - name: lint
//	    command: golangci-lint
//	    args: ["run", "--out-format=json"]
//	    timeout: 30s
//
// Tool arguments reach the process as TENDRIL_ARG_<NAME> environment variables
// and as a JSON object on stdin, never as command-line flags.
package process
