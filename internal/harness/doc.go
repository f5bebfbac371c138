// Package harness provides conformance testing for the select compiler.
//
// A case compiles one select clause against a binding list, renders the
// result as SQL with the case's runtime values and checks assertions
// against what happened.
//
// # Case Format
//
// Cases are defined in YAML files with the following structure:
//
//	name: project_nested
//	description: "project/2 with a nested field list"
//	bindings: [u]
//	sources: [users]
//	select: "project(u, [:id, {:address, [:city]}])"
//	values:
//	  limit: 10
//	assertions:
//	  - type: params
//	    params: []
//	  - type: projection
//	    source: 0
//	    kind: restricted
//	  - type: sql
//	    sql: "SELECT s0.id, s0.address FROM users AS s0"
//
// sources defaults to the binding names. A case with no bindings selects
// from a single implicit source named "t0".
//
// # Assertion Types
//
//   - compile_error: Compilation fails with code, message containing text
//   - params: Parameter names, in order
//   - projection: Projection kind for a source (full, restricted, deferred, none)
//   - sql: Rendered SQL text and, when given, its arguments
//   - sql_error: Rendering fails with a message containing text
//   - deprecated: Number of deprecated constructs reported
//   - shortcut: The whole-clause shortcut taken (deferred, restricted, none)
//   - equivalent: Another clause compiles to the same fingerprint
//
// Every successful case is also compiled a second time and must produce
// the same fingerprint.
//
// # Golden Snapshots
//
// Snapshot renders a result as indented canonical JSON. Tests compare it
// with testdata/golden/<name>.golden through goldie:
//
//	go test ./internal/harness -update
package harness
