// Package harness runs scripted scenarios against the resource engine.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	resources:                 # inline definitions
//	  - name: items
//	    key: id
//	    fields: [{name: id, kind: string}, {name: name, kind: string}]
//	    searchable: [name]
//	resources_file: ../resources.yaml   # optional, relative to this file
//	without_sample: false      # true skips the built-in "test" resource
//	keys: [item-1, item-2]     # keys handed to created entities in order
//	steps:
//	  - op: create
//	    resource: items
//	    body: {name: alpha}
//	    expect:
//	      result: {id: item-1}
//	  - op: list
//	    resource: items
//	    query: {search: ALP}
//	    expect: {count: 1, items: [{name: alpha}]}
//	  - op: distinct
//	    resource: items
//	    field: secret
//	    expect: {error: not_found, message: Resource not found.}
//	assertions:
//	  - type: final_state
//	    table: items
//	    where: {id: item-1}
//	    expect: {name: alpha}
//
// A step without expect must succeed. Result and item expectations are
// subset matches; values and error messages match exactly.
//
// # Assertion Types
//
//   - trace_contains: an executed op whose args match as a subset
//   - trace_order: first occurrences of ops appear in the given order
//   - trace_count: an op was executed exactly N times
//   - final_state: exactly one row of a table matches where, and its
//     columns match expect (or no row matches, with absent: true)
//
// # Determinism
//
// Every run uses a fresh in-memory SQLite database, a testutil.StepClock
// starting at testutil.Epoch, and the scenario's key list (then key-1,
// key-2, ...). Snapshot renders the trace as canonical JSON for golden
// comparison.
package harness
