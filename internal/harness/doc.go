// Package harness runs convergence scenarios against the reconciler.
//
// A scenario describes two replicas' views of a scene and the edit context
// of the local one, then states what the merge must produce.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: colliding_keys
//	description: "Concurrent inserts at the same key are both kept"
//	local: ["A:1", "B:1", "C:1"]
//	remote:
//	  - "B:2"
//	  - id: D
//	    version: 3
//	    nonce: 17
//	    key: a5
//	    deleted: true
//	    payload: {kind: rect, width: 40}
//	edit: {A: dragging}
//	expect:
//	  order: [A, B, C, D]
//	  versions: {B: 2}
//	  deleted: [D]
//	  protected: 0
//	skip_checks: [rereconcile]
//
// Records are either "ID" / "ID:VERSION" shorthands or full mappings.
// Shorthand records default to version 0 and nonce 1, and a shorthand seen
// on both sides is the same record. Missing keys are assigned per side in
// list order, the way a client keys a freshly loaded scene.
//
// # Automatic Checks
//
// Every scenario is also checked for:
//
//   - valid_order: output keys strictly increase
//   - union: every input id appears exactly once
//   - converge: swapping local and remote yields the same scene
//   - rereconcile: merging the result back into the remote side keeps the
//     same id order
//
// converge and rereconcile assume symmetric peers and are skipped when the
// scenario has an edit context. Any check can be skipped by name.
//
// # Golden Traces
//
// RunWithGolden compares the per-record decisions and final keys against
// testdata/golden/{name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
