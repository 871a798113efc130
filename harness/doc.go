// Package harness runs a matrix of outcome cases against a host backend
// and reports, per case, the expected and observed outcome.
//
// A matrix is a YAML document:
//
//	name: wasi-threads
//	timeout: 10s
//	cases:
//	  - selector: exit
//	    code: 42
//	  - selector: panic_child
//
// Backends isolate every case: the wasm backend instantiates a fresh guest
// process per case and the native backend starts a fresh OS process.
package harness
