// Package harness runs multi-context session scenarios.
//
// A scenario declares several execution contexts that share one store and
// drives them step by step: bootstrap, mutate, tick, close. Every step and
// every event a context's bus delivers is recorded in a trace, which is
// checked by assertions and compared against golden files.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: state_sync
//	description: "A change made in one context reaches the other"
//	contexts:
//	  - name: tab-a
//	    id: "1"
//	  - name: tab-b
//	    id: "2"
//	steps:
//	  - { context: tab-a, action: bootstrap }
//	  - { context: tab-b, action: bootstrap }
//	  - { context: tab-a, action: set, key: color, value: red }
//	  - { context: tab-b, action: tick }
//	assertions:
//	  - type: trace_contains
//	    context: tab-b
//	    topic: hangout.data.stateChanged
//	    payload: { added: { color: red } }
//	  - type: final_state
//	    state: { color: red }
//
// # Steps
//
// bootstrap, close, tick, set, clear, submit, send, notice, dismiss,
// show_app and hide_app act on one context; advance moves the shared clock
// forward by ms milliseconds. A step may declare expect_error with the
// error code it must fail with.
//
// # Assertion Types
//
//   - trace_contains: the context saw an event on the topic whose payload
//     contains the given fields
//   - trace_order: the context saw the topics in this relative order
//   - trace_count: the context saw exactly count events on the topic
//   - final_state: the stored shared state equals the given mapping
//   - participants: the stored participant list has exactly these ids
//
// # Deterministic Testing
//
// Scenarios run with a deterministic clock, fixed participant ids and no
// background loop, on a fresh in-memory database. The same scenario always
// produces the same trace, byte for byte once canonicalized.
package harness
