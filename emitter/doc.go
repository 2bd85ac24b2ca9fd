// Package emitter is the code-emission backend: a pure "describe, don't
// execute" API for building forwarding routines as data, plus a materializer
// that lowers a described program into a directly executable routine.
//
// # Two Phases
//
// Generation builds a Program out of plain statement and expression nodes:
// local declarations, slot reads, conversions, calls, protected/cleanup
// regions, slot write-backs. Nothing runs during this phase, which keeps
// generation logic pure and testable.
//
// Materialize verifies the description (local and slot references, callee
// signatures for resolved callees) and compiles it into a chain of closures
// executed against a Frame. Verification failure fails materialization
// wholesale; a verified Routine performs no per-call signature checks.
//
// # Frame
//
// A Frame is the runtime surface of one invocation instance: untyped
// argument slots, the result side channel, the current target, and the
// no-target failure operation. The materialized routine is stateless and
// shared; every per-call value lives on the frame or in locals allocated
// per run.
package emitter
