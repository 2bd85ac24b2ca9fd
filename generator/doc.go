// Package generator is the invocation type synthesizer. Given a method
// descriptor, a target type, an optional callback reference, the
// target-mutation flag and an optional Contributor, Generate produces a
// GeneratedType: constructor, materialized forwarding routine, and the
// capability variant chosen once at generation time.
//
// # Generation Steps
//
//  1. Select the capability variant: mutable target iff requested.
//  2. Allocate a deterministic name from declaring type and method,
//     disambiguated through the naming scope.
//  3. Mirror the method's type parameters; open methods yield open types
//     closed later via Instantiate.
//  4. Derive the constructor plan from the default "destination field +
//     base signature" shape, or from the Contributor.
//  5. Resolve the callback and describe the forwarding routine through the
//     emitter.
//  6. Materialize. Any failure aborts the whole request.
//
// When no callback resolves, generation still succeeds: the type is
// constructible (defensively, or for later target mutation) and every
// forwarding call reports the no-target failure without touching a single
// argument slot.
package generator
