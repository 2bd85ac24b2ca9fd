// Package callforge synthesizes, at runtime, a dedicated invocation type for
// each method intercepted by a dynamic proxy.
//
// An invocation type captures one pending call (argument slots, generic type
// bindings, a destination reference) and knows how to deliver the call to the
// real implementation with exact calling semantics, including by-reference
// parameters with guaranteed write-back.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	callforge/           Root package with the base invocation contract and capability interfaces
//	├── generator/       Invocation type synthesizer, callback resolver, contributor hook
//	├── emitter/         "Describe, don't execute" code backend: program IR and materializer
//	├── descriptor/      Immutable method metadata: parameters, by-ref flags, type parameters
//	├── marshal/         Conversion boundary between untyped slots and exactly-typed values
//	├── invocation/      Invocation instances: slot storage, result side channel, target mutation
//	├── naming/          Collision-free name allocation for generated types
//	├── registry/        Table of generated types keyed by (method, strategy), with observers
//	└── errors/          Structured error types for debugging
//
// # Quick Start
//
// Generate an invocation type for a method and forward a call through it:
//
//	repoType := reflect.TypeOf(&Repo{})
//	desc, err := descriptor.FromMethod(repoType, "Save")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cb, err := generator.MethodCallback(repoType, "Save")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	gt, err := generator.Generate(&generator.Context{
//	    Method:     desc,
//	    TargetType: repoType,
//	    Fallback:   cb,
//	    Naming:     naming.NewScope(),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	inv, err := gt.New(repo, proxy, []any{"key", 42})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := gt.Forward(inv); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(inv.ReturnValue())
//
// # Delivery Strategies
//
// A generated type delivers its call through one of three strategies, chosen
// once at generation time:
//
//   - the target's own method (default)
//   - a caller-supplied fallback callback
//   - a Contributor-resolved callback for shapes without a destination field
//
// # Thread Safety
//
// Generation is safe for concurrent use across distinct requests; name
// uniqueness is delegated to the naming scope. A single Invocation instance
// represents one in-flight call and is not safe for concurrent use. Target
// mutation routines are plain field swaps with no internal locking.
package callforge
