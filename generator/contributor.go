package generator

import (
	"github.com/callforge/callforge/descriptor"
)

// CtorPlan describes the constructor-argument shape of a generated type
// against the base constructor contract (target, proxy, args).
type CtorPlan struct {
	// HasTargetField is set when the generated type owns a destination
	// field filled from the constructor's target argument. Destination-less
	// shapes (interface-only proxies, mixins) leave it false; their
	// constructor ignores the target argument.
	HasTargetField bool
}

// Contributor overrides constructor-argument derivation and callback
// resolution for invocation shapes without a simple "field holding the
// destination". A Contributor is a strategy passed into generation, never a
// subclass of the synthesizer.
type Contributor interface {
	// ConstructorArgs derives the constructor plan. An error here fails the
	// whole generation request.
	ConstructorArgs(ctx *Context) (CtorPlan, error)

	// ResolveCallback supplies the deliverable call for the given binding.
	// Returning (nil, nil) means no callback resolves; the generated type
	// then reports the no-target failure on every forwarding call.
	ResolveCallback(ctx *Context, binding descriptor.Binding) (*Callback, error)
}

// defaultContributor implements the "destination field + base signature"
// shape used when no Contributor is supplied.
type defaultContributor struct{}

func (defaultContributor) ConstructorArgs(*Context) (CtorPlan, error) {
	return CtorPlan{HasTargetField: true}, nil
}

func (defaultContributor) ResolveCallback(ctx *Context, binding descriptor.Binding) (*Callback, error) {
	if ctx.Fallback == nil {
		return nil, nil
	}
	if binding != nil {
		return ctx.Fallback.bind(binding)
	}
	return ctx.Fallback, nil
}
