package generator

import (
	"reflect"

	"github.com/callforge/callforge/descriptor"
	"github.com/callforge/callforge/errors"
)

// Callback is a resolved forwarding target: a concrete callable, or a
// generic one bound per instantiation of an open generated type.
type Callback struct {
	// Fn is the concrete callable. Unset when Generic is present.
	Fn reflect.Value

	// Generic produces the callable for a concrete type binding. Used for
	// callbacks whose signature mentions the method's type parameters.
	Generic func(descriptor.Binding) (reflect.Value, error)

	// BoundToTarget marks a callable whose first parameter is the
	// destination (method-expression shape). The forwarding routine then
	// passes the invocation's current target as argument zero.
	BoundToTarget bool
}

// IsGeneric reports whether the callback must be bound before use.
func (c *Callback) IsGeneric() bool {
	return c != nil && c.Generic != nil
}

// bind closes a generic callback over binding; concrete callbacks are
// returned unchanged.
func (c *Callback) bind(binding descriptor.Binding) (*Callback, error) {
	if !c.IsGeneric() {
		return c, nil
	}
	fn, err := c.Generic(binding)
	if err != nil {
		return nil, err
	}
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		return nil, errors.New(errors.PhaseResolve, errors.KindInvalidInput).
			Detail("generic callback produced a non-function").
			Build()
	}
	return &Callback{Fn: fn, BoundToTarget: c.BoundToTarget}, nil
}

// FuncCallback wraps a plain function value as a callback.
func FuncCallback(fn any) (*Callback, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func {
		return nil, errors.New(errors.PhaseResolve, errors.KindInvalidInput).
			Detail("callback must be a function, got %T", fn).
			Build()
	}
	return &Callback{Fn: v}, nil
}

// MethodCallback resolves the named method of targetType as a callback bound
// to the destination. This is the deliverable call of the default "direct
// target call" strategy.
func MethodCallback(targetType reflect.Type, name string) (*Callback, error) {
	if targetType == nil {
		return nil, errors.NilPointer(errors.PhaseResolve, nil, "target type")
	}
	rm, ok := targetType.MethodByName(name)
	if !ok {
		return nil, errors.New(errors.PhaseResolve, errors.KindNotFound).
			GoType(targetType.String()).
			Method(name).
			Detail("method not found on target type").
			Build()
	}

	if targetType.Kind() != reflect.Interface {
		// Concrete receivers expose the method as a function with the
		// receiver as parameter zero.
		return &Callback{Fn: rm.Func, BoundToTarget: true}, nil
	}

	// Interface methods have no Func; build an equivalent dispatcher with
	// the receiver up front.
	ft := rm.Type
	in := make([]reflect.Type, 0, ft.NumIn()+1)
	in = append(in, targetType)
	for i := 0; i < ft.NumIn(); i++ {
		in = append(in, ft.In(i))
	}
	out := make([]reflect.Type, ft.NumOut())
	for i := range out {
		out[i] = ft.Out(i)
	}
	dispatch := reflect.MakeFunc(
		reflect.FuncOf(in, out, ft.IsVariadic()),
		func(args []reflect.Value) []reflect.Value {
			return args[0].Method(rm.Index).Call(args[1:])
		},
	)
	return &Callback{Fn: dispatch, BoundToTarget: true}, nil
}
