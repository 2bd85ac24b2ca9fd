package generator

import (
	"reflect"
	"strconv"
	"strings"

	callforge "github.com/callforge/callforge"
	"github.com/callforge/callforge/descriptor"
	"github.com/callforge/callforge/emitter"
	"github.com/callforge/callforge/errors"
	"github.com/callforge/callforge/invocation"
	"github.com/callforge/callforge/naming"
)

// Context carries one generation request.
type Context struct {
	// Method is the descriptor of the intercepted method.
	Method *descriptor.Method

	// TargetType is the declared destination type. Required when
	// MutableTarget is set or a target-bound callback is used; may be nil
	// for destination-less contributor shapes.
	TargetType reflect.Type

	// Fallback is the optional callback reference delivered when no
	// Contributor overrides resolution.
	Fallback *Callback

	// MutableTarget requests the target-mutation capability on the
	// generated type.
	MutableTarget bool

	// Contributor optionally overrides constructor-argument derivation and
	// callback resolution.
	Contributor Contributor

	// Naming supplies collision-free type names. A nil scope gets a
	// private one.
	Naming callforge.NamingScope
}

// GeneratedType is a fully described invocation type: constructor, a
// materialized forwarding routine, and, when requested, the target-mutation
// capability. Created once per (method, strategy) pair and reused for every
// proxy instance of that method.
type GeneratedType struct {
	name       string
	method     *descriptor.Method
	targetType reflect.Type
	ctor       CtorPlan
	callback   *Callback
	mutable    bool

	// Open types defer program construction to Instantiate.
	contributor Contributor
	fallback    *Callback

	program *emitter.Program
	routine emitter.Routine
}

// Generate synthesizes the invocation type for ctx. Generation either
// completes every step or fails wholesale; no partially attached capability
// is ever observable.
func Generate(ctx *Context) (*GeneratedType, error) {
	if ctx == nil || ctx.Method == nil {
		return nil, errors.NilPointer(errors.PhaseGenerate, nil, "generation context")
	}
	if ctx.MutableTarget && ctx.TargetType == nil {
		return nil, errors.New(errors.PhaseGenerate, errors.KindInvalidInput).
			Method(ctx.Method.FullName()).
			Detail("target mutation requires a declared target type").
			Build()
	}

	scope := ctx.Naming
	if scope == nil {
		scope = naming.NewScope()
	}
	name := scope.GetUniqueName(suggestedName(ctx.Method))

	contributor := ctx.Contributor
	if contributor == nil {
		contributor = defaultContributor{}
	}

	plan, err := contributor.ConstructorArgs(ctx)
	if err != nil {
		return nil, errors.New(errors.PhaseGenerate, errors.KindCtorMismatch).
			Method(ctx.Method.FullName()).
			Cause(err).
			Detail("contributor cannot supply constructor arguments").
			Build()
	}

	gt := &GeneratedType{
		name:        name,
		method:      ctx.Method,
		targetType:  ctx.TargetType,
		ctor:        plan,
		mutable:     ctx.MutableTarget,
		contributor: contributor,
		fallback:    ctx.Fallback,
	}

	if ctx.Method.IsOpen() {
		// Open generic: the type carries its parameters; the program is
		// built per instantiation.
		debugf("generated open type %s (params %v)", name, ctx.Method.TypeParams)
		return gt, nil
	}

	cb, err := contributor.ResolveCallback(ctx, nil)
	if err != nil {
		return nil, err
	}
	if cb.IsGeneric() {
		return nil, errors.New(errors.PhaseResolve, errors.KindInvalidInput).
			Method(ctx.Method.FullName()).
			Detail("generic callback for a non-generic method").
			Build()
	}
	if err := gt.finish(ctx.Method, cb); err != nil {
		return nil, err
	}

	debugf("generated %s: callback=%v mutable=%v", name, cb != nil, ctx.MutableTarget)
	return gt, nil
}

// finish builds and materializes the forwarding routine for a closed method.
func (g *GeneratedType) finish(m *descriptor.Method, cb *Callback) error {
	prog, err := buildForwardProgram(g.name, m, cb)
	if err != nil {
		return err
	}
	routine, err := emitter.Materialize(prog)
	if err != nil {
		return err
	}
	g.callback = cb
	g.program = prog
	g.routine = routine
	return nil
}

// Name returns the unique name of the generated type.
func (g *GeneratedType) Name() string { return g.name }

// Method returns the method descriptor the type was generated for.
func (g *GeneratedType) Method() *descriptor.Method { return g.method }

// IsOpen reports whether the type still carries unbound type parameters.
func (g *GeneratedType) IsOpen() bool { return g.method.IsOpen() }

// IsMutable reports whether the type exposes the target-mutation capability.
func (g *GeneratedType) IsMutable() bool { return g.mutable }

// HasCallback reports whether a deliverable call resolved at generation.
// Closed types without one report the no-target failure on every call.
func (g *GeneratedType) HasCallback() bool { return g.callback != nil }

// Program returns the emitted forwarding program, nil for open types.
func (g *GeneratedType) Program() *emitter.Program { return g.program }

// Instantiate closes an open type over binding, resolving the callback
// against the bound form and materializing the forwarding routine. The
// binding must cover the declared type parameters exactly.
func (g *GeneratedType) Instantiate(binding descriptor.Binding) (*GeneratedType, error) {
	if !g.IsOpen() {
		return g, nil
	}
	declared := make(map[string]bool, len(g.method.TypeParams))
	for _, p := range g.method.TypeParams {
		declared[p] = true
	}
	for k := range binding {
		if !declared[k] {
			return nil, errors.New(errors.PhaseResolve, errors.KindBindingConflict).
				Method(g.method.FullName()).
				Detail("binding names undeclared type parameter %s", k).
				Build()
		}
	}

	closed, err := g.method.Instantiate(binding)
	if err != nil {
		return nil, err
	}

	ctx := &Context{
		Method:        closed,
		TargetType:    g.targetType,
		Fallback:      g.fallback,
		MutableTarget: g.mutable,
	}
	cb, err := g.contributor.ResolveCallback(ctx, binding)
	if err != nil {
		return nil, err
	}
	if cb.IsGeneric() {
		cb, err = cb.bind(binding)
		if err != nil {
			return nil, err
		}
	}

	inst := &GeneratedType{
		name:        g.name,
		method:      closed,
		targetType:  g.targetType,
		ctor:        g.ctor,
		mutable:     g.mutable,
		contributor: g.contributor,
		fallback:    g.fallback,
	}
	if err := inst.finish(closed, cb); err != nil {
		return nil, err
	}
	return inst, nil
}

// New constructs one invocation instance: the generated constructor. args
// becomes the slot storage and must match the method's parameter count.
func (g *GeneratedType) New(target, proxy any, args []any) (callforge.Invocation, error) {
	if g.IsOpen() {
		return nil, errors.New(errors.PhaseInvoke, errors.KindInvalidInput).
			Method(g.method.FullName()).
			Detail("open generic type must be instantiated before use").
			Build()
	}
	if len(args) != len(g.method.Params) {
		return nil, errors.ArityMismatch(errors.PhaseInvoke, g.method.FullName(), len(g.method.Params), len(args))
	}
	if !g.ctor.HasTargetField {
		target = nil
	}
	if g.mutable {
		return invocation.NewMutable(g.method.FullName(), target, proxy, args, g.targetType), nil
	}
	return invocation.New(g.method.FullName(), target, proxy, args), nil
}

// Forward delivers the captured call to the resolved destination, reporting
// the result through the invocation's side channel. By-reference slots are
// written back even when the forwarded call fails; the failure itself
// propagates unchanged.
func (g *GeneratedType) Forward(inv callforge.Invocation) error {
	frame, ok := inv.(emitter.Frame)
	if !ok {
		return errors.New(errors.PhaseInvoke, errors.KindInvalidInput).
			Method(g.method.FullName()).
			Detail("invocation %T does not expose a call frame", inv).
			Build()
	}
	if g.routine == nil {
		return errors.New(errors.PhaseInvoke, errors.KindInvalidInput).
			Method(g.method.FullName()).
			Detail("type has no materialized routine").
			Build()
	}
	return g.routine(frame)
}

// buildForwardProgram describes the forwarding routine for a closed method.
func buildForwardProgram(name string, m *descriptor.Method, cb *Callback) (*emitter.Program, error) {
	b := emitter.NewBuilder(name)

	if cb == nil {
		// Deliberate runtime failure path: the type is constructible, its
		// target may be mutated later, but forwarding reports no-target.
		b.Emit(emitter.ReportNoTarget{Method: m.FullName()})
		return b.Build(), nil
	}

	fn := cb.Fn
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		return nil, errors.New(errors.PhaseResolve, errors.KindInvalidInput).
			Method(m.FullName()).
			Detail("resolved callback is not a function").
			Build()
	}
	ft := fn.Type()

	var args []emitter.Expr
	argOffset := 0
	if cb.BoundToTarget {
		if ft.NumIn() == 0 {
			return nil, errors.New(errors.PhaseResolve, errors.KindCtorMismatch).
				Method(m.FullName()).
				Detail("target-bound callback declares no receiver parameter").
				Build()
		}
		args = append(args, emitter.Convert{X: emitter.LoadTarget{}, To: ft.In(0)})
		argOffset = 1
	}
	if ft.NumIn()-argOffset != len(m.Params) && !ft.IsVariadic() {
		return nil, errors.ArityMismatch(errors.PhaseResolve, m.FullName(), len(m.Params), ft.NumIn()-argOffset)
	}

	// Every parameter reads its slot into an exactly-typed local, in
	// ascending slot order. By-ref parameters pass the local's address and
	// record a write-back; value parameters pass the local itself.
	var writebacks []emitter.Stmt
	var decls []emitter.Stmt
	for i, p := range m.Params {
		pt, err := p.Type.Resolve(nil)
		if err != nil {
			return nil, err
		}
		if p.ByRef {
			if pt.Kind() != reflect.Pointer {
				return nil, errors.New(errors.PhaseGenerate, errors.KindInvalidInput).
					Method(m.FullName()).
					GoType(pt.String()).
					Detail("by-ref parameter %d must be pointer typed", i).
					Build()
			}
			elem := pt.Elem()
			loc := b.Declare(elem, localName("a", i, p.Name))
			decls = append(decls, emitter.DeclareLocal{
				ID:   loc,
				Init: emitter.Convert{X: emitter.LoadSlot{Index: i}, To: elem},
			})
			args = append(args, emitter.AddrOf{ID: loc})
			writebacks = append(writebacks, emitter.StoreSlot{Index: i, X: emitter.LoadLocal{ID: loc}})
		} else {
			loc := b.Declare(pt, localName("a", i, p.Name))
			decls = append(decls, emitter.DeclareLocal{
				ID:   loc,
				Init: emitter.Convert{X: emitter.LoadSlot{Index: i}, To: pt},
			})
			args = append(args, emitter.LoadLocal{ID: loc})
		}
	}

	call := emitter.Call{
		Fn:        emitter.FuncRef{Fn: fn},
		Args:      args,
		Result:    -1,
		ErrorsOut: m.ReturnsError,
	}

	var body []emitter.Stmt
	if m.Result != nil {
		rt, err := m.Result.Resolve(nil)
		if err != nil {
			return nil, err
		}
		res := b.Declare(rt, "ret")
		call.Result = res
		body = append(body, call, emitter.SetResult{X: emitter.LoadLocal{ID: res}})
	} else {
		body = append(body, call)
	}

	b.Emit(decls...)
	if len(writebacks) > 0 {
		// Protected region: write-back runs regardless of the call's
		// outcome, including panic.
		b.Emit(emitter.Protected{Body: body, Cleanup: writebacks})
	} else {
		b.Emit(body...)
	}

	return b.Build(), nil
}

func suggestedName(m *descriptor.Method) string {
	return strings.ReplaceAll(m.FullName(), ".", "_") + "Invocation"
}

func localName(prefix string, i int, name string) string {
	if name != "" {
		return name
	}
	return prefix + strconv.Itoa(i)
}
