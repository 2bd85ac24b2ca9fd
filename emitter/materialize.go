package emitter

import (
	"fmt"
	"reflect"

	"github.com/callforge/callforge/errors"
	"github.com/callforge/callforge/marshal"
)

// Frame is the runtime surface a materialized routine touches: the base
// contract of one invocation instance.
type Frame interface {
	GetArgumentValue(index int) any
	SetArgumentValue(index int, value any)
	SetReturnValue(value any)
	Target() any
	ThrowOnNoTarget() error
}

// Routine is a materialized program. It is safe to share across invocation
// instances; all per-call state lives on the frame and in locals allocated
// per run.
type Routine func(f Frame) error

type state struct {
	frame  Frame
	locals []reflect.Value // pointers from reflect.New, one per declared local
}

type compiledExpr func(s *state) (reflect.Value, error)
type compiledStmt func(s *state) error

// Materialize lowers a described program into directly executable form.
// The program is verified first: local and slot references must be in range,
// and calls through a resolved FuncRef are checked against the callee's
// signature. Verification failure fails materialization wholesale.
func Materialize(p *Program) (Routine, error) {
	m := &materializer{prog: p}
	seq, err := m.compileSeq(p.Body)
	if err != nil {
		return nil, err
	}
	nLocals := len(p.Locals)
	localTypes := make([]reflect.Type, nLocals)
	for i, l := range p.Locals {
		if l.Type == nil {
			return nil, errors.NilPointer(errors.PhaseGenerate, []string{p.Name, "locals"}, "local type")
		}
		localTypes[i] = l.Type
	}

	debugf("materialized %s: %d locals, %d statements", p.Name, nLocals, len(p.Body))

	return func(f Frame) error {
		s := &state{frame: f, locals: make([]reflect.Value, nLocals)}
		for i, t := range localTypes {
			s.locals[i] = reflect.New(t)
		}
		return seq(s)
	}, nil
}

type materializer struct {
	prog *Program
}

func (m *materializer) compileSeq(stmts []Stmt) (compiledStmt, error) {
	compiled := make([]compiledStmt, len(stmts))
	for i, st := range stmts {
		c, err := m.compileStmt(st)
		if err != nil {
			return nil, err
		}
		compiled[i] = c
	}
	return func(s *state) error {
		for _, c := range compiled {
			if err := c(s); err != nil {
				return err
			}
		}
		return nil
	}, nil
}

func (m *materializer) compileStmt(st Stmt) (compiledStmt, error) {
	switch n := st.(type) {
	case DeclareLocal:
		if err := m.checkLocal(n.ID); err != nil {
			return nil, err
		}
		if n.Init == nil {
			return func(*state) error { return nil }, nil
		}
		init, err := m.compileExpr(n.Init)
		if err != nil {
			return nil, err
		}
		id := n.ID
		localType := m.prog.Locals[id].Type
		return func(s *state) error {
			v, err := init(s)
			if err != nil {
				return err
			}
			return storeLocal(s, id, localType, v)
		}, nil

	case Call:
		return m.compileCall(n)

	case StoreSlot:
		if n.Index < 0 {
			return nil, errors.OutOfBounds(errors.PhaseGenerate, []string{m.prog.Name}, n.Index, 0)
		}
		x, err := m.compileExpr(n.X)
		if err != nil {
			return nil, err
		}
		idx := n.Index
		return func(s *state) error {
			v, err := x(s)
			if err != nil {
				return err
			}
			s.frame.SetArgumentValue(idx, marshal.ToSlot(v))
			return nil
		}, nil

	case SetResult:
		x, err := m.compileExpr(n.X)
		if err != nil {
			return nil, err
		}
		return func(s *state) error {
			v, err := x(s)
			if err != nil {
				return err
			}
			s.frame.SetReturnValue(marshal.ToSlot(v))
			return nil
		}, nil

	case ReportNoTarget:
		return func(s *state) error {
			return s.frame.ThrowOnNoTarget()
		}, nil

	case Protected:
		body, err := m.compileSeq(n.Body)
		if err != nil {
			return nil, err
		}
		cleanup, err := m.compileSeq(n.Cleanup)
		if err != nil {
			return nil, err
		}
		return func(s *state) (err error) {
			// Cleanup runs on success, failure, and panic. A body failure
			// propagates unchanged; a cleanup failure surfaces only when
			// the body succeeded.
			defer func() {
				cerr := cleanup(s)
				if err == nil {
					err = cerr
				}
			}()
			err = body(s)
			return err
		}, nil

	default:
		return nil, errors.Unsupported(errors.PhaseGenerate, fmt.Sprintf("statement %T", st))
	}
}

func (m *materializer) compileCall(n Call) (compiledStmt, error) {
	args := make([]compiledExpr, len(n.Args))
	for i, a := range n.Args {
		c, err := m.compileExpr(a)
		if err != nil {
			return nil, err
		}
		args[i] = c
	}

	var resultType reflect.Type
	if n.Result >= 0 {
		if err := m.checkLocal(n.Result); err != nil {
			return nil, err
		}
		resultType = m.prog.Locals[n.Result].Type
	}

	// A resolved callee is verified against the described arguments before
	// anything runs.
	if ref, ok := n.Fn.(FuncRef); ok {
		if err := m.verifyCallee(ref.Fn, n); err != nil {
			return nil, err
		}
	}

	fn, err := m.compileExpr(n.Fn)
	if err != nil {
		return nil, err
	}

	resultID := n.Result
	errorsOut := n.ErrorsOut
	return func(s *state) error {
		fv, err := fn(s)
		if err != nil {
			return err
		}
		if !fv.IsValid() || fv.Kind() != reflect.Func {
			return errors.New(errors.PhaseInvoke, errors.KindInvalidInput).
				Detail("callee is not a function").
				Build()
		}

		in := make([]reflect.Value, len(args))
		for i, a := range args {
			v, err := a(s)
			if err != nil {
				return err
			}
			if !v.IsValid() {
				// Untyped nil for a typed parameter slot.
				t := fv.Type()
				if t.IsVariadic() && i >= t.NumIn()-1 {
					v = reflect.Zero(t.In(t.NumIn() - 1).Elem())
				} else {
					v = reflect.Zero(t.In(i))
				}
			}
			in[i] = v
		}

		var out []reflect.Value
		ft := fv.Type()
		if ft.IsVariadic() && len(in) == ft.NumIn() && in[len(in)-1].Kind() == reflect.Slice {
			out = fv.CallSlice(in)
		} else {
			out = fv.Call(in)
		}

		if resultID >= 0 && len(out) > 0 {
			if err := storeLocal(s, resultID, resultType, out[0]); err != nil {
				return err
			}
		}
		if errorsOut && len(out) > 0 {
			last := out[len(out)-1]
			if !last.IsNil() {
				// The forwarded call's own failure, propagated unchanged.
				return last.Interface().(error)
			}
		}
		return nil
	}, nil
}

func (m *materializer) compileExpr(e Expr) (compiledExpr, error) {
	switch n := e.(type) {
	case Literal:
		v := reflect.ValueOf(n.Value)
		return func(*state) (reflect.Value, error) { return v, nil }, nil

	case FuncRef:
		if !n.Fn.IsValid() || n.Fn.Kind() != reflect.Func {
			return nil, errors.New(errors.PhaseGenerate, errors.KindInvalidInput).
				Detail("FuncRef does not hold a function").
				Build()
		}
		fn := n.Fn
		return func(*state) (reflect.Value, error) { return fn, nil }, nil

	case LoadSlot:
		if n.Index < 0 {
			return nil, errors.OutOfBounds(errors.PhaseGenerate, []string{m.prog.Name}, n.Index, 0)
		}
		idx := n.Index
		return func(s *state) (reflect.Value, error) {
			return reflect.ValueOf(s.frame.GetArgumentValue(idx)), nil
		}, nil

	case LoadTarget:
		return func(s *state) (reflect.Value, error) {
			return reflect.ValueOf(s.frame.Target()), nil
		}, nil

	case LoadLocal:
		if err := m.checkLocal(n.ID); err != nil {
			return nil, err
		}
		id := n.ID
		return func(s *state) (reflect.Value, error) {
			return s.locals[id].Elem(), nil
		}, nil

	case AddrOf:
		if err := m.checkLocal(n.ID); err != nil {
			return nil, err
		}
		id := n.ID
		return func(s *state) (reflect.Value, error) {
			return s.locals[id], nil
		}, nil

	case Convert:
		if n.To == nil {
			return nil, errors.NilPointer(errors.PhaseGenerate, []string{m.prog.Name}, "conversion type")
		}
		// Slot reads convert straight from untyped storage; everything else
		// converts an already-evaluated value.
		if ls, ok := n.X.(LoadSlot); ok {
			if ls.Index < 0 {
				return nil, errors.OutOfBounds(errors.PhaseGenerate, []string{m.prog.Name}, ls.Index, 0)
			}
			idx, to := ls.Index, n.To
			return func(s *state) (reflect.Value, error) {
				return marshal.FromSlot(s.frame.GetArgumentValue(idx), to)
			}, nil
		}
		x, err := m.compileExpr(n.X)
		if err != nil {
			return nil, err
		}
		to := n.To
		return func(s *state) (reflect.Value, error) {
			v, err := x(s)
			if err != nil {
				return reflect.Value{}, err
			}
			return marshal.Convert(v, to)
		}, nil

	default:
		return nil, errors.Unsupported(errors.PhaseGenerate, fmt.Sprintf("expression %T", e))
	}
}

// verifyCallee statically checks a resolved callee against the call's
// described arguments and outputs.
func (m *materializer) verifyCallee(fn reflect.Value, n Call) error {
	ft := fn.Type()
	if ft.IsVariadic() {
		if len(n.Args) < ft.NumIn()-1 {
			return errors.ArityMismatch(errors.PhaseGenerate, m.prog.Name, ft.NumIn()-1, len(n.Args))
		}
	} else if len(n.Args) != ft.NumIn() {
		return errors.ArityMismatch(errors.PhaseGenerate, m.prog.Name, ft.NumIn(), len(n.Args))
	}

	for i, a := range n.Args {
		at := m.staticType(a)
		if at == nil || ft.IsVariadic() && i >= ft.NumIn()-1 {
			continue
		}
		if !at.AssignableTo(ft.In(i)) {
			return errors.New(errors.PhaseGenerate, errors.KindTypeMismatch).
				Path(m.prog.Name, fmt.Sprintf("arg[%d]", i)).
				GoType(at.String()).
				Detail("not assignable to parameter type %s", ft.In(i)).
				Build()
		}
	}

	if n.ErrorsOut {
		if ft.NumOut() == 0 || ft.Out(ft.NumOut()-1) != errorType {
			return errors.New(errors.PhaseGenerate, errors.KindTypeMismatch).
				Path(m.prog.Name).
				Detail("callee declares no trailing error").
				Build()
		}
	}
	if n.Result >= 0 {
		if ft.NumOut() == 0 || (n.ErrorsOut && ft.NumOut() < 2) {
			return errors.New(errors.PhaseGenerate, errors.KindTypeMismatch).
				Path(m.prog.Name).
				Detail("callee declares no result to capture").
				Build()
		}
	}
	return nil
}

// staticType returns the expression's type when it is known at materialize
// time, nil otherwise.
func (m *materializer) staticType(e Expr) reflect.Type {
	switch n := e.(type) {
	case Convert:
		return n.To
	case AddrOf:
		if int(n.ID) < len(m.prog.Locals) {
			return reflect.PointerTo(m.prog.Locals[n.ID].Type)
		}
	case LoadLocal:
		if int(n.ID) < len(m.prog.Locals) {
			return m.prog.Locals[n.ID].Type
		}
	case Literal:
		if n.Value != nil {
			return reflect.TypeOf(n.Value)
		}
	case FuncRef:
		if n.Fn.IsValid() {
			return n.Fn.Type()
		}
	}
	return nil
}

func (m *materializer) checkLocal(id LocalID) error {
	if id < 0 || int(id) >= len(m.prog.Locals) {
		return errors.OutOfBounds(errors.PhaseGenerate, []string{m.prog.Name, "locals"}, int(id), len(m.prog.Locals))
	}
	return nil
}

func storeLocal(s *state, id LocalID, t reflect.Type, v reflect.Value) error {
	if !v.IsValid() {
		s.locals[id].Elem().Set(reflect.Zero(t))
		return nil
	}
	if v.Type() != t {
		converted, err := marshal.Convert(v, t)
		if err != nil {
			return err
		}
		v = converted
	}
	s.locals[id].Elem().Set(v)
	return nil
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()
