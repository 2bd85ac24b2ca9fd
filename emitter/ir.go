package emitter

import (
	"reflect"
)

// LocalID identifies a declared local within one program.
type LocalID int

// Local is the declaration record for one local variable.
type Local struct {
	Type reflect.Type
	Name string
}

// Expr is a described expression. Expressions are pure data; nothing runs
// until the program is materialized.
type Expr interface{ expr() }

// Literal is a literal value.
type Literal struct {
	Value any
}

// LoadSlot reads the untyped value of argument slot Index.
type LoadSlot struct {
	Index int
}

// LoadTarget reads the invocation's current destination.
type LoadTarget struct{}

// LoadLocal reads a declared local.
type LoadLocal struct {
	ID LocalID
}

// AddrOf takes the address of a declared local, for by-reference passing.
type AddrOf struct {
	ID LocalID
}

// Convert coerces the operand to an exact type.
type Convert struct {
	X  Expr
	To reflect.Type
}

// FuncRef references a resolved callable.
type FuncRef struct {
	Fn reflect.Value
}

func (Literal) expr()    {}
func (LoadSlot) expr()   {}
func (LoadTarget) expr() {}
func (LoadLocal) expr()  {}
func (AddrOf) expr()     {}
func (Convert) expr()    {}
func (FuncRef) expr()    {}

// Stmt is a described statement.
type Stmt interface{ stmt() }

// DeclareLocal declares local ID, optionally initialized from Init.
type DeclareLocal struct {
	Init Expr // may be nil
	ID   LocalID
}

// Call invokes Fn with Args. When Result is >= 0 the call's first return
// value is stored into that local. When ErrorsOut is set the call's trailing
// return value is an error that, when non-nil, becomes the program's failure
// after any enclosing cleanup regions have run.
type Call struct {
	Fn        Expr
	Args      []Expr
	Result    LocalID
	ErrorsOut bool
}

// StoreSlot writes the operand back into argument slot Index as untyped
// storage.
type StoreSlot struct {
	X     Expr
	Index int
}

// SetResult stores the operand through the invocation's result side channel.
type SetResult struct {
	X Expr
}

// ReportNoTarget reports the call-time "no destination" failure for Method.
type ReportNoTarget struct {
	Method string
}

// Protected runs Body, then Cleanup. Cleanup runs regardless of Body's
// outcome, including failure and panic; Body's failure propagates unchanged
// after Cleanup finishes.
type Protected struct {
	Body    []Stmt
	Cleanup []Stmt
}

func (DeclareLocal) stmt()   {}
func (Call) stmt()           {}
func (StoreSlot) stmt()      {}
func (SetResult) stmt()      {}
func (ReportNoTarget) stmt() {}
func (Protected) stmt()      {}

// Program is a fully described forwarding routine, ready to materialize.
type Program struct {
	Name   string
	Locals []Local
	Body   []Stmt
}

// Builder accumulates a program description.
type Builder struct {
	prog Program
}

// NewBuilder creates a builder for a program with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{prog: Program{Name: name}}
}

// Declare allocates a local of type t and returns its ID. The declaration
// statement itself is emitted by the caller, keeping statement order explicit.
func (b *Builder) Declare(t reflect.Type, name string) LocalID {
	id := LocalID(len(b.prog.Locals))
	b.prog.Locals = append(b.prog.Locals, Local{Type: t, Name: name})
	return id
}

// Emit appends statements to the program body.
func (b *Builder) Emit(stmts ...Stmt) {
	b.prog.Body = append(b.prog.Body, stmts...)
}

// Build returns the accumulated program.
func (b *Builder) Build() *Program {
	p := b.prog
	return &p
}
