package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseGenerate Phase = "generate" // invocation type synthesis
	PhaseResolve  Phase = "resolve"  // callback resolution and generic binding
	PhaseMarshal  Phase = "marshal"  // slot <-> typed value conversion
	PhaseInvoke   Phase = "invoke"   // forwarding a captured call
	PhaseNaming   Phase = "naming"   // unique name allocation
)

// Kind categorizes the error
type Kind string

const (
	KindNoTarget        Kind = "no_target"
	KindTypeMismatch    Kind = "type_mismatch"
	KindArityMismatch   Kind = "arity_mismatch"
	KindCtorMismatch    Kind = "ctor_mismatch"
	KindUnboundParam    Kind = "unbound_type_param"
	KindBindingConflict Kind = "binding_conflict"
	KindUnsupported     Kind = "unsupported"
	KindNilPointer      Kind = "nil_pointer"
	KindNotFound        Kind = "not_found"
	KindInvalidInput    Kind = "invalid_input"
	KindOutOfBounds     Kind = "out_of_bounds"
)

// Error is the structured error type used throughout the library
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	GoType string
	Method string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.Method != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.Method != "" {
			b.WriteString("method ")
			b.WriteString(e.Method)
			b.WriteString(", Go type ")
			b.WriteString(e.GoType)
		} else if e.Method != "" {
			b.WriteString("method ")
			b.WriteString(e.Method)
		} else {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.Method != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the component path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// Method sets the method name
func (b *Builder) Method(m string) *Builder {
	b.err.Method = m
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, goType, want string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Path:   path,
		GoType: goType,
		Detail: fmt.Sprintf("not convertible to %s", want),
	}
}

// NoTarget creates the call-time "no destination resolves" error
func NoTarget(method string) *Error {
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   KindNoTarget,
		Method: method,
		Detail: "no target available for invocation",
	}
}

// ArityMismatch creates an argument count mismatch error
func ArityMismatch(phase Phase, method string, want, got int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindArityMismatch,
		Method: method,
		Detail: fmt.Sprintf("expected %d arguments, got %d", want, got),
	}
}

// UnboundParam creates an error for a type parameter with no binding
func UnboundParam(phase Phase, param string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnboundParam,
		Detail: fmt.Sprintf("type parameter %s has no binding", param),
		Value:  param,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// NilPointer creates a nil pointer error
func NilPointer(phase Phase, path []string, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Path:   path,
		GoType: goType,
		Detail: "unexpected nil",
	}
}
