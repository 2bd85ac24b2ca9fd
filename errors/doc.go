// Package errors provides structured error types for the callforge library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: component path, Go type and method names, and
// cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
//		Path("arg[2]").
//		GoType("string").
//		Detail("cannot convert string to int").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NoTarget("Repository.Save")
//	err := errors.ArityMismatch(errors.PhaseInvoke, "Save", 2, 3)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
