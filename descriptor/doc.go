// Package descriptor models the immutable metadata of an intercepted method:
// ordered parameters with by-ref flags, an optional result, the Go-idiomatic
// trailing error, and open type parameters closed later by a Binding.
package descriptor
