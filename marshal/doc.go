// Package marshal is the conversion boundary between untyped argument-slot
// storage and the exactly-typed values a forwarded call needs, in both
// directions. Slot storage stays untyped so interceptors can inspect and
// mutate arguments generically; nothing outside this package converts.
package marshal
