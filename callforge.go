package callforge

// Invocation is the base contract every generated invocation type satisfies.
// One Invocation represents exactly one captured, in-flight call and must not
// be shared across goroutines while the call is running.
type Invocation interface {
	// GetArgumentValue returns the untyped value stored in slot index.
	GetArgumentValue(index int) any

	// SetArgumentValue overwrites the untyped value stored in slot index.
	SetArgumentValue(index int, value any)

	// SetReturnValue stores the forwarded call's result.
	SetReturnValue(value any)

	// ReturnValue returns the stored result, or nil when the call declared none.
	ReturnValue() any

	// ThrowOnNoTarget returns the call-time failure reported when no
	// destination resolves for this invocation.
	ThrowOnNoTarget() error

	// Target returns the current destination the call will be delivered to.
	Target() any

	// Proxy returns the owning proxy this invocation was captured through.
	Proxy() any
}

// TargetMutator is the optional capability making an invocation's destination
// swappable after construction. Generated types expose both routines together
// or neither.
type TargetMutator interface {
	// ChangeInvocationTarget replaces this invocation's destination. The new
	// target is converted to the declared destination type; subsequent
	// forwarding calls on the same instance are delivered to it.
	ChangeInvocationTarget(target any) error

	// ChangeProxyTarget replaces the backing object of the owning proxy,
	// affecting every future invocation captured through that proxy.
	ChangeProxyTarget(target any) error
}

// ProxyTargetAccessor is implemented by proxies whose long-lived backing
// object can be swapped. ChangeProxyTarget delegates through it.
type ProxyTargetAccessor interface {
	ChangeTarget(target any) error
}

// NamingScope supplies collision-free names for generated types. It must be
// safe for concurrent generation of different proxy types.
type NamingScope interface {
	GetUniqueName(suggested string) string
}
