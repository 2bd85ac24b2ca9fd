package invocation

import (
	"reflect"

	callforge "github.com/callforge/callforge"
	"github.com/callforge/callforge/errors"
	"github.com/callforge/callforge/marshal"
)

// Instance is one captured, in-flight call: untyped argument slots, the
// result side channel, and references to the destination and the owning
// proxy. It satisfies the base invocation contract and the emitter's Frame.
//
// An Instance must not be used from multiple goroutines concurrently.
type Instance struct {
	method string
	target any
	proxy  any
	slots  []any
	result any
}

// New constructs an instance for one call. args becomes the slot storage;
// the slice is owned by the instance afterwards.
func New(method string, target, proxy any, args []any) *Instance {
	return &Instance{
		method: method,
		target: target,
		proxy:  proxy,
		slots:  args,
	}
}

// GetArgumentValue returns the untyped value stored in slot index.
func (i *Instance) GetArgumentValue(index int) any {
	return i.slots[index]
}

// SetArgumentValue overwrites the untyped value stored in slot index.
func (i *Instance) SetArgumentValue(index int, value any) {
	i.slots[index] = value
}

// ArgumentCount returns the number of argument slots.
func (i *Instance) ArgumentCount() int {
	return len(i.slots)
}

// SetReturnValue stores the forwarded call's result.
func (i *Instance) SetReturnValue(value any) {
	i.result = value
}

// ReturnValue returns the stored result, or nil when none was set.
func (i *Instance) ReturnValue() any {
	return i.result
}

// Target returns the current destination.
func (i *Instance) Target() any {
	return i.target
}

// Proxy returns the owning proxy.
func (i *Instance) Proxy() any {
	return i.proxy
}

// Method returns the full name of the captured method.
func (i *Instance) Method() string {
	return i.method
}

// ThrowOnNoTarget returns the call-time failure reported when no destination
// resolves for this invocation.
func (i *Instance) ThrowOnNoTarget() error {
	return errors.NoTarget(i.method)
}

// Mutable is an Instance whose destination can be swapped after
// construction. Both mutation routines exist together; a generated type
// either produces Mutable instances or plain ones, decided once at
// generation time.
type Mutable struct {
	Instance
	targetType reflect.Type
}

// NewMutable constructs a mutable instance whose destination is declared as
// targetType.
func NewMutable(method string, target, proxy any, args []any, targetType reflect.Type) *Mutable {
	return &Mutable{
		Instance:   *New(method, target, proxy, args),
		targetType: targetType,
	}
}

// ChangeInvocationTarget replaces this invocation's destination with target
// converted to the declared destination type. A plain field swap: it affects
// only subsequent forwarding calls on this instance and performs no locking.
func (m *Mutable) ChangeInvocationTarget(target any) error {
	v, err := marshal.FromSlot(target, m.targetType)
	if err != nil {
		return err
	}
	m.target = v.Interface()
	return nil
}

// ChangeProxyTarget replaces the owning proxy's backing object, affecting
// every future invocation captured through that proxy.
func (m *Mutable) ChangeProxyTarget(target any) error {
	acc, ok := m.proxy.(callforge.ProxyTargetAccessor)
	if !ok {
		return errors.New(errors.PhaseInvoke, errors.KindUnsupported).
			Method(m.method).
			Detail("owning proxy does not support target mutation").
			Build()
	}
	return acc.ChangeTarget(target)
}
