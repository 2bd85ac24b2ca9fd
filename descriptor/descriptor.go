package descriptor

import (
	"reflect"
	"strings"

	"github.com/callforge/callforge/errors"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Type describes a parameter or result type: either a concrete reflect.Type
// or a reference to one of the method's type parameters, closed later by a
// Binding.
type Type struct {
	Concrete reflect.Type
	Param    string
}

// Of wraps a concrete reflect.Type.
func Of(rt reflect.Type) Type {
	return Type{Concrete: rt}
}

// ParamRef references a named type parameter of the method.
func ParamRef(name string) Type {
	return Type{Param: name}
}

// IsParam reports whether the type is an open type-parameter reference.
func (t Type) IsParam() bool {
	return t.Param != ""
}

// Resolve returns the concrete type, consulting binding for type-parameter
// references.
func (t Type) Resolve(binding Binding) (reflect.Type, error) {
	if !t.IsParam() {
		if t.Concrete == nil {
			return nil, errors.NilPointer(errors.PhaseResolve, nil, "descriptor.Type")
		}
		return t.Concrete, nil
	}
	rt, ok := binding[t.Param]
	if !ok || rt == nil {
		return nil, errors.UnboundParam(errors.PhaseResolve, t.Param)
	}
	return rt, nil
}

func (t Type) String() string {
	if t.IsParam() {
		return t.Param
	}
	if t.Concrete == nil {
		return "<nil>"
	}
	return t.Concrete.String()
}

// Binding closes a method's type parameters to concrete types.
type Binding map[string]reflect.Type

// Param is one ordered method parameter.
type Param struct {
	Type Type
	Name string

	// ByRef marks a pointer parameter whose pointee must be read from its
	// argument slot before the call and written back after, regardless of
	// the call's outcome.
	ByRef bool
}

// Method is immutable metadata for an intercepted method. Instances are
// shared read-only across every generation request for the same method;
// mutating accessors return copies.
type Method struct {
	Declaring    reflect.Type
	Name         string
	Params       []Param
	Result       *Type // nil means the method declares no value
	ReturnsError bool
	TypeParams   []string
}

// New builds a method descriptor from explicit parts and validates it.
func New(declaring reflect.Type, name string, params []Param, result *Type, returnsError bool, typeParams []string) (*Method, error) {
	m := &Method{
		Declaring:    declaring,
		Name:         name,
		Params:       append([]Param(nil), params...),
		ReturnsError: returnsError,
		TypeParams:   append([]string(nil), typeParams...),
	}
	if result != nil {
		r := *result
		m.Result = &r
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// FromMethod builds a descriptor for the named method of declaring via
// reflection. No parameter is marked by-ref; use WithByRef afterwards.
func FromMethod(declaring reflect.Type, name string) (*Method, error) {
	if declaring == nil {
		return nil, errors.NilPointer(errors.PhaseGenerate, nil, "declaring type")
	}
	rm, ok := declaring.MethodByName(name)
	if !ok {
		return nil, errors.New(errors.PhaseGenerate, errors.KindNotFound).
			GoType(declaring.String()).
			Method(name).
			Detail("method not found").
			Build()
	}

	ft := rm.Type
	// Methods on concrete types carry the receiver as input 0.
	start := 0
	if declaring.Kind() != reflect.Interface {
		start = 1
	}

	m := &Method{
		Declaring: declaring,
		Name:      name,
	}
	for i := start; i < ft.NumIn(); i++ {
		m.Params = append(m.Params, Param{Type: Of(ft.In(i))})
	}

	switch ft.NumOut() {
	case 0:
	case 1:
		if ft.Out(0) == errorType {
			m.ReturnsError = true
		} else {
			r := Of(ft.Out(0))
			m.Result = &r
		}
	case 2:
		if ft.Out(1) != errorType {
			return nil, errors.Unsupported(errors.PhaseGenerate, "multiple non-error results")
		}
		r := Of(ft.Out(0))
		m.Result = &r
		m.ReturnsError = true
	default:
		return nil, errors.Unsupported(errors.PhaseGenerate, "multiple non-error results")
	}

	return m, nil
}

// WithByRef returns a copy with the given parameter positions marked by-ref.
// Each position must hold a pointer-typed parameter.
func (m *Method) WithByRef(indices ...int) (*Method, error) {
	c := m.clone()
	for _, i := range indices {
		if i < 0 || i >= len(c.Params) {
			return nil, errors.OutOfBounds(errors.PhaseGenerate, []string{"params"}, i, len(c.Params))
		}
		p := c.Params[i]
		if !p.Type.IsParam() && p.Type.Concrete.Kind() != reflect.Pointer {
			return nil, errors.New(errors.PhaseGenerate, errors.KindInvalidInput).
				Method(m.Name).
				GoType(p.Type.String()).
				Detail("by-ref parameter %d must be pointer typed", i).
				Build()
		}
		c.Params[i].ByRef = true
	}
	return c, nil
}

// WithTypeParams returns a copy declaring the given type parameters open.
func (m *Method) WithTypeParams(names ...string) (*Method, error) {
	c := m.clone()
	c.TypeParams = append([]string(nil), names...)
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// IsOpen reports whether the method declares unbound type parameters.
func (m *Method) IsOpen() bool {
	return len(m.TypeParams) > 0
}

// HasByRef reports whether any parameter is marked by-ref.
func (m *Method) HasByRef() bool {
	for _, p := range m.Params {
		if p.ByRef {
			return true
		}
	}
	return false
}

// FullName returns "DeclaringType.Method".
func (m *Method) FullName() string {
	if m.Declaring == nil {
		return m.Name
	}
	return typeBaseName(m.Declaring) + "." + m.Name
}

// Instantiate closes every type-parameter reference using binding and
// returns the resulting closed descriptor. Fails when a declared parameter
// is missing from the binding.
func (m *Method) Instantiate(binding Binding) (*Method, error) {
	if !m.IsOpen() {
		return m, nil
	}
	c := m.clone()
	for _, name := range m.TypeParams {
		if _, ok := binding[name]; !ok {
			return nil, errors.UnboundParam(errors.PhaseResolve, name)
		}
	}
	for i, p := range c.Params {
		rt, err := p.Type.Resolve(binding)
		if err != nil {
			return nil, err
		}
		c.Params[i].Type = Of(rt)
	}
	if c.Result != nil {
		rt, err := c.Result.Resolve(binding)
		if err != nil {
			return nil, err
		}
		r := Of(rt)
		c.Result = &r
	}
	c.TypeParams = nil
	return c, nil
}

func (m *Method) clone() *Method {
	c := &Method{
		Declaring:    m.Declaring,
		Name:         m.Name,
		Params:       append([]Param(nil), m.Params...),
		ReturnsError: m.ReturnsError,
		TypeParams:   append([]string(nil), m.TypeParams...),
	}
	if m.Result != nil {
		r := *m.Result
		c.Result = &r
	}
	return c
}

func (m *Method) validate() error {
	declared := make(map[string]bool, len(m.TypeParams))
	for _, name := range m.TypeParams {
		if declared[name] {
			return errors.New(errors.PhaseGenerate, errors.KindInvalidInput).
				Detail("duplicate type parameter %s", name).
				Build()
		}
		declared[name] = true
	}
	for i, p := range m.Params {
		if p.Type.IsParam() && !declared[p.Type.Param] {
			return errors.New(errors.PhaseGenerate, errors.KindInvalidInput).
				Method(m.Name).
				Detail("parameter %d references undeclared type parameter %s", i, p.Type.Param).
				Build()
		}
		if !p.Type.IsParam() && p.Type.Concrete == nil {
			return errors.NilPointer(errors.PhaseGenerate, []string{"params"}, "parameter type")
		}
	}
	if m.Result != nil && m.Result.IsParam() && !declared[m.Result.Param] {
		return errors.New(errors.PhaseGenerate, errors.KindInvalidInput).
			Method(m.Name).
			Detail("result references undeclared type parameter %s", m.Result.Param).
			Build()
	}
	return nil
}

func typeBaseName(rt reflect.Type) string {
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt.Name() != "" {
		return rt.Name()
	}
	// Anonymous types fall back to their full string form.
	s := rt.String()
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[i+1:]
	}
	return s
}
