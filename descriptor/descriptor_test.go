package descriptor

import (
	"reflect"
	"testing"

	stderrors "errors"

	cferrors "github.com/callforge/callforge/errors"
)

type repo struct{}

func (r *repo) Save(key string, n int) (string, error)   { return "", nil }
func (r *repo) Delete(key string) error                  { return nil }
func (r *repo) Ping()                                    {}
func (r *repo) Count() int                               { return 0 }
func (r *repo) Fill(key string, out *string) error       { return nil }
func (r *repo) Multi(a int) (int, string)                { return 0, "" }

type reader interface {
	Read(n int) ([]byte, error)
}

func TestFromMethod_ConcreteReceiver(t *testing.T) {
	m, err := FromMethod(reflect.TypeOf(&repo{}), "Save")
	if err != nil {
		t.Fatalf("FromMethod failed: %v", err)
	}

	if len(m.Params) != 2 {
		t.Fatalf("Params len = %d, want 2", len(m.Params))
	}
	if m.Params[0].Type.Concrete != reflect.TypeOf("") {
		t.Errorf("param 0 = %v, want string", m.Params[0].Type)
	}
	if m.Params[1].Type.Concrete != reflect.TypeOf(0) {
		t.Errorf("param 1 = %v, want int", m.Params[1].Type)
	}
	if m.Result == nil || m.Result.Concrete != reflect.TypeOf("") {
		t.Errorf("Result = %v, want string", m.Result)
	}
	if !m.ReturnsError {
		t.Error("ReturnsError = false, want true")
	}
	if m.FullName() != "repo.Save" {
		t.Errorf("FullName = %q, want repo.Save", m.FullName())
	}
}

func TestFromMethod_Interface(t *testing.T) {
	m, err := FromMethod(reflect.TypeOf((*reader)(nil)).Elem(), "Read")
	if err != nil {
		t.Fatalf("FromMethod failed: %v", err)
	}
	if len(m.Params) != 1 {
		t.Fatalf("Params len = %d, want 1 (no receiver on interface methods)", len(m.Params))
	}
	if m.Result == nil || m.Result.Concrete != reflect.TypeOf([]byte(nil)) {
		t.Errorf("Result = %v, want []byte", m.Result)
	}
}

func TestFromMethod_Shapes(t *testing.T) {
	typ := reflect.TypeOf(&repo{})

	m, err := FromMethod(typ, "Ping")
	if err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if m.Result != nil || m.ReturnsError {
		t.Errorf("Ping: Result=%v ReturnsError=%v, want none", m.Result, m.ReturnsError)
	}

	m, err = FromMethod(typ, "Count")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if m.Result == nil || m.ReturnsError {
		t.Errorf("Count: Result=%v ReturnsError=%v, want value only", m.Result, m.ReturnsError)
	}

	m, err = FromMethod(typ, "Delete")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if m.Result != nil || !m.ReturnsError {
		t.Errorf("Delete: Result=%v ReturnsError=%v, want error only", m.Result, m.ReturnsError)
	}
}

func TestFromMethod_MultipleResults(t *testing.T) {
	_, err := FromMethod(reflect.TypeOf(&repo{}), "Multi")
	if err == nil {
		t.Fatal("expected error for multiple non-error results")
	}
	if !stderrors.Is(err, &cferrors.Error{Phase: cferrors.PhaseGenerate, Kind: cferrors.KindUnsupported}) {
		t.Errorf("err = %v, want [generate] unsupported", err)
	}
}

func TestFromMethod_NotFound(t *testing.T) {
	_, err := FromMethod(reflect.TypeOf(&repo{}), "Missing")
	if err == nil {
		t.Fatal("expected error for missing method")
	}
	if !stderrors.Is(err, &cferrors.Error{Phase: cferrors.PhaseGenerate, Kind: cferrors.KindNotFound}) {
		t.Errorf("err = %v, want [generate] not_found", err)
	}
}

func TestWithByRef(t *testing.T) {
	m, err := FromMethod(reflect.TypeOf(&repo{}), "Fill")
	if err != nil {
		t.Fatalf("FromMethod failed: %v", err)
	}

	ref, err := m.WithByRef(1)
	if err != nil {
		t.Fatalf("WithByRef failed: %v", err)
	}
	if !ref.Params[1].ByRef {
		t.Error("param 1 not marked by-ref")
	}
	if !ref.HasByRef() {
		t.Error("HasByRef = false, want true")
	}
	// Original stays untouched.
	if m.Params[1].ByRef {
		t.Error("WithByRef mutated the original descriptor")
	}

	// Non-pointer parameter cannot be by-ref.
	if _, err := m.WithByRef(0); err == nil {
		t.Error("expected error marking non-pointer parameter by-ref")
	}

	// Out of range.
	if _, err := m.WithByRef(5); err == nil {
		t.Error("expected error for out-of-range index")
	}
}

func TestTypeParams(t *testing.T) {
	m, err := New(
		reflect.TypeOf(&repo{}),
		"Map",
		[]Param{{Type: ParamRef("T")}},
		func() *Type { r := ParamRef("T"); return &r }(),
		false,
		[]string{"T"},
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if !m.IsOpen() {
		t.Fatal("IsOpen = false, want true")
	}

	closed, err := m.Instantiate(Binding{"T": reflect.TypeOf(0)})
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	if closed.IsOpen() {
		t.Error("instantiated descriptor still open")
	}
	if closed.Params[0].Type.Concrete != reflect.TypeOf(0) {
		t.Errorf("param 0 = %v, want int", closed.Params[0].Type)
	}
	if closed.Result.Concrete != reflect.TypeOf(0) {
		t.Errorf("result = %v, want int", closed.Result)
	}

	// Missing binding fails.
	if _, err := m.Instantiate(Binding{}); err == nil {
		t.Error("expected error for missing binding")
	}

	// Original descriptor is untouched.
	if !m.Params[0].Type.IsParam() {
		t.Error("Instantiate mutated the original descriptor")
	}
}

func TestValidate_UndeclaredParam(t *testing.T) {
	_, err := New(
		reflect.TypeOf(&repo{}),
		"Bad",
		[]Param{{Type: ParamRef("U")}},
		nil,
		false,
		[]string{"T"},
	)
	if err == nil {
		t.Fatal("expected error for undeclared type parameter reference")
	}
}

func TestTypeResolve(t *testing.T) {
	ct := Of(reflect.TypeOf("x"))
	rt, err := ct.Resolve(nil)
	if err != nil {
		t.Fatalf("Resolve concrete failed: %v", err)
	}
	if rt != reflect.TypeOf("") {
		t.Errorf("Resolve = %v, want string", rt)
	}

	pt := ParamRef("T")
	if _, err := pt.Resolve(Binding{}); err == nil {
		t.Error("expected error resolving unbound parameter")
	}
	rt, err = pt.Resolve(Binding{"T": reflect.TypeOf(int64(0))})
	if err != nil {
		t.Fatalf("Resolve bound failed: %v", err)
	}
	if rt != reflect.TypeOf(int64(0)) {
		t.Errorf("Resolve = %v, want int64", rt)
	}
}
