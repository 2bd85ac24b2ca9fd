package invocation

import (
	"reflect"
	"testing"

	stderrors "errors"

	cferrors "github.com/callforge/callforge/errors"
)

func TestInstance_Slots(t *testing.T) {
	inv := New("repo.Save", nil, nil, []any{"key", 42})

	if inv.ArgumentCount() != 2 {
		t.Fatalf("ArgumentCount = %d, want 2", inv.ArgumentCount())
	}
	if inv.GetArgumentValue(0) != "key" || inv.GetArgumentValue(1) != 42 {
		t.Errorf("slots = %v %v, want key 42", inv.GetArgumentValue(0), inv.GetArgumentValue(1))
	}

	inv.SetArgumentValue(1, 43)
	if inv.GetArgumentValue(1) != 43 {
		t.Errorf("slot 1 = %v, want 43 after SetArgumentValue", inv.GetArgumentValue(1))
	}
}

func TestInstance_ReturnValue(t *testing.T) {
	inv := New("repo.Count", nil, nil, nil)
	if inv.ReturnValue() != nil {
		t.Errorf("ReturnValue = %v, want nil before SetReturnValue", inv.ReturnValue())
	}
	inv.SetReturnValue(7)
	if inv.ReturnValue() != 7 {
		t.Errorf("ReturnValue = %v, want 7", inv.ReturnValue())
	}
}

func TestInstance_ThrowOnNoTarget(t *testing.T) {
	inv := New("repo.Save", nil, nil, nil)
	err := inv.ThrowOnNoTarget()
	if !stderrors.Is(err, &cferrors.Error{Phase: cferrors.PhaseInvoke, Kind: cferrors.KindNoTarget}) {
		t.Errorf("err = %v, want no_target", err)
	}
}

type widget struct{ id int }

func TestMutable_ChangeInvocationTarget(t *testing.T) {
	first := &widget{id: 1}
	second := &widget{id: 2}

	inv := NewMutable("widget.Do", first, nil, nil, reflect.TypeOf(&widget{}))
	if inv.Target().(*widget).id != 1 {
		t.Fatalf("target id = %d, want 1", inv.Target().(*widget).id)
	}

	if err := inv.ChangeInvocationTarget(second); err != nil {
		t.Fatalf("ChangeInvocationTarget failed: %v", err)
	}
	if inv.Target().(*widget).id != 2 {
		t.Errorf("target id = %d, want 2 after mutation", inv.Target().(*widget).id)
	}
}

func TestMutable_ChangeInvocationTarget_BadType(t *testing.T) {
	inv := NewMutable("widget.Do", &widget{}, nil, nil, reflect.TypeOf(&widget{}))
	if err := inv.ChangeInvocationTarget("not a widget"); err == nil {
		t.Fatal("expected conversion failure")
	}
}

type mutableProxy struct {
	target any
}

func (p *mutableProxy) ChangeTarget(t any) error {
	p.target = t
	return nil
}

func TestMutable_ChangeProxyTarget(t *testing.T) {
	proxy := &mutableProxy{target: &widget{id: 1}}
	inv := NewMutable("widget.Do", proxy.target, proxy, nil, reflect.TypeOf(&widget{}))

	next := &widget{id: 9}
	if err := inv.ChangeProxyTarget(next); err != nil {
		t.Fatalf("ChangeProxyTarget failed: %v", err)
	}
	if proxy.target.(*widget).id != 9 {
		t.Errorf("proxy target id = %d, want 9", proxy.target.(*widget).id)
	}
}

func TestMutable_ChangeProxyTarget_Unsupported(t *testing.T) {
	inv := NewMutable("widget.Do", &widget{}, struct{}{}, nil, reflect.TypeOf(&widget{}))
	if err := inv.ChangeProxyTarget(&widget{}); err == nil {
		t.Fatal("expected error when proxy lacks target mutation")
	}
}
