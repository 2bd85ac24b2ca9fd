package registry

import (
	"reflect"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/callforge/callforge/descriptor"
	"github.com/callforge/callforge/errors"
	"github.com/callforge/callforge/generator"
)

type calc struct{ base int }

func (c *calc) Add(n int) int { return c.base + n }

func (c *calc) Scale(n int) int { return c.base * n }

func generateFor(t *testing.T, name string) *generator.GeneratedType {
	t.Helper()
	tt := reflect.TypeOf(&calc{})
	m, err := descriptor.FromMethod(tt, name)
	if err != nil {
		t.Fatalf("FromMethod(%s): %v", name, err)
	}
	cb, err := generator.MethodCallback(tt, name)
	if err != nil {
		t.Fatalf("MethodCallback(%s): %v", name, err)
	}
	gt, err := generator.Generate(&generator.Context{
		Method:     m,
		TargetType: tt,
		Fallback:   cb,
	})
	if err != nil {
		t.Fatalf("Generate(%s): %v", name, err)
	}
	return gt
}

func keyFor(name, strategy string) Key {
	return Key{
		Target:   reflect.TypeOf(&calc{}),
		Method:   name,
		Strategy: strategy,
	}
}

func TestEnsureBuildsOnce(t *testing.T) {
	tbl := NewTable()
	var builds int

	build := func() (*generator.GeneratedType, error) {
		builds++
		return generateFor(t, "Add"), nil
	}

	key := keyFor("Add", "target")
	first, err := tbl.Ensure(key, build)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	second, err := tbl.Ensure(key, build)
	if err != nil {
		t.Fatalf("Ensure (cached): %v", err)
	}
	if first != second {
		t.Error("expected the cached type on the second Ensure")
	}
	if builds != 1 {
		t.Errorf("builds = %d, want 1", builds)
	}
	if tbl.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tbl.Len())
	}
}

func TestEnsureDistinctKeys(t *testing.T) {
	tbl := NewTable()
	var builds int
	build := func() (*generator.GeneratedType, error) {
		builds++
		return generateFor(t, "Add"), nil
	}

	if _, err := tbl.Ensure(keyFor("Add", "target"), build); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if _, err := tbl.Ensure(keyFor("Add", "fallback"), build); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if builds != 2 {
		t.Errorf("builds = %d, want 2 for distinct strategies", builds)
	}
	if tbl.Len() != 2 {
		t.Errorf("Len() = %d, want 2", tbl.Len())
	}
}

func TestEnsureBuildError(t *testing.T) {
	tbl := NewTable()
	wantErr := errors.New(errors.PhaseGenerate, errors.KindInvalidInput).
		Detail("boom").
		Build()

	_, err := tbl.Ensure(keyFor("Add", "target"), func() (*generator.GeneratedType, error) {
		return nil, wantErr
	})
	if err == nil {
		t.Fatal("expected build failure to propagate")
	}
	if tbl.Len() != 0 {
		t.Errorf("Len() = %d after failed build, want 0", tbl.Len())
	}

	// A later Ensure retries the build.
	gt, err := tbl.Ensure(keyFor("Add", "target"), func() (*generator.GeneratedType, error) {
		return generateFor(t, "Add"), nil
	})
	if err != nil {
		t.Fatalf("Ensure (retry): %v", err)
	}
	if gt == nil {
		t.Fatal("expected a generated type after retry")
	}
}

type recordingObserver struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingObserver) OnGeneratedType(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingObserver) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func TestObserverEvents(t *testing.T) {
	tbl := NewTable()
	obs := &recordingObserver{}
	tbl.Subscribe(obs)

	key := keyFor("Add", "target")
	gt, err := tbl.Ensure(key, func() (*generator.GeneratedType, error) {
		return generateFor(t, "Add"), nil
	})
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	removed, ok := tbl.Remove(key)
	if !ok {
		t.Fatal("Remove: entry not found")
	}
	if removed != gt {
		t.Error("Remove returned a different type than Ensure cached")
	}
	if _, ok := tbl.Remove(key); ok {
		t.Error("second Remove should report not found")
	}

	events := obs.snapshot()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].EventType != EventGenerated || events[0].Key != key || events[0].Type != gt {
		t.Errorf("unexpected first event: %+v", events[0])
	}
	if events[1].EventType != EventEvicted || events[1].Key != key {
		t.Errorf("unexpected second event: %+v", events[1])
	}
}

func TestUnsubscribe(t *testing.T) {
	tbl := NewTable()
	obs := &recordingObserver{}
	tbl.Subscribe(obs)
	tbl.Unsubscribe(obs)

	if _, err := tbl.Ensure(keyFor("Add", "target"), func() (*generator.GeneratedType, error) {
		return generateFor(t, "Add"), nil
	}); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if got := len(obs.snapshot()); got != 0 {
		t.Errorf("got %d events after Unsubscribe, want 0", got)
	}
}

func TestEachAndClear(t *testing.T) {
	tbl := NewTable()
	for _, s := range []string{"target", "fallback", "contrib"} {
		if _, err := tbl.Ensure(keyFor("Scale", s), func() (*generator.GeneratedType, error) {
			return generateFor(t, "Scale"), nil
		}); err != nil {
			t.Fatalf("Ensure(%s): %v", s, err)
		}
	}

	seen := 0
	tbl.Each(func(Key, *generator.GeneratedType) bool {
		seen++
		return true
	})
	if seen != 3 {
		t.Errorf("Each visited %d entries, want 3", seen)
	}

	seen = 0
	tbl.Each(func(Key, *generator.GeneratedType) bool {
		seen++
		return false
	})
	if seen != 1 {
		t.Errorf("Each visited %d entries after early stop, want 1", seen)
	}

	obs := &recordingObserver{}
	tbl.Subscribe(obs)
	tbl.Clear()
	if tbl.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", tbl.Len())
	}
	for _, e := range obs.snapshot() {
		if e.EventType != EventEvicted {
			t.Errorf("Clear produced non-eviction event: %+v", e)
		}
	}
	if got := len(obs.snapshot()); got != 3 {
		t.Errorf("Clear produced %d events, want 3", got)
	}
}

func TestCloseStopsCaching(t *testing.T) {
	tbl := NewTable()
	if _, err := tbl.Ensure(keyFor("Add", "target"), func() (*generator.GeneratedType, error) {
		return generateFor(t, "Add"), nil
	}); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	tbl.Close()
	if tbl.Len() != 0 {
		t.Errorf("Len() = %d after Close, want 0", tbl.Len())
	}

	var builds int
	build := func() (*generator.GeneratedType, error) {
		builds++
		return generateFor(t, "Add"), nil
	}
	for i := 0; i < 2; i++ {
		if _, err := tbl.Ensure(keyFor("Add", "target"), build); err != nil {
			t.Fatalf("Ensure after Close: %v", err)
		}
	}
	if builds != 2 {
		t.Errorf("builds = %d after Close, want 2 (no caching)", builds)
	}
	if tbl.Len() != 0 {
		t.Errorf("Len() = %d, closed table must not cache", tbl.Len())
	}
}

func TestCloseRacingEnsureNeverCaches(t *testing.T) {
	tbl := NewTable()
	gt := generateFor(t, "Add")

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			key := keyFor("Add", strconv.Itoa(i))
			if _, err := tbl.Ensure(key, func() (*generator.GeneratedType, error) {
				return gt, nil
			}); err != nil {
				t.Errorf("Ensure: %v", err)
			}
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		tbl.Close()
	}()
	close(start)
	wg.Wait()

	// Whatever the interleaving, a closed table ends empty: entries cached
	// before Close are cleared by it, and none may be cached after.
	if tbl.Len() != 0 {
		t.Errorf("Len() = %d after racing Close, want 0", tbl.Len())
	}
}

func TestConcurrentEnsure(t *testing.T) {
	tbl := NewTable()
	key := keyFor("Add", "target")
	gt := generateFor(t, "Add")

	var builds atomic.Int32
	var wg sync.WaitGroup
	results := make([]*generator.GeneratedType, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := tbl.Ensure(key, func() (*generator.GeneratedType, error) {
				builds.Add(1)
				return gt, nil
			})
			if err != nil {
				t.Errorf("Ensure: %v", err)
				return
			}
			results[i] = got
		}(i)
	}
	wg.Wait()

	if builds.Load() != 1 {
		t.Errorf("builds = %d under contention, want 1", builds.Load())
	}
	for i, got := range results {
		if got != gt {
			t.Errorf("goroutine %d observed a different type", i)
		}
	}
}
