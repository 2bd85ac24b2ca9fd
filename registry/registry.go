package registry

import (
	"reflect"
	"sync"

	"github.com/callforge/callforge/generator"
)

// Key identifies one distinct (method, strategy) pair. Generated types are
// created once per key and reused for all proxy instances of that method.
type Key struct {
	Target   reflect.Type
	Method   string
	Strategy string
	Mutable  bool
}

// EventType enumerates generated-type lifecycle notifications.
type EventType uint8

const (
	EventGenerated EventType = iota
	EventEvicted
)

// Event is one generated-type lifecycle event.
type Event struct {
	Type      *generator.GeneratedType
	Key       Key
	EventType EventType
}

// Observer receives notifications about generated-type lifecycle events.
type Observer interface {
	OnGeneratedType(Event)
}

// Table caches generated invocation types per key with observer support.
// Safe for concurrent use; at most one build runs per key.
type Table struct {
	mu        sync.RWMutex
	entries   map[Key]*generator.GeneratedType
	observers []Observer
	obsMu     sync.RWMutex
	closed    bool
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{entries: make(map[Key]*generator.GeneratedType)}
}

// Ensure returns the cached type for key, building and caching it on first
// use. Concurrent callers for the same key observe a single build.
func (t *Table) Ensure(key Key, build func() (*generator.GeneratedType, error)) (*generator.GeneratedType, error) {
	t.mu.RLock()
	if gt, ok := t.entries[key]; ok {
		t.mu.RUnlock()
		return gt, nil
	}
	closed := t.closed
	t.mu.RUnlock()
	if closed {
		return build()
	}

	t.mu.Lock()
	// Close may have won the race for the write lock; nothing may be cached
	// after it.
	if t.closed {
		t.mu.Unlock()
		return build()
	}
	if gt, ok := t.entries[key]; ok {
		t.mu.Unlock()
		return gt, nil
	}
	gt, err := build()
	if err != nil {
		t.mu.Unlock()
		return nil, err
	}
	t.entries[key] = gt
	t.mu.Unlock()

	t.notify(Event{EventType: EventGenerated, Key: key, Type: gt})
	return gt, nil
}

// Get retrieves a cached type by key.
func (t *Table) Get(key Key) (*generator.GeneratedType, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	gt, ok := t.entries[key]
	return gt, ok
}

// Remove evicts a cached type and returns (type, true) if found.
func (t *Table) Remove(key Key) (*generator.GeneratedType, bool) {
	t.mu.Lock()
	gt, ok := t.entries[key]
	if ok {
		delete(t.entries, key)
	}
	t.mu.Unlock()
	if !ok {
		return nil, false
	}

	t.notify(Event{EventType: EventEvicted, Key: key, Type: gt})
	return gt, true
}

// Len returns the number of cached types.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Each iterates over cached types until fn returns false.
func (t *Table) Each(fn func(Key, *generator.GeneratedType) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for k, gt := range t.entries {
		if !fn(k, gt) {
			break
		}
	}
}

// Clear evicts every cached type.
func (t *Table) Clear() {
	t.mu.Lock()
	keys := make([]Key, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	t.mu.Unlock()
	for _, k := range keys {
		t.Remove(k)
	}
}

// Close evicts everything and stops caching; later Ensure calls build
// without storing.
func (t *Table) Close() {
	t.mu.Lock()
	t.closed = true
	t.entries = make(map[Key]*generator.GeneratedType)
	t.mu.Unlock()
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnGeneratedType(e)
	}
}
