package control

import (
	"fmt"
	"sync"
)

// Kind is a type-safe key of a control capability
type Kind[A any] struct {
	name string
}

// NewKind creates a capability kind with the given name
func NewKind[A any](name string) Kind[A] {
	return Kind[A]{name: name}
}

// Name returns the kind's name (for debugging)
func (k Kind[A]) Name() string {
	return k.name
}

func (k Kind[A]) String() string {
	return "[" + k.name + "]"
}

// Aspects maps capability kinds to capability instances.
// Capabilities are resolved by kind, never by inspecting the control's type.
type Aspects struct {
	mu    sync.RWMutex
	items map[any]any
}

// NewAspects creates an empty capability registry
func NewAspects() *Aspects {
	return &Aspects{items: make(map[any]any)}
}

func (a *Aspects) set(key any, value any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items[key] = value
}

func (a *Aspects) get(key any) (any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	val, ok := a.items[key]
	return val, ok
}

// Clone returns a copy of the registry
func (a *Aspects) Clone() *Aspects {
	a.mu.RLock()
	defer a.mu.RUnlock()
	clone := NewAspects()
	for k, v := range a.items {
		clone.items[k] = v
	}
	return clone
}

// Set stores a capability of the given kind
func Set[A any](aspects *Aspects, kind Kind[A], value A) {
	aspects.set(kind, value)
}

// Lookup retrieves a capability of the given kind
func Lookup[A any](aspects *Aspects, kind Kind[A]) (A, bool) {
	val, ok := aspects.get(kind)
	if !ok {
		var zero A
		return zero, false
	}
	return val.(A), true
}

// LookupOrDefault retrieves a capability or returns a default
func LookupOrDefault[A any](aspects *Aspects, kind Kind[A], defaultVal A) A {
	if val, ok := Lookup(aspects, kind); ok {
		return val
	}
	return defaultVal
}

// MustLookup retrieves a capability or panics if it is missing
func MustLookup[A any](aspects *Aspects, kind Kind[A]) A {
	val, ok := Lookup(aspects, kind)
	if !ok {
		panic(fmt.Sprintf("capability %s not found", kind))
	}
	return val
}

// LookupOrSet retrieves a capability, attaching one made by create when missing
func LookupOrSet[A any](aspects *Aspects, kind Kind[A], create func() A) A {
	aspects.mu.Lock()
	defer aspects.mu.Unlock()
	if val, ok := aspects.items[kind]; ok {
		return val.(A)
	}
	val := create()
	aspects.items[kind] = val
	return val
}
