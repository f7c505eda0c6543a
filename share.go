package forms

import (
	"reflect"
	"sync"

	"github.com/pumped-fn/pumped-forms/pkg/reactive"
)

// Share is a named slot through which a scope exposes a unit to its
// descendants.
//
// Distinct shares of the same unit type let a scope expose several units,
// e.g. a main form and a search form.
type Share[U Unit] struct {
	name string
}

// NewShare creates a share with the given name
func NewShare[U Unit](name string) *Share[U] {
	return &Share[U]{name: name}
}

var defaultShares sync.Map

// DefaultShare returns the process-wide default share of the unit type U.
// The same share is returned on every call.
func DefaultShare[U Unit]() *Share[U] {
	key := reflect.TypeFor[U]()
	if share, ok := defaultShares.Load(key); ok {
		return share.(*Share[U])
	}
	share, _ := defaultShares.LoadOrStore(key, NewShare[U](key.String()))
	return share.(*Share[U])
}

// Name returns the share's name
func (s *Share[U]) Name() string {
	return s.name
}

func (s *Share[U]) String() string {
	return "[Share " + s.name + "]"
}

// Share binds unit to scope and records it as the scope's value of s.
// Trackers of s are notified before Share returns; their errors are returned.
func (s *Share[U]) Share(scope *Scope, unit U) error {
	if err := unit.SharedBy(scope); err != nil {
		return err
	}
	return scope.putShare(s, unit)
}

// ValueFor returns the unit recorded for s by scope. Unless local is set,
// the nearest ancestor recording one is consulted as well.
func (s *Share[U]) ValueFor(scope *Scope, local bool) (U, bool) {
	for current := scope; current != nil; current = current.parent {
		if unit, ok := current.getShare(s); ok {
			return unit.(U), true
		}
		if local {
			break
		}
	}
	var zero U
	return zero, false
}

// Track streams the unit recorded for s by scope or, while scope records
// none, by its nearest ancestor. The zero U is delivered when none is found.
func (s *Share[U]) Track(scope *Scope) reactive.Source[U] {
	return reactive.Map(s.units(scope), func(unit Unit) U {
		u, _ := unit.(U)
		return u
	})
}

func (s *Share[U]) units(scope *Scope) reactive.Source[Unit] {
	enclosing := reactive.Const[Unit](nil)
	if scope.parent != nil {
		enclosing = s.units(scope.parent)
	}
	return reactive.SwitchDedup(scope.shareSlot(s), func(unit Unit) (reactive.Source[Unit], error) {
		if unit == nil {
			return enclosing, nil
		}
		return reactive.Const(unit), nil
	}, reactive.Dedup[Unit]{
		Same: func(prior, next Unit) bool {
			return prior == next
		},
	})
}
