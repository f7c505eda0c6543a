package forms

import (
	"fmt"
	"sync"

	"github.com/pumped-fn/pumped-forms/pkg/control"
	"github.com/pumped-fn/pumped-forms/pkg/reactive"
)

// Unit is a field or a form: a shareable holder of reactively built controls
type Unit interface {
	fmt.Stringer

	// Sharer returns the scope the unit is shared by.
	Sharer() (*Scope, error)

	// SharedBy binds the unit to its owning scope and builds its controls.
	SharedBy(scope *Scope) error

	// State reports the unit's lifecycle state.
	State() UnitState
}

// UnitState is a lifecycle state of a unit
type UnitState int

const (
	// StateUnbound means the unit is not shared by any scope yet
	StateUnbound UnitState = iota
	// StateNoBody means the unit is shared but has no controls
	StateNoBody
	// StateHasBody means the unit is shared and has controls
	StateHasBody
	// StateReleased means the unit's scope is disposed
	StateReleased
)

func (s UnitState) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateNoBody:
		return "no-body"
	case StateHasBody:
		return "has-body"
	case StateReleased:
		return "released"
	default:
		return "unknown"
	}
}

// UnitOption is a modifier for units
type UnitOption func(*unitConfig)

type unitConfig struct {
	name string
}

// WithName returns an option naming a unit.
// The name appears in the unit's string form and in errors.
func WithName(name string) UnitOption {
	return func(cfg *unitConfig) {
		cfg.name = name
	}
}

// unit holds the state shared by fields and forms.
//
// CT is the controls type produced by providers and BT the body type
// exposed to readers. A nil body means the unit has no controls.
type unit[CT any, BT any] struct {
	self Unit
	kind string
	name string

	mu       sync.RWMutex
	sharer   *Scope
	released bool
	body     *reactive.Keeper[*BT]
}

func (u *unit[CT, BT]) init(self Unit, kind string, opts []UnitOption) {
	cfg := &unitConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	u.self = self
	u.kind = kind
	u.name = cfg.name
	u.body = reactive.NewKeeper[*BT](nil)
}

func (u *unit[CT, BT]) String() string {
	if u.name == "" {
		return "[" + u.kind + "]"
	}
	return "[" + u.kind + " " + u.name + "]"
}

// Name returns the unit's name, if any
func (u *unit[CT, BT]) Name() string {
	return u.name
}

// Sharer returns the scope the unit is shared by
func (u *unit[CT, BT]) Sharer() (*Scope, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.sharer == nil {
		return nil, &UnboundError{Unit: u.String()}
	}
	return u.sharer, nil
}

// State reports the unit's lifecycle state
func (u *unit[CT, BT]) State() UnitState {
	u.mu.RLock()
	defer u.mu.RUnlock()
	switch {
	case u.sharer == nil:
		return StateUnbound
	case u.released:
		return StateReleased
	}
	if body, _ := u.body.Value(); body != nil {
		return StateHasBody
	}
	return StateNoBody
}

func (u *unit[CT, BT]) current() (*BT, error) {
	if _, err := u.Sharer(); err != nil {
		return nil, err
	}
	body, _ := u.body.Value()
	return body, nil
}

// Read streams the unit's body. A nil body means there are no controls.
func (u *unit[CT, BT]) Read(receiver reactive.Receiver[*BT]) (*reactive.Supply, error) {
	if _, err := u.Sharer(); err != nil {
		return nil, err
	}
	return u.body.Read(receiver)
}

// bind shares the unit by scope and subscribes to its controls eagerly.
// The subscription lives as long as the scope's supply.
func (u *unit[CT, BT]) bind(scope *Scope, track reactive.Source[*CT], wrap func(*CT) *BT) error {
	u.mu.Lock()
	if u.sharer != nil {
		same := u.sharer == scope
		u.mu.Unlock()
		if same {
			return nil
		}
		return fmt.Errorf("%s: %w", u.String(), ErrAlreadyShared)
	}
	if scope.IsDisposed() {
		u.mu.Unlock()
		return fmt.Errorf("%s: %w", scope, ErrScopeDisposed)
	}
	u.sharer = scope
	u.mu.Unlock()

	_, err := scope.run(&Operation{Kind: OpBind, Unit: u.self, Scope: scope}, func() (any, error) {
		sub, err := track.Read(func(controls *CT) error {
			return u.body.Write(wrap(controls))
		})
		if err != nil {
			return nil, err
		}

		sub.Needs(scope.Supply())
		sub.OnOff(func(error) {
			u.release()
		})
		return nil, nil
	})
	if err != nil {
		// Not shared after all: the caller may fix the cause and retry.
		u.mu.Lock()
		u.sharer = nil
		u.mu.Unlock()
	}
	return err
}

func (u *unit[CT, BT]) release() {
	u.mu.Lock()
	if u.released {
		u.mu.Unlock()
		return
	}
	u.released = true
	u.mu.Unlock()

	u.body.Write(nil)
}

// build runs one rebuild of the unit's controls under the scope's extensions
func (u *unit[CT, BT]) build(scope *Scope, provide func() (reactive.Source[*CT], error)) (reactive.Source[*CT], error) {
	result, err := scope.run(&Operation{Kind: OpBuild, Unit: u.self, Scope: scope}, func() (any, error) {
		src, err := provide()
		if err != nil {
			return nil, CreateBuildError(u.self, OpBuild, err)
		}
		return src, nil
	})
	if err != nil {
		return nil, err
	}

	src, _ := result.(reactive.Source[*CT])
	if src == nil {
		src = reactive.Const[*CT](nil)
	}
	return src, nil
}

// releaseControl releases a control dropped by the unit and reports it
func (u *unit[CT, BT]) releaseControl(scope *Scope, ctl control.Control, reason ReleaseReason) {
	if ctl == nil {
		return
	}
	if !ctl.Supply().Off(nil) {
		return
	}
	scope.notifyRelease(&ReleaseEvent{
		Unit:    u.self,
		Scope:   scope,
		Control: ctl,
		Reason:  reason,
	})
}
