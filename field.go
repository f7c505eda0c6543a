package forms

import (
	"github.com/pumped-fn/pumped-forms/pkg/control"
	"github.com/pumped-fn/pumped-forms/pkg/reactive"
)

// FieldControls holds the controls of a field. A nil control means the
// field has no controls.
type FieldControls[V any] struct {
	Control control.Valued[V]
}

// FieldBody is what field readers receive while the field has controls
type FieldBody[V any] struct {
	Field   *Field[V]
	Control control.Valued[V]
}

// FieldProvider builds the controls of a field. It is called with a fresh
// builder each time the presets of the sharing scope change.
type FieldProvider[V any] func(b *FieldBuilder[V]) (reactive.Source[*FieldControls[V]], error)

// Field is a form unit holding a single input control
type Field[V any] struct {
	unit[FieldControls[V], FieldBody[V]]
	provider FieldProvider[V]
}

// NewField creates a field with fixed controls. Presets have no effect on it.
func NewField[V any](controls *FieldControls[V], opts ...UnitOption) *Field[V] {
	return ProvideField(func(*FieldBuilder[V]) (reactive.Source[*FieldControls[V]], error) {
		return reactive.Const(controls), nil
	}, opts...)
}

// ProvideField creates a field whose controls are built by provider
func ProvideField[V any](provider FieldProvider[V], opts ...UnitOption) *Field[V] {
	f := &Field[V]{provider: provider}
	f.init(f, "Field", opts)
	return f
}

// FieldBy creates a field whose control is constructed by factory.
// The control builder prepared by presets is applied to factory's options.
func FieldBy[V any](factory func(opts *control.Options) control.Valued[V], opts ...UnitOption) *Field[V] {
	return ProvideField(FieldProviderBy(factory), opts...)
}

// FieldProviderBy adapts a control factory to a field provider
func FieldProviderBy[V any](factory func(opts *control.Options) control.Valued[V]) FieldProvider[V] {
	return func(b *FieldBuilder[V]) (reactive.Source[*FieldControls[V]], error) {
		ctl, err := control.Build(b.Control(), factory)
		if err != nil {
			return nil, err
		}
		return reactive.Const(&FieldControls[V]{Control: ctl}), nil
	}
}

// FieldControlsOf adapts a provider of a bare control to a field provider
func FieldControlsOf[V any](provide func(b *FieldBuilder[V]) (control.Valued[V], error)) FieldProvider[V] {
	return func(b *FieldBuilder[V]) (reactive.Source[*FieldControls[V]], error) {
		ctl, err := provide(b)
		if err != nil {
			return nil, err
		}
		if control.IsAbsent(ctl) {
			return reactive.Const[*FieldControls[V]](nil), nil
		}
		return reactive.Const(&FieldControls[V]{Control: ctl}), nil
	}
}

// SharedBy binds the field to scope.
//
// The field's controls are built immediately and rebuilt each time the
// presets of scope change. A control superseded by a rebuild is released,
// and so is the last control once scope is disposed.
func (f *Field[V]) SharedBy(scope *Scope) error {
	track := reactive.SwitchDedup(scope.Presets(), func(p Preset) (reactive.Source[*FieldControls[V]], error) {
		return f.build(scope, func() (reactive.Source[*FieldControls[V]], error) {
			b := newFieldBuilder(scope, f)
			p.SetupField(b)
			return f.provider(b)
		})
	}, reactive.Dedup[*FieldControls[V]]{
		Same: func(prior, next *FieldControls[V]) bool {
			priorCtl, nextCtl := fieldControl(prior), fieldControl(next)
			if control.Same(priorCtl, nextCtl) {
				return true
			}
			if priorCtl != nil {
				f.releaseControl(scope, priorCtl, ReleaseSuperseded)
			}
			return false
		},
		Drop: func(last *FieldControls[V]) {
			if ctl := fieldControl(last); ctl != nil {
				f.releaseControl(scope, ctl, ReleaseTeardown)
			}
		},
	})

	return f.bind(scope, track, f.wrap)
}

func (f *Field[V]) wrap(controls *FieldControls[V]) *FieldBody[V] {
	ctl := fieldControl(controls)
	if ctl == nil {
		return nil
	}
	return &FieldBody[V]{Field: f, Control: ctl}
}

func fieldControl[V any](controls *FieldControls[V]) control.Valued[V] {
	if controls == nil || control.IsAbsent(controls.Control) {
		return nil
	}
	return controls.Control
}

// Control returns the field's current control, or nil when the field has none
func (f *Field[V]) Control() (control.Valued[V], error) {
	body, err := f.current()
	if err != nil || body == nil {
		return nil, err
	}
	return body.Control, nil
}

// Body returns the field's current body, or nil when the field has no controls
func (f *Field[V]) Body() (*FieldBody[V], error) {
	return f.current()
}
