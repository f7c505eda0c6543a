package forms

import (
	"github.com/pumped-fn/pumped-forms/pkg/control"
	"github.com/pumped-fn/pumped-forms/pkg/reactive"
)

// FormControls holds the controls of a form: the control editing the model
// and the element submitting it. A nil control means the form has no controls.
type FormControls[M any] struct {
	Control control.Valued[M]
	Element *control.Element
}

// FormBody is what form readers receive while the form has controls
type FormBody[M any] struct {
	Form    *Form[M]
	Control control.Valued[M]
	Element *control.Element
}

// FormProvider builds the controls of a form. It is called with a fresh
// builder each time the presets of the sharing scope change.
type FormProvider[M any] func(b *FormBuilder[M]) (reactive.Source[*FormControls[M]], error)

// ElementFactory constructs the element submitting a form's control
type ElementFactory[M any] func(opts *control.Options, ctl control.Valued[M]) *control.Element

// Form is a form unit holding a model control and its submitting element
type Form[M any] struct {
	unit[FormControls[M], FormBody[M]]
	provider FormProvider[M]
}

// NewForm creates a form with fixed controls. Presets have no effect on it.
func NewForm[M any](controls *FormControls[M], opts ...UnitOption) *Form[M] {
	return ProvideForm(func(*FormBuilder[M]) (reactive.Source[*FormControls[M]], error) {
		return reactive.Const(controls), nil
	}, opts...)
}

// ProvideForm creates a form whose controls are built by provider
func ProvideForm[M any](provider FormProvider[M], opts ...UnitOption) *Form[M] {
	f := &Form[M]{provider: provider}
	f.init(f, "Form", opts)
	return f
}

// FormBy creates a form whose control and element are constructed by the
// given factories. A nil elementFactory creates a plain element named after
// the form.
func FormBy[M any](controlFactory func(opts *control.Options) control.Valued[M], elementFactory ElementFactory[M], opts ...UnitOption) *Form[M] {
	return ProvideForm(FormProviderBy(controlFactory, elementFactory), opts...)
}

// FormProviderBy adapts control and element factories to a form provider
func FormProviderBy[M any](controlFactory func(opts *control.Options) control.Valued[M], elementFactory ElementFactory[M]) FormProvider[M] {
	return func(b *FormBuilder[M]) (reactive.Source[*FormControls[M]], error) {
		ctl, err := control.Build(b.Control(), controlFactory)
		if err != nil {
			return nil, err
		}
		element, err := buildElement(b, ctl, elementFactory)
		if err != nil {
			ctl.Supply().Off(err)
			return nil, err
		}
		return reactive.Const(&FormControls[M]{Control: ctl, Element: element}), nil
	}
}

// FormFor creates a form submitting the given control by an element with
// the given name. The form owns ctl: it is released with the form's last
// element once the sharing scope is disposed.
func FormFor[M any](ctl control.Valued[M], name string, opts ...UnitOption) *Form[M] {
	return ProvideForm(func(b *FormBuilder[M]) (reactive.Source[*FormControls[M]], error) {
		element, err := control.Build(b.Element(), func(opts *control.Options) *control.Element {
			return control.NewElement(name, ctl, opts)
		})
		if err != nil {
			return nil, err
		}
		return reactive.Const(&FormControls[M]{Control: ctl, Element: element}), nil
	}, opts...)
}

func buildElement[M any](b *FormBuilder[M], ctl control.Valued[M], factory ElementFactory[M]) (*control.Element, error) {
	return control.Build(b.Element(), func(opts *control.Options) *control.Element {
		if factory != nil {
			return factory(opts, ctl)
		}
		return control.NewElement(b.Form().Name(), ctl, opts)
	})
}

// SharedBy binds the form to scope.
//
// A rebuild delivering the same control and element is suppressed. Otherwise
// whichever of the prior control and element changed is released.
func (f *Form[M]) SharedBy(scope *Scope) error {
	track := reactive.SwitchDedup(scope.Presets(), func(p Preset) (reactive.Source[*FormControls[M]], error) {
		return f.build(scope, func() (reactive.Source[*FormControls[M]], error) {
			b := newFormBuilder(scope, f)
			p.SetupForm(b)
			return f.provider(b)
		})
	}, reactive.Dedup[*FormControls[M]]{
		Same: func(prior, next *FormControls[M]) bool {
			priorCtl, priorElem := formControls(prior)
			nextCtl, nextElem := formControls(next)
			sameCtl := control.Same(priorCtl, nextCtl)
			if sameCtl && priorElem == nextElem {
				return true
			}
			if priorElem != nil && priorElem != nextElem {
				f.releaseControl(scope, priorElem, ReleaseSuperseded)
			}
			if priorCtl != nil && !sameCtl {
				f.releaseControl(scope, priorCtl, ReleaseSuperseded)
			}
			return false
		},
		Drop: func(last *FormControls[M]) {
			ctl, element := formControls(last)
			if element != nil {
				f.releaseControl(scope, element, ReleaseTeardown)
			}
			if ctl != nil {
				f.releaseControl(scope, ctl, ReleaseTeardown)
			}
		},
	})

	return f.bind(scope, track, f.wrap)
}

func (f *Form[M]) wrap(controls *FormControls[M]) *FormBody[M] {
	ctl, element := formControls(controls)
	if ctl == nil {
		return nil
	}
	return &FormBody[M]{Form: f, Control: ctl, Element: element}
}

func formControls[M any](controls *FormControls[M]) (control.Valued[M], *control.Element) {
	if controls == nil {
		return nil, nil
	}
	if control.IsAbsent(controls.Control) {
		return nil, controls.Element
	}
	return controls.Control, controls.Element
}

// Control returns the form's current control, or nil when the form has none
func (f *Form[M]) Control() (control.Valued[M], error) {
	body, err := f.current()
	if err != nil || body == nil {
		return nil, err
	}
	return body.Control, nil
}

// Element returns the form's current element, or nil when the form has none
func (f *Form[M]) Element() (*control.Element, error) {
	body, err := f.current()
	if err != nil || body == nil {
		return nil, err
	}
	return body.Element, nil
}

// Body returns the form's current body, or nil when the form has no controls
func (f *Form[M]) Body() (*FormBody[M], error) {
	return f.current()
}
