package presets

import (
	forms "github.com/pumped-fn/pumped-forms"
	"github.com/pumped-fn/pumped-forms/pkg/control"
	"github.com/pumped-fn/pumped-forms/pkg/reactive"
)

// Mode sources derived by the Mode spec
const (
	ValiditySource = "validity"
	FormSource     = "form"
)

// ModeOptions configures the Mode spec
type ModeOptions struct {
	// Invalid is the mode of an invalid form control.
	// Defaults to control.ModeNoSubmit.
	Invalid control.Mode

	// IgnoreValidity disables reflecting form validity in the form mode.
	IgnoreValidity bool

	// IgnoreForm disables fields following the mode of the form element
	// shared by their scope or its nearest ancestor.
	IgnoreForm bool
}

// formModeSlot carries the mode of the form element governing the fields of
// a scope: the one published by a form shared by the scope itself, else the
// one governing the enclosing scope.
type formModeSlot struct {
	local  *reactive.Keeper[*control.ModeAspect]
	source reactive.Source[*control.ModeAspect]
}

var formModeTag = forms.NewTag[*formModeSlot]("presets.form-mode")

func formModeOf(scope *forms.Scope) *formModeSlot {
	return formModeTag.GetOrSetOnScope(scope, func() *formModeSlot {
		enclosing := reactive.Const[*control.ModeAspect](nil)
		if parent := scope.Parent(); parent != nil {
			enclosing = formModeOf(parent).source
		}

		local := reactive.NewKeeper[*control.ModeAspect](nil)
		return &formModeSlot{
			local: local,
			source: reactive.SwitchDedup(local, func(aspect *control.ModeAspect) (reactive.Source[*control.ModeAspect], error) {
				if aspect == nil {
					return enclosing, nil
				}
				return reactive.Const(aspect), nil
			}, reactive.Dedup[*control.ModeAspect]{}),
		}
	})
}

// Mode returns a preset Spec deriving input modes of controls.
//
// Form controls switch to opts.Invalid while their validation has messages.
// Field controls follow the mode of the nearest form element.
func Mode(opts ModeOptions) forms.Spec {
	invalid := opts.Invalid
	if invalid == "" {
		invalid = control.ModeNoSubmit
	}

	spec := forms.Spec{Name: "mode"}

	spec.SetupForm = func(b forms.FormSetup) {
		if !opts.IgnoreValidity {
			b.Control().Setup(func(o *control.Options) {
				o.AfterBuild(func(ctl control.Control) error {
					return reflectValidity(ctl, invalid)
				})
			})
		}
		if !opts.IgnoreForm {
			slot := formModeOf(b.Sharer())
			b.Element().Setup(func(o *control.Options) {
				o.AfterBuild(func(element control.Control) error {
					return publishFormMode(slot.local, element)
				})
			})
		}
	}

	if !opts.IgnoreForm {
		spec.SetupField = func(b forms.FieldSetup) {
			slot := formModeOf(b.Sharer())
			b.Control().Setup(func(o *control.Options) {
				o.AfterBuild(func(ctl control.Control) error {
					return followFormMode(slot.source, ctl)
				})
			})
		}
	}

	return spec
}

func reflectValidity(ctl control.Control, invalid control.Mode) error {
	mode := control.ModeOf(ctl)
	sub, err := control.ValidationOf(ctl).Read(func(messages []string) error {
		if len(messages) > 0 {
			return mode.Derive(ValiditySource, invalid)
		}
		return mode.Derive(ValiditySource, "")
	})
	if err != nil {
		return err
	}
	sub.Needs(ctl.Supply())
	return nil
}

func publishFormMode(slot *reactive.Keeper[*control.ModeAspect], element control.Control) error {
	mode := control.ModeOf(element)
	element.Supply().OnOff(func(error) {
		if current, _ := slot.Value(); current == mode {
			slot.Write(nil)
		}
	})
	return slot.Write(mode)
}

func followFormMode(slot reactive.Source[*control.ModeAspect], ctl control.Control) error {
	mode := control.ModeOf(ctl)
	formMode := reactive.SwitchDedup(slot, func(aspect *control.ModeAspect) (reactive.Source[control.Mode], error) {
		if aspect == nil {
			return reactive.Const[control.Mode](""), nil
		}
		return aspect, nil
	}, reactive.Dedup[control.Mode]{})

	sub, err := formMode.Read(func(m control.Mode) error {
		return mode.Derive(FormSource, m)
	})
	if err != nil {
		return err
	}
	sub.Needs(ctl.Supply())
	return nil
}
