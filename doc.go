// Package forms manages the lifecycle of reactively built form units.
//
// # Overview
//
// Forms organizes code around three core concepts:
//
//  1. Units: fields and forms holding input controls built on demand
//  2. Scopes: owners of units bounding their lifetime, arranged in a tree
//  3. Presets: ordered setup steps applied to every control a unit builds
//
// # Basic Usage
//
// Create a unit and share it by a scope:
//
//	scope := forms.NewScope()
//	defer scope.Dispose()
//
//	name := forms.FieldBy(func(opts *control.Options) control.Valued[string] {
//	    return control.NewValue("", opts)
//	}, forms.WithName("name"))
//
//	if err := name.SharedBy(scope); err != nil {
//	    return err
//	}
//
//	ctl, err := name.Control()
//
// Accessing a unit before it is shared fails with an error matching
// ErrUnbound:
//
//	_, err := forms.FieldBy(factory).Control()
//	// err.Error() == "[Field] is not properly shared yet"
//
// # Presets
//
// A preset spec sets up the builders of every unit shared by a scope and its
// descendants. Contributing or withdrawing a spec rebuilds the units before
// returning:
//
//	c, err := scope.Provide(forms.Spec{
//	    Name: "readonly",
//	    SetupField: func(b forms.FieldSetup) {
//	        b.Control().Tag("readonly")
//	    },
//	})
//
//	// Rebuilds again, releasing the controls built with the withdrawn Spec
//	err = c.Withdraw()
//
// Specs apply in order: ancestor contributions first, then the scope's own,
// then the default spec set by WithDefaultPreset.
//
// # Controls lifecycle
//
// Each rebuild delivering a different control releases the superseded one.
// A rebuild delivering the very same control is suppressed. Disposing the
// scope releases the last controls, after which the unit has no body:
//
//	sub, err := name.Read(func(body *forms.FieldBody[string]) error {
//	    if body == nil {
//	        // no controls
//	    }
//	    return nil
//	})
//
// # Shares
//
// Shares expose a unit to descendant scopes:
//
//	share := forms.DefaultShare[*forms.Form[Signup]]()
//	share.Share(scope, form)
//
//	child, _ := scope.Child()
//	form, ok := share.ValueFor(child, false)
//
// # Extensions
//
// Extensions intercept bind, build, provide and withdraw operations and
// observe released controls:
//
//	scope := forms.NewScope(
//	    forms.WithExtension(extensions.NewLoggingExtension(handler)),
//	)
package forms
