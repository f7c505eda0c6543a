package forms

import "github.com/pumped-fn/pumped-forms/pkg/control"

// FieldSetup is the view of a field builder available to presets
type FieldSetup interface {
	// Sharer returns the scope sharing the unit.
	Sharer() *Scope
	// Unit returns the unit being built.
	Unit() Unit
	// Control returns the builder of the unit's input control.
	Control() *control.Builder
}

// FormSetup is the view of a form builder available to presets
type FormSetup interface {
	FieldSetup
	// Element returns the builder of the form element control.
	Element() *control.Builder
}

// FieldBuilder is passed to a field provider each time the field's controls
// are (re)built. It is never reused between builds.
type FieldBuilder[V any] struct {
	sharer  *Scope
	field   *Field[V]
	control *control.Builder
}

func newFieldBuilder[V any](sharer *Scope, field *Field[V]) *FieldBuilder[V] {
	return &FieldBuilder[V]{
		sharer:  sharer,
		field:   field,
		control: control.NewBuilder(),
	}
}

func (b *FieldBuilder[V]) Sharer() *Scope {
	return b.sharer
}

// Field returns the field being built
func (b *FieldBuilder[V]) Field() *Field[V] {
	return b.field
}

func (b *FieldBuilder[V]) Unit() Unit {
	return b.field
}

func (b *FieldBuilder[V]) Control() *control.Builder {
	return b.control
}

// FormBuilder is passed to a form provider each time the form's controls
// are (re)built. It is never reused between builds.
type FormBuilder[M any] struct {
	sharer  *Scope
	form    *Form[M]
	control *control.Builder
	element *control.Builder
}

func newFormBuilder[M any](sharer *Scope, form *Form[M]) *FormBuilder[M] {
	return &FormBuilder[M]{
		sharer:  sharer,
		form:    form,
		control: control.NewBuilder(),
		element: control.NewBuilder(),
	}
}

func (b *FormBuilder[M]) Sharer() *Scope {
	return b.sharer
}

// Form returns the form being built
func (b *FormBuilder[M]) Form() *Form[M] {
	return b.form
}

func (b *FormBuilder[M]) Unit() Unit {
	return b.form
}

func (b *FormBuilder[M]) Control() *control.Builder {
	return b.control
}

func (b *FormBuilder[M]) Element() *control.Builder {
	return b.element
}
