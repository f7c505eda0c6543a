package forms

import (
	"github.com/pumped-fn/pumped-forms/pkg/reactive"
)

// AdjacentToField creates a provider of a field adjacent to the field
// recorded for share, such as an error indicator of that field.
//
// The adjusted field is looked up in the sharing scope and its ancestors,
// and is tracked: provide is called with the adjusted field's body each time
// it gets new controls. While there is no adjusted field, or it has no
// controls, the adjacent field has no controls either.
func AdjacentToField[V, A any](share *Share[*Field[A]], provide func(b *FieldBuilder[V], adjusted *FieldBody[A]) (*FieldControls[V], error)) FieldProvider[V] {
	return adjacentTo(share.units, provide)
}

// AdjacentToForm creates a provider of a field adjacent to the form recorded
// for share, such as a submit button of that form.
//
// The form is tracked the same way AdjacentToField tracks the adjusted field.
func AdjacentToForm[V, M any](share *Share[*Form[M]], provide func(b *FieldBuilder[V], adjusted *FormBody[M]) (*FieldControls[V], error)) FieldProvider[V] {
	return adjacentTo(share.units, provide)
}

func adjacentTo[V, B any](units func(*Scope) reactive.Source[Unit], provide func(*FieldBuilder[V], *B) (*FieldControls[V], error)) FieldProvider[V] {
	return func(b *FieldBuilder[V]) (reactive.Source[*FieldControls[V]], error) {
		bodies := reactive.SwitchDedup(units(b.Sharer()), func(unit Unit) (reactive.Source[*B], error) {
			src, ok := unit.(reactive.Source[*B])
			if !ok {
				return reactive.Const[*B](nil), nil
			}
			return src, nil
		}, reactive.Dedup[*B]{})

		return reactive.SwitchDedup(bodies, func(body *B) (reactive.Source[*FieldControls[V]], error) {
			if body == nil {
				return reactive.Const[*FieldControls[V]](nil), nil
			}
			controls, err := provide(b, body)
			if err != nil {
				return nil, err
			}
			return reactive.Const(controls), nil
		}, reactive.Dedup[*FieldControls[V]]{}), nil
	}
}
