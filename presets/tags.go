package presets

import (
	"strings"

	forms "github.com/pumped-fn/pumped-forms"
)

// Tags returns a preset Spec appending tags to the configuration trace of every
// control built for a unit, form elements included
func Tags(tags ...string) forms.Spec {
	tags = append([]string(nil), tags...)

	return forms.Spec{
		Name: "tags(" + strings.Join(tags, ",") + ")",
		SetupField: func(b forms.FieldSetup) {
			for _, tag := range tags {
				b.Control().Tag(tag)
			}
		},
		SetupForm: func(b forms.FormSetup) {
			for _, tag := range tags {
				b.Control().Tag(tag)
				b.Element().Tag(tag)
			}
		},
	}
}
