package forms

// Spec is a partial form preset contributed to a scope.
//
// Either setup step may be nil, in which case the Spec leaves the
// corresponding builders untouched.
type Spec struct {
	// Name identifies the Spec in logs.
	Name string
	// SetupField sets up a field builder.
	SetupField func(b FieldSetup)
	// SetupForm sets up a form builder.
	SetupForm func(b FormSetup)
}

func (s Spec) String() string {
	if s.Name == "" {
		return "[FormPreset.Spec]"
	}
	return "[FormPreset.Spec " + s.Name + "]"
}

// Preset is an ordered combination of specs.
//
// Steps run in contribution order against the same builder, each one seeing
// the configuration appended by the steps before it.
type Preset struct {
	names []string
	field []func(FieldSetup)
	form  []func(FormSetup)
}

// Combine combines specs into a single preset, preserving their order
func Combine(specs ...Spec) Preset {
	var p Preset
	for _, spec := range specs {
		p.names = append(p.names, spec.Name)
		if spec.SetupField != nil {
			p.field = append(p.field, spec.SetupField)
		}
		if spec.SetupForm != nil {
			p.form = append(p.form, spec.SetupForm)
		}
	}
	return p
}

// SetupField applies every field step in order
func (p Preset) SetupField(b FieldSetup) {
	for _, step := range p.field {
		step(b)
	}
}

// SetupForm applies every form step in order
func (p Preset) SetupForm(b FormSetup) {
	for _, step := range p.form {
		step(b)
	}
}

// Names returns the names of the combined specs in order
func (p Preset) Names() []string {
	return p.names
}

// Len returns the number of combined specs
func (p Preset) Len() int {
	return len(p.names)
}

func (p Preset) String() string {
	return "[FormPreset]"
}
