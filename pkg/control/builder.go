package control

import "sync"

// Options is the configuration a control is constructed with
type Options struct {
	// Aspects holds capabilities to attach to the control.
	Aspects *Aspects
	// Tags is the ordered trace of configuration steps applied.
	Tags []string

	afterBuild []func(Control) error
}

// NewOptions creates empty options
func NewOptions() *Options {
	return &Options{Aspects: NewAspects()}
}

// Tag appends a tag to the configuration trace
func (o *Options) Tag(tag string) {
	o.Tags = append(o.Tags, tag)
}

// AfterBuild registers a hook to run on the constructed control
func (o *Options) AfterBuild(fn func(Control) error) {
	o.afterBuild = append(o.afterBuild, fn)
}

// Builder accumulates deferred configuration steps of a control.
//
// Steps are not applied when added. They run in registration order each time
// a control is constructed with Build, against fresh Options.
type Builder struct {
	mu    sync.Mutex
	steps []func(*Options)
}

// NewBuilder creates a builder without steps
func NewBuilder() *Builder {
	return &Builder{}
}

// Setup appends a configuration step
func (b *Builder) Setup(step func(*Options)) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.steps = append(b.steps, step)
	return b
}

// Tag appends a step recording tag in the configuration trace
func (b *Builder) Tag(tag string) *Builder {
	return b.Setup(func(opts *Options) {
		opts.Tag(tag)
	})
}

// Len returns the number of registered steps
func (b *Builder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.steps)
}

// Options applies all registered steps to fresh options
func (b *Builder) Options() *Options {
	b.mu.Lock()
	steps := make([]func(*Options), len(b.steps))
	copy(steps, b.steps)
	b.mu.Unlock()

	opts := NewOptions()
	for _, step := range steps {
		step(opts)
	}
	return opts
}

// Provide appends a step attaching a capability of the given kind
func Provide[A any](b *Builder, kind Kind[A], value A) *Builder {
	return b.Setup(func(opts *Options) {
		Set(opts.Aspects, kind, value)
	})
}

// Build constructs a control by factory, applying the builder's steps first
// and running after-build hooks on the result.
// When a hook fails the control is released and the error returned.
func Build[C Control](b *Builder, factory func(*Options) C) (C, error) {
	opts := b.Options()
	ctl := factory(opts)
	for _, fn := range opts.afterBuild {
		if err := fn(ctl); err != nil {
			ctl.Supply().Off(err)
			var zero C
			return zero, err
		}
	}
	return ctl, nil
}
