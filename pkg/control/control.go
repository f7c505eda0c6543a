// Package control provides the input control boundary used by form units:
// a capability registry, a builder of deferred control configuration, and
// minimal value and element controls.
package control

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/pumped-fn/pumped-forms/pkg/reactive"
)

// ErrReleased is returned when modifying a control whose supply is off
var ErrReleased = errors.New("control is released")

// Control is an input control as seen by form units
type Control interface {
	// Supply guards the resources held by the control.
	Supply() *reactive.Supply
	// Aspects returns the control's capabilities.
	Aspects() *Aspects
	// Tags returns the configuration trace the control was built with.
	Tags() []string
}

// IsAbsent reports whether c holds no control, a typed nil included
func IsAbsent(c Control) bool {
	if c == nil {
		return true
	}
	v := reflect.ValueOf(c)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// Same reports whether a and b are the same control.
// Controls are identified by their supplies, so any implementation compares
// safely. Two absent controls are the same.
func Same(a, b Control) bool {
	absentA, absentB := IsAbsent(a), IsAbsent(b)
	if absentA || absentB {
		return absentA == absentB
	}
	return a.Supply() == b.Supply()
}

// Valued is a control holding a value of type V
type Valued[V any] interface {
	Control
	Value() V
	SetValue(V) error
	Read(receiver reactive.Receiver[V]) (*reactive.Supply, error)
}

// Value is a control keeping a value in a reactive keeper
type Value[V any] struct {
	keeper  *reactive.Keeper[V]
	aspects *Aspects
	tags    []string
	supply  *reactive.Supply
}

// NewValue creates a value control. opts may be nil.
func NewValue[V any](initial V, opts *Options) *Value[V] {
	if opts == nil {
		opts = NewOptions()
	}
	tags := make([]string, len(opts.Tags))
	copy(tags, opts.Tags)

	return &Value[V]{
		keeper:  reactive.NewKeeper(initial),
		aspects: opts.Aspects,
		tags:    tags,
		supply:  reactive.NewSupply(),
	}
}

func (c *Value[V]) Supply() *reactive.Supply {
	return c.supply
}

func (c *Value[V]) Aspects() *Aspects {
	return c.aspects
}

func (c *Value[V]) Tags() []string {
	return c.tags
}

// Value returns the current value
func (c *Value[V]) Value() V {
	v, _ := c.keeper.Value()
	return v
}

// SetValue updates the value and notifies readers
func (c *Value[V]) SetValue(v V) error {
	if c.supply.IsOff() {
		return ErrReleased
	}
	return c.keeper.Write(v)
}

// Read streams the control's value until the returned supply or the control
// itself is released
func (c *Value[V]) Read(receiver reactive.Receiver[V]) (*reactive.Supply, error) {
	sub, err := c.keeper.Read(receiver)
	if err != nil {
		return nil, err
	}
	return sub.Needs(c.supply), nil
}

func (c *Value[V]) String() string {
	return fmt.Sprintf("[Value %v]", c.Value())
}

// Element is a form element control submitting another control
type Element struct {
	name    string
	form    Control
	aspects *Aspects
	tags    []string
	supply  *reactive.Supply
}

// NewElement creates an element control submitting form. opts may be nil.
// The element is released together with the submitted control.
func NewElement(name string, form Control, opts *Options) *Element {
	if opts == nil {
		opts = NewOptions()
	}
	tags := make([]string, len(opts.Tags))
	copy(tags, opts.Tags)

	e := &Element{
		name:    name,
		form:    form,
		aspects: opts.Aspects,
		tags:    tags,
		supply:  reactive.NewSupply(),
	}
	if form != nil {
		e.supply.Needs(form.Supply())
	}
	return e
}

func (e *Element) Supply() *reactive.Supply {
	return e.supply
}

func (e *Element) Aspects() *Aspects {
	return e.aspects
}

func (e *Element) Tags() []string {
	return e.tags
}

// Name returns the element's name
func (e *Element) Name() string {
	return e.name
}

// Form returns the control the element submits
func (e *Element) Form() Control {
	return e.form
}

func (e *Element) String() string {
	return "[Element " + e.name + "]"
}
