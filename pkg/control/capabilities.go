package control

import (
	"sync"

	"github.com/pumped-fn/pumped-forms/pkg/reactive"
)

// Scheduler schedules render operations of a control
type Scheduler interface {
	Schedule(op func())
}

// SchedulerFunc adapts a function to Scheduler
type SchedulerFunc func(op func())

func (f SchedulerFunc) Schedule(op func()) {
	f(op)
}

// ImmediateScheduler runs operations synchronously
var ImmediateScheduler Scheduler = SchedulerFunc(func(op func()) { op() })

// NamespaceAliaser resolves a namespace URI to a short alias
type NamespaceAliaser func(ns string) string

var (
	// RenderSchedulerKind is the render scheduling capability
	RenderSchedulerKind = NewKind[Scheduler]("render-scheduler")
	// NamespaceKind is the namespace aliasing capability
	NamespaceKind = NewKind[NamespaceAliaser]("namespace-aliaser")
	// ValidationKind is the validation capability
	ValidationKind = NewKind[*Validation]("validation")
	// ModeKind is the input mode capability
	ModeKind = NewKind[*ModeAspect]("mode")
)

// Validation keeps the validation messages reported for a control.
// A control without messages is valid.
type Validation struct {
	mu       sync.Mutex
	messages *reactive.Keeper[[]string]
	sources  map[string][]string
	order    []string
}

// NewValidation creates a validation without messages
func NewValidation() *Validation {
	return &Validation{
		messages: reactive.NewKeeper[[]string](nil),
		sources:  make(map[string][]string),
	}
}

// ValidationOf returns the validation capability of c, attaching one when missing
func ValidationOf(c Control) *Validation {
	return LookupOrSet(c.Aspects(), ValidationKind, NewValidation)
}

// Report replaces the messages reported by source.
// Reporting no messages clears the source.
func (v *Validation) Report(source string, messages ...string) error {
	v.mu.Lock()
	if _, ok := v.sources[source]; !ok {
		v.order = append(v.order, source)
	}
	v.sources[source] = messages
	var all []string
	for _, name := range v.order {
		all = append(all, v.sources[name]...)
	}
	v.mu.Unlock()

	return v.messages.Write(all)
}

// Messages returns all reported messages in source order
func (v *Validation) Messages() []string {
	msgs, _ := v.messages.Value()
	return msgs
}

// Valid reports whether there are no messages
func (v *Validation) Valid() bool {
	return len(v.Messages()) == 0
}

// Read streams the reported messages
func (v *Validation) Read(receiver reactive.Receiver[[]string]) (*reactive.Supply, error) {
	return v.messages.Read(receiver)
}

// Mode is an input mode of a control
type Mode string

const (
	// ModeOn means the control is enabled
	ModeOn Mode = "on"
	// ModeReadOnly means the control is read-only
	ModeReadOnly Mode = "ro"
	// ModeNoSubmit means the control is enabled but its value is not submitted
	ModeNoSubmit Mode = "-on"
	// ModeOff means the control is disabled
	ModeOff Mode = "off"
)

func (m Mode) rank() int {
	switch m {
	case ModeReadOnly:
		return 1
	case ModeNoSubmit:
		return 2
	case ModeOff:
		return 3
	default:
		return 0
	}
}

// ModeAspect combines the control's own mode with modes derived from other
// sources. The strongest mode wins: off, then -on, then ro, then on.
type ModeAspect struct {
	mu      sync.Mutex
	own     Mode
	derived map[string]Mode
	mode    *reactive.Keeper[Mode]
}

// NewModeAspect creates a mode aspect in ModeOn
func NewModeAspect() *ModeAspect {
	return &ModeAspect{
		own:     ModeOn,
		derived: make(map[string]Mode),
		mode:    reactive.NewKeeper(ModeOn),
	}
}

// ModeOf returns the mode capability of c, attaching one when missing
func ModeOf(c Control) *ModeAspect {
	return LookupOrSet(c.Aspects(), ModeKind, NewModeAspect)
}

// SetOwn sets the control's own mode
func (m *ModeAspect) SetOwn(mode Mode) error {
	m.mu.Lock()
	m.own = mode
	m.mu.Unlock()
	return m.publish()
}

// Derive sets the mode derived from source. An empty mode removes the source.
func (m *ModeAspect) Derive(source string, mode Mode) error {
	m.mu.Lock()
	if mode == "" {
		delete(m.derived, source)
	} else {
		m.derived[source] = mode
	}
	m.mu.Unlock()
	return m.publish()
}

// Mode returns the effective mode
func (m *ModeAspect) Mode() Mode {
	mode, _ := m.mode.Value()
	return mode
}

// Read streams the effective mode
func (m *ModeAspect) Read(receiver reactive.Receiver[Mode]) (*reactive.Supply, error) {
	return m.mode.Read(receiver)
}

func (m *ModeAspect) publish() error {
	m.mu.Lock()
	effective := m.own
	for _, mode := range m.derived {
		if mode.rank() > effective.rank() {
			effective = mode
		}
	}
	m.mu.Unlock()

	if current := m.Mode(); current == effective {
		return nil
	}
	return m.mode.Write(effective)
}
