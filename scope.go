package forms

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/pumped-fn/pumped-forms/pkg/reactive"
)

// Scope owns form units and the presets applied to them.
//
// A unit shared by a scope lives as long as the scope's supply. Scopes form a
// tree: a child scope inherits the presets contributed to its ancestors and is
// disposed together with its parent.
type Scope struct {
	mu          sync.RWMutex
	name        string
	parent      *Scope
	supply      *reactive.Supply
	own         []*Contribution
	inherited   []Spec
	defaultSpec *Spec
	chain       *reactive.Keeper[[]Spec]
	extensions  []Extension
	tags        sync.Map
	shares      map[any]*reactive.Keeper[Unit]
	logger      *slog.Logger
}

// ScopeOption is a modifier for scopes
type ScopeOption func(*Scope)

// WithScopeName returns an option naming a scope
func WithScopeName(name string) ScopeOption {
	return func(s *Scope) {
		s.name = name
	}
}

// WithScopeTag returns an option that sets a tag on a scope
func WithScopeTag[T any](tag Tag[T], val T) ScopeOption {
	return func(s *Scope) {
		tag.SetOnScope(s, val)
	}
}

// WithExtension returns an option that registers an extension to a scope
func WithExtension(ext Extension) ScopeOption {
	return func(s *Scope) {
		if err := s.UseExtension(ext); err != nil {
			panic(err)
		}
	}
}

// WithPreset returns an option contributing a preset spec to a scope
func WithPreset(spec Spec) ScopeOption {
	return func(s *Scope) {
		s.contribute(spec)
	}
}

// WithDefaultPreset returns an option setting the Spec applied after all
// contributed ones. Child scopes inherit it unless they set their own.
func WithDefaultPreset(spec Spec) ScopeOption {
	return func(s *Scope) {
		s.defaultSpec = &spec
	}
}

// WithLogger returns an option setting the scope's logger
func WithLogger(logger *slog.Logger) ScopeOption {
	return func(s *Scope) {
		s.logger = logger
	}
}

// NewScope creates a new root scope with optional configuration
func NewScope(opts ...ScopeOption) *Scope {
	s := newScope(nil)

	for _, opt := range opts {
		opt(s)
	}

	s.chain = reactive.NewKeeper(s.specs())
	return s
}

func newScope(parent *Scope) *Scope {
	s := &Scope{
		name:   "root",
		parent: parent,
		supply: reactive.NewSupply(),
		shares: make(map[any]*reactive.Keeper[Unit]),
		logger: slog.New(slog.DiscardHandler),
	}
	if parent != nil {
		parent.mu.RLock()
		s.extensions = append([]Extension(nil), parent.extensions...)
		s.defaultSpec = parent.defaultSpec
		s.logger = parent.logger
		parent.mu.RUnlock()
		s.name = parent.name + "/child"
	}
	return s
}

// Child creates a scope nested into s.
//
// The child tracks presets contributed to s and is disposed with it.
// Extensions, logger and default preset are inherited unless overridden.
func (s *Scope) Child(opts ...ScopeOption) (*Scope, error) {
	if s.IsDisposed() {
		return nil, fmt.Errorf("%s: %w", s, ErrScopeDisposed)
	}

	child := newScope(s)
	for _, opt := range opts {
		opt(child)
	}
	child.chain = reactive.NewKeeper(child.specs())
	s.supply.OnOff(func(error) {
		if err := child.Dispose(); err != nil {
			s.logger.Error("child scope dispose failed", "scope", child.name, "error", err)
		}
	})

	sub, err := s.chain.Read(func(specs []Spec) error {
		child.mu.Lock()
		child.inherited = specs
		child.mu.Unlock()
		return child.republish()
	})
	if err != nil {
		child.supply.Release()
		return nil, err
	}
	sub.Needs(child.supply)

	return child, nil
}

// Name returns the scope's name
func (s *Scope) Name() string {
	return s.name
}

func (s *Scope) String() string {
	return "[Scope " + s.name + "]"
}

// Parent returns the enclosing scope, or nil for a root scope
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Supply returns the supply bounding the lifetime of everything the scope owns
func (s *Scope) Supply() *reactive.Supply {
	return s.supply
}

// IsDisposed reports whether the scope has been disposed
func (s *Scope) IsDisposed() bool {
	return s.supply.IsOff()
}

// Logger returns the scope's logger
func (s *Scope) Logger() *slog.Logger {
	return s.logger
}

// Presets returns the combined preset of the scope.
//
// A new preset is published each time a spec is contributed to or withdrawn
// from the scope or any of its ancestors.
func (s *Scope) Presets() reactive.Source[Preset] {
	return reactive.Map[[]Spec, Preset](s.chain, func(specs []Spec) Preset {
		s.mu.RLock()
		def := s.defaultSpec
		s.mu.RUnlock()
		if def != nil {
			specs = append(specs[:len(specs):len(specs)], *def)
		}
		return Combine(specs...)
	})
}

// Provide contributes a preset spec to the scope.
//
// Units shared by the scope and its descendants are rebuilt before Provide
// returns. A rebuild failure is returned along with the contribution, which
// stays in place until withdrawn.
func (s *Scope) Provide(spec Spec) (*Contribution, error) {
	if s.IsDisposed() {
		return nil, fmt.Errorf("%s: %w", s, ErrScopeDisposed)
	}

	c := s.contribute(spec)

	s.logger.Debug("preset contributed", "scope", s.name, "preset", spec.String())

	_, err := s.run(&Operation{Kind: OpProvide, Scope: s}, func() (any, error) {
		return nil, s.republish()
	})
	return c, err
}

// contribute appends spec to the scope's own contributions. Releasing the
// contribution's supply withdraws it.
func (s *Scope) contribute(spec Spec) *Contribution {
	c := &Contribution{scope: s, spec: spec, supply: reactive.NewSupply()}
	c.supply.OnOff(func(error) {
		err := s.withdraw(c)
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
	})

	s.mu.Lock()
	s.own = append(s.own, c)
	s.mu.Unlock()
	return c
}

func (s *Scope) withdraw(c *Contribution) error {
	s.mu.Lock()
	for i, existing := range s.own {
		if existing == c {
			s.own = append(s.own[:i:i], s.own[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	if s.IsDisposed() {
		return nil
	}

	s.logger.Debug("preset withdrawn", "scope", s.name, "preset", c.spec.String())

	_, err := s.run(&Operation{Kind: OpWithdraw, Scope: s}, func() (any, error) {
		return nil, s.republish()
	})
	return err
}

func (s *Scope) specs() []Spec {
	s.mu.RLock()
	defer s.mu.RUnlock()

	specs := make([]Spec, 0, len(s.inherited)+len(s.own))
	specs = append(specs, s.inherited...)
	for _, c := range s.own {
		specs = append(specs, c.spec)
	}
	return specs
}

func (s *Scope) republish() error {
	return s.chain.Write(s.specs())
}

// UseExtension registers an extension to the scope
func (s *Scope) UseExtension(ext Extension) error {
	s.mu.Lock()
	s.extensions = append(s.extensions, ext)
	sort.SliceStable(s.extensions, func(i, j int) bool {
		return s.extensions[i].Order() < s.extensions[j].Order()
	})
	s.mu.Unlock()

	return ext.Init(s)
}

// run wraps an operation with the scope's extensions (middleware pattern)
func (s *Scope) run(op *Operation, fn func() (any, error)) (any, error) {
	s.mu.RLock()
	exts := make([]Extension, len(s.extensions))
	copy(exts, s.extensions)
	s.mu.RUnlock()

	next := fn

	// Apply extensions in reverse order (lowest order wraps outermost)
	for i := len(exts) - 1; i >= 0; i-- {
		ext := exts[i]
		currentNext := next
		next = func() (any, error) {
			return ext.Wrap(context.Background(), currentNext, op)
		}
	}

	result, err := next()
	if err != nil {
		for _, ext := range exts {
			ext.OnError(err, op, s)
		}
	}

	return result, err
}

func (s *Scope) notifyRelease(ev *ReleaseEvent) {
	s.mu.RLock()
	exts := make([]Extension, len(s.extensions))
	copy(exts, s.extensions)
	s.mu.RUnlock()

	s.logger.Debug("control released", "unit", ev.Unit.String(), "reason", string(ev.Reason))

	for _, ext := range exts {
		ext.OnRelease(ev)
	}
}

// Dispose releases the scope's supply, which releases every unit it shares
// and disposes every child scope. Then the scope's contributions are
// released and its extensions disposed.
func (s *Scope) Dispose() error {
	if !s.supply.Off(nil) {
		return nil
	}

	s.mu.RLock()
	own := append([]*Contribution(nil), s.own...)
	exts := make([]Extension, len(s.extensions))
	copy(exts, s.extensions)
	s.mu.RUnlock()

	for _, c := range own {
		c.supply.Release()
	}

	s.logger.Debug("scope disposed", "scope", s.name)

	for _, ext := range exts {
		if err := ext.Dispose(s); err != nil {
			return fmt.Errorf("disposing extension %s: %w", ext.Name(), err)
		}
	}

	return nil
}

// GetTag retrieves a tag value from the scope or its nearest ancestor having it
func (s *Scope) GetTag(tag any) (any, bool) {
	for scope := s; scope != nil; scope = scope.parent {
		if val, ok := scope.tags.Load(tag); ok {
			return val, true
		}
	}
	return nil, false
}

// SetTag stores a tag value on the scope
func (s *Scope) SetTag(tag any, val any) {
	s.tags.Store(tag, val)
}

// shareSlot returns the keeper of the unit recorded under key, creating an
// empty one when missing
func (s *Scope) shareSlot(key any) *reactive.Keeper[Unit] {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.shares[key]
	if !ok {
		slot = reactive.NewKeeper[Unit](nil)
		s.shares[key] = slot
	}
	return slot
}

func (s *Scope) putShare(key any, unit Unit) error {
	slot := s.shareSlot(key)
	if current, _ := slot.Value(); current == unit {
		return nil
	}
	return slot.Write(unit)
}

func (s *Scope) getShare(key any) (Unit, bool) {
	s.mu.RLock()
	slot, ok := s.shares[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	unit, _ := slot.Value()
	return unit, unit != nil
}

// Contribution is a preset spec contributed to a scope
type Contribution struct {
	scope  *Scope
	spec   Spec
	supply *reactive.Supply

	mu  sync.Mutex
	err error
}

// Spec returns the contributed spec
func (c *Contribution) Spec() Spec {
	return c.spec
}

// Supply returns the supply that is released once the Spec is withdrawn.
// Releasing it withdraws the Spec.
func (c *Contribution) Supply() *reactive.Supply {
	return c.supply
}

// Withdraw removes the Spec from its scope, rebuilding the affected units.
// Withdrawing twice is a no-op.
func (c *Contribution) Withdraw() error {
	if !c.supply.Off(nil) {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}
