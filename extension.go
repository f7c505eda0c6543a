package forms

import (
	"context"

	"github.com/pumped-fn/pumped-forms/pkg/control"
)

// Extension provides hooks into the lifecycle of units shared by a scope
type Extension interface {
	// Name returns the extension's name
	Name() string

	// Order determines extension execution order (lower = earlier)
	Order() int

	// Init is called when the extension is registered to a scope
	Init(scope *Scope) error

	// Wrap intercepts operations (bind, build, provide, withdraw)
	Wrap(ctx context.Context, next func() (any, error), op *Operation) (any, error)

	// OnError handles errors of wrapped operations
	OnError(err error, op *Operation, scope *Scope)

	// OnRelease is called after a unit released one of its controls
	OnRelease(ev *ReleaseEvent)

	// Dispose is called when the scope is disposed
	Dispose(scope *Scope) error
}

// ReleaseReason tells why a control was released
type ReleaseReason string

const (
	// ReleaseSuperseded means a rebuild produced a different control
	ReleaseSuperseded ReleaseReason = "superseded"
	// ReleaseTeardown means the unit's scope was disposed
	ReleaseTeardown ReleaseReason = "teardown"
)

// ReleaseEvent describes a control released by a unit
type ReleaseEvent struct {
	Unit    Unit
	Scope   *Scope
	Control control.Control
	Reason  ReleaseReason
}

// BaseExtension provides default implementations for Extension methods
type BaseExtension struct {
	name string
}

// NewBaseExtension creates a new base extension with the given name
func NewBaseExtension(name string) BaseExtension {
	return BaseExtension{name: name}
}

func (e *BaseExtension) Name() string {
	return e.name
}

func (e *BaseExtension) Order() int {
	return 100
}

func (e *BaseExtension) Init(scope *Scope) error {
	return nil
}

func (e *BaseExtension) Wrap(ctx context.Context, next func() (any, error), op *Operation) (any, error) {
	return next()
}

func (e *BaseExtension) OnError(err error, op *Operation, scope *Scope) {
}

func (e *BaseExtension) OnRelease(ev *ReleaseEvent) {
}

func (e *BaseExtension) Dispose(scope *Scope) error {
	return nil
}

// Operation describes what operation is happening
type Operation struct {
	Kind  OperationKind
	Unit  Unit
	Scope *Scope
}

// OperationKind represents the type of operation
type OperationKind string

const (
	// OpBind indicates a unit being shared by a scope
	OpBind OperationKind = "bind"
	// OpBuild indicates a rebuild of unit controls
	OpBuild OperationKind = "build"
	// OpProvide indicates a preset spec contribution
	OpProvide OperationKind = "provide"
	// OpWithdraw indicates a preset spec withdrawal
	OpWithdraw OperationKind = "withdraw"
)
