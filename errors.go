package forms

import (
	"errors"
	"fmt"
	"runtime/debug"
)

var (
	// ErrUnbound is matched by errors returned when a unit is accessed
	// before it is shared by a scope
	ErrUnbound = errors.New("unit is not properly shared yet")

	// ErrAlreadyShared is returned when a unit is shared by a second scope
	ErrAlreadyShared = errors.New("unit is already shared by another scope")

	// ErrScopeDisposed is returned when using a disposed scope
	ErrScopeDisposed = errors.New("scope is disposed")
)

// UnboundError reports access to a unit that is not shared yet
type UnboundError struct {
	Unit string
}

func (e *UnboundError) Error() string {
	return e.Unit + " is not properly shared yet"
}

func (e *UnboundError) Is(target error) bool {
	return target == ErrUnbound
}

// BuildError reports a failure of a unit's controls provider
type BuildError struct {
	Unit       string
	Op         OperationKind
	Cause      error
	StackTrace []byte
}

func (e *BuildError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("build error in unit %s during %s: %v", e.Unit, e.Op, e.Cause)
	}
	return fmt.Sprintf("build error in unit %s: %v", e.Unit, e.Cause)
}

func (e *BuildError) Unwrap() error {
	return e.Cause
}

// CreateBuildError wraps the cause of a failed build of unit
func CreateBuildError(unit Unit, op OperationKind, cause error) *BuildError {
	return &BuildError{
		Unit:       unit.String(),
		Op:         op,
		Cause:      cause,
		StackTrace: debug.Stack(),
	}
}
