package extensions

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	forms "github.com/pumped-fn/pumped-forms"
)

// UnitDebugExtension logs the units of the failing scope when an operation
// fails.
//
// Usage:
//
//	// Human-readable formatted output (with line breaks)
//	handler := extensions.NewHumanHandler(os.Stdout, slog.LevelError)
//	ext := extensions.NewUnitDebugExtension(handler)
//
//	// Structured JSON logging (compact, machine-readable)
//	handler := slog.NewJSONHandler(os.Stdout, nil)
//	ext := extensions.NewUnitDebugExtension(handler)
//
//	// Silent (for testing)
//	ext := extensions.NewUnitDebugExtension(extensions.NewSilentHandler())
type UnitDebugExtension struct {
	forms.BaseExtension

	mu      sync.Mutex
	scopes  []*forms.Scope
	units   map[*forms.Scope][]forms.Unit
	builds  map[forms.Unit]int
	failed  map[forms.Unit]error
	release map[forms.Unit]int
	logger  *slog.Logger
}

// NewUnitDebugExtension creates a new unit debug extension.
// logHandler: slog.Handler for logging (use HumanHandler for formatted output, or any other slog.Handler)
func NewUnitDebugExtension(logHandler slog.Handler) *UnitDebugExtension {
	return &UnitDebugExtension{
		BaseExtension: forms.NewBaseExtension("unit-debug"),
		units:         make(map[*forms.Scope][]forms.Unit),
		builds:        make(map[forms.Unit]int),
		failed:        make(map[forms.Unit]error),
		release:       make(map[forms.Unit]int),
		logger:        slog.New(logHandler),
	}
}

// Wrap tracks bound units and the outcome of their builds
func (e *UnitDebugExtension) Wrap(ctx context.Context, next func() (any, error), op *forms.Operation) (any, error) {
	if op.Kind == forms.OpBind {
		e.track(op.Scope, op.Unit)
	}

	result, err := next()

	if op.Kind == forms.OpBuild {
		e.mu.Lock()
		if err != nil {
			e.failed[op.Unit] = err
		} else {
			e.builds[op.Unit]++
			delete(e.failed, op.Unit)
		}
		e.mu.Unlock()
	}

	return result, err
}

func (e *UnitDebugExtension) track(scope *forms.Scope, unit forms.Unit) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.units[scope]; !ok {
		e.scopes = append(e.scopes, scope)
	}
	for _, known := range e.units[scope] {
		if known == unit {
			return
		}
	}
	e.units[scope] = append(e.units[scope], unit)
}

func (e *UnitDebugExtension) OnRelease(ev *forms.ReleaseEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.release[ev.Unit]++
}

// OnError logs the units tree of the scope when an operation fails
func (e *UnitDebugExtension) OnError(err error, op *forms.Operation, scope *forms.Scope) {
	unitName := "(none)"
	if op.Unit != nil {
		unitName = op.Unit.String()
	}

	e.logger.Error("Form Unit Error",
		"unit", unitName,
		"error", err.Error(),
		"operation", string(op.Kind),
		"unit_tree", e.formatUnitTree(op.Unit, err),
	)
}

// Dispose forgets the units of the disposed scope
func (e *UnitDebugExtension) Dispose(scope *forms.Scope) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, unit := range e.units[scope] {
		delete(e.builds, unit)
		delete(e.failed, unit)
		delete(e.release, unit)
	}
	delete(e.units, scope)
	for i, known := range e.scopes {
		if known == scope {
			e.scopes = append(e.scopes[:i:i], e.scopes[i+1:]...)
			break
		}
	}
	return nil
}

// Builds returns the number of successful builds of unit
func (e *UnitDebugExtension) Builds(unit forms.Unit) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.builds[unit]
}

// Releases returns the number of controls released by unit
func (e *UnitDebugExtension) Releases(unit forms.Unit) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.release[unit]
}

func (e *UnitDebugExtension) formatUnitTree(failedUnit forms.Unit, failedErr error) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	var sb strings.Builder

	if len(e.scopes) == 0 {
		sb.WriteString("\n(empty - no units shared)")
		return sb.String()
	}

	sb.WriteString("\n")

	for _, scope := range e.scopes {
		indent := strings.Repeat("  ", scopeDepth(scope))
		units := e.units[scope]

		sb.WriteString(fmt.Sprintf("%s  %s\n", indent, scope))

		for i, unit := range units {
			name := unit.String() + " " + e.unitStatus(unit, failedUnit)
			if i == len(units)-1 {
				sb.WriteString(fmt.Sprintf("%s    └─> %s\n", indent, name))
			} else {
				sb.WriteString(fmt.Sprintf("%s    ├─> %s\n", indent, name))
			}
		}
	}

	if failedUnit != nil && failedErr != nil {
		sb.WriteString("\nError Details:\n")
		sb.WriteString(fmt.Sprintf("  Unit: %s\n", failedUnit))
		sb.WriteString(fmt.Sprintf("  Error: %v\n", failedErr))
	}

	return sb.String()
}

func (e *UnitDebugExtension) unitStatus(unit, failedUnit forms.Unit) string {
	switch {
	case unit == failedUnit:
		return "❌ FAILED"
	case e.failed[unit] != nil:
		return fmt.Sprintf("❌ (error: %v)", e.failed[unit])
	case unit.State() == forms.StateReleased:
		return "(released)"
	case e.builds[unit] > 0:
		return fmt.Sprintf("✓ (%s, builds: %d)", unit.State(), e.builds[unit])
	default:
		return "(pending)"
	}
}

func scopeDepth(scope *forms.Scope) int {
	depth := 0
	for p := scope.Parent(); p != nil; p = p.Parent() {
		depth++
	}
	return depth
}
