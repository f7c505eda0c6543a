package extensions

import (
	"context"
	"log/slog"
	"time"

	forms "github.com/pumped-fn/pumped-forms"
)

// LoggingExtension logs unit operations and control releases.
//
// Successful operations are logged at DEBUG level, failures at ERROR level
// and releases at INFO level.
type LoggingExtension struct {
	forms.BaseExtension
	logger *slog.Logger
}

// NewLoggingExtension creates a new logging extension
func NewLoggingExtension(logHandler slog.Handler) *LoggingExtension {
	return &LoggingExtension{
		BaseExtension: forms.NewBaseExtension("logging"),
		logger:        slog.New(logHandler),
	}
}

// Order places logging outside of other extensions
func (e *LoggingExtension) Order() int {
	return 10
}

func (e *LoggingExtension) Wrap(ctx context.Context, next func() (any, error), op *forms.Operation) (any, error) {
	start := time.Now()
	result, err := next()

	duration := time.Since(start)
	if err != nil {
		e.logger.ErrorContext(ctx, "operation failed", append(opAttrs(op),
			"duration", duration,
			"error", err.Error(),
		)...)
	} else {
		e.logger.DebugContext(ctx, "operation completed", append(opAttrs(op),
			"duration", duration,
		)...)
	}

	return result, err
}

func (e *LoggingExtension) OnRelease(ev *forms.ReleaseEvent) {
	e.logger.Info("control released",
		"unit", ev.Unit.String(),
		"scope", ev.Scope.Name(),
		"reason", string(ev.Reason),
	)
}

func opAttrs(op *forms.Operation) []any {
	attrs := []any{"operation", string(op.Kind)}
	if op.Unit != nil {
		attrs = append(attrs, "unit", op.Unit.String())
	}
	if op.Scope != nil {
		attrs = append(attrs, "scope", op.Scope.Name())
	}
	return attrs
}
