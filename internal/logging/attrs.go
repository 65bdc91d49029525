package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldInvocationID identifies one dispatch invocation across log lines.
	FieldInvocationID = "invocation_id"
	// FieldTopic is the destination topic of a notification.
	FieldTopic = "topic"
	// FieldOutcome is the build outcome being reported.
	FieldOutcome = "outcome"
	// FieldState is the dispatch state machine position.
	FieldState = "state"
	// FieldEventType labels warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint carries a short operator-facing next step.
	FieldErrorHint = "error_hint"
)

// Error returns the canonical attribute for an error value.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// Args converts attributes into the variadic form accepted by slog methods.
func Args(attrs ...slog.Attr) []any {
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	return args
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(NoopHandler{})
}

// NewComponentLogger creates a logger with a standardized component attribute.
// If logger is nil, a no-op logger is used as the base.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(slog.String(FieldComponent, component))
}

// ErrorWithContext logs an error with enforced event_type and error_hint fields.
func ErrorWithContext(logger *slog.Logger, msg, eventType, hint string, attrs ...slog.Attr) {
	if logger == nil {
		return
	}
	attrs = append(attrs, slog.String(FieldEventType, eventType))
	if hint == "" {
		hint = "check logs for details"
	}
	attrs = append(attrs, slog.String(FieldErrorHint, hint))
	logger.Error(msg, Args(attrs...)...)
}

// WarnWithContext is the warning counterpart of ErrorWithContext.
func WarnWithContext(logger *slog.Logger, msg, eventType, hint string, attrs ...slog.Attr) {
	if logger == nil {
		return
	}
	attrs = append(attrs, slog.String(FieldEventType, eventType))
	if hint != "" {
		attrs = append(attrs, slog.String(FieldErrorHint, hint))
	}
	logger.Warn(msg, Args(attrs...)...)
}

// NoopHandler discards all log output.
type NoopHandler struct{}

func (NoopHandler) Enabled(context.Context, slog.Level) bool { return false }

func (NoopHandler) Handle(context.Context, slog.Record) error { return nil }

func (NoopHandler) WithAttrs([]slog.Attr) slog.Handler { return NoopHandler{} }

func (NoopHandler) WithGroup(string) slog.Handler { return NoopHandler{} }
