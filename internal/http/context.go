package http

import (
	"context"
	"log/slog"

	"github.com/example/shift-roster/internal/logging"
)

type contextKey string

const (
	weekStartContextKey contextKey = "week_start"
	shiftIDContextKey   contextKey = "shift_id"
	requestIDContextKey contextKey = "request_id"
)

// ContextWithWeekStart injects the week start date resolved from the request path.
func ContextWithWeekStart(ctx context.Context, weekStart string) context.Context {
	return context.WithValue(ctx, weekStartContextKey, weekStart)
}

// WeekStartFromContext extracts the week start date previously associated with the context.
func WeekStartFromContext(ctx context.Context) (string, bool) {
	ws, ok := ctx.Value(weekStartContextKey).(string)
	return ws, ok
}

// ContextWithShiftID injects the shift identifier resolved from the request path.
func ContextWithShiftID(ctx context.Context, shiftID string) context.Context {
	return context.WithValue(ctx, shiftIDContextKey, shiftID)
}

// ShiftIDFromContext extracts a shift identifier previously associated with the context.
func ShiftIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(shiftIDContextKey).(string)
	return id, ok
}

// ContextWithRequestID records the id RequestLogger assigned to the request.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}

// RequestIDFromContext returns the request id, if any.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDContextKey).(string)
	return id, ok
}

// ContextWithLogger attaches a request scoped logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext returns the request scoped logger, or nil.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
