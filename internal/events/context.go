package events

import "context"

type taskIDKey struct{}

// ContextWithTaskID returns a new context carrying the subagent task ID,
// so handlers several layers below a dispatch can log with correlation
// without threading an extra parameter through every call.
func ContextWithTaskID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, taskIDKey{}, id)
}

// TaskIDFromContext extracts the task ID from the context, or "" if absent.
func TaskIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(taskIDKey{}).(string); ok {
		return id
	}
	return ""
}
