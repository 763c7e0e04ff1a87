package utils

import "context"

type contextKey string

const WaiterIDKey contextKey = "waiter_id"

// SetWaiterContext sets the authenticated waiter into context (called by middleware)
func SetWaiterContext(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, WaiterIDKey, id)
}

// GetWaiterIDFromContext retrieves the waiter id safely
func GetWaiterIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(WaiterIDKey).(int64)
	return id, ok
}
