package auth

import (
	"context"

	"google.golang.org/grpc/metadata"
)

type ctxKey string

const userIDKey ctxKey = "user_id"

// WithUserID is used by the interceptor; handlers read it back with GetUserID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID returns the acting user, or "" for system callers.
func GetUserID(ctx context.Context) string {
	// Check if added to context by interceptor
	if val, ok := ctx.Value(userIDKey).(string); ok {
		return val
	}

	// Fallback to metadata
	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		if val := md.Get("x-user-id"); len(val) > 0 {
			return val[0]
		}
	}
	return ""
}
