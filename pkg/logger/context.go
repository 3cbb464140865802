package logger

import (
	"context"
	"log/slog"
)

type userIDKey struct{}

// ContextWithUserID returns a copy of ctx carrying the session user id.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext returns the user id stored by ContextWithUserID.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey{}).(string)
	return id, ok && id != ""
}

// UserIDExtractor is a ContextExtractor that logs the user id carried by ctx.
// Register it with WithContextExtractors.
func UserIDExtractor(ctx context.Context) (slog.Attr, bool) {
	id, ok := UserIDFromContext(ctx)
	if !ok {
		return slog.Attr{}, false
	}
	return UserID(id), true
}
