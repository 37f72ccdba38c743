package auth

import (
	"context"

	"github.com/yourorg/placements/internal/domain"
)

type usernameContextKey struct{}
type serviceNameContextKey struct{}

// ContextWithUsername stores the authenticated principal's username.
func ContextWithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameContextKey{}, username)
}

// UsernameFromContext returns the principal's username, or "" when the
// request carries no principal.
func UsernameFromContext(ctx context.Context) string {
	if username, ok := ctx.Value(usernameContextKey{}).(string); ok {
		return username
	}
	return ""
}

// ContextWithServiceName stores which placement service the request acts for.
func ContextWithServiceName(ctx context.Context, service domain.ServiceName) context.Context {
	return context.WithValue(ctx, serviceNameContextKey{}, service)
}

// ServiceNameFromContext returns the active service, or "" when none was set.
func ServiceNameFromContext(ctx context.Context) domain.ServiceName {
	if service, ok := ctx.Value(serviceNameContextKey{}).(domain.ServiceName); ok {
		return service
	}
	return ""
}
