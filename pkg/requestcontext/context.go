// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them, services read them, and neither
// side needs to import net/http for it.
package requestcontext

import "context"

// Context key types (unexported for encapsulation).
type (
	principalKey struct{}
	requestIDKey struct{}
)

// WithPrincipal stores the authenticated username on the context. An empty
// string means the request is unauthenticated.
func WithPrincipal(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, principalKey{}, username)
}

// Principal returns the authenticated username, or "" when the request carries
// no identity.
func Principal(ctx context.Context) string {
	username, ok := ctx.Value(principalKey{}).(string)
	if !ok {
		return ""
	}
	return username
}

// WithRequestID stores the request correlation ID on the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request correlation ID, or "" when absent.
func RequestID(ctx context.Context) string {
	id, ok := ctx.Value(requestIDKey{}).(string)
	if !ok {
		return ""
	}
	return id
}
