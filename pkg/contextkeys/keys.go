// Package contextkeys provides centralized context key definitions.
//
// All context keys used across the application must be defined here. This
// prevents typos, documents dependencies, and makes key usage discoverable.
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// PrincipalKey contains *access.Principal for the authenticated session.
	// Set by: middleware.SessionAuth (pkg/middleware/auth.go)
	// Required by: access resolution middleware, audit trail
	PrincipalKey Key = "principal"

	// AccessKey contains *access.Access resolved for the request.
	// Set by: middleware.SessionAuth after resolution
	// Required by: all protected API endpoints
	AccessKey Key = "access"

	// RequestIDKey contains the request ID string (UUID).
	// Set by: middleware.RequestLogger
	// Used by: logger, audit trail
	RequestIDKey Key = "request_id"
)

// WithPrincipal adds the authenticated principal to the context
func WithPrincipal(ctx context.Context, principal interface{}) context.Context {
	return context.WithValue(ctx, PrincipalKey, principal)
}

// WithAccess adds the resolved access value to the context
func WithAccess(ctx context.Context, acc interface{}) context.Context {
	return context.WithValue(ctx, AccessKey, acc)
}

// WithRequestID adds the request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}
