package logging

import (
	"context"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// LenderKey is the context key for the lender a request concerns.
	LenderKey contextKey = "lender"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithLender adds a lender name to the context.
func WithLender(ctx context.Context, lender string) context.Context {
	return context.WithValue(ctx, LenderKey, lender)
}

// Lender retrieves the lender name from the context.
func Lender(ctx context.Context) string {
	if lender, ok := ctx.Value(LenderKey).(string); ok {
		return lender
	}
	return ""
}
