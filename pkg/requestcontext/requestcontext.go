// Package requestcontext carries request-scoped values (request ID, operator
// subject and the request's "now") through context.Context.
package requestcontext

import (
	"context"
	"time"
)

type (
	requestIDKey struct{}
	subjectKey   struct{}
	nowKey       struct{}
	clientIPKey  struct{}
	deviceKey    struct{}
)

// WithRequestID stores the correlation ID for the current request.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the correlation ID or an empty string.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

// WithSubject stores the authenticated operator subject (JWT "sub").
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey{}, subject)
}

// Subject returns the authenticated operator subject, if any.
func Subject(ctx context.Context) string {
	v, _ := ctx.Value(subjectKey{}).(string)
	return v
}

// WithClientIP stores the caller's address for logging.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// ClientIP returns the caller's address, if recorded.
func ClientIP(ctx context.Context) string {
	v, _ := ctx.Value(clientIPKey{}).(string)
	return v
}

// WithClientDevice stores the caller's client label ("Firefox on Linux").
func WithClientDevice(ctx context.Context, label string) context.Context {
	return context.WithValue(ctx, deviceKey{}, label)
}

// ClientDevice returns the caller's client label, if recorded.
func ClientDevice(ctx context.Context) string {
	v, _ := ctx.Value(deviceKey{}).(string)
	return v
}

// WithTime pins "now" for everything downstream of ctx. Workers and tests use it
// to get a consistent timestamp across a batch of operations.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, nowKey{}, t)
}

// Now returns the request-scoped time, falling back to time.Now().
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(nowKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}
