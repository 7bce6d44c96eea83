// Package requesttime pins a single "now" per HTTP request so every timestamp
// written while serving it (requested_at, issued tickets, audit events) agrees.
package requesttime

import (
	"net/http"
	"time"

	"vcanchor/pkg/requestcontext"
)

// Middleware captures the time at request start. Read it with requestcontext.Now.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
