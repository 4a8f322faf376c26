// Package request provides request ID middleware. Every request gets a
// UUID request id, echoed in the X-Request-ID response header and carried
// in context for log correlation.
package request

import (
	"context"
	"net/http"

	"gatherhall/pkg/requestcontext"

	"github.com/google/uuid"
)

const headerRequestID = "X-Request-ID"

// Middleware assigns a request ID, honoring an inbound X-Request-ID when
// the caller (gateway, load balancer) already set one.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(headerRequestID, requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}
