package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	consts "github.com/khanhnv2901/veribits-cli/internal/shared/constants"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"
)

// maxRequestIDLen bounds caller-supplied ids before they reach logs and the backend.
const maxRequestIDLen = 128

// RequestID is a middleware that adds a unique request ID to each request.
// A client-provided X-Request-ID is reused; otherwise a UUID is generated.
// The ID is echoed in the response headers and stored in the request context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(consts.HeaderRequestID)
		if requestID == "" || len(requestID) > maxRequestIDLen {
			requestID = uuid.NewString()
		}

		w.Header().Set(consts.HeaderRequestID, requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from the context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
