package middleware

import (
	"net/http"
	"strings"

	"github.com/benvon/task-analyzer/internal/request"
	"github.com/google/uuid"
)

const maxInboundRequestIDLength = 128

// RequestID propagates a caller supplied X-Request-ID or assigns a new UUID.
// The id is echoed on the response and stored in the request context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(request.RequestIDHeader))
		if id == "" || len(id) > maxInboundRequestIDLength {
			id = uuid.NewString()
		}
		w.Header().Set(request.RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(request.WithRequestID(r.Context(), id)))
	})
}
