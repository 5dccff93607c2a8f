package middleware

import (
	"mime"
	"net/http"
)

// ContentType requires application/json on requests that carry a body
func ContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
			next.ServeHTTP(w, r)
			return
		}

		contentType := r.Header.Get("Content-Type")
		if contentType == "" {
			respondErrorJSON(w, r, http.StatusBadRequest, "ERR_CONTENT_TYPE", "Content-Type header is required", nil)
			return
		}
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil || mediaType != "application/json" {
			respondErrorJSON(w, r, http.StatusUnsupportedMediaType, "ERR_CONTENT_TYPE", "Content-Type must be application/json", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
