package middleware

import (
	"mime"
	"net/http"

	"github.com/weatherodds/weatherodds/internal/api/models"
)

// RequireJSON rejects request bodies that declare a non-JSON content type.
// A missing Content-Type is accepted.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "" {
			mediaType, _, err := mime.ParseMediaType(ct)
			if err != nil || mediaType != "application/json" {
				models.NewUnsupportedMediaType(GetRequestID(r.Context()), "Content-Type must be application/json").
					WithInstance(r.URL.Path).
					Write(w)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
