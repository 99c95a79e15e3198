package request

import (
	"net/http"
)

// DefaultImageBodyLimit bounds document and face uploads.
const DefaultImageBodyLimit int64 = 10 << 20

// BodyLimit returns middleware that limits the size of request bodies.
// http.MaxBytesReader fails reads past the limit, which multipart parsing and
// io.ReadAll surface as errors; handlers answer those with 413.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
