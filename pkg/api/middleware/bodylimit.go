package middleware

import (
	"fmt"
	"net/http"

	"github.com/marmos91/excelsior/internal/bytesize"
	"github.com/marmos91/excelsior/internal/logger"
	"github.com/marmos91/excelsior/pkg/api/response"
)

// BodyLimit caps request bodies at limit. A declared Content-Length above
// the limit is rejected with 413 before the handler runs. Bodies without a
// length are cut off by http.MaxBytesReader; the JSON decoding helpers turn
// the resulting *http.MaxBytesError into a 413.
func BodyLimit(limit bytesize.ByteSize) func(http.Handler) http.Handler {
	n := limit.Int64()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > n {
				logger.DebugCtx(r.Context(), "Request body rejected",
					"content_length", r.ContentLength, "limit", limit.String())
				response.PayloadTooLarge(w, fmt.Sprintf("request body exceeds %s", limit))
				return
			}
			if r.Body != nil && r.Body != http.NoBody {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}
