package middleware

import (
	"fmt"
	"net/http"

	"github.com/cloo-solutions/wellrag/internal/api"
	"github.com/cloo-solutions/wellrag/internal/domain"
)

// MaxBodyBytes caps request bodies at limit bytes. A declared Content-Length
// over the limit is rejected with UPLOAD_TOO_LARGE before the handler runs;
// chunked bodies are cut off by http.MaxBytesReader and the handler reports
// the same error once it reads past the limit.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > limit {
				api.HandleError(w, domain.Wrap(domain.ErrUploadTooLarge,
					fmt.Errorf("%d bytes exceeds the %d byte limit", r.ContentLength, limit)))
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
