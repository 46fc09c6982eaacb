package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kudipay/settler/internal/handlers/requestid"
)

// RequestIDMiddleware mints a request id for every request and echoes it in
// the X-Request-ID response header. Every response body carries it too, so a
// support ticket can be matched to the server logs.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := uuid.NewString()

			w.Header().Set("X-Request-ID", id)
			ctx := requestid.New(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
