// Package requesttime gives every HTTP request a single "now" reading and
// bridges chi's request id into requestcontext, so services see consistent
// timestamps (dedup windows, createdAt) without importing net/http.
package requesttime

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"expertdesk/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request and
// stores it, together with the chi request id, in the context.
// Mount it after chimw.RequestID.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		if reqID := chimw.GetReqID(ctx); reqID != "" {
			ctx = requestcontext.WithRequestID(ctx, reqID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
