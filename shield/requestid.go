package shield

import (
	"log/slog"
	"net/http"

	"github.com/hazyhaar/promptnav/idgen"
	"github.com/hazyhaar/promptnav/kit"
)

var newRequestID = idgen.Prefixed("req_", idgen.UUIDv7())

// RequestID assigns each request an ID, unless the client sent one in
// X-Request-ID, and injects it into the context, the response headers and
// a per-request structured logger that kit.Logging picks up.
func RequestID(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" || len(id) > 64 {
				id = newRequestID()
			}

			ctx := kit.WithRequestID(r.Context(), id)
			w.Header().Set("X-Request-ID", id)

			reqLogger := logger.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			ctx = kit.WithLogger(ctx, reqLogger)
			reqLogger.Debug("shield: request")

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
