package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/aditya/ridequote/pkg/utils"
)

// Recovery turns a handler panic into a 500 in the API error shape.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("panic recovered",
					"error", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				utils.InternalError(w, "an unexpected error occurred")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
