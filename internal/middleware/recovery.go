package middleware

import (
	"net/http"
	"runtime/debug"

	"threadhub/internal/contextutils"
	"threadhub/internal/response"
	"threadhub/internal/services"

	"go.uber.org/zap"
)

// Recovery converts downstream panics into a masked 500 response.
func Recovery(logger *zap.Logger, builder *response.Builder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rec),
						zap.String("request_id", contextutils.GetRequestID(r.Context())),
						zap.String("path", r.URL.Path),
						zap.ByteString("stack", debug.Stack()),
					)
					builder.Error(w, r, services.NewInternalError("internal server error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
