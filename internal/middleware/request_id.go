package middleware

import (
	"fmt"
	"net/http"
	"time"

	"threadhub/internal/contextutils"

	"github.com/gofrs/uuid"
)

// Request ID header constants
const (
	HeaderXRequestID     = "X-Request-ID"
	HeaderXCorrelationID = "X-Correlation-ID"
)

// RequestID generates or propagates a correlation ID for every request.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderXRequestID)
		if requestID == "" {
			requestID = r.Header.Get(HeaderXCorrelationID)
		}
		if requestID == "" {
			if id, err := uuid.NewV4(); err == nil {
				requestID = id.String()
			} else {
				requestID = fmt.Sprintf("fallback-%d", time.Now().UnixNano())
			}
		}

		w.Header().Set(HeaderXRequestID, requestID)

		ctx := contextutils.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
