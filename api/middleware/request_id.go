package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/showlinehq/showline-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// RequestID assigns an identifier to every request and attaches it to the
// context logger so downstream log lines correlate.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(requestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}

			w.Header().Set(requestIDHeader, requestID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, requestID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
