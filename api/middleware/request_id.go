package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/AmielDylan/sendbox-sub002/pkg/logger"
)

const (
	requestIDHeader = "X-Request-Id"
	maxRequestIDLen = 64
)

// RequestID propagates the caller's request identifier, or mints one, so
// a capture or release attempt can be traced across the API and the
// provider dashboards.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := requestIDFrom(r)

			w.Header().Set(requestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requestIDFrom(r *http.Request) string {
	reqID := r.Header.Get(requestIDHeader)
	if reqID == "" || len(reqID) > maxRequestIDLen {
		return uuid.NewString()
	}
	return reqID
}
