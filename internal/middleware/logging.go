package middleware

import (
	"net/http"
	"time"

	"github.com/aditya/rideshare/pkg/logger"
	"github.com/go-chi/chi/v5/middleware"
)

// Logger logs each request once it has been served.
func Logger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				entry := log.WithFields(map[string]interface{}{
					"method":      r.Method,
					"path":        r.URL.Path,
					"route":       routePattern(r),
					"status":      ww.Status(),
					"latency_ms":  time.Since(start).Milliseconds(),
					"remote_addr": r.RemoteAddr,
					"request_id":  middleware.GetReqID(r.Context()),
				})

				switch {
				case ww.Status() >= 500:
					entry.Error("request failed")
				case ww.Status() >= 400:
					entry.Warn("request rejected")
				default:
					entry.Info("request served")
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
