package middleware

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// quietRoutes are polled by orchestrators and scrapers; they log at Debug.
var quietRoutes = map[string]bool{
	"/health":  true,
	"/ready":   true,
	"/metrics": true,
}

// Logging returns a middleware that writes one entry per request, keyed by
// route template and item id. A change feed upgrade is logged once when the
// connection is handed over; its lifetime is logged by the feed handler.
func Logging(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			route := routeTemplate(r)
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.Int("status", rw.statusCode),
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("request_id", requestID(r)),
			}
			if id := mux.Vars(r)["id"]; id != "" {
				fields = append(fields, zap.String("item_id", id))
			}

			if rw.hijacked {
				logger.Info("change feed upgrade", fields...)
				return
			}

			fields = append(fields, zap.Duration("duration", time.Since(start)))

			switch {
			case rw.statusCode >= http.StatusInternalServerError:
				logger.Warn("http request", fields...)
			case quietRoutes[route]:
				logger.Debug("http request", fields...)
			default:
				logger.Info("http request", fields...)
			}
		})
	}
}
