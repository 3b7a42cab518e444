package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// statusWriter captures the response status code and size
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(data []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(data)
	w.bytes += n
	return n, err
}

// StructuredLogger logs each completed request with latency and status
func StructuredLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w}

			next.ServeHTTP(sw, r)

			requestLogger := GetRequestLogger(r.Context())
			duration := time.Since(GetRequestStart(r.Context()))

			fields := []zap.Field{
				zap.Int("status", sw.status),
				zap.Int("bytes", sw.bytes),
				zap.Duration("duration", duration),
			}

			switch {
			case sw.status >= 500:
				requestLogger.Error("Request completed", fields...)
			case sw.status >= 400:
				requestLogger.Warn("Request completed", fields...)
			default:
				requestLogger.Info("Request completed", fields...)
			}
		})
	}
}
