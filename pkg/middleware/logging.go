package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/easternmills/millops/pkg/contextkeys"
	"github.com/easternmills/millops/pkg/observability"
)

// RequestLogger assigns each request an ID and logs method, path, status and
// duration on completion.
type RequestLogger struct {
	logger *observability.Logger
}

// NewRequestLogger creates the request logging middleware.
func NewRequestLogger(logger *observability.Logger) *RequestLogger {
	return &RequestLogger{logger: logger}
}

// Handler wraps an HTTP handler with request logging.
func (m *RequestLogger) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := contextkeys.WithRequestID(r.Context(), requestID)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(recorder, r.WithContext(ctx))

		m.logger.WithFields(map[string]interface{}{
			"request_id": requestID,
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     recorder.status,
			"duration":   time.Since(start).String(),
			"remote":     clientIP(r),
		}).Info("request completed")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
